// Package orchestrator runs the worker's periodic jobs.
package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"paytrack/internal/model"
	"paytrack/pkg/metrics"
)

// Overduer moves pending payments due before today to overdue.
type Overduer interface {
	MarkOverdue(ctx context.Context, today time.Time) ([]model.Payment, error)
}

type OverdueSweep struct {
	payments Overduer
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

func NewOverdueSweep(payments Overduer, interval time.Duration, logger *zap.Logger) *OverdueSweep {
	if interval <= 0 {
		interval = time.Hour
	}
	return &OverdueSweep{
		payments: payments,
		interval: interval,
		timeout:  30 * time.Second,
		now:      time.Now,
		logger:   logger,
	}
}

// WithClock replaces the sweep's notion of today.
func (s *OverdueSweep) WithClock(now func() time.Time) *OverdueSweep {
	s.now = now
	return s
}

// CheckAndMarkOverdue runs one sweep and returns the payments it changed.
func (s *OverdueSweep) CheckAndMarkOverdue(ctx context.Context) ([]model.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	today := model.TruncateDate(s.now())
	changed, err := s.payments.MarkOverdue(ctx, today)
	if err != nil {
		s.logger.Error("Overdue sweep failed", zap.Error(err))
		return nil, err
	}

	metrics.AddOverduePayments(len(changed))
	if len(changed) == 0 {
		s.logger.Debug("No overdue payments found")
		return changed, nil
	}
	for _, p := range changed {
		s.logger.Info("Payment marked overdue",
			zap.String("payment_id", p.ID),
			zap.String("project_id", p.ProjectID),
			zap.String("due_date", model.FormatDate(p.DueDate)),
		)
	}
	s.logger.Info("Overdue sweep completed", zap.Int("overdue_count", len(changed)))
	return changed, nil
}

// Start sweeps immediately and then on every tick until ctx is cancelled.
func (s *OverdueSweep) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("Overdue sweep started", zap.Duration("interval", s.interval))
	_, _ = s.CheckAndMarkOverdue(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Overdue sweep stopped")
			return
		case <-ticker.C:
			_, _ = s.CheckAndMarkOverdue(ctx)
		}
	}
}
