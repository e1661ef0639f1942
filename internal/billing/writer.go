package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"paytrack/internal/model"
	"paytrack/pkg/metrics"
)

// ErrNothingWritten means no payment of a schedule was persisted.
var ErrNothingWritten = errors.New("no payment was written")

// PaymentWriter persists generated payments.
type PaymentWriter interface {
	InsertPayment(ctx context.Context, p *model.Payment) error
	DeletePayment(ctx context.Context, id string) error
}

// BatchStrategy decides how a schedule is written.
type BatchStrategy interface {
	Name() string
	Write(ctx context.Context, w PaymentWriter, payments []model.Payment) (WriteResult, error)
}

// WriteResult reports what a strategy left in the store.
type WriteResult struct {
	Written []model.Payment
	Failed  int
}

// ParseStrategy maps the billing.batch_mode setting to a strategy.
func ParseStrategy(mode string, writeTimeout time.Duration, logger *zap.Logger) (BatchStrategy, error) {
	switch mode {
	case "", "best_effort":
		return &BestEffort{WriteTimeout: writeTimeout, Logger: logger}, nil
	case "all_or_nothing":
		return &AllOrNothing{WriteTimeout: writeTimeout, Logger: logger}, nil
	}
	return nil, fmt.Errorf("unknown batch mode %q", mode)
}

func insertWithTimeout(ctx context.Context, w PaymentWriter, p *model.Payment, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return w.InsertPayment(ctx, p)
}

// BestEffort writes every payment independently. A failed insert is logged
// and skipped; the batch succeeds if at least one payment was written.
type BestEffort struct {
	WriteTimeout time.Duration
	Logger       *zap.Logger
}

func (s *BestEffort) Name() string { return "best_effort" }

func (s *BestEffort) Write(ctx context.Context, w PaymentWriter, payments []model.Payment) (WriteResult, error) {
	var res WriteResult
	var lastErr error
	for i := range payments {
		p := payments[i]
		if err := insertWithTimeout(ctx, w, &p, s.WriteTimeout); err != nil {
			res.Failed++
			lastErr = err
			s.Logger.Error("Failed to write scheduled payment",
				zap.String("project_id", p.ProjectID),
				zap.Int("index", i),
				zap.String("description", p.Description),
				zap.Error(err),
			)
			continue
		}
		res.Written = append(res.Written, p)
	}

	if len(payments) > 0 && len(res.Written) == 0 {
		return res, fmt.Errorf("%w: %w", ErrNothingWritten, lastErr)
	}
	return res, nil
}

// AllOrNothing stops at the first failed insert and deletes what it already wrote.
type AllOrNothing struct {
	WriteTimeout time.Duration
	Logger       *zap.Logger
}

func (s *AllOrNothing) Name() string { return "all_or_nothing" }

func (s *AllOrNothing) Write(ctx context.Context, w PaymentWriter, payments []model.Payment) (WriteResult, error) {
	var res WriteResult
	for i := range payments {
		p := payments[i]
		if err := insertWithTimeout(ctx, w, &p, s.WriteTimeout); err != nil {
			res.Failed = len(payments) - len(res.Written)
			s.Logger.Error("Scheduled payment write failed, compensating",
				zap.String("project_id", p.ProjectID),
				zap.Int("index", i),
				zap.Int("to_delete", len(res.Written)),
				zap.Error(err),
			)
			s.compensate(ctx, w, res.Written)
			metrics.AddScheduledPayments(s.Name(), "compensated", len(res.Written))
			res.Written = nil
			return res, fmt.Errorf("%w: payment %d of %d: %w", ErrNothingWritten, i+1, len(payments), err)
		}
		res.Written = append(res.Written, p)
	}
	return res, nil
}

func (s *AllOrNothing) compensate(ctx context.Context, w PaymentWriter, written []model.Payment) {
	// compensating deletes run even when ctx is already cancelled
	ctx = context.WithoutCancel(ctx)
	for _, p := range written {
		if err := deleteWithTimeout(ctx, w, p.ID, s.WriteTimeout); err != nil {
			s.Logger.Error("Compensating delete failed",
				zap.String("payment_id", p.ID),
				zap.String("project_id", p.ProjectID),
				zap.Error(err),
			)
		}
	}
}

func deleteWithTimeout(ctx context.Context, w PaymentWriter, id string, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return w.DeletePayment(ctx, id)
}

// Scheduler generates a project's schedule and persists it with a strategy.
type Scheduler struct {
	writer   PaymentWriter
	strategy BatchStrategy
	logger   *zap.Logger
	now      func() time.Time
}

func NewScheduler(writer PaymentWriter, strategy BatchStrategy, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		writer:   writer,
		strategy: strategy,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock replaces the clock used to anchor schedules without a payment date.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Run generates and writes the schedule of p. A non-recurring project yields
// an empty result and no error.
func (s *Scheduler) Run(ctx context.Context, p model.Project) (WriteResult, error) {
	payments, err := GenerateSchedule(p, s.now())
	if err != nil {
		return WriteResult{}, err
	}
	if len(payments) == 0 {
		s.logger.Info("Project is not recurring, no schedule generated",
			zap.String("project_id", p.ID),
		)
		return WriteResult{}, nil
	}

	res, err := s.strategy.Write(ctx, s.writer, payments)
	metrics.AddScheduledPayments(s.strategy.Name(), "written", len(res.Written))
	metrics.AddScheduledPayments(s.strategy.Name(), "failed", res.Failed)
	if err != nil {
		return res, err
	}

	s.logger.Info("Payment schedule written",
		zap.String("project_id", p.ID),
		zap.String("strategy", s.strategy.Name()),
		zap.Int("written", len(res.Written)),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}
