// Package lifecycle moves projects between statuses and runs the side
// effects attached to specific transitions.
package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"paytrack/internal/billing"
	"paytrack/internal/model"
	"paytrack/pkg/metrics"
)

var (
	ErrInvalidStatus  = errors.New("invalid project status")
	ErrStatusWrite    = errors.New("failed to persist project status")
	ErrScheduleFailed = errors.New("payment schedule could not be written")
)

// ProjectStore loads projects and persists status changes.
type ProjectStore interface {
	GetProject(ctx context.Context, id string) (*model.Project, error)
	UpdateStatus(ctx context.Context, id string, from, to model.ProjectStatus) error
}

// PaymentCounter is used by the re-activation guard.
type PaymentCounter interface {
	CountByProject(ctx context.Context, projectID string) (int, error)
}

// ScheduleRunner generates and persists a payment schedule.
type ScheduleRunner interface {
	Run(ctx context.Context, p model.Project) (billing.WriteResult, error)
}

// Effect runs after the status of p has been persisted.
type Effect func(ctx context.Context, p model.Project) ([]model.Payment, error)

type transitionKey struct {
	from, to model.ProjectStatus
}

type Options struct {
	// GuardReactivation skips schedule generation for projects that already
	// have payments. Off by default, so re-entering active duplicates the schedule.
	GuardReactivation bool
}

// Result describes a completed transition.
type Result struct {
	Project  model.Project
	From     string
	To       string
	Payments []model.Payment
}

// Machine accepts any status change. Side effects are looked up by the
// (from, to) pair; the only registered one generates the payment schedule
// when a project enters active from any other status.
type Machine struct {
	store    ProjectStore
	payments PaymentCounter
	effects  map[transitionKey]Effect
	opts     Options
	logger   *zap.Logger
}

func NewMachine(store ProjectStore, payments PaymentCounter, scheduler ScheduleRunner, opts Options, logger *zap.Logger) *Machine {
	m := &Machine{
		store:    store,
		payments: payments,
		effects:  make(map[transitionKey]Effect),
		opts:     opts,
		logger:   logger,
	}

	generate := func(ctx context.Context, p model.Project) ([]model.Payment, error) {
		res, err := scheduler.Run(ctx, p)
		return res.Written, err
	}
	for _, from := range model.ProjectStatuses {
		if from != model.StatusActive {
			m.On(from, model.StatusActive, generate)
		}
	}
	return m
}

// On registers effect for the from -> to transition, replacing any previous one.
func (m *Machine) On(from, to model.ProjectStatus, effect Effect) {
	m.effects[transitionKey{from: from, to: to}] = effect
}

// Transition persists the new status of projectID and runs the effect
// registered for the transition, synchronously and at most once. When the
// status write fails no effect runs. When the effect fails the previous
// status is written back and ErrScheduleFailed is returned.
func (m *Machine) Transition(ctx context.Context, projectID string, to model.ProjectStatus) (*Result, error) {
	if !to.Valid() {
		metrics.IncrementTransition("unknown", string(to), "rejected")
		return nil, fmt.Errorf("%w: %w", ErrInvalidStatus,
			model.NewValidationError("status", model.CodeInvalidEnum, fmt.Sprintf("unknown status %q", to)))
	}

	p, err := m.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load project %s: %w", projectID, err)
	}
	from := p.Status

	log := m.logger.With(
		zap.String("project_id", projectID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)

	effect, err := m.effectFor(ctx, *p, from, to, log)
	if err != nil {
		metrics.IncrementTransition(string(from), string(to), "rejected")
		return nil, err
	}

	if err := m.store.UpdateStatus(ctx, projectID, from, to); err != nil {
		metrics.IncrementTransition(string(from), string(to), "write_failed")
		log.Error("Failed to persist status", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrStatusWrite, err)
	}
	p.Status = to

	res := &Result{Project: *p, From: string(from), To: string(to)}
	if effect == nil {
		metrics.IncrementTransition(string(from), string(to), "ok")
		log.Info("Project status changed")
		return res, nil
	}

	payments, err := effect(ctx, *p)
	if err != nil {
		metrics.IncrementTransition(string(from), string(to), "schedule_failed")
		log.Error("Transition effect failed, restoring previous status", zap.Error(err))
		if rerr := m.store.UpdateStatus(context.WithoutCancel(ctx), projectID, to, from); rerr != nil {
			log.Error("Failed to restore previous status", zap.Error(rerr))
			return nil, fmt.Errorf("%w: %w (restore failed: %v)", ErrScheduleFailed, err, rerr)
		}
		return nil, fmt.Errorf("%w: %w", ErrScheduleFailed, err)
	}

	res.Payments = payments
	metrics.IncrementTransition(string(from), string(to), "ok")
	log.Info("Project status changed", zap.Int("payments_created", len(payments)))
	return res, nil
}

// effectFor returns the effect to run, validating its input before any write.
func (m *Machine) effectFor(ctx context.Context, p model.Project, from, to model.ProjectStatus, log *zap.Logger) (Effect, error) {
	effect := m.effects[transitionKey{from: from, to: to}]
	if effect == nil || to != model.StatusActive {
		return effect, nil
	}

	if err := p.ValidateBilling(); err != nil {
		log.Warn("Billing configuration rejected", zap.Error(err))
		return nil, err
	}

	if m.opts.GuardReactivation && m.payments != nil {
		n, err := m.payments.CountByProject(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("count payments of %s: %w", p.ID, err)
		}
		if n > 0 {
			log.Info("Project already has payments, skipping schedule", zap.Int("payments", n))
			return nil, nil
		}
	}
	return effect, nil
}
