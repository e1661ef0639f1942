package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"paytrack/internal/billing"
	"paytrack/internal/model"
)

// ProjectPayments is a project's payment list with its ledger.
type ProjectPayments struct {
	Payments []model.Payment `json:"payments"`
	Ledger   model.Ledger    `json:"ledger"`
}

// PaymentChange is a mutated payment with the recomputed ledger of its project.
type PaymentChange struct {
	Payment *model.Payment `json:"payment,omitempty"`
	Ledger  model.Ledger   `json:"ledger"`
}

type PaymentService struct {
	projects ProjectStore
	payments PaymentStore
	logger   *zap.Logger
	now      func() time.Time
}

func NewPaymentService(projects ProjectStore, payments PaymentStore, logger *zap.Logger) *PaymentService {
	return &PaymentService{projects: projects, payments: payments, logger: logger, now: time.Now}
}

// WithClock replaces the clock used for paid dates.
func (s *PaymentService) WithClock(now func() time.Time) *PaymentService {
	s.now = now
	return s
}

// Create records a manual payment for an existing project.
func (s *PaymentService) Create(ctx context.Context, p *model.Payment) (*PaymentChange, error) {
	if p.Status == "" {
		p.Status = model.PaymentPending
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.Status != model.PaymentPaid {
		p.PaidDate = nil
	}
	if _, err := s.projects.GetProject(ctx, p.ProjectID); err != nil {
		return nil, err
	}
	if err := s.payments.InsertPayment(ctx, p); err != nil {
		return nil, err
	}

	ledger, err := s.Ledger(ctx, p.ProjectID)
	if err != nil {
		return nil, err
	}
	return &PaymentChange{Payment: p, Ledger: *ledger}, nil
}

func (s *PaymentService) ListByProject(ctx context.Context, projectID string) (*ProjectPayments, error) {
	project, err := s.projects.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	payments, err := s.payments.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list payments of %s: %w", projectID, err)
	}
	if payments == nil {
		payments = []model.Payment{}
	}
	return &ProjectPayments{
		Payments: payments,
		Ledger:   billing.Aggregate(project.TotalValue, payments),
	}, nil
}

// Ledger recomputes the paid and remaining amounts of a project.
func (s *PaymentService) Ledger(ctx context.Context, projectID string) (*model.Ledger, error) {
	pp, err := s.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &pp.Ledger, nil
}

// MarkPaid sets the payment paid as of today.
func (s *PaymentService) MarkPaid(ctx context.Context, id string) (*PaymentChange, error) {
	p, err := s.payments.MarkPaid(ctx, id, s.now())
	if err != nil {
		return nil, err
	}
	s.logger.Info("Payment marked paid",
		zap.String("payment_id", id),
		zap.String("project_id", p.ProjectID),
		zap.Float64("amount", p.Amount),
	)

	ledger, err := s.Ledger(ctx, p.ProjectID)
	if err != nil {
		return nil, err
	}
	return &PaymentChange{Payment: p, Ledger: *ledger}, nil
}

// Delete removes the payment. Remaining stays totalValue minus paid, so
// deleting a pending payment leaves it unchanged.
func (s *PaymentService) Delete(ctx context.Context, id string) (*PaymentChange, error) {
	p, err := s.payments.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.payments.DeletePayment(ctx, id); err != nil {
		return nil, err
	}

	ledger, err := s.Ledger(ctx, p.ProjectID)
	if err != nil {
		return nil, err
	}
	return &PaymentChange{Ledger: *ledger}, nil
}
