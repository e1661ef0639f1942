package model

import "time"

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentOverdue   PaymentStatus = "overdue"
	PaymentCancelled PaymentStatus = "cancelled"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentOverdue, PaymentCancelled:
		return true
	}
	return false
}

type Payment struct {
	ID          string        `json:"id"`
	ProjectID   string        `json:"projectId"`
	Amount      float64       `json:"amount"`
	DueDate     time.Time     `json:"dueDate"`
	Status      PaymentStatus `json:"status"`
	PaidDate    *time.Time    `json:"paidDate,omitempty"`
	Description string        `json:"description"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// Validate applies to explicitly created payments; generated ones may be zero.
func (p *Payment) Validate() error {
	if p.ProjectID == "" {
		return NewValidationError("projectId", CodeRequired, "project is required")
	}
	if p.Amount <= 0 {
		return NewValidationError("amount", CodeOutOfRange, "amount must be greater than zero")
	}
	if p.DueDate.IsZero() {
		return NewValidationError("dueDate", CodeRequired, "due date is required")
	}
	if p.Status != "" && !p.Status.Valid() {
		return NewValidationError("status", CodeInvalidEnum, "unknown payment status")
	}
	if p.Status == PaymentPaid && p.PaidDate == nil {
		return NewValidationError("paidDate", CodeRequired, "paid payments need a paid date")
	}
	return nil
}

// Ledger is the paid / remaining split of a project's total value.
type Ledger struct {
	TotalValue      float64 `json:"totalValue"`
	PaidAmount      float64 `json:"paidAmount"`
	RemainingAmount float64 `json:"remainingAmount"`
}
