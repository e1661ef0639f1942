package model

import (
	"fmt"
	"time"
)

type ProjectStatus string

const (
	StatusNew          ProjectStatus = "new"
	StatusInProgress   ProjectStatus = "in_progress"
	StatusInProduction ProjectStatus = "in_production"
	StatusActive       ProjectStatus = "active"
	StatusCompleted    ProjectStatus = "completed"
	StatusCancelled    ProjectStatus = "cancelled"
)

// ProjectStatuses lists every status in board order.
var ProjectStatuses = []ProjectStatus{
	StatusNew,
	StatusInProgress,
	StatusInProduction,
	StatusActive,
	StatusCompleted,
	StatusCancelled,
}

func (s ProjectStatus) Valid() bool {
	for _, v := range ProjectStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// ParseProjectStatus rejects anything outside the six known statuses.
func ParseProjectStatus(s string) (ProjectStatus, error) {
	st := ProjectStatus(s)
	if !st.Valid() {
		return "", NewValidationError("status", CodeInvalidEnum, fmt.Sprintf("unknown status %q", s))
	}
	return st, nil
}

// DefaultInstallments is the schedule length when no installment count applies.
const DefaultInstallments = 12

type Project struct {
	ID                   string             `json:"id"`
	Name                 string             `json:"name"`
	Client               string             `json:"client"`
	ClientID             *string            `json:"clientId,omitempty"`
	TotalValue           float64            `json:"totalValue"`
	Status               ProjectStatus      `json:"status"`
	Deadline             *time.Time         `json:"deadline,omitempty"`
	Description          string             `json:"description"`
	TeamMembers          []string           `json:"teamMembers"`
	IsRecurring          bool               `json:"isRecurring"`
	HasImplementationFee bool               `json:"hasImplementationFee"`
	ImplementationFee    *float64           `json:"implementationFee,omitempty"`
	IsInstallment        bool               `json:"isInstallment"`
	InstallmentCount     *int               `json:"installmentCount,omitempty"`
	PaymentDate          *time.Time         `json:"paymentDate,omitempty"`
	DeveloperShares      map[string]float64 `json:"developerShares"`
	CreatedAt            time.Time          `json:"createdAt"`
}

// Validate checks the fields a client may set.
func (p *Project) Validate() error {
	if p.Name == "" {
		return NewValidationError("name", CodeRequired, "name is required")
	}
	if p.Status != "" && !p.Status.Valid() {
		return NewValidationError("status", CodeInvalidEnum, fmt.Sprintf("unknown status %q", p.Status))
	}
	if p.HasImplementationFee {
		if p.ImplementationFee == nil {
			return NewValidationError("implementationFee", CodeRequired, "implementation fee is required when enabled")
		}
		if *p.ImplementationFee < 0 {
			return NewValidationError("implementationFee", CodeOutOfRange, "implementation fee must not be negative")
		}
	}
	for dev, share := range p.DeveloperShares {
		if share < 0 {
			return NewValidationError("developerShares", CodeOutOfRange, fmt.Sprintf("share of %s must not be negative", dev))
		}
	}
	return p.ValidateBilling()
}

// ValidateBilling checks what the payment schedule depends on.
func (p *Project) ValidateBilling() error {
	if p.TotalValue < 0 {
		return NewValidationError("totalValue", CodeOutOfRange, "total value must not be negative")
	}
	if p.IsInstallment && p.InstallmentCount != nil && *p.InstallmentCount <= 0 {
		return NewValidationError("installmentCount", CodeOutOfRange, "installment count must be positive")
	}
	return nil
}

// Normalize clears values whose flag is off.
func (p *Project) Normalize() {
	if !p.HasImplementationFee {
		p.ImplementationFee = nil
	}
	if !p.IsInstallment {
		p.InstallmentCount = nil
	}
	if !p.IsRecurring {
		p.PaymentDate = nil
	}
	if p.TeamMembers == nil {
		p.TeamMembers = []string{}
	}
	if p.DeveloperShares == nil {
		p.DeveloperShares = map[string]float64{}
	}
}

// Installments returns the number of payments a schedule for p contains.
func (p *Project) Installments() int {
	if p.IsInstallment && p.InstallmentCount != nil {
		return *p.InstallmentCount
	}
	return DefaultInstallments
}
