package model

import (
	"fmt"
	"maps"
	"slices"

	dbcontract "paytrack/contracts/db"
)

// ProjectFromRecord converts a snake_case record into the in-memory model.
func ProjectFromRecord(r dbcontract.ProjectRecord) (Project, error) {
	deadline, err := parseOptionalDate(r.Deadline)
	if err != nil {
		return Project{}, fmt.Errorf("project %s deadline: %w", r.ID, err)
	}
	paymentDate, err := parseOptionalDate(r.PaymentDate)
	if err != nil {
		return Project{}, fmt.Errorf("project %s payment_date: %w", r.ID, err)
	}
	createdAt, err := parseTimestamp(r.CreatedAt)
	if err != nil {
		return Project{}, fmt.Errorf("project %s created_at: %w", r.ID, err)
	}

	p := Project{
		ID:                   r.ID,
		Name:                 r.Name,
		Client:               r.Client,
		ClientID:             r.ClientID,
		TotalValue:           r.TotalValue,
		Status:               ProjectStatus(r.Status),
		Deadline:             deadline,
		Description:          r.Description,
		TeamMembers:          slices.Clone(r.TeamMembers),
		IsRecurring:          r.IsRecurring,
		HasImplementationFee: r.HasImplementationFee,
		ImplementationFee:    r.ImplementationFee,
		IsInstallment:        r.IsInstallment,
		InstallmentCount:     r.InstallmentCount,
		PaymentDate:          paymentDate,
		DeveloperShares:      maps.Clone(r.DeveloperShares),
		CreatedAt:            createdAt,
	}
	if p.TeamMembers == nil {
		p.TeamMembers = []string{}
	}
	if p.DeveloperShares == nil {
		p.DeveloperShares = map[string]float64{}
	}
	return p, nil
}

func (p Project) ToRecord() dbcontract.ProjectRecord {
	return dbcontract.ProjectRecord{
		ID:                   p.ID,
		Name:                 p.Name,
		Client:               p.Client,
		ClientID:             p.ClientID,
		TotalValue:           p.TotalValue,
		Status:               string(p.Status),
		TeamMembers:          slices.Clone(p.TeamMembers),
		Deadline:             formatOptionalDate(p.Deadline),
		Description:          p.Description,
		IsRecurring:          p.IsRecurring,
		HasImplementationFee: p.HasImplementationFee,
		ImplementationFee:    p.ImplementationFee,
		IsInstallment:        p.IsInstallment,
		InstallmentCount:     p.InstallmentCount,
		PaymentDate:          formatOptionalDate(p.PaymentDate),
		DeveloperShares:      maps.Clone(p.DeveloperShares),
		CreatedAt:            formatTimestamp(p.CreatedAt),
	}
}

func PaymentFromRecord(r dbcontract.PaymentRecord) (Payment, error) {
	due, err := ParseDate(r.DueDate)
	if err != nil {
		return Payment{}, fmt.Errorf("payment %s due_date: %w", r.ID, err)
	}
	paid, err := parseOptionalDate(r.PaidDate)
	if err != nil {
		return Payment{}, fmt.Errorf("payment %s paid_date: %w", r.ID, err)
	}
	createdAt, err := parseTimestamp(r.CreatedAt)
	if err != nil {
		return Payment{}, fmt.Errorf("payment %s created_at: %w", r.ID, err)
	}
	return Payment{
		ID:          r.ID,
		ProjectID:   r.ProjectID,
		Amount:      r.Amount,
		DueDate:     due,
		Status:      PaymentStatus(r.Status),
		PaidDate:    paid,
		Description: r.Description,
		CreatedAt:   createdAt,
	}, nil
}

func (p Payment) ToRecord() dbcontract.PaymentRecord {
	return dbcontract.PaymentRecord{
		ID:          p.ID,
		ProjectID:   p.ProjectID,
		Amount:      p.Amount,
		DueDate:     FormatDate(p.DueDate),
		Status:      string(p.Status),
		PaidDate:    formatOptionalDate(p.PaidDate),
		Description: p.Description,
		CreatedAt:   formatTimestamp(p.CreatedAt),
	}
}

func TaskFromRecord(r dbcontract.TaskRecord) (Task, error) {
	due, err := parseOptionalDate(r.DueDate)
	if err != nil {
		return Task{}, fmt.Errorf("task %s due_date: %w", r.ID, err)
	}
	createdAt, err := parseTimestamp(r.CreatedAt)
	if err != nil {
		return Task{}, fmt.Errorf("task %s created_at: %w", r.ID, err)
	}
	return Task{
		ID:          r.ID,
		ProjectID:   r.ProjectID,
		Title:       r.Title,
		Description: r.Description,
		DueDate:     due,
		AssignedTo:  r.AssignedTo,
		Completed:   r.Completed,
		CreatedAt:   createdAt,
	}, nil
}

func (t Task) ToRecord() dbcontract.TaskRecord {
	return dbcontract.TaskRecord{
		ID:          t.ID,
		ProjectID:   t.ProjectID,
		Title:       t.Title,
		Description: t.Description,
		DueDate:     formatOptionalDate(t.DueDate),
		AssignedTo:  t.AssignedTo,
		Completed:   t.Completed,
		CreatedAt:   formatTimestamp(t.CreatedAt),
	}
}

func ClientFromRecord(r dbcontract.ClientRecord) (Client, error) {
	createdAt, err := parseTimestamp(r.CreatedAt)
	if err != nil {
		return Client{}, fmt.Errorf("client %s created_at: %w", r.ID, err)
	}
	return Client{
		ID:        r.ID,
		Name:      r.Name,
		Email:     r.Email,
		Phone:     r.Phone,
		Company:   r.Company,
		Notes:     r.Notes,
		CreatedAt: createdAt,
	}, nil
}

func (c Client) ToRecord() dbcontract.ClientRecord {
	return dbcontract.ClientRecord{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Company:   c.Company,
		Notes:     c.Notes,
		CreatedAt: formatTimestamp(c.CreatedAt),
	}
}

func UserFromRecord(r dbcontract.UserRecord) (User, error) {
	createdAt, err := parseTimestamp(r.CreatedAt)
	if err != nil {
		return User{}, fmt.Errorf("user %s created_at: %w", r.ID, err)
	}
	return User{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Role:         r.Role,
		CreatedAt:    createdAt,
	}, nil
}

func (u User) ToRecord() dbcontract.UserRecord {
	return dbcontract.UserRecord{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		CreatedAt:    formatTimestamp(u.CreatedAt),
	}
}
