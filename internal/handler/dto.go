package handler

import (
	"time"

	"paytrack/internal/model"
)

// JSON bodies carry calendar dates as "2006-01-02" strings.

type projectBody struct {
	ID                   string             `json:"id"`
	Name                 string             `json:"name"`
	Client               string             `json:"client"`
	ClientID             *string            `json:"clientId,omitempty"`
	TotalValue           float64            `json:"totalValue"`
	Status               string             `json:"status"`
	Deadline             *string            `json:"deadline,omitempty"`
	Description          string             `json:"description"`
	TeamMembers          []string           `json:"teamMembers"`
	IsRecurring          bool               `json:"isRecurring"`
	HasImplementationFee bool               `json:"hasImplementationFee"`
	ImplementationFee    *float64           `json:"implementationFee,omitempty"`
	IsInstallment        bool               `json:"isInstallment"`
	InstallmentCount     *int               `json:"installmentCount,omitempty"`
	PaymentDate          *string            `json:"paymentDate,omitempty"`
	DeveloperShares      map[string]float64 `json:"developerShares"`
	CreatedAt            *time.Time         `json:"createdAt,omitempty"`
}

func (b projectBody) toModel() (model.Project, error) {
	deadline, err := optionalDate("deadline", b.Deadline)
	if err != nil {
		return model.Project{}, err
	}
	paymentDate, err := optionalDate("paymentDate", b.PaymentDate)
	if err != nil {
		return model.Project{}, err
	}
	return model.Project{
		Name:                 b.Name,
		Client:               b.Client,
		ClientID:             b.ClientID,
		TotalValue:           b.TotalValue,
		Deadline:             deadline,
		Description:          b.Description,
		TeamMembers:          b.TeamMembers,
		IsRecurring:          b.IsRecurring,
		HasImplementationFee: b.HasImplementationFee,
		ImplementationFee:    b.ImplementationFee,
		IsInstallment:        b.IsInstallment,
		InstallmentCount:     b.InstallmentCount,
		PaymentDate:          paymentDate,
		DeveloperShares:      b.DeveloperShares,
	}, nil
}

func projectJSON(p model.Project) projectBody {
	createdAt := p.CreatedAt
	return projectBody{
		ID:                   p.ID,
		Name:                 p.Name,
		Client:               p.Client,
		ClientID:             p.ClientID,
		TotalValue:           p.TotalValue,
		Status:               string(p.Status),
		Deadline:             formatOptional(p.Deadline),
		Description:          p.Description,
		TeamMembers:          p.TeamMembers,
		IsRecurring:          p.IsRecurring,
		HasImplementationFee: p.HasImplementationFee,
		ImplementationFee:    p.ImplementationFee,
		IsInstallment:        p.IsInstallment,
		InstallmentCount:     p.InstallmentCount,
		PaymentDate:          formatOptional(p.PaymentDate),
		DeveloperShares:      p.DeveloperShares,
		CreatedAt:            &createdAt,
	}
}

func projectsJSON(ps []model.Project) []projectBody {
	out := make([]projectBody, len(ps))
	for i, p := range ps {
		out[i] = projectJSON(p)
	}
	return out
}

type paymentBody struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"projectId"`
	Amount      float64    `json:"amount"`
	DueDate     string     `json:"dueDate"`
	Status      string     `json:"status"`
	PaidDate    *string    `json:"paidDate,omitempty"`
	Description string     `json:"description"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
}

func (b paymentBody) toModel() (model.Payment, error) {
	if b.DueDate == "" {
		return model.Payment{}, model.NewValidationError("dueDate", model.CodeRequired, "due date is required")
	}
	due, err := model.ParseDate(b.DueDate)
	if err != nil {
		return model.Payment{}, model.NewValidationError("dueDate", model.CodeInvalidFormat, "due date must be YYYY-MM-DD")
	}
	paid, err := optionalDate("paidDate", b.PaidDate)
	if err != nil {
		return model.Payment{}, err
	}
	return model.Payment{
		ProjectID:   b.ProjectID,
		Amount:      b.Amount,
		DueDate:     due,
		Status:      model.PaymentStatus(b.Status),
		PaidDate:    paid,
		Description: b.Description,
	}, nil
}

func paymentJSON(p model.Payment) paymentBody {
	createdAt := p.CreatedAt
	return paymentBody{
		ID:          p.ID,
		ProjectID:   p.ProjectID,
		Amount:      p.Amount,
		DueDate:     model.FormatDate(p.DueDate),
		Status:      string(p.Status),
		PaidDate:    formatOptional(p.PaidDate),
		Description: p.Description,
		CreatedAt:   &createdAt,
	}
}

func paymentsJSON(ps []model.Payment) []paymentBody {
	out := make([]paymentBody, len(ps))
	for i, p := range ps {
		out[i] = paymentJSON(p)
	}
	return out
}

type taskBody struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"projectId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *string    `json:"dueDate,omitempty"`
	AssignedTo  *string    `json:"assignedTo,omitempty"`
	Completed   bool       `json:"completed"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
}

func (b taskBody) toModel() (model.Task, error) {
	due, err := optionalDate("dueDate", b.DueDate)
	if err != nil {
		return model.Task{}, err
	}
	return model.Task{
		ProjectID:   b.ProjectID,
		Title:       b.Title,
		Description: b.Description,
		DueDate:     due,
		AssignedTo:  b.AssignedTo,
		Completed:   b.Completed,
	}, nil
}

func taskJSON(t model.Task) taskBody {
	createdAt := t.CreatedAt
	return taskBody{
		ID:          t.ID,
		ProjectID:   t.ProjectID,
		Title:       t.Title,
		Description: t.Description,
		DueDate:     formatOptional(t.DueDate),
		AssignedTo:  t.AssignedTo,
		Completed:   t.Completed,
		CreatedAt:   &createdAt,
	}
}

func optionalDate(field string, s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := model.ParseDate(*s)
	if err != nil {
		return nil, model.NewValidationError(field, model.CodeInvalidFormat, field+" must be YYYY-MM-DD")
	}
	return &t, nil
}

func formatOptional(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := model.FormatDate(*t)
	return &s
}
