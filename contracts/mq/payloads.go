package mq

type ProjectChangedPayload struct {
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	TraceID   string `json:"trace_id,omitempty"`
}

type ProjectStatusChangedPayload struct {
	ProjectID  string `json:"project_id"`
	Name       string `json:"name"`
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
	TraceID    string `json:"trace_id,omitempty"`
}

type PaymentChangedPayload struct {
	PaymentID string  `json:"payment_id"`
	ProjectID string  `json:"project_id"`
	Amount    float64 `json:"amount"`
	DueDate   string  `json:"due_date"`
	Status    string  `json:"status"`
	TraceID   string  `json:"trace_id,omitempty"`
}

type TaskChangedPayload struct {
	TaskID    string `json:"task_id"`
	ProjectID string `json:"project_id"`
	Action    string `json:"action"` // created, updated, deleted
	TraceID   string `json:"trace_id,omitempty"`
}

type ClientChangedPayload struct {
	ClientID string `json:"client_id"`
	Action   string `json:"action"`
	TraceID  string `json:"trace_id,omitempty"`
}
