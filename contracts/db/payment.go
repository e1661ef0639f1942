package db

// PaymentRecord is a row of the payments collection.
type PaymentRecord struct {
	ID          string  `json:"id"`
	ProjectID   string  `json:"project_id"`
	Amount      float64 `json:"amount"`
	DueDate     string  `json:"due_date"`
	Status      string  `json:"status"`
	PaidDate    *string `json:"paid_date"`
	Description string  `json:"description"`
	CreatedAt   string  `json:"created_at"`
}
