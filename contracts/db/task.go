package db

type TaskRecord struct {
	ID          string  `json:"id"`
	ProjectID   string  `json:"project_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	DueDate     *string `json:"due_date"`
	AssignedTo  *string `json:"assigned_to"`
	Completed   bool    `json:"completed"`
	CreatedAt   string  `json:"created_at"`
}
