package model

import "time"

type Task struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"projectId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	AssignedTo  *string    `json:"assignedTo,omitempty"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func (t *Task) Validate() error {
	if t.ProjectID == "" {
		return NewValidationError("projectId", CodeRequired, "project is required")
	}
	if t.Title == "" {
		return NewValidationError("title", CodeRequired, "title is required")
	}
	return nil
}
