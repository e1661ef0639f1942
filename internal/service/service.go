// Package service holds the application operations behind the HTTP API.
// Services validate input, call the repositories and the lifecycle board,
// and recompute ledgers after payment mutations.
package service

import (
	"context"
	"time"

	"paytrack/internal/lifecycle"
	"paytrack/internal/model"
	"paytrack/internal/repository"
)

type ProjectStore interface {
	CreateProject(ctx context.Context, p *model.Project) error
	GetProject(ctx context.Context, id string) (*model.Project, error)
	FindProjects(ctx context.Context, f repository.ProjectFilter) ([]model.Project, error)
	UpdateProject(ctx context.Context, p *model.Project) error
	DeleteProject(ctx context.Context, id string) error
}

type PaymentStore interface {
	InsertPayment(ctx context.Context, p *model.Payment) error
	GetPayment(ctx context.Context, id string) (*model.Payment, error)
	ListByProject(ctx context.Context, projectID string) ([]model.Payment, error)
	ListPayments(ctx context.Context) ([]model.Payment, error)
	MarkPaid(ctx context.Context, id string, paidAt time.Time) (*model.Payment, error)
	DeletePayment(ctx context.Context, id string) error
}

type TaskStore interface {
	CreateTask(ctx context.Context, t *model.Task) error
	GetTask(ctx context.Context, id string) (*model.Task, error)
	ListByProject(ctx context.Context, projectID string) ([]model.Task, error)
	UpdateTask(ctx context.Context, t *model.Task) error
	SetCompleted(ctx context.Context, id string, completed bool) (*model.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

type ClientStore interface {
	CreateClient(ctx context.Context, c *model.Client) error
	GetClient(ctx context.Context, id string) (*model.Client, error)
	ListClients(ctx context.Context) ([]model.Client, error)
	UpdateClient(ctx context.Context, c *model.Client) error
	DeleteClient(ctx context.Context, id string) error
}

type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

// StatusMover applies a status change with optimistic rollback.
type StatusMover interface {
	Move(ctx context.Context, id string, to model.ProjectStatus) (*lifecycle.Result, error)
}
