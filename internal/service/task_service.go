package service

import (
	"context"

	"paytrack/internal/model"
)

type TaskService struct {
	projects ProjectStore
	tasks    TaskStore
}

func NewTaskService(projects ProjectStore, tasks TaskStore) *TaskService {
	return &TaskService{projects: projects, tasks: tasks}
}

func (s *TaskService) Create(ctx context.Context, t *model.Task) error {
	t.Completed = false
	if err := t.Validate(); err != nil {
		return err
	}
	if _, err := s.projects.GetProject(ctx, t.ProjectID); err != nil {
		return err
	}
	return s.tasks.CreateTask(ctx, t)
}

func (s *TaskService) ListByProject(ctx context.Context, projectID string) ([]model.Task, error) {
	if _, err := s.projects.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	tasks, err := s.tasks.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return tasks, nil
}

// Update rewrites the task; it cannot move to another project.
func (s *TaskService) Update(ctx context.Context, t *model.Task) error {
	current, err := s.tasks.GetTask(ctx, t.ID)
	if err != nil {
		return err
	}
	t.ProjectID = current.ProjectID
	t.CreatedAt = current.CreatedAt
	if err := t.Validate(); err != nil {
		return err
	}
	return s.tasks.UpdateTask(ctx, t)
}

func (s *TaskService) SetCompleted(ctx context.Context, id string, completed bool) (*model.Task, error) {
	return s.tasks.SetCompleted(ctx, id, completed)
}

func (s *TaskService) Delete(ctx context.Context, id string) error {
	return s.tasks.DeleteTask(ctx, id)
}
