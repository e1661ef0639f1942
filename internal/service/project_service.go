package service

import (
	"context"

	"go.uber.org/zap"

	"paytrack/internal/lifecycle"
	"paytrack/internal/model"
	"paytrack/internal/repository"
)

type ProjectService struct {
	projects ProjectStore
	board    StatusMover
	logger   *zap.Logger
}

func NewProjectService(projects ProjectStore, board StatusMover, logger *zap.Logger) *ProjectService {
	return &ProjectService{projects: projects, board: board, logger: logger}
}

// Create stores a new project. Every project starts in the "new" column;
// later statuses are reached through ChangeStatus.
func (s *ProjectService) Create(ctx context.Context, p *model.Project) error {
	p.Status = model.StatusNew
	if err := p.Validate(); err != nil {
		return err
	}
	if err := s.projects.CreateProject(ctx, p); err != nil {
		return err
	}
	s.logger.Info("Project created", zap.String("project_id", p.ID), zap.String("name", p.Name))
	return nil
}

func (s *ProjectService) Get(ctx context.Context, id string) (*model.Project, error) {
	return s.projects.GetProject(ctx, id)
}

func (s *ProjectService) List(ctx context.Context, f repository.ProjectFilter) ([]model.Project, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, model.NewValidationError("status", model.CodeInvalidEnum, "unknown status filter")
	}
	projects, err := s.projects.FindProjects(ctx, f)
	if err != nil {
		return nil, err
	}
	if projects == nil {
		projects = []model.Project{}
	}
	return projects, nil
}

// Update replaces every client-editable field of the project. Status and
// creation time are kept from the stored project.
func (s *ProjectService) Update(ctx context.Context, p *model.Project) error {
	current, err := s.projects.GetProject(ctx, p.ID)
	if err != nil {
		return err
	}
	p.Status = current.Status
	p.CreatedAt = current.CreatedAt
	if err := p.Validate(); err != nil {
		return err
	}
	return s.projects.UpdateProject(ctx, p)
}

// Delete removes the project together with its payments and tasks.
func (s *ProjectService) Delete(ctx context.Context, id string) error {
	if err := s.projects.DeleteProject(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Project deleted", zap.String("project_id", id))
	return nil
}

// ChangeStatus moves the project on the board, which runs the lifecycle
// machine and reverts the card when the transition fails.
func (s *ProjectService) ChangeStatus(ctx context.Context, id, status string) (*lifecycle.Result, error) {
	to, err := model.ParseProjectStatus(status)
	if err != nil {
		return nil, err
	}
	return s.board.Move(ctx, id, to)
}
