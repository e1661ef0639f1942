package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	contractmq "paytrack/contracts/mq"
	"paytrack/internal/model"
	"paytrack/pkg/otel"
	"paytrack/pkg/trace"
)

// ProjectFilter narrows ListProjects; zero fields match everything.
type ProjectFilter struct {
	Status   model.ProjectStatus
	ClientID string
}

func (f ProjectFilter) matches(p model.Project) bool {
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if f.ClientID != "" && (p.ClientID == nil || *p.ClientID != f.ClientID) {
		return false
	}
	return true
}

type ProjectRepository struct {
	pgBase
}

func NewProjectRepository(db *pgxpool.Pool, logger *zap.Logger) *ProjectRepository {
	return &ProjectRepository{pgBase: newPGBase(db, logger)}
}

const projectColumns = `id, name, client, client_id, total_value, status, team_members, deadline,
	description, is_recurring, has_implementation_fee, implementation_fee, is_installment,
	installment_count, payment_date, developer_shares, created_at`

func scanProject(row pgx.Row) (*model.Project, error) {
	var p model.Project
	var status string
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Client,
		&p.ClientID,
		&p.TotalValue,
		&status,
		&p.TeamMembers,
		&p.Deadline,
		&p.Description,
		&p.IsRecurring,
		&p.HasImplementationFee,
		&p.ImplementationFee,
		&p.IsInstallment,
		&p.InstallmentCount,
		&p.PaymentDate,
		&p.DeveloperShares,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Status = model.ProjectStatus(status)
	p.Normalize()
	return &p, nil
}

func projectPayload(ctx context.Context, p *model.Project) contractmq.ProjectChangedPayload {
	return contractmq.ProjectChangedPayload{
		ProjectID: p.ID,
		Name:      p.Name,
		Status:    string(p.Status),
		TraceID:   trace.FromContext(ctx),
	}
}

// CreateProject assigns an id and creation time and inserts p.
func (r *ProjectRepository) CreateProject(ctx context.Context, p *model.Project) error {
	p.ID = uuid.NewString()
	p.CreatedAt = time.Now().UTC()
	if p.Status == "" {
		p.Status = model.StatusNew
	}
	p.Normalize()

	r.logger.Debug("Inserting project",
		zap.String("project_id", p.ID),
		zap.String("name", p.Name),
	)

	err := r.inTx(ctx, "insert", "projects", func(ctx context.Context, tx pgx.Tx) error {
		query := `
			INSERT INTO projects (` + projectColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		`
		if _, err := tx.Exec(ctx, query,
			p.ID, p.Name, p.Client, p.ClientID, p.TotalValue, string(p.Status), p.TeamMembers, p.Deadline,
			p.Description, p.IsRecurring, p.HasImplementationFee, p.ImplementationFee, p.IsInstallment,
			p.InstallmentCount, p.PaymentDate, p.DeveloperShares, p.CreatedAt,
		); err != nil {
			return err
		}
		return r.emit(ctx, tx, "project", p.ID, contractmq.ProjectCreated, projectPayload(ctx, p))
	})
	if err != nil {
		r.logger.Error("Failed to insert project", zap.String("project_id", p.ID), zap.Error(err))
		return mapError(err)
	}

	r.logger.Info("Project inserted", zap.String("project_id", p.ID))
	return nil
}

func (r *ProjectRepository) GetProject(ctx context.Context, id string) (*model.Project, error) {
	var p *model.Project
	err := otel.WithDBSpan(ctx, "select", "projects", func(ctx context.Context) error {
		var err error
		p, err = scanProject(r.db.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id))
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}
	return p, nil
}

// ListProjects returns every project, oldest first.
func (r *ProjectRepository) ListProjects(ctx context.Context) ([]model.Project, error) {
	return r.FindProjects(ctx, ProjectFilter{})
}

func (r *ProjectRepository) FindProjects(ctx context.Context, f ProjectFilter) ([]model.Project, error) {
	var (
		conds []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, string(f.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.ClientID != "" {
		args = append(args, f.ClientID)
		conds = append(conds, fmt.Sprintf("client_id = $%d", len(args)))
	}
	query := `SELECT ` + projectColumns + ` FROM projects`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at ASC, id ASC`

	var out []model.Project
	err := otel.WithDBSpan(ctx, "select", "projects", func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			p, err := scanProject(rows)
			if err != nil {
				return err
			}
			out = append(out, *p)
		}
		return rows.Err()
	})
	if err != nil {
		r.logger.Error("Failed to list projects", zap.Error(err))
		return nil, err
	}
	return out, nil
}

// UpdateProject writes every field except status and created_at.
func (r *ProjectRepository) UpdateProject(ctx context.Context, p *model.Project) error {
	p.Normalize()
	r.logger.Debug("Updating project", zap.String("project_id", p.ID))

	err := r.inTx(ctx, "update", "projects", func(ctx context.Context, tx pgx.Tx) error {
		query := `
			UPDATE projects
			SET name = $2, client = $3, client_id = $4, total_value = $5, team_members = $6,
			    deadline = $7, description = $8, is_recurring = $9, has_implementation_fee = $10,
			    implementation_fee = $11, is_installment = $12, installment_count = $13,
			    payment_date = $14, developer_shares = $15
			WHERE id = $1
			RETURNING status, created_at
		`
		var status string
		if err := tx.QueryRow(ctx, query,
			p.ID, p.Name, p.Client, p.ClientID, p.TotalValue, p.TeamMembers,
			p.Deadline, p.Description, p.IsRecurring, p.HasImplementationFee,
			p.ImplementationFee, p.IsInstallment, p.InstallmentCount,
			p.PaymentDate, p.DeveloperShares,
		).Scan(&status, &p.CreatedAt); err != nil {
			return err
		}
		p.Status = model.ProjectStatus(status)
		return r.emit(ctx, tx, "project", p.ID, contractmq.ProjectUpdated, projectPayload(ctx, p))
	})
	if err != nil {
		r.logger.Error("Failed to update project", zap.String("project_id", p.ID), zap.Error(err))
		return mapError(err)
	}

	r.logger.Info("Project updated", zap.String("project_id", p.ID))
	return nil
}

func (r *ProjectRepository) UpdateStatus(ctx context.Context, id string, from, to model.ProjectStatus) error {
	r.logger.Debug("Updating project status",
		zap.String("project_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)

	err := r.inTx(ctx, "update", "projects", func(ctx context.Context, tx pgx.Tx) error {
		var name string
		err := tx.QueryRow(ctx, `UPDATE projects SET status = $2 WHERE id = $1 RETURNING name`, id, string(to)).Scan(&name)
		if err != nil {
			return err
		}
		return r.emit(ctx, tx, "project", id, contractmq.ProjectStatusChanged, contractmq.ProjectStatusChangedPayload{
			ProjectID:  id,
			Name:       name,
			FromStatus: string(from),
			ToStatus:   string(to),
			TraceID:    trace.FromContext(ctx),
		})
	})
	if err != nil {
		r.logger.Error("Failed to update project status", zap.String("project_id", id), zap.Error(err))
		return mapError(err)
	}

	r.logger.Info("Project status updated",
		zap.String("project_id", id),
		zap.String("status", string(to)),
	)
	return nil
}

// DeleteProject removes the project; payments and tasks cascade.
func (r *ProjectRepository) DeleteProject(ctx context.Context, id string) error {
	r.logger.Debug("Deleting project", zap.String("project_id", id))

	err := r.inTx(ctx, "delete", "projects", func(ctx context.Context, tx pgx.Tx) error {
		var name, status string
		err := tx.QueryRow(ctx, `DELETE FROM projects WHERE id = $1 RETURNING name, status`, id).Scan(&name, &status)
		if err != nil {
			return err
		}
		return r.emit(ctx, tx, "project", id, contractmq.ProjectDeleted, contractmq.ProjectChangedPayload{
			ProjectID: id,
			Name:      name,
			Status:    status,
			TraceID:   trace.FromContext(ctx),
		})
	})
	if err != nil {
		r.logger.Error("Failed to delete project", zap.String("project_id", id), zap.Error(err))
		return mapError(err)
	}

	r.logger.Info("Project deleted", zap.String("project_id", id))
	return nil
}
