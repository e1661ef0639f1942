package repository

import (
	"context"
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

// Task change actions carried on task.changed events.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

type TaskRepository struct {
	pgBase
}

func NewTaskRepository(db *pgxpool.Pool, logger *zap.Logger) *TaskRepository {
	return &TaskRepository{pgBase: newPGBase(db, logger)}
}

const taskColumns = `id, project_id, title, description, due_date, assigned_to, completed, created_at`

func scanTask(row pgx.Row) (*model.Task, error) {
	var t model.Task
	if err := row.Scan(
		&t.ID,
		&t.ProjectID,
		&t.Title,
		&t.Description,
		&t.DueDate,
		&t.AssignedTo,
		&t.Completed,
		&t.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TaskRepository) emitTask(ctx context.Context, tx pgx.Tx, t *model.Task, action string) error {
	return r.emit(ctx, tx, "task", t.ID, contractmq.TaskChanged, contractmq.TaskChangedPayload{
		TaskID:    t.ID,
		ProjectID: t.ProjectID,
		Action:    action,
		TraceID:   trace.FromContext(ctx),
	})
}

func (r *TaskRepository) CreateTask(ctx context.Context, t *model.Task) error {
	t.ID = uuid.NewString()
	t.CreatedAt = time.Now().UTC()

	r.logger.Debug("Inserting task",
		zap.String("task_id", t.ID),
		zap.String("project_id", t.ProjectID),
	)

	err := r.inTx(ctx, "insert", "tasks", func(ctx context.Context, tx pgx.Tx) error {
		query := `
			INSERT INTO tasks (` + taskColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`
		if _, err := tx.Exec(ctx, query,
			t.ID, t.ProjectID, t.Title, t.Description, t.DueDate, t.AssignedTo, t.Completed, t.CreatedAt,
		); err != nil {
			return err
		}
		return r.emitTask(ctx, tx, t, ActionCreated)
	})
	if err != nil {
		r.logger.Error("Failed to insert task", zap.String("task_id", t.ID), zap.Error(err))
		return mapError(err)
	}
	return nil
}

func (r *TaskRepository) GetTask(ctx context.Context, id string) (*model.Task, error) {
	var t *model.Task
	err := otel.WithDBSpan(ctx, "select", "tasks", func(ctx context.Context) error {
		var err error
		t, err = scanTask(r.db.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}
	return t, nil
}

func (r *TaskRepository) ListByProject(ctx context.Context, projectID string) ([]model.Task, error) {
	var out []model.Task
	err := otel.WithDBSpan(ctx, "select", "tasks", func(ctx context.Context) error {
		rows, err := r.db.Query(ctx,
			`SELECT `+taskColumns+` FROM tasks WHERE project_id = $1 ORDER BY created_at ASC, id ASC`, projectID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			t, err := scanTask(rows)
			if err != nil {
				return err
			}
			out = append(out, *t)
		}
		return rows.Err()
	})
	if err != nil {
		r.logger.Error("Failed to list tasks", zap.String("project_id", projectID), zap.Error(err))
		return nil, err
	}
	return out, nil
}

// UpdateTask writes title, description, due date, assignee and completion.
func (r *TaskRepository) UpdateTask(ctx context.Context, t *model.Task) error {
	err := r.inTx(ctx, "update", "tasks", func(ctx context.Context, tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			UPDATE tasks
			SET title = $2, description = $3, due_date = $4, assigned_to = $5, completed = $6
			WHERE id = $1
			RETURNING project_id, created_at
		`, t.ID, t.Title, t.Description, t.DueDate, t.AssignedTo, t.Completed).Scan(&t.ProjectID, &t.CreatedAt)
		if err != nil {
			return err
		}
		return r.emitTask(ctx, tx, t, ActionUpdated)
	})
	if err != nil {
		r.logger.Error("Failed to update task", zap.String("task_id", t.ID), zap.Error(err))
		return mapError(err)
	}
	return nil
}

func (r *TaskRepository) SetCompleted(ctx context.Context, id string, completed bool) (*model.Task, error) {
	var t *model.Task
	err := r.inTx(ctx, "update", "tasks", func(ctx context.Context, tx pgx.Tx) error {
		var err error
		t, err = scanTask(tx.QueryRow(ctx,
			`UPDATE tasks SET completed = $2 WHERE id = $1 RETURNING `+taskColumns, id, completed))
		if err != nil {
			return err
		}
		return r.emitTask(ctx, tx, t, ActionUpdated)
	})
	if err != nil {
		r.logger.Error("Failed to set task completion", zap.String("task_id", id), zap.Error(err))
		return nil, mapError(err)
	}
	return t, nil
}

func (r *TaskRepository) DeleteTask(ctx context.Context, id string) error {
	err := r.inTx(ctx, "delete", "tasks", func(ctx context.Context, tx pgx.Tx) error {
		t, err := scanTask(tx.QueryRow(ctx, `DELETE FROM tasks WHERE id = $1 RETURNING `+taskColumns, id))
		if err != nil {
			return err
		}
		return r.emitTask(ctx, tx, t, ActionDeleted)
	})
	if err != nil {
		r.logger.Error("Failed to delete task", zap.String("task_id", id), zap.Error(err))
		return mapError(err)
	}

	r.logger.Info("Task deleted", zap.String("task_id", id))
	return nil
}
