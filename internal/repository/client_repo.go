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

type ClientRepository struct {
	pgBase
}

func NewClientRepository(db *pgxpool.Pool, logger *zap.Logger) *ClientRepository {
	return &ClientRepository{pgBase: newPGBase(db, logger)}
}

const clientColumns = `id, name, email, phone, company, notes, created_at`

func scanClient(row pgx.Row) (*model.Client, error) {
	var c model.Client
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Company, &c.Notes, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ClientRepository) emitClient(ctx context.Context, tx pgx.Tx, id, action string) error {
	return r.emit(ctx, tx, "client", id, contractmq.ClientChanged, contractmq.ClientChangedPayload{
		ClientID: id,
		Action:   action,
		TraceID:  trace.FromContext(ctx),
	})
}

func (r *ClientRepository) CreateClient(ctx context.Context, c *model.Client) error {
	c.ID = uuid.NewString()
	c.CreatedAt = time.Now().UTC()

	err := r.inTx(ctx, "insert", "clients", func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO clients (`+clientColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			c.ID, c.Name, c.Email, c.Phone, c.Company, c.Notes, c.CreatedAt,
		); err != nil {
			return err
		}
		return r.emitClient(ctx, tx, c.ID, ActionCreated)
	})
	if err != nil {
		r.logger.Error("Failed to insert client", zap.String("client_id", c.ID), zap.Error(err))
		return mapError(err)
	}

	r.logger.Info("Client inserted", zap.String("client_id", c.ID))
	return nil
}

func (r *ClientRepository) GetClient(ctx context.Context, id string) (*model.Client, error) {
	var c *model.Client
	err := otel.WithDBSpan(ctx, "select", "clients", func(ctx context.Context) error {
		var err error
		c, err = scanClient(r.db.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id))
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}
	return c, nil
}

// ListClients returns clients ordered by name.
func (r *ClientRepository) ListClients(ctx context.Context) ([]model.Client, error) {
	var out []model.Client
	err := otel.WithDBSpan(ctx, "select", "clients", func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY name ASC, id ASC`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			c, err := scanClient(rows)
			if err != nil {
				return err
			}
			out = append(out, *c)
		}
		return rows.Err()
	})
	if err != nil {
		r.logger.Error("Failed to list clients", zap.Error(err))
		return nil, err
	}
	return out, nil
}

func (r *ClientRepository) UpdateClient(ctx context.Context, c *model.Client) error {
	err := r.inTx(ctx, "update", "clients", func(ctx context.Context, tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			UPDATE clients SET name = $2, email = $3, phone = $4, company = $5, notes = $6
			WHERE id = $1
			RETURNING created_at
		`, c.ID, c.Name, c.Email, c.Phone, c.Company, c.Notes).Scan(&c.CreatedAt)
		if err != nil {
			return err
		}
		return r.emitClient(ctx, tx, c.ID, ActionUpdated)
	})
	if err != nil {
		r.logger.Error("Failed to update client", zap.String("client_id", c.ID), zap.Error(err))
		return mapError(err)
	}
	return nil
}

// DeleteClient removes the client; projects keep their denormalised name.
func (r *ClientRepository) DeleteClient(ctx context.Context, id string) error {
	err := r.inTx(ctx, "delete", "clients", func(ctx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if err := requireAffected(tag); err != nil {
			return err
		}
		return r.emitClient(ctx, tx, id, ActionDeleted)
	})
	if err != nil {
		r.logger.Error("Failed to delete client", zap.String("client_id", id), zap.Error(err))
		return mapError(err)
	}

	r.logger.Info("Client deleted", zap.String("client_id", id))
	return nil
}
