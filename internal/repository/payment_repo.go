package repository

import (
	"context"
	"fmt"
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

type PaymentRepository struct {
	pgBase
}

func NewPaymentRepository(db *pgxpool.Pool, logger *zap.Logger) *PaymentRepository {
	return &PaymentRepository{pgBase: newPGBase(db, logger)}
}

const paymentColumns = `id, project_id, amount, due_date, status, paid_date, description, created_at`

func scanPayment(row pgx.Row) (*model.Payment, error) {
	var p model.Payment
	var status string
	if err := row.Scan(
		&p.ID,
		&p.ProjectID,
		&p.Amount,
		&p.DueDate,
		&status,
		&p.PaidDate,
		&p.Description,
		&p.CreatedAt,
	); err != nil {
		return nil, err
	}
	p.Status = model.PaymentStatus(status)
	return &p, nil
}

func paymentPayload(ctx context.Context, p *model.Payment) contractmq.PaymentChangedPayload {
	return contractmq.PaymentChangedPayload{
		PaymentID: p.ID,
		ProjectID: p.ProjectID,
		Amount:    p.Amount,
		DueDate:   model.FormatDate(p.DueDate),
		Status:    string(p.Status),
		TraceID:   trace.FromContext(ctx),
	}
}

// InsertPayment assigns an id and creation time and inserts p.
func (r *PaymentRepository) InsertPayment(ctx context.Context, p *model.Payment) error {
	p.ID = uuid.NewString()
	p.CreatedAt = time.Now().UTC()
	if p.Status == "" {
		p.Status = model.PaymentPending
	}

	r.logger.Debug("Inserting payment",
		zap.String("payment_id", p.ID),
		zap.String("project_id", p.ProjectID),
		zap.Float64("amount", p.Amount),
	)

	err := r.inTx(ctx, "insert", "payments", func(ctx context.Context, tx pgx.Tx) error {
		query := `
			INSERT INTO payments (` + paymentColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`
		if _, err := tx.Exec(ctx, query,
			p.ID, p.ProjectID, p.Amount, p.DueDate, string(p.Status), p.PaidDate, p.Description, p.CreatedAt,
		); err != nil {
			return err
		}
		return r.emit(ctx, tx, "payment", p.ID, contractmq.PaymentCreated, paymentPayload(ctx, p))
	})
	if err != nil {
		r.logger.Error("Failed to insert payment",
			zap.String("payment_id", p.ID),
			zap.String("project_id", p.ProjectID),
			zap.Error(err),
		)
		return mapError(err)
	}
	return nil
}

func (r *PaymentRepository) GetPayment(ctx context.Context, id string) (*model.Payment, error) {
	var p *model.Payment
	err := otel.WithDBSpan(ctx, "select", "payments", func(ctx context.Context) error {
		var err error
		p, err = scanPayment(r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}
	return p, nil
}

// ListByProject returns the payments of projectID ordered by due date.
func (r *PaymentRepository) ListByProject(ctx context.Context, projectID string) ([]model.Payment, error) {
	return r.list(ctx, `SELECT `+paymentColumns+` FROM payments WHERE project_id = $1 ORDER BY due_date ASC, created_at ASC`, projectID)
}

func (r *PaymentRepository) ListPayments(ctx context.Context) ([]model.Payment, error) {
	return r.list(ctx, `SELECT `+paymentColumns+` FROM payments ORDER BY due_date ASC, created_at ASC`)
}

func (r *PaymentRepository) list(ctx context.Context, query string, args ...any) ([]model.Payment, error) {
	var out []model.Payment
	err := otel.WithDBSpan(ctx, "select", "payments", func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			p, err := scanPayment(rows)
			if err != nil {
				return err
			}
			out = append(out, *p)
		}
		return rows.Err()
	})
	if err != nil {
		r.logger.Error("Failed to list payments", zap.Error(err))
		return nil, err
	}
	return out, nil
}

func (r *PaymentRepository) CountByProject(ctx context.Context, projectID string) (int, error) {
	var n int
	err := otel.WithDBSpan(ctx, "select", "payments", func(ctx context.Context) error {
		return r.db.QueryRow(ctx, `SELECT COUNT(*) FROM payments WHERE project_id = $1`, projectID).Scan(&n)
	})
	return n, err
}

// MarkPaid sets status paid and paid_date to paidAt. An already paid
// payment is returned unchanged; a cancelled one fails with ErrConflict.
func (r *PaymentRepository) MarkPaid(ctx context.Context, id string, paidAt time.Time) (*model.Payment, error) {
	paidDate := model.TruncateDate(paidAt)
	r.logger.Debug("Marking payment paid", zap.String("payment_id", id))

	var p *model.Payment
	alreadyPaid := false
	err := r.inTx(ctx, "update", "payments", func(ctx context.Context, tx pgx.Tx) error {
		current, err := scanPayment(tx.QueryRow(ctx,
			`SELECT `+paymentColumns+` FROM payments WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		switch current.Status {
		case model.PaymentPaid:
			p, alreadyPaid = current, true
			return nil
		case model.PaymentCancelled:
			return fmt.Errorf("payment %s is cancelled: %w", id, ErrConflict)
		}

		p, err = scanPayment(tx.QueryRow(ctx, `
			UPDATE payments SET status = 'paid', paid_date = $2
			WHERE id = $1
			RETURNING `+paymentColumns, id, paidDate))
		if err != nil {
			return err
		}
		return r.emit(ctx, tx, "payment", p.ID, contractmq.PaymentPaid, paymentPayload(ctx, p))
	})
	if err != nil {
		r.logger.Error("Failed to mark payment paid", zap.String("payment_id", id), zap.Error(err))
		return nil, mapError(err)
	}
	if alreadyPaid {
		r.logger.Debug("Payment already paid", zap.String("payment_id", id))
		return p, nil
	}

	r.logger.Info("Payment marked paid",
		zap.String("payment_id", id),
		zap.String("project_id", p.ProjectID),
	)
	return p, nil
}

func (r *PaymentRepository) DeletePayment(ctx context.Context, id string) error {
	r.logger.Debug("Deleting payment", zap.String("payment_id", id))

	err := r.inTx(ctx, "delete", "payments", func(ctx context.Context, tx pgx.Tx) error {
		p, err := scanPayment(tx.QueryRow(ctx, `DELETE FROM payments WHERE id = $1 RETURNING `+paymentColumns, id))
		if err != nil {
			return err
		}
		return r.emit(ctx, tx, "payment", p.ID, contractmq.PaymentDeleted, paymentPayload(ctx, p))
	})
	if err != nil {
		r.logger.Error("Failed to delete payment", zap.String("payment_id", id), zap.Error(err))
		return mapError(err)
	}

	r.logger.Info("Payment deleted", zap.String("payment_id", id))
	return nil
}

// MarkOverdue moves pending payments due before today to overdue and
// returns them.
func (r *PaymentRepository) MarkOverdue(ctx context.Context, today time.Time) ([]model.Payment, error) {
	var out []model.Payment
	err := r.inTx(ctx, "update", "payments", func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			UPDATE payments SET status = 'overdue'
			WHERE status = 'pending' AND due_date < $1
			RETURNING `+paymentColumns, model.TruncateDate(today))
		if err != nil {
			return err
		}
		for rows.Next() {
			p, err := scanPayment(rows)
			if err != nil {
				rows.Close()
				return err
			}
			out = append(out, *p)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for i := range out {
			if err := r.emit(ctx, tx, "payment", out[i].ID, contractmq.PaymentOverdue, paymentPayload(ctx, &out[i])); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to mark overdue payments", zap.Error(err))
		return nil, err
	}
	return out, nil
}
