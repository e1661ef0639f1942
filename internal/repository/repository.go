// Package repository persists projects, payments, tasks, clients and users.
// Postgres repositories write an outbox event in the same transaction as
// every mutation; memory repositories publish to an in-process change feed.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"paytrack/pkg/otel"
	"paytrack/pkg/outbox"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
	ErrConflict  = errors.New("record state does not allow this change")
)

// pgBase is shared by the Postgres repositories.
type pgBase struct {
	db     *pgxpool.Pool
	outbox *outbox.Repository
	logger *zap.Logger
}

func newPGBase(db *pgxpool.Pool, logger *zap.Logger) pgBase {
	return pgBase{db: db, outbox: outbox.NewRepository(db), logger: logger}
}

// inTx runs fn in a transaction traced as operation on table.
func (b pgBase) inTx(ctx context.Context, operation, table string, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return otel.WithDBSpan(ctx, operation, table, func(ctx context.Context) error {
		return pgx.BeginFunc(ctx, b.db, func(tx pgx.Tx) error {
			return fn(ctx, tx)
		})
	})
}

// emit queues an outbox event inside tx.
func (b pgBase) emit(ctx context.Context, tx pgx.Tx, aggregateType, aggregateID, routingKey string, payload any) error {
	if err := outbox.InsertEventInTx(ctx, tx, b.outbox, aggregateType, aggregateID, routingKey, payload); err != nil {
		return fmt.Errorf("queue %s event: %w", routingKey, err)
	}
	return nil
}

// mapError turns driver errors into the package's sentinel errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

// requireAffected maps an UPDATE/DELETE touching no row to ErrNotFound.
func requireAffected(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
