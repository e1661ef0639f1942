package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"paytrack/internal/model"
	"paytrack/pkg/otel"
)

type UserRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewUserRepository(db *pgxpool.Pool, logger *zap.Logger) *UserRepository {
	return &UserRepository{db: db, logger: logger}
}

// CreateUser inserts u; the email is stored lower-cased.
func (r *UserRepository) CreateUser(ctx context.Context, u *model.User) error {
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now().UTC()
	u.Email = strings.ToLower(u.Email)

	err := otel.WithDBSpan(ctx, "insert", "users", func(ctx context.Context) error {
		_, err := r.db.Exec(ctx,
			`INSERT INTO users (id, email, password_hash, role, created_at) VALUES ($1, $2, $3, $4, $5)`,
			u.ID, u.Email, u.PasswordHash, u.Role, u.CreatedAt,
		)
		return err
	})
	if err != nil {
		r.logger.Error("Failed to insert user", zap.String("email", u.Email), zap.Error(err))
		return mapError(err)
	}
	return nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := otel.WithDBSpan(ctx, "select", "users", func(ctx context.Context) error {
		return r.db.QueryRow(ctx,
			`SELECT id, email, password_hash, role, created_at FROM users WHERE email = $1`,
			strings.ToLower(email),
		).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	})
	if err != nil {
		return nil, mapError(err)
	}
	return &u, nil
}
