package service

import (
	"context"
	"errors"
	"net/mail"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"paytrack/internal/model"
	"paytrack/internal/repository"
	"paytrack/pkg/rbac"
	"paytrack/pkg/util"
)

var (
	ErrEmailTaken         = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

const minPasswordLength = 8

type AuthService struct {
	users       UserStore
	jwtSecret   string
	tokenTTL    time.Duration
	adminEmails []string
	logger      *zap.Logger
}

// NewAuthService creates the auth service. adminEmails are reserved for
// the accounts created by SeedAdmins; Register refuses them.
func NewAuthService(users UserStore, jwtSecret string, tokenTTL time.Duration, adminEmails []string, logger *zap.Logger) *AuthService {
	admins := make([]string, 0, len(adminEmails))
	for _, e := range adminEmails {
		admins = append(admins, strings.ToLower(strings.TrimSpace(e)))
	}
	return &AuthService{
		users:       users,
		jwtSecret:   jwtSecret,
		tokenTTL:    tokenTTL,
		adminEmails: admins,
		logger:      logger,
	}
}

// Register creates a new user.
func (s *AuthService) Register(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, model.NewValidationError("email", model.CodeInvalidFormat, "email is not a valid address")
	}
	if len(password) < minPasswordLength {
		return nil, model.NewValidationError("password", model.CodeOutOfRange, "password must have at least 8 characters")
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		return nil, err
	}

	if slices.Contains(s.adminEmails, email) {
		return nil, ErrEmailTaken
	}
	u := &model.User{Email: email, PasswordHash: hash, Role: rbac.RoleMember}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	s.logger.Info("User registered", zap.String("user_id", u.ID), zap.String("role", u.Role))
	return u, nil
}

// SeedAdmins creates an admin account with password for every admin email
// that has no user yet. Existing accounts are left untouched.
func (s *AuthService) SeedAdmins(ctx context.Context, password string) error {
	if len(s.adminEmails) == 0 {
		return nil
	}
	if len(password) < minPasswordLength {
		return model.NewValidationError("admin_password", model.CodeOutOfRange, "admin password must have at least 8 characters")
	}

	for _, email := range s.adminEmails {
		_, err := s.users.FindByEmail(ctx, email)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		hash, err := util.HashPassword(password)
		if err != nil {
			return err
		}
		u := &model.User{Email: email, PasswordHash: hash, Role: rbac.RoleAdmin}
		if err := s.users.CreateUser(ctx, u); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				continue
			}
			return err
		}
		s.logger.Info("Admin account seeded", zap.String("user_id", u.ID), zap.String("email", email))
	}
	return nil
}

// Login checks user credentials and returns a signed token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if !util.CheckPassword(password, u.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	return util.GenerateJWT(u.ID, u.Role, s.jwtSecret, s.tokenTTL)
}
