package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"paytrack/internal/model"
	"paytrack/internal/repository"
	"paytrack/pkg/rbac"
	"paytrack/pkg/util"
)

func newAuth(t *testing.T) *AuthService {
	t.Helper()
	mem := repository.NewMemory(nil, zap.NewNop())
	return NewAuthService(mem.Users(), "test-secret", time.Hour, []string{" Boss@Studio.test "}, zap.NewNop())
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	auth := newAuth(t)
	ctx := context.Background()

	u, err := auth.Register(ctx, "Dev@Studio.test", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "dev@studio.test", u.Email)
	assert.Equal(t, rbac.RoleMember, u.Role)
	assert.NotEqual(t, "correct horse", u.PasswordHash)

	token, err := auth.Login(ctx, "dev@studio.test", "correct horse")
	require.NoError(t, err)

	claims, err := util.ParseJWT(token, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, rbac.RoleMember, claims.Role)
}

func TestAuthService_AdminEmailIsReserved(t *testing.T) {
	auth := newAuth(t)
	ctx := context.Background()

	_, err := auth.Register(ctx, "boss@studio.test", "first come")
	assert.ErrorIs(t, err, ErrEmailTaken)

	require.NoError(t, auth.SeedAdmins(ctx, "admin password"))
	_, err = auth.Login(ctx, "boss@studio.test", "first come")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	token, err := auth.Login(ctx, "Boss@Studio.test", "admin password")
	require.NoError(t, err)
	claims, err := util.ParseJWT(token, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleAdmin, claims.Role)

	_, err = auth.Register(ctx, "boss@studio.test", "first come")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestAuthService_SeedAdminsKeepsExisting(t *testing.T) {
	auth := newAuth(t)
	ctx := context.Background()

	require.NoError(t, auth.SeedAdmins(ctx, "admin password"))
	require.NoError(t, auth.SeedAdmins(ctx, "rotated password"))

	_, err := auth.Login(ctx, "boss@studio.test", "admin password")
	assert.NoError(t, err)

	var verr *model.ValidationError
	assert.ErrorAs(t, auth.SeedAdmins(ctx, "short"), &verr)
}

func TestAuthService_Errors(t *testing.T) {
	auth := newAuth(t)
	ctx := context.Background()

	_, err := auth.Register(ctx, "dev@studio.test", "correct horse")
	require.NoError(t, err)

	_, err = auth.Register(ctx, "dev@studio.test", "another password")
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = auth.Register(ctx, "not-an-email", "correct horse")
	var verr *model.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = auth.Register(ctx, "short@studio.test", "short")
	assert.ErrorAs(t, err, &verr)

	_, err = auth.Login(ctx, "dev@studio.test", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = auth.Login(ctx, "ghost@studio.test", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
