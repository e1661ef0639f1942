package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_RepositoryFiles(t *testing.T) {
	cfg, err := LoadFrom("local", ".")
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, "best_effort", cfg.Billing.BatchMode)
	assert.Equal(t, 5*time.Second, cfg.Billing.WriteTimeout)
	assert.Equal(t, time.Hour, cfg.Worker.SweepInterval)
	assert.Equal(t, "local-dev-secret", cfg.JWT.Secret)
	assert.Equal(t, []string{"admin@paytrack.local"}, cfg.Auth.AdminEmails)
	assert.Equal(t, "local-admin-password", cfg.Auth.AdminPassword)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 200*time.Millisecond, cfg.DB.SlowQuery)
}

func TestLoadFrom_DefaultsAndEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.yaml"), []byte("auth:\n  admin_emails: [\" Boss@Example.com \"]\n"), 0o600))
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("ADMIN_PASSWORD", "seeded-secret")

	cfg, err := LoadFrom("", dir)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, int64(3), cfg.MQ.MaxRetries)
	assert.Equal(t, []string{"boss@example.com"}, cfg.Auth.AdminEmails)
	assert.Equal(t, "seeded-secret", cfg.Auth.AdminPassword)
}

func TestLoadFrom_Invalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.yaml"), []byte("jwt:\n  secret: x\nstorage:\n  driver: sqlite\n"), 0o600))

	_, err := LoadFrom("", dir)
	assert.ErrorContains(t, err, "unknown storage driver")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.yaml"), []byte("storage:\n  driver: memory\n"), 0o600))
	_, err = LoadFrom("", dir)
	assert.ErrorContains(t, err, "jwt.secret")
}
