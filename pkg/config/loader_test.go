package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
}

func TestLoadConfig_MergesEnvOverBase(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
db:
  host: localhost
  port: 5432
server:
  port: ":8080"
`)
	writeFile(t, dir, "production.yaml", `
db:
  host: db.internal
`)

	cfg, err := LoadConfig("production", dir)
	require.NoError(t, err)

	db := cfg["db"].(map[string]any)
	assert.Equal(t, "db.internal", db["host"])
	assert.Equal(t, 5432, db["port"])
	assert.Equal(t, ":8080", cfg["server"].(map[string]any)["port"])
}

func TestLoadConfig_MissingEnvFileKeepsBase(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "db:\n  host: localhost\n")

	cfg, err := LoadConfig("staging", dir)
	require.NoError(t, err)
	assert.Equal(t, "localhost", cfg["db"].(map[string]any)["host"])
}

func TestLoadConfig_SubstitutesSecrets(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "jwt:\n  secret: ${JWT_SECRET}\n")
	writeFile(t, dir, "secrets.env", "# local secrets\nJWT_SECRET=\"s3cret\"\n")

	cfg, err := LoadConfig("", dir)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg["jwt"].(map[string]any)["secret"])
}

func TestLoadConfig_MissingBase(t *testing.T) {
	_, err := LoadConfig("local", t.TempDir())
	require.Error(t, err)
}

func TestDecode(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
server:
  port: ":9090"
  request_timeout: 5s
`)

	var out struct {
		Server ServerConfig `yaml:"server"`
	}
	require.NoError(t, Decode("", dir, &out))
	assert.Equal(t, ":9090", out.Server.Port)
	assert.Equal(t, 5*time.Second, out.Server.RequestTimeout)
}

func TestOverrideDBFromEnv(t *testing.T) {
	t.Setenv("DB_HOST", "pg")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_PORT_IGNORED", "x")

	cfg := DBConfig{Host: "localhost", Port: 5432, Name: "paytrack"}
	OverrideDBFromEnv(&cfg)

	assert.Equal(t, "pg", cfg.Host)
	assert.Equal(t, 6543, cfg.Port)
	assert.Equal(t, "paytrack", cfg.Name)
}
