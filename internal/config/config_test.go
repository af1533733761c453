package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigFileAndSecrets(t *testing.T) {
	t.Setenv("JOBBOARD_JWT_SECRET", "s3cret")
	t.Setenv("JOBBOARD_SERVICE_DATABASE_URL", "postgres://service@db/jobs")

	path := writeConfig(t, `
server:
  port: 9090
database:
  driver: memory
outbox:
  poll_interval: 250ms
realtime:
  allowed_origins: ["https://jobs.example.com"]
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, 250*time.Millisecond, cfg.Outbox.PollInterval)
	assert.Equal(t, 100, cfg.Outbox.BatchSize)
	assert.Equal(t, []string{"https://jobs.example.com"}, cfg.Realtime.AllowedOrigins)
	assert.Equal(t, "s3cret", cfg.Secrets.JWTSecret)
	assert.Equal(t, "postgres://service@db/jobs", cfg.Secrets.ServiceDatabaseURL)
	assert.Equal(t, "development", cfg.Secrets.Environment)

	wc := cfg.Outbox.ToWorkerConfig()
	assert.Equal(t, cfg.Outbox.MaxRetries, wc.MaxRetries)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	t.Setenv("JOBBOARD_JWT_SECRET", "s3cret")
	t.Setenv("JOBBOARD_SERVER_PORT", "7070")

	cfg, err := LoadConfig(writeConfig(t, "server:\n  port: 9090\n"))
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoadConfigRequiresJWTSecret(t *testing.T) {
	t.Setenv("JOBBOARD_JWT_SECRET", "")
	_, err := LoadConfig(writeConfig(t, "server:\n  port: 9090\n"))
	assert.Error(t, err)
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	t.Setenv("JOBBOARD_JWT_SECRET", "s3cret")
	_, err := LoadConfig(writeConfig(t, "database:\n  driver: mongo\n"))
	assert.ErrorContains(t, err, "unknown database driver")
}

func TestDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5432, User: "app", Password: "pw", Name: "jobs", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=app password=pw dbname=jobs sslmode=disable", c.DSN())
}
