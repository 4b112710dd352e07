package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.Tutor.MaxHistoryLength)
	assert.Equal(t, 3, cfg.Tutor.RetrievalK)
	assert.Equal(t, 2, cfg.Tutor.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.Tutor.RetryDelay())
	assert.Contains(t, cfg.Tutor.ResetCommands, "/reset")
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 1000, cfg.Ingest.ChunkSize)
	assert.Equal(t, 200, cfg.Ingest.ChunkOverlap)
	assert.Equal(t, 25, cfg.Ingest.BatchSize)
	assert.Equal(t, "text-embedding-004", cfg.LLM.Gemini.EmbeddingModel)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("MAX_HISTORY_LENGTH", "6")
	t.Setenv("RETRIEVAL_K", "5")
	t.Setenv("MAX_RETRIES", "4")
	t.Setenv("RETRY_DELAY_SECONDS", "0.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Tutor.MaxHistoryLength)
	assert.Equal(t, 5, cfg.Tutor.RetrievalK)
	assert.Equal(t, 4, cfg.Tutor.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.Tutor.RetryDelay())
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: 9090
database:
  driver: sqlite
tutor:
  max_history_length: 10
  reset_commands: ["/start"]
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 10, cfg.Tutor.MaxHistoryLength)
	assert.Equal(t, []string{"/start"}, cfg.Tutor.ResetCommands)
	// untouched keys keep their defaults
	assert.Equal(t, 3, cfg.Tutor.RetrievalK)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o600))
	t.Setenv("CONFIG_PATH", path)

	_, err := Load()
	assert.Error(t, err)
}

func TestRetryDelay_NonPositive(t *testing.T) {
	assert.Equal(t, time.Duration(0), TutorConfig{RetryDelaySeconds: -1}.RetryDelay())
	assert.Equal(t, time.Duration(0), TutorConfig{}.RetryDelay())
}

func TestDatabaseConfig_DSN(t *testing.T) {
	c := DatabaseConfig{User: "u", Password: "p", Host: "h", Port: 5432, Database: "d", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@h:5432/d?sslmode=disable", c.DSN())
}
