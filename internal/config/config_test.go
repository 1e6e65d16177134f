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

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 3001, cfg.Server.Port)
	assert.Equal(t, int64(50<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, 100*time.Millisecond, cfg.Pipeline.AtlasDelay)
	assert.Equal(t, 300*time.Millisecond, cfg.Pipeline.SageDelay)
	assert.Equal(t, 50*time.Millisecond, cfg.Pipeline.GuardianDelay)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Zero(t, cfg.LLM.Timeout)
	assert.False(t, cfg.MinioEnabled())
}

func TestLoad_YAMLThenEnvironment(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8080
database:
  driver: postgres
  host: db
  port: 5432
  user: dict
  password: pw
  name: datasense
llm:
  provider: anthropic
  timeout: 45s
pipeline:
  sageDelay: 0s
minio:
  endpoint: minio:9000
`)
	t.Setenv("PORT", "9090")
	t.Setenv("LLM_API_KEY", "key-from-env")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, 45*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "key-from-env", cfg.LLM.APIKey)
	assert.True(t, cfg.LLMEnabled())
	assert.Zero(t, cfg.Pipeline.SageDelay)
	assert.Equal(t, 100*time.Millisecond, cfg.Pipeline.AtlasDelay, "keys absent from the file keep defaults")
	assert.True(t, cfg.MinioEnabled())
	assert.Equal(t, "postgres://dict:pw@db:5432/datasense?sslmode=disable", cfg.DSN())
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	_, err := Load(writeConfig(t, "database:\n  driver: oracle\n"))
	assert.ErrorContains(t, err, "oracle")
}

func TestLoad_RejectsBadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "server: [unclosed"))
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	cfg := Default()
	cfg.Database.Driver = "mysql"
	cfg.Database.User, cfg.Database.Password = "u", "p"
	cfg.Database.Host, cfg.Database.Port, cfg.Database.Name = "h", 3306, "d"
	assert.Equal(t, "u:p@tcp(h:3306)/d?parseTime=true&charset=utf8mb4&loc=UTC", cfg.DSN())

	cfg.Database.URL = "override"
	assert.Equal(t, "override", cfg.DSN())
}

func TestPathFromEnv(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	assert.Equal(t, DefaultPath, PathFromEnv())
	t.Setenv("CONFIG_PATH", "/etc/datasense.yaml")
	assert.Equal(t, "/etc/datasense.yaml", PathFromEnv())
}

func TestLLMBaseURL(t *testing.T) {
	c := Default()
	assert.Equal(t, GroqBaseURL, c.LLMBaseURL())

	c.LLM.Provider = "anthropic"
	assert.Empty(t, c.LLMBaseURL())

	c.LLM.BaseURL = "http://localhost:8000/v1"
	assert.Equal(t, "http://localhost:8000/v1", c.LLMBaseURL())
}
