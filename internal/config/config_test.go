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
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "test-key", cfg.GeminiAPIKey)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, ":8080", cfg.Address())
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, 500*time.Millisecond, cfg.ImportDelay)
}

func TestLoad_MissingAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}

func TestLoad_YAMLOverridesEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("TEST_REDIS_ADDR", "cache:6380")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
http_port: "9090"
log_level: debug
import_delay: 2s
storage:
  backend: redis
  redis_addr: ${TEST_REDIS_ADDR}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.GeminiAPIKey)
	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 2*time.Second, cfg.ImportDelay)
	assert.Equal(t, BackendRedis, cfg.Storage.Backend)
	assert.Equal(t, "cache:6380", cfg.Storage.RedisAddr)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "k")

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			GeminiAPIKey: "k",
			GeminiModel:  "m",
			HTTPPort:     "8080",
			LogLevel:     "info",
			Storage:      StorageConfig{Backend: BackendMemory},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"bad port", func(c *Config) { c.HTTPPort = "http" }, true},
		{"port out of range", func(c *Config) { c.HTTPPort = "70000" }, true},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, true},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "mongo" }, true},
		{"sqlite without path", func(c *Config) { c.Storage.Backend = BackendSQLite }, true},
		{"sqlite with path", func(c *Config) {
			c.Storage.Backend = BackendSQLite
			c.Storage.DatabaseURL = "x.db"
		}, false},
		{"redis without addr", func(c *Config) { c.Storage.Backend = BackendRedis }, true},
		{"negative import delay", func(c *Config) { c.ImportDelay = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"http://a", "http://b"}, splitList(" http://a, ,http://b "))
	assert.Nil(t, splitList(""))
}
