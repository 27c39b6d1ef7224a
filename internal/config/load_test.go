package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfigFile writes content to a config.yaml in a temp dir and returns its path.
func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// TestLoadDefaults verifies the defaults used when neither a file nor
// environment variables are present.
func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")

	require.NoError(t, err, "Load() should not return an error with default values")
	require.NotNil(t, cfg)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, "doubao", cfg.LLM.DefaultModel)
	assert.Equal(t, "doubao-seed-1-6-251015", cfg.LLM.Doubao.Model)
	assert.Equal(t, "http://127.0.0.1:3721", cfg.Parser.URL)
	assert.Equal(t, 3, cfg.TaskQueue.MaxConcurrent)
	assert.Equal(t, 1500, cfg.TaskQueue.RemoveDelayMillis)
	assert.Equal(t, "lifo", cfg.TaskQueue.Admission)
	assert.Equal(t, 100, cfg.History.MaxRecords)
	assert.Empty(t, cfg.Database.URL)
	assert.Empty(t, cfg.Auth.JWTSecret)
}

// TestLoadEnvironmentPrecedence verifies that environment variables take
// precedence over config file values.
func TestLoadEnvironmentPrecedence(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 7070
  log_level: debug
llm:
  doubao:
    api_key: file-key
  prompts:
    casual: "Make it casual."
task_queue:
  max_concurrent: 5
  admission: fifo
`)
	t.Setenv("CLIPSCRIBE_SERVER_PORT", "9090")
	t.Setenv("CLIPSCRIBE_LLM_DOUBAO_API_KEY", "env-key")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port, "port should come from the environment")
	assert.Equal(t, "debug", cfg.Server.LogLevel, "log level should come from the file")
	assert.Equal(t, "env-key", cfg.LLM.Doubao.APIKey)
	assert.Equal(t, "Make it casual.", cfg.LLM.Prompts["casual"])
	assert.Equal(t, 5, cfg.TaskQueue.MaxConcurrent)
	assert.Equal(t, "fifo", cfg.TaskQueue.Admission)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"invalid port", map[string]string{"CLIPSCRIBE_SERVER_PORT": "70000"}},
		{"invalid log level", map[string]string{"CLIPSCRIBE_SERVER_LOG_LEVEL": "verbose"}},
		{"short jwt secret", map[string]string{"CLIPSCRIBE_AUTH_JWT_SECRET": "short"}},
		{"unknown admission policy", map[string]string{"CLIPSCRIBE_TASK_QUEUE_ADMISSION": "random"}},
		{"invalid database url", map[string]string{"CLIPSCRIBE_DATABASE_URL": "not a url"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			cfg, err := Load("")
			assert.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), "configuration validation failed")
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("CLIPSCRIBE_TEST_ENV_FILE=loaded\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("CLIPSCRIBE_TEST_ENV_FILE") })

	require.NoError(t, LoadEnvFile(filepath.Join(dir, "missing.env"), envPath))
	assert.Equal(t, "loaded", os.Getenv("CLIPSCRIBE_TEST_ENV_FILE"))
}

func TestLimits(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultMaxConcurrent, NewLimits(0).MaxConcurrent())
	assert.Equal(t, DefaultMaxConcurrent, NewLimits(-4).MaxConcurrent())

	limits := NewLimits(2)
	assert.Equal(t, 2, limits.MaxConcurrent())

	require.NoError(t, limits.SetMaxConcurrent(5))
	assert.Equal(t, 5, limits.MaxConcurrent())

	assert.ErrorIs(t, limits.SetMaxConcurrent(0), ErrInvalidLimit)
	assert.ErrorIs(t, limits.SetMaxConcurrent(MaxConcurrentCeiling+1), ErrInvalidLimit)
	assert.Equal(t, 5, limits.MaxConcurrent(), "rejected values must not change the limit")
}

func TestApplyLimit(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	limits := NewLimits(3)
	v := viper.New()

	v.Set("task_queue.max_concurrent", 6)
	applyLimit(v, limits, logger)
	assert.Equal(t, 6, limits.MaxConcurrent())

	v.Set("task_queue.max_concurrent", 0)
	applyLimit(v, limits, logger)
	assert.Equal(t, DefaultMaxConcurrent, limits.MaxConcurrent())

	v.Set("task_queue.max_concurrent", 1000)
	applyLimit(v, limits, logger)
	assert.Equal(t, DefaultMaxConcurrent, limits.MaxConcurrent())
}

func TestWatchLimitsEmptyPath(t *testing.T) {
	t.Parallel()
	assert.NoError(t, WatchLimits("", NewLimits(1), slog.New(slog.NewTextHandler(io.Discard, nil))))
}
