package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnvFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shim.env")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains: it changes
// the working directory and restores the previous one when the test ends.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestLoadDefaultsWithoutEnvFile(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv(EnvFileVar, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Empty(t, cfg.HistoryDB)
	assert.Equal(t, DefaultHistoryKeep, cfg.HistoryKeep)
	assert.Empty(t, cfg.EngineEnv)
	assert.Empty(t, cfg.EnvFileUsed)
}

func TestLoadReadsEnvFile(t *testing.T) {
	path := writeEnvFile(t, "LOG_LEVEL=debug\nHISTORY_DB=/tmp/runs.sqlite\nPG_PASSWORD=s3cret\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/tmp/runs.sqlite", cfg.HistoryDB)
	assert.Equal(t, "s3cret", cfg.EngineEnv["PG_PASSWORD"])
	assert.Equal(t, path, cfg.EnvFileUsed)
}

func TestProcessEnvOverridesEnvFile(t *testing.T) {
	path := writeEnvFile(t, "LOG_FORMAT=json\nHISTORY_KEEP=10\n")
	t.Setenv("LOG_FORMAT", "logfmt")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "logfmt", cfg.LogFormat)
	assert.Equal(t, 10, cfg.HistoryKeep)
}

func TestLoadUsesEnvFileVar(t *testing.T) {
	path := writeEnvFile(t, "LOG_FILE=/var/log/shim.log\n")
	t.Setenv(EnvFileVar, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/var/log/shim.log", cfg.LogFile)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.env"))
	assert.Error(t, err)
}

func TestInvalidHistoryKeepFallsBack(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv(EnvFileVar, "")
	t.Setenv("HISTORY_KEEP", "-4")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultHistoryKeep, cfg.HistoryKeep)
}
