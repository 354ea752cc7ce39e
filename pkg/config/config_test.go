package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithNoFileOrEnv(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 1000, cfg.MaxQueueSize)
	assert.Equal(t, 60*time.Second, cfg.ProcessingTimeout)
	assert.Equal(t, 30*time.Second, cfg.KeepaliveInterval)
}

func TestLoad_YAMLFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
host: "127.0.0.1"
port: 9999
max_queue_size: 50
processing_timeout: 90s
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, 50, cfg.MaxQueueSize)
	assert.Equal(t, 90*time.Second, cfg.ProcessingTimeout)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`port: 9999`), 0o644))

	t.Setenv("PORT", "7000")
	t.Setenv("MAX_QUEUE_SIZE", "5")
	t.Setenv("PROCESSING_TIMEOUT", "45")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, 5, cfg.MaxQueueSize)
	assert.Equal(t, 45*time.Second, cfg.ProcessingTimeout)
}

func TestLoad_MissingFileErrors(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestAddr(t *testing.T) {
	cfg := Config{Host: "0.0.0.0", Port: 8080}
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
}
