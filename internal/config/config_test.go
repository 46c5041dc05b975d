package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"automate/internal/config"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "/automate", cfg.Server.BasePath)
	assert.Equal(t, 64, cfg.Engine.QueueSize)
}

func TestFromYAMLOverridesDefaults(t *testing.T) {
	cfg, err := config.FromYAML([]byte("engine:\n  pause_on_edit: true\nlog:\n  format: json\n"))
	require.NoError(t, err)
	assert.True(t, cfg.Engine.PauseOnEdit)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
}

func TestValidateRejects(t *testing.T) {
	for name, doc := range map[string]string{
		"base path": "server:\n  base_path: automate\n",
		"level":     "log:\n  level: loud\n",
		"format":    "log:\n  format: xml\n",
		"queue":     "engine:\n  queue_size: -1\n",
		"yaml":      "server: [",
	} {
		_, err := config.FromYAML([]byte(doc))
		assert.Error(t, err, name)
	}
}

func TestLoadOptional(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.LoadOptional(dir)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	_, err = config.Load(dir)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(config.Path(dir), []byte("server:\n  addr: 0.0.0.0:9000\n"), 0o644))
	cfg, err = config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	loaded, err := config.LoadEnv(dir)
	require.NoError(t, err)
	assert.Empty(t, loaded)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("AUTOMATE_TEST_ENV_VALUE=from-file\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("AUTOMATE_TEST_ENV_VALUE") })
	loaded, err = config.LoadEnv(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ".env"), loaded)
	assert.Equal(t, "from-file", os.Getenv("AUTOMATE_TEST_ENV_VALUE"))
}
