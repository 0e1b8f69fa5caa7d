package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "8700", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 1000, cfg.Terminal.ScrollbackLines)
	assert.Equal(t, 500*time.Millisecond, cfg.Terminal.KillGrace)
	assert.Equal(t, 80, cfg.Terminal.DefaultCols)
	assert.Equal(t, 24, cfg.Terminal.DefaultRows)
	assert.True(t, cfg.RateLimit.Enabled)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9100")
	t.Setenv("TERMHUB_SHELL", "/bin/zsh")
	t.Setenv("TERMHUB_SCROLLBACK", "250")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Equal(t, "/bin/zsh", cfg.Terminal.Shell)
	assert.Equal(t, 250, cfg.Terminal.ScrollbackLines)
	// Untouched values keep their defaults.
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
}

func TestLoadYAMLOverridesEnv(t *testing.T) {
	t.Setenv("PORT", "9100")

	path := filepath.Join(t.TempDir(), "termhub.yaml")
	data := []byte("server:\n  port: \"9200\"\nterminal:\n  default_cols: 132\n")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9200", cfg.Server.Port)
	assert.Equal(t, 132, cfg.Terminal.DefaultCols)
	// Values absent from the file survive from env/defaults.
	assert.Equal(t, 24, cfg.Terminal.DefaultRows)
}

func TestLoadMissingFileIsFine(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "8700", cfg.Server.Port)
}

func TestLoadMalformedYAMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: ["), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadOrDefaultFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: ["), 0o644))

	cfg := LoadOrDefault(path)
	assert.Equal(t, "8700", cfg.Server.Port)
}
