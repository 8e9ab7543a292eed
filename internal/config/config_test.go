package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFallsBackToDefaultsWhenFileMissing(t *testing.T) {
	t.Setenv(EnvConfigModel, "gpt-4o")
	l := NewLoader(nil)
	cfg, err := l.Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", cfg.ModelID)
	assert.Equal(t, Default().MaxAttempts, cfg.MaxAttempts)
}

func TestLoadParsesFileAndAppliesEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repair.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model_id: gemini-1.5-pro\nmax_attempts: 7\n"), 0o644))

	t.Setenv(EnvConfigMaxAttempts, "9")
	l := NewLoader(nil)
	cfg, err := l.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini-1.5-pro", cfg.ModelID)
	assert.Equal(t, 9, cfg.MaxAttempts) // env override wins over file
}

func TestLoadRejectsUnknownEnumValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repair.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model_id: gpt-4o\nmessage_history: bogus\n"), 0o644))

	l := NewLoader(nil)
	_, err := l.Load(path)
	require.Error(t, err)
}

func TestLoadRequiresModelID(t *testing.T) {
	l := NewLoader(nil)
	_, err := l.Load("")
	require.Error(t, err)
}
