package rdeconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rdeconfig.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeTempConfig(t, "system:\n  extended_mode: \"\"\n")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.SaveRawEnabled())
	assert.True(t, cfg.MagicVariableEnabled())
	assert.True(t, cfg.IgnoreErrorsEnabled())
	assert.Equal(t, 4, cfg.MultiDataTile.DividedDirDigit)
	assert.Equal(t, "compact", cfg.Traceback.Format)
}

func TestLoadConfigExplicitFalse(t *testing.T) {
	path := writeTempConfig(t, "system:\n  save_raw: false\n  magic_variable: false\n")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.False(t, cfg.SaveRawEnabled())
	assert.False(t, cfg.MagicVariableEnabled())
}

func TestLoadConfigRejectsBadExtendedMode(t *testing.T) {
	path := writeTempConfig(t, "system:\n  extended_mode: \"multidatatile\"\n")
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extended_mode")
}

func TestLoadConfigExtendedModeCaseSensitive(t *testing.T) {
	path := writeTempConfig(t, "system:\n  extended_mode: \"MultiDataTile\"\n")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.IsMultiDataTile())
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadConfigRejectsBadTracebackFormat(t *testing.T) {
	path := writeTempConfig(t, "traceback:\n  format: \"verbose\"\n")
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "traceback.format")
}
