package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	assert.Empty(t, cfg.SourceFile)
	assert.Equal(t, "./intermediate", cfg.IntermediateDir)
	assert.Equal(t, "./reports", cfg.ReportsDir)
	assert.Equal(t, "./output", cfg.OutputDir)
	assert.Equal(t, "./cities/city_codes.xlsx", cfg.CitiesFile)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 3, cfg.Replacement.RowProbeDepth)
	assert.False(t, cfg.Replacement.DisableContentSearch)
}

func TestLoadPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `source_file: /data/shipments.xlsx
log_level: debug
replacement:
  row_probe_depth: 5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/shipments.xlsx", cfg.SourceFile)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5, cfg.Replacement.RowProbeDepth)
	// unset options keep their defaults
	assert.Equal(t, "./reports", cfg.ReportsDir)
	assert.False(t, cfg.Replacement.DisableContentSearch)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("source_file: [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := &Config{
		SourceFile: "/data/shipments.xlsx",
		OutputDir:  "/data/out",
		LogLevel:   "warn",
		Replacement: ReplacementSettings{
			RowProbeDepth:        2,
			DisableContentSearch: true,
		},
	}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/shipments.xlsx", loaded.SourceFile)
	assert.Equal(t, "/data/out", loaded.OutputDir)
	assert.Equal(t, "warn", loaded.LogLevel)
	assert.Equal(t, 2, loaded.Replacement.RowProbeDepth)
	assert.True(t, loaded.Replacement.DisableContentSearch)
}
