package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.True(t, cfg.Server.RateLimit.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "txt", cfg.Pipeline.ReportFormat)
	assert.Equal(t, 30*time.Second, cfg.Pipeline.SourceTimeout)
	assert.True(t, cfg.Pipeline.Cleaning.RemoveOutliers)
	assert.Equal(t, 1.5, cfg.Pipeline.Cleaning.OutlierThreshold)
	assert.Equal(t, []string{"med_house_val"}, cfg.Pipeline.Cleaning.OutlierColumns)
	assert.Equal(t, []string{"ave_rooms", "population"}, cfg.Pipeline.Cleaning.PositiveColumns)
	assert.Equal(t, "mean", cfg.Pipeline.Cleaning.NumericFill)
	assert.Equal(t, "unknown", cfg.Pipeline.Cleaning.StringFill)
}

func TestLoadFileOverlaysEnvDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: 9090
pipeline:
  source_file: /srv/data/housing.csv
  report_format: json
  cleaning:
    outlier_threshold: 3.0
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/srv/data/housing.csv", cfg.Pipeline.SourceFile)
	assert.Equal(t, "json", cfg.Pipeline.ReportFormat)
	assert.Equal(t, 3.0, cfg.Pipeline.Cleaning.OutlierThreshold)

	// Untouched values keep their defaults.
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "mean", cfg.Pipeline.Cleaning.NumericFill)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PIPELINE_SERVER_PORT", "7070")
	t.Setenv("PIPELINE_PIPELINE_REPORT_FORMAT", "json")

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "json", cfg.Pipeline.ReportFormat)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "bad numeric fill", yaml: "pipeline:\n  cleaning:\n    numeric_fill: bananas\n"},
		{name: "bad report format", yaml: "pipeline:\n  report_format: xml\n"},
		{name: "bad port", yaml: "server:\n  port: 99999\n"},
		{name: "negative threshold", yaml: "pipeline:\n  cleaning:\n    outlier_threshold: -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))

			_, err := LoadFile(path)
			assert.Error(t, err)
		})
	}
}
