package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths holds every resolved filesystem location the pipeline touches.
// Artifact names are deterministic and year-qualified so that runs for
// different years never collide.
type Paths struct {
	BaseDir      string
	RawDir       string
	ProcessedDir string
	ResultsDir   string
	LogsDir      string
}

// NewPaths resolves the configured directory layout against the base
// directory. An override, when non-empty, replaces the base directory.
func NewPaths(cfg PathsConfig, baseOverride string) *Paths {
	base := cfg.BaseDir
	if baseOverride != "" {
		base = baseOverride
	}
	resolve := func(dir string) string {
		if filepath.IsAbs(dir) {
			return dir
		}
		return filepath.Join(base, dir)
	}
	return &Paths{
		BaseDir:      base,
		RawDir:       resolve(cfg.RawDir),
		ProcessedDir: resolve(cfg.ProcessedDir),
		ResultsDir:   resolve(cfg.ResultsDir),
		LogsDir:      resolve(cfg.LogsDir),
	}
}

// EnsureDirectories creates every managed directory.
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.RawDir, p.ProcessedDir, p.ResultsDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// RawDataCSV is the raw artifact for a year.
func (p *Paths) RawDataCSV(year int) string {
	return filepath.Join(p.RawDir, fmt.Sprintf("raw_data_%d.csv", year))
}

// CleanDataCSV is the cleaned artifact for a year.
func (p *Paths) CleanDataCSV(year int) string {
	return filepath.Join(p.ProcessedDir, fmt.Sprintf("clean_data_%d.csv", year))
}

// CleanReportJSON is the cleaning-report sidecar for a year.
func (p *Paths) CleanReportJSON(year int) string {
	return filepath.Join(p.ProcessedDir, fmt.Sprintf("clean_report_%d.json", year))
}

// FeaturesCSV is the featured artifact for a year.
func (p *Paths) FeaturesCSV(year int) string {
	return filepath.Join(p.ProcessedDir, fmt.Sprintf("features_%d.csv", year))
}

// ReportFile is the rendered report for a year in the given format; the
// format doubles as the file extension.
func (p *Paths) ReportFile(year int, format string) string {
	return filepath.Join(p.ResultsDir, fmt.Sprintf("report_%d.%s", year, format))
}
