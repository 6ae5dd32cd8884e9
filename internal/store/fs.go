package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"datapipe/internal/config"
	"datapipe/internal/table"
	"datapipe/pkg/contracts/domain"
)

// FSStore is the filesystem artifact store. Writes go through a temp file
// and rename so that no partially written artifact ever looks complete.
type FSStore struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewFSStore creates a filesystem store over the resolved path layout.
func NewFSStore(paths *config.Paths, logger *slog.Logger) *FSStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSStore{paths: paths, logger: logger}
}

// Path returns the artifact location for a kind and year.
func (s *FSStore) Path(kind Kind, year int) string {
	switch kind {
	case KindRaw:
		return s.paths.RawDataCSV(year)
	case KindClean:
		return s.paths.CleanDataCSV(year)
	case KindFeatures:
		return s.paths.FeaturesCSV(year)
	default:
		return filepath.Join(s.paths.ProcessedDir, fmt.Sprintf("%s_%d.csv", kind, year))
	}
}

// ReadTable implements Store.
func (s *FSStore) ReadTable(ctx context.Context, kind Kind, year int, schema *table.Schema) (*table.Table, error) {
	path := s.Path(kind, year)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s artifact for %d: %w", kind, year, err)
	}
	defer f.Close()

	t, err := table.DecodeCSV(f, schema)
	if err != nil {
		return nil, fmt.Errorf("decode %s artifact for %d: %w", kind, year, err)
	}
	s.logger.DebugContext(ctx, "artifact read",
		slog.String("kind", string(kind)),
		slog.Int("year", year),
		slog.Int("rows", t.Len()),
		slog.String("path", path))
	return t, nil
}

// WriteTable implements Store.
func (s *FSStore) WriteTable(ctx context.Context, kind Kind, year int, t *table.Table) (string, error) {
	var buf bytes.Buffer
	if err := table.EncodeCSV(&buf, t); err != nil {
		return "", fmt.Errorf("encode %s artifact for %d: %w", kind, year, err)
	}

	path := s.Path(kind, year)
	if err := s.atomicWrite(path, buf.Bytes()); err != nil {
		return "", err
	}
	s.logger.InfoContext(ctx, "artifact written",
		slog.String("kind", string(kind)),
		slog.Int("year", year),
		slog.Int("rows", t.Len()),
		slog.String("path", path))
	return path, nil
}

// WriteCleanReport implements Store.
func (s *FSStore) WriteCleanReport(ctx context.Context, year int, report domain.CleanReport) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal clean report for %d: %w", year, err)
	}
	path := s.paths.CleanReportJSON(year)
	if err := s.atomicWrite(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// WriteReport implements Store.
func (s *FSStore) WriteReport(ctx context.Context, year int, format string, data []byte) (string, error) {
	path := s.paths.ReportFile(year, format)
	if err := s.atomicWrite(path, data); err != nil {
		return "", err
	}
	s.logger.InfoContext(ctx, "report written",
		slog.Int("year", year),
		slog.String("format", format),
		slog.String("path", path))
	return path, nil
}

// Exists implements Store.
func (s *FSStore) Exists(kind Kind, year int) bool {
	_, err := os.Stat(s.Path(kind, year))
	return err == nil
}

// atomicWrite writes data next to the target and renames it into place.
func (s *FSStore) atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}
