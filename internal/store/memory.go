package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"datapipe/internal/table"
	"datapipe/pkg/contracts/domain"
)

// MemStore is an in-memory Store for tests. It re-encodes tables through
// the CSV codec so that stage handoff behaves exactly like the filesystem
// store, including null round-tripping.
type MemStore struct {
	mu      sync.RWMutex
	tables  map[string][]byte
	reports map[string][]byte
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		tables:  make(map[string][]byte),
		reports: make(map[string][]byte),
	}
}

func tableKey(kind Kind, year int) string {
	return fmt.Sprintf("%s/%d", kind, year)
}

// ReadTable implements Store.
func (s *MemStore) ReadTable(ctx context.Context, kind Kind, year int, schema *table.Schema) (*table.Table, error) {
	s.mu.RLock()
	data, ok := s.tables[tableKey(kind, year)]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("open %s artifact for %d: not found", kind, year)
	}
	t, err := table.DecodeCSV(bytes.NewReader(data), schema)
	if err != nil {
		return nil, fmt.Errorf("decode %s artifact for %d: %w", kind, year, err)
	}
	return t, nil
}

// WriteTable implements Store.
func (s *MemStore) WriteTable(ctx context.Context, kind Kind, year int, t *table.Table) (string, error) {
	var buf bytes.Buffer
	if err := table.EncodeCSV(&buf, t); err != nil {
		return "", fmt.Errorf("encode %s artifact for %d: %w", kind, year, err)
	}
	s.mu.Lock()
	s.tables[tableKey(kind, year)] = buf.Bytes()
	s.mu.Unlock()
	return fmt.Sprintf("mem://%s/%d", kind, year), nil
}

// WriteCleanReport implements Store.
func (s *MemStore) WriteCleanReport(ctx context.Context, year int, report domain.CleanReport) (string, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.reports[fmt.Sprintf("clean_report/%d", year)] = data
	s.mu.Unlock()
	return fmt.Sprintf("mem://clean_report/%d", year), nil
}

// WriteReport implements Store.
func (s *MemStore) WriteReport(ctx context.Context, year int, format string, data []byte) (string, error) {
	s.mu.Lock()
	s.reports[fmt.Sprintf("report/%d.%s", year, format)] = append([]byte(nil), data...)
	s.mu.Unlock()
	return fmt.Sprintf("mem://report/%d.%s", year, format), nil
}

// Path implements Store.
func (s *MemStore) Path(kind Kind, year int) string {
	return "mem://" + tableKey(kind, year)
}

// Exists implements Store.
func (s *MemStore) Exists(kind Kind, year int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tables[tableKey(kind, year)]
	return ok
}

// Report returns stored report bytes for assertions in tests.
func (s *MemStore) Report(year int, format string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.reports[fmt.Sprintf("report/%d.%s", year, format)]
	return data, ok
}

// CleanReport returns the stored cleaning report for assertions in tests.
func (s *MemStore) CleanReport(year int) (domain.CleanReport, bool) {
	s.mu.RLock()
	data, ok := s.reports[fmt.Sprintf("clean_report/%d", year)]
	s.mu.RUnlock()
	if !ok {
		return domain.CleanReport{}, false
	}
	var rep domain.CleanReport
	if err := json.Unmarshal(data, &rep); err != nil {
		return domain.CleanReport{}, false
	}
	return rep, true
}
