// Package store abstracts the filesystem handoff between pipeline stages.
// Each stage writes one artifact named by stage kind and year; the next
// stage reads it back. The interface exists so the core stages can target
// an in-memory store in tests.
package store

import (
	"context"

	"datapipe/internal/table"
	"datapipe/pkg/contracts/domain"
)

// Kind names a tabular artifact produced by a stage.
type Kind string

const (
	KindRaw      Kind = "raw"
	KindClean    Kind = "clean"
	KindFeatures Kind = "features"
)

// Store reads and writes year-keyed pipeline artifacts. Artifacts are
// written once per run and treated as immutable once a downstream stage
// begins reading them.
type Store interface {
	// ReadTable loads the artifact of the given kind and year, decoded
	// against the schema.
	ReadTable(ctx context.Context, kind Kind, year int, schema *table.Schema) (*table.Table, error)

	// WriteTable persists the table, overwriting any prior artifact for the
	// same kind and year, and returns the artifact's path.
	WriteTable(ctx context.Context, kind Kind, year int, t *table.Table) (string, error)

	// WriteCleanReport persists the cleaning report sidecar.
	WriteCleanReport(ctx context.Context, year int, report domain.CleanReport) (string, error)

	// WriteReport persists rendered report bytes for the given format.
	WriteReport(ctx context.Context, year int, format string, data []byte) (string, error)

	// Exists reports whether an artifact of the given kind and year exists.
	Exists(kind Kind, year int) bool

	// Path returns the location an artifact of the given kind and year is
	// written to, whether or not it exists yet.
	Path(kind Kind, year int) string
}
