// Package operations drives a pipeline run: four stages executed strictly
// in order, each handing its artifact to the next through the store. A
// stage failure halts the run; downstream stages are marked skipped and
// never execute.
package operations

import (
	"context"
	"fmt"
)

// Stage IDs in execution order.
const (
	StageIDExtract = "extract"
	StageIDClean   = "clean"
	StageIDFeature = "feature"
	StageIDReport  = "report"
)

// Stage is a single pipeline phase. Implementations read their input
// artifact from the store, do their work, and write their output artifact
// before returning.
type Stage interface {
	// ID returns the stable identifier of this stage.
	ID() string

	// Name returns the human-readable stage name.
	Name() string

	// Validate checks preconditions before Execute runs, typically that the
	// upstream artifact exists.
	Validate(state *RunState) error

	// Execute performs the stage's work for the run.
	Execute(ctx context.Context, state *RunState) error
}

// BaseStage carries the identity shared by all stage implementations.
type BaseStage struct {
	id   string
	name string
}

// NewBaseStage creates the embedded identity for a stage.
func NewBaseStage(id, name string) BaseStage {
	return BaseStage{id: id, name: name}
}

// ID returns the stage identifier.
func (b BaseStage) ID() string { return b.id }

// Name returns the stage name.
func (b BaseStage) Name() string { return b.name }

// Validate passes by default; stages with preconditions override it.
func (b BaseStage) Validate(state *RunState) error {
	if state == nil {
		return fmt.Errorf("nil run state")
	}
	return nil
}
