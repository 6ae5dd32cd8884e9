package operations

import (
	"fmt"
	"sync"
)

// Registry holds the stages of the pipeline in registration order. The
// pipeline is linear, so registration order is execution order.
type Registry struct {
	mu     sync.RWMutex
	order  []string
	stages map[string]Stage
}

// NewRegistry creates an empty stage registry.
func NewRegistry() *Registry {
	return &Registry{stages: make(map[string]Stage)}
}

// Register adds a stage. Duplicate IDs are rejected.
func (r *Registry) Register(s Stage) error {
	if s == nil {
		return fmt.Errorf("cannot register nil stage")
	}
	if s.ID() == "" {
		return fmt.Errorf("cannot register stage with empty ID")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.stages[s.ID()]; exists {
		return fmt.Errorf("stage %q already registered", s.ID())
	}
	r.order = append(r.order, s.ID())
	r.stages[s.ID()] = s
	return nil
}

// MustRegister registers the stages and panics on error. For wiring at
// startup, where a duplicate is a programming mistake.
func (r *Registry) MustRegister(stages ...Stage) {
	for _, s := range stages {
		if err := r.Register(s); err != nil {
			panic(err)
		}
	}
}

// Get returns the stage with the given ID.
func (r *Registry) Get(id string) (Stage, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stages[id]
	return s, ok
}

// Stages returns all stages in execution order.
func (r *Registry) Stages() []Stage {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Stage, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.stages[id])
	}
	return out
}

// Len returns the number of registered stages.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
