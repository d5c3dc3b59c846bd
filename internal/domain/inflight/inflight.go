// Package inflight provides keyed mutual exclusion for audit runs.
//
// At most one pipeline run may hold the token for a given audit id; the
// token is held for the run's lifetime and released on the terminal
// transition. Distinct audits never contend.
package inflight

import (
	"context"
	"sync"
)

// Registry tracks which audit ids currently have a running pipeline.
type Registry interface {
	// Acquire atomically claims the token for id. It returns false when
	// another run already holds it.
	Acquire(ctx context.Context, id string) bool

	// Release returns the token for id. Releasing an unheld token is a
	// no-op.
	Release(ctx context.Context, id string)

	// Held reports whether id currently has a running pipeline.
	Held(id string) bool

	// Size returns the number of tokens currently held.
	Size() int
}

type registry struct {
	mu     sync.Mutex
	tokens map[string]struct{}
}

// NewRegistry creates an empty in-memory registry.
func NewRegistry() Registry {
	return &registry{tokens: make(map[string]struct{})}
}

func (r *registry) Acquire(_ context.Context, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, held := r.tokens[id]; held {
		return false
	}
	r.tokens[id] = struct{}{}
	return true
}

func (r *registry) Release(_ context.Context, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, id)
}

func (r *registry) Held(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, held := r.tokens[id]
	return held
}

func (r *registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens)
}
