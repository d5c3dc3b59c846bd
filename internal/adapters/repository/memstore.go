package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/veride/brandaudit/internal/domain/model"
)

// MemStore implements Store with an in-memory map. Snapshot semantics
// come from deep-copying on every read and write: the map only ever
// holds records no caller can reach.
type MemStore struct {
	mu     sync.RWMutex
	audits map[string]*model.Audit
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{audits: make(map[string]*model.Audit)}
}

// Create inserts a new audit.
func (s *MemStore) Create(_ context.Context, audit *model.Audit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.audits[audit.ID]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, audit.ID)
	}
	s.audits[audit.ID] = audit.Clone()
	return nil
}

// Get returns a snapshot of the audit.
func (s *MemStore) Get(_ context.Context, id string) (*model.Audit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.audits[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return a.Clone(), nil
}

// LatestByHandle returns the newest audit for handle created at or after
// since.
func (s *MemStore) LatestByHandle(_ context.Context, handle string, since time.Time) (*model.Audit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *model.Audit
	for _, a := range s.audits {
		if a.Handle != handle || a.CreatedAt.Before(since) {
			continue
		}
		if latest == nil || a.CreatedAt.After(latest.CreatedAt) {
			latest = a
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("%w: handle %s", ErrNotFound, handle)
	}
	return latest.Clone(), nil
}

// Transition commits the next stage's status, progress, and step label.
func (s *MemStore) Transition(_ context.Context, id string, next model.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.audits[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !a.Status.CanTransitionTo(next) || next == model.StatusFailed {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, next)
	}

	a.Status = next
	a.Progress = next.Progress()
	a.CurrentStep = next.Label()
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// Fail marks the audit failed. Progress keeps the value of the stage the
// audit was in, per the frozen-progress contract.
func (s *MemStore) Fail(_ context.Context, id string, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.audits[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !a.Status.CanTransitionTo(model.StatusFailed) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, model.StatusFailed)
	}

	a.Status = model.StatusFailed
	a.CurrentStep = ""
	a.ErrorMessage = reason
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// Update applies fn to the stored audit under the write lock.
func (s *MemStore) Update(_ context.Context, id string, fn func(*model.Audit)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.audits[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	fn(a)
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// Count returns the number of audits tracked.
func (s *MemStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.audits)
}
