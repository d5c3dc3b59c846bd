// Package repository defines the audit store interface and errors.
package repository

import (
	"context"
	"time"

	"github.com/veride/brandaudit/internal/domain/model"
)

// Store holds audit records. Reads return consistent snapshots: callers
// never observe a half-written stage commit, and mutating a returned
// audit never affects the stored one.
type Store interface {
	// Create inserts a new audit. Returns ErrAlreadyExists when the id
	// is taken.
	Create(ctx context.Context, audit *model.Audit) error

	// Get returns a snapshot of the audit. Returns ErrNotFound for
	// unknown ids.
	Get(ctx context.Context, id string) (*model.Audit, error)

	// LatestByHandle returns a snapshot of the most recently created
	// audit for handle at or after since, or ErrNotFound.
	LatestByHandle(ctx context.Context, handle string, since time.Time) (*model.Audit, error)

	// Transition moves the audit one step forward through the pipeline
	// order, committing the stage's progress value and step label in the
	// same write. Returns ErrInvalidTransition for anything but the next
	// stage in order.
	Transition(ctx context.Context, id string, next model.Status) error

	// Fail marks the audit failed, recording the operator-facing reason.
	// Progress stays frozen at the value of the stage that failed.
	Fail(ctx context.Context, id string, reason string) error

	// Update applies fn to the audit under the store's lock. Used by the
	// pipeline to attach stage outputs; fn must not retain the audit.
	Update(ctx context.Context, id string, fn func(*model.Audit)) error

	// Count returns the number of audits tracked.
	Count(ctx context.Context) int
}
