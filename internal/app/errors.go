package service

import "errors"

// Sentinel errors surfaced to the submission layer.
var (
	// ErrInvalidHandle means the submitted handle failed validation. No
	// audit is created.
	ErrInvalidHandle = errors.New("invalid handle")

	// ErrAlreadyRunning means an audit for the handle is in flight. The
	// existing audit is returned alongside.
	ErrAlreadyRunning = errors.New("audit already running for handle")

	// ErrQueueFull means the job queue rejected the audit. Submitters
	// should retry later.
	ErrQueueFull = errors.New("audit queue full")
)
