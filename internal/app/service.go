// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	jobqueue "github.com/veride/brandaudit/internal/adapters/mq/queue"
	workerpool "github.com/veride/brandaudit/internal/adapters/mq/worker"
	"github.com/veride/brandaudit/internal/adapters/narrative"
	"github.com/veride/brandaudit/internal/adapters/repository"
	"github.com/veride/brandaudit/internal/adapters/source"
	"github.com/veride/brandaudit/internal/domain/inflight"
	"github.com/veride/brandaudit/internal/domain/model"
	"github.com/veride/brandaudit/internal/domain/scoring"
	"github.com/veride/brandaudit/internal/pipeline"
	"github.com/veride/brandaudit/pkg/logger"
	"github.com/veride/brandaudit/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultQueueSize      = 1024
	defaultCoalesceWindow = 24 * time.Hour
	defaultSourceRPS      = 20.0
	defaultSourceBurst    = 40
	defaultLanguage       = "en"
	maxHandleLength       = 30
)

var handlePattern = regexp.MustCompile(`^[a-z0-9._]+$`)

// Service wires the store, queue, worker pool, and pipeline together
// and implements the API dependencies for the audit system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    repository.Store
	queue    jobqueue.Queue
	registry inflight.Registry
	src      source.Source
	gen      narrative.Generator
	pool     *workerpool.Pool

	// Configuration
	workerCount    int
	queueSize      int
	coalesceWindow time.Duration
	sourceRPS      float64
	sourceBurst    int
	fraudWeights   map[string]float64
	contentWeights map[string]float64
	pipelineOpts   []pipeline.Option
	narrativeKey   string
	narrativeModel string

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithCoalesceWindow sets how long a finished audit answers repeat
// submissions for the same handle.
func WithCoalesceWindow(window time.Duration) Option {
	return func(s *Service) {
		if window > 0 {
			s.coalesceWindow = window
		}
	}
}

// WithSourceRateLimit sets the shared data source request budget.
func WithSourceRateLimit(rps float64, burst int) Option {
	return func(s *Service) {
		if rps > 0 {
			s.sourceRPS = rps
		}
		if burst > 0 {
			s.sourceBurst = burst
		}
	}
}

// WithSource sets a custom data source, mainly for tests.
func WithSource(src source.Source) Option {
	return func(s *Service) {
		if src != nil {
			s.src = src
		}
	}
}

// WithNarrativeGenerator sets a custom narrative generator.
func WithNarrativeGenerator(gen narrative.Generator) Option {
	return func(s *Service) {
		if gen != nil {
			s.gen = gen
		}
	}
}

// WithNarrativeAPI configures the LLM narrative backend. An empty key
// keeps the deterministic template generator.
func WithNarrativeAPI(key, model string) Option {
	return func(s *Service) {
		s.narrativeKey = key
		s.narrativeModel = model
	}
}

// WithFraudWeights overrides the fraud indicator weights.
func WithFraudWeights(weights map[string]float64) Option {
	return func(s *Service) {
		s.fraudWeights = weights
	}
}

// WithContentWeights overrides the content quality signal weights.
func WithContentWeights(weights map[string]float64) Option {
	return func(s *Service) {
		s.contentWeights = weights
	}
}

// WithPipelineOptions forwards options to the pipeline runner.
func WithPipelineOptions(opts ...pipeline.Option) Option {
	return func(s *Service) {
		s.pipelineOpts = append(s.pipelineOpts, opts...)
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:    runtime.NumCPU() * 2,
		queueSize:      defaultQueueSize,
		coalesceWindow: defaultCoalesceWindow,
		sourceRPS:      defaultSourceRPS,
		sourceBurst:    defaultSourceBurst,
		logger:         nil, // replaced when the service starts
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting audit service...")

	s.store = repository.NewMemStore()
	s.registry = inflight.NewRegistry()
	if s.src == nil {
		s.src = source.NewLimited(source.NewGenerated(), s.sourceRPS, s.sourceBurst)
	}
	if s.gen == nil {
		if s.narrativeKey != "" {
			llm, err := narrative.NewLLM(s.narrativeKey, narrative.WithModel(s.narrativeModel))
			if err != nil {
				return fmt.Errorf("configuring narrative backend: %w", err)
			}
			s.gen = llm
		} else {
			s.gen = narrative.NewTemplate()
		}
	}

	s.queue = jobqueue.NewInMemoryQueue(
		jobqueue.WithCapacity(s.queueSize),
		jobqueue.WithBufferSize(s.queueSize),
	)

	scorer := scoring.New(
		scoring.WithFraudWeights(s.fraudWeights),
		scoring.WithContentWeights(s.contentWeights),
	)
	runner := pipeline.New(s.store, s.src, scorer, s.gen, s.pipelineOpts...)

	s.pool = workerpool.NewPool(s.workerCount, s.queue, runner, s.registry)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "audit service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping audit service...")

	if s.pool != nil {
		_ = s.pool.Shutdown(ctx)
	}

	s.started = false
	s.logger.Info(ctx, "audit service stopped")
}

// NormalizeHandle strips decoration and validates the handle. The empty
// string and anything outside [a-z0-9._]{1,30} (case folded) is invalid,
// as are leading or trailing dots.
func NormalizeHandle(handle string) (string, error) {
	h := strings.ToLower(strings.TrimSpace(handle))
	h = strings.TrimPrefix(h, "@")
	if h == "" || len(h) > maxHandleLength {
		return "", fmt.Errorf("%w: must be 1-30 characters", ErrInvalidHandle)
	}
	if !handlePattern.MatchString(h) {
		return "", fmt.Errorf("%w: only lowercase letters, digits, dots and underscores", ErrInvalidHandle)
	}
	if strings.HasPrefix(h, ".") || strings.HasSuffix(h, ".") {
		return "", fmt.Errorf("%w: cannot start or end with a dot", ErrInvalidHandle)
	}
	return h, nil
}

// Submit accepts an audit request. It returns the audit that now
// answers the handle and whether it was newly created.
//
// An in-flight audit for the same handle always coalesces, returning
// ErrAlreadyRunning alongside the existing audit. A completed audit
// inside the coalescing window is returned as-is. Failed audits never
// coalesce.
func (s *Service) Submit(ctx context.Context, handle, language string) (*model.Audit, bool, error) {
	h, err := NormalizeHandle(handle)
	if err != nil {
		return nil, false, err
	}
	if language == "" {
		language = defaultLanguage
	}

	// A write lock serializes the lookup with the create, so two
	// simultaneous submissions for one handle cannot both miss the
	// coalescing check.
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil, false, errors.New("service not started")
	}

	existing, err := s.store.LatestByHandle(ctx, h, time.Time{})
	if err == nil {
		switch {
		case !existing.Status.Terminal():
			metrics.RecordAuditCoalesced()
			return existing, false, ErrAlreadyRunning
		case existing.Status == model.StatusCompleted &&
			time.Since(existing.CreatedAt) < s.coalesceWindow:
			metrics.RecordAuditCoalesced()
			return existing, false, nil
		}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, fmt.Errorf("looking up handle: %w", err)
	}

	now := time.Now().UTC()
	audit := &model.Audit{
		ID:        uuid.NewString(),
		Handle:    h,
		Language:  language,
		Status:    model.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, audit); err != nil {
		return nil, false, fmt.Errorf("creating audit: %w", err)
	}

	ok := s.queue.Enqueue(ctx, jobqueue.Job{
		AuditID:    audit.ID,
		Handle:     audit.Handle,
		EnqueuedAt: now,
	})
	if !ok {
		// The record stays readable as failed so the submitter can see
		// what happened, and a retry creates a fresh audit.
		if failErr := s.store.Fail(ctx, audit.ID, "job queue full"); failErr != nil {
			s.logger.Error(ctx, "failing unqueued audit",
				logger.String("auditID", audit.ID),
				logger.Error(failErr),
			)
		}
		return nil, false, ErrQueueFull
	}

	metrics.RecordAuditSubmitted()
	s.logger.Info(ctx, "audit submitted",
		logger.String("auditID", audit.ID),
		logger.String("handle", audit.Handle),
	)
	return audit, true, nil
}

// Get returns a snapshot of the audit by id.
func (s *Service) Get(ctx context.Context, id string) (*model.Audit, error) {
	return s.store.Get(ctx, id)
}

// Lookup returns the most recent audit for a handle inside the
// coalescing window.
func (s *Service) Lookup(ctx context.Context, handle string) (*model.Audit, error) {
	h, err := NormalizeHandle(handle)
	if err != nil {
		return nil, err
	}
	return s.store.LatestByHandle(ctx, h, time.Now().Add(-s.coalesceWindow))
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		total := s.store.Count(ctx)
		inFlight := s.registry.Size()

		stats["queueLength"] = queueLen
		stats["totalAudits"] = total
		stats["auditsInFlight"] = inFlight

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateStoredAudits(total)
		metrics.UpdateAuditsInFlight(inFlight)
	}

	return stats
}
