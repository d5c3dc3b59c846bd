package pipeline

import (
	"time"

	"github.com/veride/brandaudit/pkg/logger"
)

// Option applies a configuration option to the Runner.
type Option func(*Runner)

// WithSourceTimeout bounds each individual data source call.
func WithSourceTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.sourceTimeout = d
		}
	}
}

// WithAnalysisTimeout bounds the full analysis of one candidate.
func WithAnalysisTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.analysisTimeout = d
		}
	}
}

// WithNarrativeTimeout bounds narrative generation.
func WithNarrativeTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.narrativeTimeout = d
		}
	}
}

// WithAnalysisConcurrency caps how many candidates are analyzed at once.
func WithAnalysisConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.analysisConcurrency = n
		}
	}
}

// WithPostsPerProfile sets how many recent posts are fetched per handle.
func WithPostsPerProfile(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.postsPerProfile = n
		}
	}
}

// WithOverlapMinSample sets the minimum audience sample size for a pair
// to be measured.
func WithOverlapMinSample(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.overlapMinSample = n
		}
	}
}

// WithLogger sets a custom logger for the runner.
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}
