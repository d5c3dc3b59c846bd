// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults live in New; Load layers file and env overrides on top.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory audit job queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of pipeline workers.
	WorkerCount int `koanf:"worker_count"`

	// SourceRPS and SourceBurst set the shared data source rate budget.
	SourceRPS   float64 `koanf:"source_rps"`
	SourceBurst int     `koanf:"source_burst"`

	// SourceTimeoutMS bounds each individual data source call.
	SourceTimeoutMS int `koanf:"source_timeout_ms"`

	// AnalysisTimeoutMS bounds the full analysis of one candidate.
	AnalysisTimeoutMS int `koanf:"analysis_timeout_ms"`

	// NarrativeTimeoutMS bounds narrative generation.
	NarrativeTimeoutMS int `koanf:"narrative_timeout_ms"`

	// AnalysisConcurrency caps concurrent candidate analyses per audit.
	AnalysisConcurrency int `koanf:"analysis_concurrency"`

	// PostsPerProfile sets how many recent posts are fetched per handle.
	PostsPerProfile int `koanf:"posts_per_profile"`

	// OverlapMinSample is the minimum audience sample size for a pair to
	// be measured.
	OverlapMinSample int `koanf:"overlap_min_sample"`

	// CoalesceWindowHours is how long a completed audit answers repeat
	// submissions for the same handle.
	CoalesceWindowHours int `koanf:"coalesce_window_hours"`

	// FraudWeights overrides fraud indicator weights by name.
	FraudWeights map[string]float64 `koanf:"fraud_weights"`

	// ContentWeights overrides content quality signal weights by name.
	ContentWeights map[string]float64 `koanf:"content_weights"`

	// NarrativeAPIKey enables the LLM narrative backend when set; empty
	// keeps the deterministic template generator.
	NarrativeAPIKey string `koanf:"narrative_api_key"`

	// NarrativeModel selects the chat model for the LLM backend.
	NarrativeModel string `koanf:"narrative_model"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		QueueSize:           1024,
		WorkerCount:         runtime.NumCPU() * 2,
		SourceRPS:           20,
		SourceBurst:         40,
		SourceTimeoutMS:     10_000,
		AnalysisTimeoutMS:   30_000,
		NarrativeTimeoutMS:  15_000,
		AnalysisConcurrency: 8,
		PostsPerProfile:     12,
		OverlapMinSample:    50,
		CoalesceWindowHours: 24,
	}
}
