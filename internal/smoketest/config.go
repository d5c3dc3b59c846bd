package smoketest

import "time"

// Config holds configuration for the audit smoke test
type Config struct {
	BaseURL      string        // Base URL of the service
	NumAudits    int           // Number of audits to submit
	Workers      int           // Number of concurrent workers
	Timeout      time.Duration // HTTP request timeout
	PollInterval time.Duration // Delay between status polls
	PollTimeout  time.Duration // Max time to wait for one audit to finish
	FailureRatio float64       // Fraction of handles built to fail acquisition
	OutputFile   string        // Output file for the final report
	LogFile      string        // Log file for test output
	Verbose      bool          // Enable verbose logging
}

// AuditView is the subset of the audit response the smoke test inspects.
type AuditView struct {
	ID          string           `json:"id"`
	Handle      string           `json:"handle"`
	Status      string           `json:"status"`
	Progress    int              `json:"progress"`
	CurrentStep string           `json:"current_step,omitempty"`
	Influencers []map[string]any `json:"influencers,omitempty"`
	HealthScore *float64         `json:"health_score,omitempty"`
	HealthBand  string           `json:"health_band,omitempty"`
	Summary     *string          `json:"summary,omitempty"`
}

// Submission tracks one submitted handle through the test.
type Submission struct {
	Handle     string
	AuditID    string
	Coalesced  bool
	ExpectFail bool
	Final      *AuditView
}

// Stats holds test statistics
type Stats struct {
	AuditsSubmitted  int
	AuditsAccepted   int
	AuditsCoalesced  int
	AuditsRejected   int
	AuditsCompleted  int
	AuditsFailed     int
	PollTimeouts     int
	HealthScoresSeen int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
