package smoketest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/veride/brandaudit/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// Run executes the complete audit smoke test.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting brand audit smoke test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("audits", config.NumAudits),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.String("pollTimeout", config.PollTimeout.String()),
		logger.Any("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate handles
	subs := generateHandles(ctx, config)

	// Step 3: Submit audits concurrently
	if err := submitAudits(ctx, config, subs, stats); err != nil {
		return fmt.Errorf("audit submission failed: %w", err)
	}

	// Step 4: Poll audits to a terminal state
	if err := pollAudits(ctx, config, subs, stats); err != nil {
		return fmt.Errorf("audit polling failed: %w", err)
	}

	// Step 5: Verify results
	if err := verifyResults(ctx, config, subs, stats); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	// Step 6: Save report to file
	if err := saveReportToFile(ctx, config, subs, stats); err != nil {
		logger.Get().Warn(ctx, "failed to save report to file", logger.Error(err))
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "smoke test completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/healthz"

	resp, err := client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	// Accept any 200 response as healthy (the endpoint serves Prometheus metrics)
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveReportToFile writes the per-audit outcomes to a JSON file.
func saveReportToFile(ctx context.Context, config *Config, subs []Submission, stats *Stats) error {
	if len(subs) == 0 {
		return fmt.Errorf("no submissions to save")
	}

	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "audit_smoke_report_" + timestamp + ".json"
	}

	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	type reportEntry struct {
		Handle     string     `json:"handle"`
		AuditID    string     `json:"audit_id"`
		Coalesced  bool       `json:"coalesced"`
		ExpectFail bool       `json:"expect_fail"`
		Final      *AuditView `json:"final,omitempty"`
	}

	report := struct {
		Stats   *Stats        `json:"stats"`
		Entries []reportEntry `json:"entries"`
	}{Stats: stats}

	for _, sub := range subs {
		report.Entries = append(report.Entries, reportEntry{
			Handle:     sub.Handle,
			AuditID:    sub.AuditID,
			Coalesced:  sub.Coalesced,
			ExpectFail: sub.ExpectFail,
			Final:      sub.Final,
		})
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	logger.Get().Info(ctx, "report saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final test statistics.
func displayFinalStats(stats *Stats) {
	var completionRate, auditsPerSecond float64

	if stats.AuditsSubmitted > 0 {
		completionRate = float64(stats.AuditsCompleted) / float64(stats.AuditsSubmitted) * PercentageMultiplier
	}

	if stats.Duration > 0 {
		auditsPerSecond = float64(stats.AuditsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("auditsSubmitted", stats.AuditsSubmitted),
		logger.Int("auditsAccepted", stats.AuditsAccepted),
		logger.Int("auditsCoalesced", stats.AuditsCoalesced),
		logger.Int("auditsRejected", stats.AuditsRejected),
		logger.Int("auditsCompleted", stats.AuditsCompleted),
		logger.Int("auditsFailed", stats.AuditsFailed),
		logger.Int("pollTimeouts", stats.PollTimeouts),
		logger.Int("healthScoresSeen", stats.HealthScoresSeen),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("completionRate", completionRate),
		logger.Float64("auditsPerSecond", auditsPerSecond))
}
