package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/veride/brandaudit/internal/smoketest"
)

// Default configuration constants.
const (
	defaultNumAudits    = 20
	defaultWorkers      = 2 // multiplier for runtime.NumCPU()
	defaultTimeout      = 30 * time.Second
	defaultPollInterval = 500 * time.Millisecond
	defaultPollTimeout  = 2 * time.Minute
	defaultFailureRatio = 0.1
	defaultTestTimeout  = 10 * time.Minute
)

func main() {
	var (
		baseURL      = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numAudits    = flag.Int("audits", defaultNumAudits, "Number of audits to submit")
		workers      = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout      = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		pollInterval = flag.Duration("poll-interval", defaultPollInterval, "Delay between status polls")
		pollTimeout  = flag.Duration("poll-timeout", defaultPollTimeout, "Max time to wait for one audit to finish")
		failureRatio = flag.Float64("failure-ratio", defaultFailureRatio, "Fraction of handles built to fail acquisition")
		outputFile   = flag.String("output", "", "Output file for the report (default: audit_smoke_report_TIMESTAMP.json)")
		logFile      = flag.String("log", "", "Log file for test output (default: smoke_log_TIMESTAMP.log)")
		verbose      = flag.Bool("verbose", false, "Enable verbose logging")
		help         = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		smoketest.ShowHelp()
		return
	}

	// Setup logging
	if err := smoketest.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	// Create test configuration
	config := &smoketest.Config{
		BaseURL:      *baseURL,
		NumAudits:    *numAudits,
		Workers:      *workers,
		Timeout:      *timeout,
		PollInterval: *pollInterval,
		PollTimeout:  *pollTimeout,
		FailureRatio: *failureRatio,
		OutputFile:   *outputFile,
		LogFile:      *logFile,
		Verbose:      *verbose,
	}

	// Run the test
	if err := smoketest.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Smoke test failed: " + err.Error() + "\n")
		return
	}
}
