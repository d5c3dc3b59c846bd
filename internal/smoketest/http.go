package smoketest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client  *http.Client
	timeout time.Duration
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// submitAudits submits audit requests concurrently using a worker pool.
func submitAudits(ctx context.Context, config *Config, subs []Submission, stats *Stats) error {
	log.Printf("Submitting %d audits with %d workers...", len(subs), config.Workers)

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/audits"

	var (
		accepted  int64
		coalesced int64
		rejected  int64
		submitted int64
	)

	indexChan := make(chan int, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for index := range indexChan {
				select {
				case <-ctx.Done():
					return
				default:
					result := submitSingleAudit(ctx, client, url, &subs[index])

					atomic.AddInt64(&submitted, 1)
					switch result {
					case "accepted":
						atomic.AddInt64(&accepted, 1)
					case "coalesced":
						atomic.AddInt64(&coalesced, 1)
					case "rejected":
						atomic.AddInt64(&rejected, 1)
					}

					if config.Verbose {
						log.Printf("submitted %s -> %s (%s)", subs[index].Handle, subs[index].AuditID, result)
					}
				}
			}
		}()
	}

	go func() {
		defer close(indexChan)
		for i := range subs {
			select {
			case <-ctx.Done():
				return
			case indexChan <- i:
			}
		}
	}()

	wg.Wait()

	stats.AuditsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.AuditsAccepted = int(atomic.LoadInt64(&accepted))
	stats.AuditsCoalesced = int(atomic.LoadInt64(&coalesced))
	stats.AuditsRejected = int(atomic.LoadInt64(&rejected))

	log.Printf(`Audit submission completed:
   Accepted: %d
   Coalesced: %d
   Rejected: %d
`, stats.AuditsAccepted, stats.AuditsCoalesced, stats.AuditsRejected)

	return nil
}

// submitSingleAudit submits one audit and records its id on the submission.
func submitSingleAudit(ctx context.Context, client *HTTPClient, url string, sub *Submission) string {
	resp, err := client.Post(ctx, url, map[string]string{"handle": sub.Handle})
	if err != nil {
		return "rejected"
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return "rejected"
	}

	switch resp.StatusCode {
	case StatusCreated:
		var view AuditView
		if err := json.Unmarshal(body, &view); err != nil {
			return "rejected"
		}
		sub.AuditID = view.ID
		return "accepted"
	case StatusOK, StatusConflict:
		// An audit for this handle already exists; track it instead.
		var view AuditView
		if err := json.Unmarshal(body, &view); err != nil {
			return "rejected"
		}
		sub.AuditID = view.ID
		sub.Coalesced = true
		return "coalesced"
	default:
		return "rejected"
	}
}

// pollAudits polls submitted audits concurrently until each reaches a
// terminal state or its poll budget runs out.
func pollAudits(ctx context.Context, config *Config, subs []Submission, stats *Stats) error {
	log.Printf("Polling %d audits with %d workers...", len(subs), config.Workers)

	client := newHTTPClient(config.Timeout)

	var (
		completed int64
		failed    int64
		timedOut  int64
	)

	indexChan := make(chan int, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for index := range indexChan {
				sub := &subs[index]
				if sub.AuditID == "" {
					continue
				}

				view, err := pollSingleAudit(ctx, client, config, sub.AuditID)
				if err != nil {
					atomic.AddInt64(&timedOut, 1)
					if config.Verbose {
						log.Printf("poll timed out for %s: %v", sub.Handle, err)
					}
					continue
				}

				sub.Final = view
				switch view.Status {
				case "completed":
					atomic.AddInt64(&completed, 1)
				case "failed":
					atomic.AddInt64(&failed, 1)
				}
			}
		}()
	}

	go func() {
		defer close(indexChan)
		for i := range subs {
			select {
			case <-ctx.Done():
				return
			case indexChan <- i:
			}
		}
	}()

	wg.Wait()

	stats.AuditsCompleted = int(atomic.LoadInt64(&completed))
	stats.AuditsFailed = int(atomic.LoadInt64(&failed))
	stats.PollTimeouts = int(atomic.LoadInt64(&timedOut))

	log.Printf(`Audit polling completed:
   Completed: %d
   Failed: %d
   Timed out: %d
`, stats.AuditsCompleted, stats.AuditsFailed, stats.PollTimeouts)

	return nil
}

// pollSingleAudit polls one audit until it is terminal.
func pollSingleAudit(ctx context.Context, client *HTTPClient, config *Config, auditID string) (*AuditView, error) {
	url := config.BaseURL + "/audits/" + auditID
	deadline := time.Now().Add(config.PollTimeout)

	for {
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("audit %s did not finish within %s", auditID, config.PollTimeout)
		}

		resp, err := client.Get(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("failed to poll audit %s: %w", auditID, err)
		}

		body, err := readResponseBody(resp)
		if err != nil {
			return nil, fmt.Errorf("failed to read poll response: %w", err)
		}

		if resp.StatusCode != StatusOK {
			return nil, fmt.Errorf("poll for audit %s returned status %d", auditID, resp.StatusCode)
		}

		var view AuditView
		if err := json.Unmarshal(body, &view); err != nil {
			return nil, fmt.Errorf("failed to decode poll response: %w", err)
		}

		if view.Status == "completed" || view.Status == "failed" {
			return &view, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(config.PollInterval):
		}
	}
}
