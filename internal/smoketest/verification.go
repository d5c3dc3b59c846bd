package smoketest

import (
	"context"
	"fmt"
	"log"
)

// verifyResults checks the terminal audits against the expected outcomes.
func verifyResults(ctx context.Context, config *Config, subs []Submission, stats *Stats) error {
	log.Println("Verifying results...")

	terminal := 0
	var problems []string

	for _, sub := range subs {
		if sub.Final == nil {
			continue
		}
		terminal++

		final := sub.Final
		switch final.Status {
		case "completed":
			if sub.ExpectFail {
				problems = append(problems, fmt.Sprintf("%s: expected failure but completed", sub.Handle))
			}
			if final.Progress != 100 {
				problems = append(problems, fmt.Sprintf("%s: completed with progress %d", sub.Handle, final.Progress))
			}
			if final.HealthScore != nil {
				stats.HealthScoresSeen++
				if *final.HealthScore < 0 || *final.HealthScore > 100 {
					problems = append(problems, fmt.Sprintf("%s: health score %.1f out of range", sub.Handle, *final.HealthScore))
				}
				if final.HealthBand == "" {
					problems = append(problems, fmt.Sprintf("%s: health score without band", sub.Handle))
				}
			}
		case "failed":
			if !sub.ExpectFail {
				problems = append(problems, fmt.Sprintf("%s: unexpected failure", sub.Handle))
			}
			if final.Progress >= 100 {
				problems = append(problems, fmt.Sprintf("%s: failed with progress %d", sub.Handle, final.Progress))
			}
			if final.Summary != nil {
				problems = append(problems, fmt.Sprintf("%s: failed audit carries a summary", sub.Handle))
			}
		default:
			problems = append(problems, fmt.Sprintf("%s: non-terminal status %q after polling", sub.Handle, final.Status))
		}

		if config.Verbose {
			log.Printf("verified %s -> %s (progress %d)", sub.Handle, final.Status, final.Progress)
		}
	}

	if terminal == 0 {
		return fmt.Errorf("no audits reached a terminal state")
	}

	for _, problem := range problems {
		log.Printf("Verification warning: %s", problem)
	}
	if len(problems) > 0 {
		return fmt.Errorf("verification found %d problems", len(problems))
	}

	log.Println("Result verification completed")
	return nil
}
