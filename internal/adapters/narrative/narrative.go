// Package narrative produces the executive summary and recommendations
// attached to a finished audit. Generation is best-effort: callers treat
// any error as a missing narrative, never as a failed audit.
package narrative

import "context"

// Input is the condensed audit result the generator writes about.
type Input struct {
	Handle          string
	HealthScore     *float64
	HealthBand      string
	InfluencerCount int
	HighRiskCount   int
	AvgEngagement   *float64
	TopOverlapPct   *float64
}

// Generator turns audit results into reader-facing text.
type Generator interface {
	Generate(ctx context.Context, in Input, language string) (summary string, recommendations []string, err error)
}
