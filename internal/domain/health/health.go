// Package health rolls brand-level signals and per-influencer scores into
// a single 0-100 health score with display banding.
package health

import (
	"math"

	"github.com/veride/brandaudit/internal/domain/model"
)

// Composite weights for the per-influencer contribution.
const (
	fraudWeight      = 0.30
	contentWeight    = 0.25
	audienceWeight   = 0.25
	engagementWeight = 0.20

	// Engagement is normalized against this cap before weighting: 10%
	// engagement already counts as perfect.
	engagementCap = 0.10
)

// Brand-only fallback weights, used when no influencer survived analysis.
const (
	brandFollowerWeight = 0.6
	brandBioWeight      = 0.4

	// Follower counts at or above this saturate the follower signal.
	brandFollowerScale = 100_000
	// Bios shorter than this count as incomplete.
	brandBioMinLen = 20
)

// Band names, ordered from worst to best.
const (
	BandAtRisk    = "at-risk"
	BandNeedsWork = "needs-work"
	BandHealthy   = "healthy"
)

// Banding thresholds on the 0-100 scale.
const (
	healthyThreshold   = 70.0
	needsWorkThreshold = 40.0
)

// Score aggregates the audit into one health score. With surviving
// influencers the score is the mean of their weighted composites; with
// none it degrades to brand-only signals so an audit of a brand with an
// empty roster still reports something. Nil only when the brand snapshot
// itself is missing.
func Score(brand *model.BrandProfile, influencers []model.InfluencerScore) *float64 {
	if len(influencers) == 0 {
		if brand == nil {
			return nil
		}
		v := brandOnly(brand)
		return &v
	}

	var total float64
	for i := range influencers {
		total += composite(&influencers[i])
	}
	v := math.Round(total/float64(len(influencers))*1000) / 10
	return &v
}

// composite is the 0-1 weighted contribution of one influencer. Missing
// scores contribute their conservative defaults: unknown fraud counts as
// 0.5, unknown quality as 0.
func composite(s *model.InfluencerScore) float64 {
	fraud := 0.5
	if s.FraudScore != nil {
		fraud = *s.FraudScore
	}
	var content, audience, engagement float64
	if s.ContentQualityScore != nil {
		content = *s.ContentQualityScore
	}
	if s.AudienceQualityScore != nil {
		audience = *s.AudienceQualityScore
	}
	if s.EngagementRate != nil {
		engagement = math.Min(*s.EngagementRate/engagementCap, 1.0)
	}

	return (1-fraud)*fraudWeight +
		content*contentWeight +
		audience*audienceWeight +
		engagement*engagementWeight
}

// brandOnly derives a score from the brand snapshot alone: follower scale
// plus bio completeness.
func brandOnly(brand *model.BrandProfile) float64 {
	followerSignal := math.Min(float64(brand.FollowersCount)/brandFollowerScale, 1.0)

	var bioSignal float64
	switch {
	case len(brand.Bio) >= brandBioMinLen:
		bioSignal = 1.0
	case len(brand.Bio) > 0:
		bioSignal = 0.5
	}

	v := (followerSignal*brandFollowerWeight + bioSignal*brandBioWeight) * 100
	return math.Round(v*10) / 10
}

// Band classifies a 0-100 value for display. With invert set the scale is
// read in reverse, which is how fraud-type metrics are banded: a LOW raw
// value maps to the healthy band.
func Band(value float64, invert bool) string {
	if invert {
		value = 100 - value
	}
	switch {
	case value >= healthyThreshold:
		return BandHealthy
	case value >= needsWorkThreshold:
		return BandNeedsWork
	default:
		return BandAtRisk
	}
}

// BandRank orders bands for monotonicity checks: at-risk < needs-work <
// healthy.
func BandRank(band string) int {
	switch band {
	case BandHealthy:
		return 2
	case BandNeedsWork:
		return 1
	default:
		return 0
	}
}
