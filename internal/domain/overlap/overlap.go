// Package overlap derives symmetric audience-overlap percentages for
// influencer pairs from their audience samples.
package overlap

import (
	"math"

	"github.com/veride/brandaudit/internal/domain/model"
)

// DefaultMinSampleSize is the smallest audience sample considered
// comparable. Pairs below it are omitted entirely: a 0% reading from
// insufficient data would be misleading.
const DefaultMinSampleSize = 50

// Pairwise computes the overlap entry for every unordered pair of
// profiles whose audience samples both hold at least minSample
// identifiers. Overlap is the intersection size over the smaller sample,
// as a percentage rounded to one decimal. Entries carry the pair in
// lexicographic handle order, so (a,b) and (b,a) are the same entry.
func Pairwise(profiles []model.InfluencerProfile, minSample int) []model.OverlapEntry {
	if minSample <= 0 {
		minSample = DefaultMinSampleSize
	}

	type sampled struct {
		handle string
		ids    map[string]struct{}
	}
	eligible := make([]sampled, 0, len(profiles))
	for _, p := range profiles {
		if len(p.AudienceSample) < minSample {
			continue
		}
		ids := make(map[string]struct{}, len(p.AudienceSample))
		for _, id := range p.AudienceSample {
			ids[id] = struct{}{}
		}
		eligible = append(eligible, sampled{handle: p.Handle, ids: ids})
	}

	var entries []model.OverlapEntry
	for i := 0; i < len(eligible); i++ {
		for j := i + 1; j < len(eligible); j++ {
			a, b := eligible[i], eligible[j]
			if a.handle == b.handle {
				// Self-pairs carry no information.
				continue
			}
			entries = append(entries, pairEntry(a.handle, a.ids, b.handle, b.ids))
		}
	}
	return entries
}

func pairEntry(handleA string, a map[string]struct{}, handleB string, b map[string]struct{}) model.OverlapEntry {
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}

	var shared int
	for id := range small {
		if _, ok := large[id]; ok {
			shared++
		}
	}

	pct := math.Round(float64(shared)/float64(len(small))*1000) / 10

	if handleB < handleA {
		handleA, handleB = handleB, handleA
	}
	return model.OverlapEntry{
		HandleA:           handleA,
		HandleB:           handleB,
		OverlapPercentage: pct,
		SampleSize:        len(small),
	}
}
