package source

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"strings"
	"time"

	"github.com/veride/brandaudit/internal/domain/model"
)

// Handle prefixes that force failure paths, so every error branch of the
// pipeline is reachable without a real upstream.
const (
	missingPrefix = "missing."
	flakyPrefix   = "flaky."
	privatePrefix = "private."
	patchyPrefix  = "patchy."
)

// minPostHistory is the smallest post history generated when the
// requested cap allows it.
const minPostHistory = 8

// Candidate pools per discovery method.
var candidatePools = map[model.DiscoverySource][]string{
	model.SourceTaggedPosts: {
		"lifestyle.anna", "fitcoach_mike", "beauty.daily.pl", "travel.kate",
		"foodie_adventures", "style.with.emma", "wellness_guru", "tech.reviews.pl",
		"home.inspo.daily", "mama.blogger.cz",
	},
	model.SourceRelatedProfiles: {
		"brand.collab.hub", "digital.native.ro", "content.creator.pl",
		"social.media.pro", "influencer.daily", "creator.economy",
		"viral.content.cz", "trending.now.pl",
	},
	model.SourceHashtagSearch: {
		"skincare.routine.daily", "ootd.polska", "healthyliving.cz",
		"makeup.tutorials.ro", "gym.motivation.pl", "vegan.eats.europe",
		"diy.home.decor", "book.club.cee", "pet.lovers.daily", "eco.living.pl",
	},
}

var captionPool = []string{
	"New drop is live, link in bio",
	"Honest review after two weeks of daily use, and I have thoughts",
	"Morning routine, but make it realistic. Full breakdown on the blog this week",
	"You asked, I answered. The most common questions from my DMs in one post",
	"Behind the scenes from yesterday's shoot. So grateful for this team",
	"Three things I wish I knew before starting. Save this for later",
}

var hashtagPool = []string{
	"ootd", "skincare", "fitness", "foodie", "travel", "wellness",
	"style", "daily", "inspo", "collab", "cee", "polska",
}

// Generated is a deterministic Source: every response is derived from a
// seeded generator keyed by the handle, so repeated audits of the same
// handle see the same upstream world. It stands in for the real scraping
// API in development and tests.
type Generated struct {
	// now is injectable for deterministic post timestamps in tests.
	now func() time.Time
}

// NewGenerated creates the deterministic source.
func NewGenerated() *Generated {
	return &Generated{now: time.Now}
}

func seededRand(key string) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return rand.New(rand.NewSource(int64(h.Sum64()))) //nolint:gosec // seeded, not security sensitive
}

func displayName(handle string) string {
	parts := strings.FieldsFunc(handle, func(r rune) bool { return r == '.' || r == '_' })
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}

// FetchProfile generates a stable profile for the handle. Handles with
// the missing. prefix do not resolve.
func (g *Generated) FetchProfile(ctx context.Context, handle string) (Profile, error) {
	if err := ctx.Err(); err != nil {
		return Profile{}, err
	}
	if strings.HasPrefix(handle, missingPrefix) {
		return Profile{}, fmt.Errorf("%w: @%s", ErrNotFound, handle)
	}
	if strings.HasPrefix(handle, flakyPrefix) {
		return Profile{}, fmt.Errorf("%w: @%s", ErrUnavailable, handle)
	}

	rng := seededRand(handle)
	name := displayName(handle)
	bios := []string{
		fmt.Sprintf("Official %s | Delivering quality since 2015", name),
		fmt.Sprintf("%s - Your trusted partner in CEE", name),
		fmt.Sprintf("We are %s | Innovation meets tradition", name),
		fmt.Sprintf("%s | Premium products for everyday life", name),
	}

	return Profile{
		Handle:         handle,
		FullName:       name,
		Bio:            bios[rng.Intn(len(bios))],
		FollowersCount: 5_000 + rng.Intn(495_000),
		FollowingCount: 200 + rng.Intn(1_800),
		PostsCount:     50 + rng.Intn(1_950),
		AvatarURL:      fmt.Sprintf("https://cdn.veride.dev/profiles/%s.jpg", handle),
		Verified:       rng.Float64() > 0.6,
		Business:       true,
	}, nil
}

// FetchRecentPosts generates a stable post history. Roughly one handle in
// seven gets a bot-flavored history (uniform likes, near-zero comments)
// so fraud paths see realistic positives.
func (g *Generated) FetchRecentPosts(ctx context.Context, handle string, n int) ([]model.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.HasPrefix(handle, flakyPrefix) {
		return nil, fmt.Errorf("%w: @%s", ErrUnavailable, handle)
	}

	profile, err := g.FetchProfile(ctx, handle)
	if err != nil {
		return nil, err
	}

	rng := seededRand(handle + "#posts")
	if n <= 0 {
		n = 12
	}
	// Histories run 8..n posts; a cap below 8 is honored exactly.
	count := n
	if n > minPostHistory {
		count = minPostHistory + rng.Intn(n-minPostHistory+1)
	}
	suspicious := rng.Intn(7) == 0

	engagement := 0.005 + rng.Float64()*0.06
	if suspicious {
		engagement = 0.0005 + rng.Float64()*0.002
	}
	baseLikes := float64(profile.FollowersCount) * engagement

	types := []model.PostType{model.PostImage, model.PostVideo, model.PostCarousel, model.PostReel}
	now := g.now().UTC()
	gap := time.Duration(24+rng.Intn(96)) * time.Hour

	posts := make([]model.Post, 0, count)
	for i := 0; i < count; i++ {
		variance := 0.7 + rng.Float64()*0.6
		commentRatio := 0.02 + rng.Float64()*0.03
		if suspicious {
			variance = 0.98 + rng.Float64()*0.04
			commentRatio = 0.001
		}

		tagCount := 4 + rng.Intn(5)
		tags := make([]string, 0, tagCount)
		for j := 0; j < tagCount; j++ {
			tags = append(tags, hashtagPool[rng.Intn(len(hashtagPool))])
		}

		jitter := time.Duration(0)
		if !suspicious {
			jitter = time.Duration(rng.Intn(20)-10) * time.Hour
		}
		likes := int(baseLikes * variance)

		posts = append(posts, model.Post{
			ID:        fmt.Sprintf("%s-post-%d", handle, i),
			Type:      types[rng.Intn(len(types))],
			Caption:   captionPool[rng.Intn(len(captionPool))] + " #" + strings.Join(tags, " #"),
			Likes:     likes,
			Comments:  int(float64(likes) * commentRatio),
			Timestamp: now.Add(-time.Duration(i)*gap + jitter),
			Hashtags:  tags,
		})
	}
	return posts, nil
}

// FetchAudienceSample generates stable audience identifiers. Samples are
// drawn mostly from a per-community block so related accounts genuinely
// overlap; private. handles have no audience data.
func (g *Generated) FetchAudienceSample(ctx context.Context, handle string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.HasPrefix(handle, privatePrefix) || strings.HasPrefix(handle, flakyPrefix) {
		return nil, fmt.Errorf("%w: audience data for @%s", ErrUnavailable, handle)
	}

	rng := seededRand(handle + "#audience")
	community := seededRand(handle).Intn(4)
	size := 150 + rng.Intn(450)

	sample := make([]string, 0, size)
	seen := make(map[string]struct{}, size)
	for len(sample) < size {
		var id string
		if rng.Float64() < 0.7 {
			// Community block of 2000 ids shared by similar accounts.
			id = fmt.Sprintf("aud-c%d-%04d", community, rng.Intn(2_000))
		} else {
			id = fmt.Sprintf("aud-g-%05d", rng.Intn(50_000))
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		sample = append(sample, id)
	}
	return sample, nil
}

// Discover generates 8-15 candidates spread across the three discovery
// methods, roughly 40/30/30, never including the brand itself.
func (g *Generated) Discover(ctx context.Context, handle, _ string) (Discovery, error) {
	if err := ctx.Err(); err != nil {
		return Discovery{}, err
	}
	if strings.HasPrefix(handle, flakyPrefix) {
		return Discovery{}, fmt.Errorf("%w: discovery for @%s", ErrUnavailable, handle)
	}
	// The barren. prefix simulates a brand with no influencer ecosystem.
	if strings.HasPrefix(handle, "barren.") {
		return Discovery{
			SourcesSucceeded: []string{
				string(model.SourceTaggedPosts),
				string(model.SourceRelatedProfiles),
				string(model.SourceHashtagSearch),
			},
		}, nil
	}

	rng := seededRand(handle + "#discovery")
	total := 8 + rng.Intn(8)
	taggedCount := max(2, total*40/100)
	relatedCount := max(2, total*30/100)
	hashtagCount := total - taggedCount - relatedCount

	plan := []struct {
		src   model.DiscoverySource
		count int
	}{
		{model.SourceTaggedPosts, taggedCount},
		{model.SourceRelatedProfiles, relatedCount},
		{model.SourceHashtagSearch, hashtagCount},
	}

	d := Discovery{}
	seen := map[string]struct{}{handle: {}}
	for _, p := range plan {
		pool := candidatePools[p.src]
		perm := rng.Perm(len(pool))
		picked := 0
		for _, idx := range perm {
			if picked >= p.count {
				break
			}
			username := pool[idx]
			if _, dup := seen[username]; dup {
				continue
			}
			seen[username] = struct{}{}
			picked++
			d.Candidates = append(d.Candidates, model.Candidate{
				Handle:           username,
				FollowersCount:   1_000 + rng.Intn(199_000),
				DiscoverySource:  p.src,
				DiscoveryContext: fmt.Sprintf("found via %s for @%s", p.src, handle),
			})
		}
		d.SourcesSucceeded = append(d.SourcesSucceeded, string(p.src))
	}

	// The patchy. prefix seeds one unreachable candidate so per-candidate
	// drop handling is reachable without a real upstream.
	if strings.HasPrefix(handle, patchyPrefix) {
		d.Candidates = append(d.Candidates, model.Candidate{
			Handle:           "flaky.collab.scout",
			FollowersCount:   1_000 + rng.Intn(199_000),
			DiscoverySource:  model.SourceRelatedProfiles,
			DiscoveryContext: fmt.Sprintf("found via %s for @%s", model.SourceRelatedProfiles, handle),
		})
	}
	return d, nil
}
