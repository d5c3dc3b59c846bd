// Package pipeline runs the staged audit state machine: acquire the
// brand, discover candidates, analyze them, score, and narrate. Each
// stage is committed to the store before its work starts, so pollers
// always see where a run currently is. No stage error escapes the
// runner: fatal errors become a failed status with frozen progress,
// everything else becomes a warning on the audit.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/veride/brandaudit/internal/adapters/narrative"
	"github.com/veride/brandaudit/internal/adapters/repository"
	"github.com/veride/brandaudit/internal/adapters/source"
	"github.com/veride/brandaudit/internal/domain/health"
	"github.com/veride/brandaudit/internal/domain/model"
	"github.com/veride/brandaudit/internal/domain/overlap"
	"github.com/veride/brandaudit/internal/domain/scoring"
	"github.com/veride/brandaudit/pkg/logger"
	"github.com/veride/brandaudit/pkg/metrics"
)

// Default runner configuration constants.
const (
	defaultSourceTimeout       = 10 * time.Second
	defaultAnalysisTimeout     = 30 * time.Second
	defaultNarrativeTimeout    = 15 * time.Second
	defaultAnalysisConcurrency = 8
	defaultPostsPerProfile     = 12

	// Influencers with a fraud score above this are counted as high risk
	// in the narrative input.
	highRiskFraudThreshold = 0.5
)

// Runner executes the full pipeline for one audit at a time.
type Runner struct {
	store repository.Store
	src   source.Source
	score *scoring.Scorer
	gen   narrative.Generator

	sourceTimeout    time.Duration
	analysisTimeout  time.Duration
	narrativeTimeout time.Duration

	analysisConcurrency int
	postsPerProfile     int
	overlapMinSample    int

	log logger.Logger
}

// New creates a pipeline runner with configuration options.
func New(store repository.Store, src source.Source, scorer *scoring.Scorer, gen narrative.Generator, opts ...Option) *Runner {
	r := &Runner{
		store:               store,
		src:                 src,
		score:               scorer,
		gen:                 gen,
		sourceTimeout:       defaultSourceTimeout,
		analysisTimeout:     defaultAnalysisTimeout,
		narrativeTimeout:    defaultNarrativeTimeout,
		analysisConcurrency: defaultAnalysisConcurrency,
		postsPerProfile:     defaultPostsPerProfile,
		overlapMinSample:    overlap.DefaultMinSampleSize,
		log:                 logger.Get().Named("pipeline"),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run drives the audit from pending to a terminal state. The returned
// error reports unexpected store faults; domain failures are committed
// to the audit and do not propagate.
func (r *Runner) Run(ctx context.Context, auditID string) error {
	audit, err := r.store.Get(ctx, auditID)
	if err != nil {
		return fmt.Errorf("loading audit: %w", err)
	}
	if audit.Status != model.StatusPending {
		r.log.Warn(ctx, "audit is not pending, skipping run",
			logger.String("auditID", auditID),
			logger.String("status", string(audit.Status)),
		)
		return nil
	}

	brand, err := r.scrapeBrand(ctx, auditID, audit.Handle)
	if err != nil {
		return r.fail(ctx, auditID, model.StatusScrapingBrand, err)
	}

	candidates, err := r.discover(ctx, auditID, brand)
	if err != nil {
		return r.fail(ctx, auditID, model.StatusDiscoveringInfluencers, err)
	}

	profiles, err := r.analyze(ctx, auditID, candidates)
	if err != nil {
		return r.fail(ctx, auditID, model.StatusAnalyzingInfluencers, err)
	}

	if err := r.scoreAndAggregate(ctx, auditID, brand, profiles); err != nil {
		return r.fail(ctx, auditID, model.StatusScoring, err)
	}

	if err := r.narrate(ctx, auditID, audit.Language); err != nil {
		return r.fail(ctx, auditID, model.StatusGeneratingNarrative, err)
	}

	if err := r.store.Transition(ctx, auditID, model.StatusCompleted); err != nil {
		return fmt.Errorf("committing completion: %w", err)
	}
	metrics.RecordAuditCompleted()
	r.log.Info(ctx, "audit completed", logger.String("auditID", auditID))
	return nil
}

// fail commits the failed state with frozen progress and swallows the
// domain error after recording it.
func (r *Runner) fail(ctx context.Context, auditID string, stage model.Status, cause error) error {
	metrics.RecordStageFailure(string(stage))
	metrics.RecordAuditFailed()
	r.log.Error(ctx, "audit failed",
		logger.String("auditID", auditID),
		logger.String("stage", string(stage)),
		logger.Error(cause),
	)
	if err := r.store.Fail(ctx, auditID, cause.Error()); err != nil {
		return fmt.Errorf("committing failure: %w", err)
	}
	return nil
}

// enter commits the transition into a stage and returns a done func
// observing the stage duration. A cancelled run never enters another
// stage; the cancellation surfaces as the stage error and the audit is
// committed as failed.
func (r *Runner) enter(ctx context.Context, auditID string, stage model.Status) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run cancelled before %s: %w", stage, err)
	}
	if err := r.store.Transition(ctx, auditID, stage); err != nil {
		return nil, fmt.Errorf("entering %s: %w", stage, err)
	}
	r.log.Info(ctx, "entering stage",
		logger.String("auditID", auditID),
		logger.String("stage", string(stage)),
	)
	start := time.Now()
	return func() {
		metrics.RecordStageDuration(string(stage), float64(time.Since(start).Milliseconds()))
	}, nil
}

func (r *Runner) scrapeBrand(ctx context.Context, auditID, handle string) (*model.BrandProfile, error) {
	done, err := r.enter(ctx, auditID, model.StatusScrapingBrand)
	if err != nil {
		return nil, err
	}
	defer done()

	fetchCtx, cancel := context.WithTimeout(ctx, r.sourceTimeout)
	defer cancel()

	metrics.RecordSourceRequest("fetch_profile")
	p, err := r.src.FetchProfile(fetchCtx, handle)
	if err != nil {
		metrics.RecordSourceError("fetch_profile")
		return nil, &AcquisitionError{Handle: handle, Err: err}
	}

	brand := &model.BrandProfile{
		Handle:         p.Handle,
		FullName:       p.FullName,
		Bio:            p.Bio,
		FollowersCount: p.FollowersCount,
		FollowingCount: p.FollowingCount,
		PostsCount:     p.PostsCount,
		AvatarURL:      p.AvatarURL,
		Verified:       p.Verified,
		Business:       p.Business,
	}
	if err := r.store.Update(ctx, auditID, func(a *model.Audit) {
		a.Brand = brand
	}); err != nil {
		return nil, fmt.Errorf("attaching brand: %w", err)
	}
	return brand, nil
}

func (r *Runner) discover(ctx context.Context, auditID string, brand *model.BrandProfile) ([]model.Candidate, error) {
	done, err := r.enter(ctx, auditID, model.StatusDiscoveringInfluencers)
	if err != nil {
		return nil, err
	}
	defer done()

	discoverCtx, cancel := context.WithTimeout(ctx, r.sourceTimeout)
	defer cancel()

	metrics.RecordSourceRequest("discover")
	d, err := r.src.Discover(discoverCtx, brand.Handle, brand.Bio)
	if err != nil {
		metrics.RecordSourceError("discover")
		return nil, fmt.Errorf("discovering influencers: %w", err)
	}

	// No candidates is a legitimate result: the audit proceeds and
	// completes with brand-only findings.
	r.log.Info(ctx, "discovery finished",
		logger.String("auditID", auditID),
		logger.Int("candidates", len(d.Candidates)),
		logger.Int("sourcesFailed", len(d.SourcesFailed)),
	)
	return d.Candidates, nil
}

// analyze fans candidate analysis out over a bounded worker set. A
// candidate whose profile or posts cannot be fetched is dropped with a
// warning on the audit; a missing audience sample alone keeps the
// candidate, it just exempts it from overlap measurement.
func (r *Runner) analyze(ctx context.Context, auditID string, candidates []model.Candidate) ([]model.InfluencerProfile, error) {
	done, err := r.enter(ctx, auditID, model.StatusAnalyzingInfluencers)
	if err != nil {
		return nil, err
	}
	defer done()

	type result struct {
		profile model.InfluencerProfile
		warning *model.Warning
	}

	sem := make(chan struct{}, r.analysisConcurrency)
	results := make([]result, len(candidates))
	var wg sync.WaitGroup

	for i, cand := range candidates {
		wg.Add(1)
		go func(i int, cand model.Candidate) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			candCtx, cancel := context.WithTimeout(ctx, r.analysisTimeout)
			defer cancel()

			profile, err := r.analyzeCandidate(candCtx, cand)
			if err != nil {
				metrics.RecordInfluencerDropped()
				r.log.Warn(ctx, "dropping candidate",
					logger.String("auditID", auditID),
					logger.String("handle", cand.Handle),
					logger.Error(err),
				)
				results[i] = result{warning: &model.Warning{
					Stage:   model.StatusAnalyzingInfluencers,
					Subject: cand.Handle,
					Reason:  err.Error(),
				}}
				return
			}
			metrics.RecordInfluencerAnalyzed()
			results[i] = result{profile: profile}
		}(i, cand)
	}
	wg.Wait()

	// Cancellation makes every remaining fetch fail; those are not
	// per-candidate drops, the run itself is dead.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("analysis cancelled: %w", err)
	}

	profiles := make([]model.InfluencerProfile, 0, len(candidates))
	warnings := make([]model.Warning, 0)
	for _, res := range results {
		if res.warning != nil {
			warnings = append(warnings, *res.warning)
			continue
		}
		profiles = append(profiles, res.profile)
	}

	if len(warnings) > 0 {
		if err := r.store.Update(ctx, auditID, func(a *model.Audit) {
			a.Warnings = append(a.Warnings, warnings...)
		}); err != nil {
			return nil, fmt.Errorf("recording warnings: %w", err)
		}
	}
	return profiles, nil
}

func (r *Runner) analyzeCandidate(ctx context.Context, cand model.Candidate) (model.InfluencerProfile, error) {
	metrics.RecordSourceRequest("fetch_profile")
	start := time.Now()
	p, err := r.src.FetchProfile(ctx, cand.Handle)
	metrics.RecordSourceLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordSourceError("fetch_profile")
		return model.InfluencerProfile{}, fmt.Errorf("profile: %w", err)
	}

	metrics.RecordSourceRequest("fetch_posts")
	posts, err := r.src.FetchRecentPosts(ctx, cand.Handle, r.postsPerProfile)
	if err != nil {
		metrics.RecordSourceError("fetch_posts")
		return model.InfluencerProfile{}, fmt.Errorf("posts: %w", err)
	}

	// Audience data is optional: private accounts simply stay out of the
	// overlap matrix.
	metrics.RecordSourceRequest("fetch_audience")
	sample, err := r.src.FetchAudienceSample(ctx, cand.Handle)
	if err != nil {
		metrics.RecordSourceError("fetch_audience")
		sample = nil
	}

	return model.InfluencerProfile{
		Handle:           p.Handle,
		FullName:         p.FullName,
		Bio:              p.Bio,
		FollowersCount:   p.FollowersCount,
		FollowingCount:   p.FollowingCount,
		PostsCount:       p.PostsCount,
		AvatarURL:        p.AvatarURL,
		Verified:         p.Verified,
		RecentPosts:      posts,
		AudienceSample:   sample,
		DiscoverySource:  cand.DiscoverySource,
		DiscoveryContext: cand.DiscoveryContext,
	}, nil
}

func (r *Runner) scoreAndAggregate(ctx context.Context, auditID string, brand *model.BrandProfile, profiles []model.InfluencerProfile) error {
	done, err := r.enter(ctx, auditID, model.StatusScoring)
	if err != nil {
		return err
	}
	defer done()

	scores := make([]model.InfluencerScore, 0, len(profiles))
	for _, p := range profiles {
		scores = append(scores, r.score.Score(p))
	}

	overlaps := overlap.Pairwise(profiles, r.overlapMinSample)
	healthScore := health.Score(brand, scores)

	if err := r.store.Update(ctx, auditID, func(a *model.Audit) {
		a.Influencers = scores
		a.Overlaps = overlaps
		a.HealthScore = healthScore
	}); err != nil {
		return fmt.Errorf("attaching scores: %w", err)
	}
	return nil
}

// narrate generates the summary. Generation failures are non-fatal: the
// audit completes with a nil summary.
func (r *Runner) narrate(ctx context.Context, auditID, language string) error {
	done, err := r.enter(ctx, auditID, model.StatusGeneratingNarrative)
	if err != nil {
		return err
	}
	defer done()

	audit, err := r.store.Get(ctx, auditID)
	if err != nil {
		return fmt.Errorf("loading audit for narrative: %w", err)
	}

	in := narrative.Input{
		Handle:          audit.Handle,
		HealthScore:     audit.HealthScore,
		InfluencerCount: len(audit.Influencers),
	}
	if audit.HealthScore != nil {
		in.HealthBand = health.Band(*audit.HealthScore, false)
	}
	var engSum float64
	var engCount int
	for _, s := range audit.Influencers {
		if s.FraudScore != nil && *s.FraudScore > highRiskFraudThreshold {
			in.HighRiskCount++
		}
		if s.EngagementRate != nil {
			engSum += *s.EngagementRate
			engCount++
		}
	}
	if engCount > 0 {
		avg := engSum / float64(engCount)
		in.AvgEngagement = &avg
	}
	for _, o := range audit.Overlaps {
		if in.TopOverlapPct == nil || o.OverlapPercentage > *in.TopOverlapPct {
			pct := o.OverlapPercentage
			in.TopOverlapPct = &pct
		}
	}

	genCtx, cancel := context.WithTimeout(ctx, r.narrativeTimeout)
	defer cancel()

	summary, recs, err := r.gen.Generate(genCtx, in, language)
	if err != nil {
		// A generator fault degrades to a nil summary; a cancelled run
		// does not.
		if cancelErr := ctx.Err(); cancelErr != nil {
			return fmt.Errorf("narrative cancelled: %w", cancelErr)
		}
		metrics.RecordNarrativeFailure()
		r.log.Warn(ctx, "narrative generation failed",
			logger.String("auditID", auditID),
			logger.Error(err),
		)
		return nil
	}

	if err := r.store.Update(ctx, auditID, func(a *model.Audit) {
		a.Summary = &summary
		a.Recommendations = recs
	}); err != nil {
		return fmt.Errorf("attaching narrative: %w", err)
	}
	return nil
}
