package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/veride/brandaudit/internal/adapters/narrative"
	"github.com/veride/brandaudit/internal/adapters/repository"
	"github.com/veride/brandaudit/internal/adapters/source"
	"github.com/veride/brandaudit/internal/domain/model"
	"github.com/veride/brandaudit/internal/domain/scoring"
	"github.com/veride/brandaudit/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	m.Run()
}

// failingGenerator always errors, standing in for an unreachable LLM.
type failingGenerator struct{}

func (failingGenerator) Generate(context.Context, narrative.Input, string) (string, []string, error) {
	return "", nil, errors.New("upstream unreachable")
}

func newAudit(store repository.Store, id, handle string) *model.Audit {
	now := time.Now().UTC()
	a := &model.Audit{
		ID:        id,
		Handle:    handle,
		Language:  "en",
		Status:    model.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.Create(context.Background(), a); err != nil {
		panic(err)
	}
	return a
}

func newRunner(store repository.Store, gen narrative.Generator) *Runner {
	return New(store, source.NewGenerated(), scoring.New(), gen,
		WithAnalysisConcurrency(4),
		WithOverlapMinSample(50),
	)
}

func TestRunCompletesAudit(t *testing.T) {
	ctx := context.Background()

	Convey("Given a pending audit for a resolvable brand", t, func() {
		store := repository.NewMemStore()
		newAudit(store, "a-1", "glowcosmetics.pl")
		r := newRunner(store, narrative.NewTemplate())

		Convey("When the pipeline runs", func() {
			err := r.Run(ctx, "a-1")

			Convey("Then the audit completes with full findings", func() {
				So(err, ShouldBeNil)

				audit, err := store.Get(ctx, "a-1")
				So(err, ShouldBeNil)
				So(audit.Status, ShouldEqual, model.StatusCompleted)
				So(audit.Progress, ShouldEqual, 100)

				So(audit.Brand, ShouldNotBeNil)
				So(audit.Brand.Handle, ShouldEqual, "glowcosmetics.pl")

				So(len(audit.Influencers), ShouldBeGreaterThanOrEqualTo, 8)
				for _, s := range audit.Influencers {
					So(s.Handle, ShouldNotBeEmpty)
					So(s.EngagementRate, ShouldNotBeNil)
					So(s.FraudScore, ShouldNotBeNil)
				}

				So(len(audit.Overlaps), ShouldBeGreaterThan, 0)
				So(audit.HealthScore, ShouldNotBeNil)
				So(*audit.HealthScore, ShouldBeBetweenOrEqual, 0, 100)

				So(audit.Summary, ShouldNotBeNil)
				So(*audit.Summary, ShouldContainSubstring, "@glowcosmetics.pl")
				So(audit.Recommendations, ShouldNotBeEmpty)
			})

			Convey("Then re-running is a no-op", func() {
				So(r.Run(ctx, "a-1"), ShouldBeNil)
			})
		})
	})
}

func TestRunFailsOnAcquisition(t *testing.T) {
	ctx := context.Background()

	Convey("Given a brand handle that does not resolve", t, func() {
		store := repository.NewMemStore()
		newAudit(store, "a-1", "missing.brand")
		r := newRunner(store, narrative.NewTemplate())

		Convey("When the pipeline runs", func() {
			err := r.Run(ctx, "a-1")

			Convey("Then the audit fails with progress frozen at the acquisition stage", func() {
				So(err, ShouldBeNil)

				audit, err := store.Get(ctx, "a-1")
				So(err, ShouldBeNil)
				So(audit.Status, ShouldEqual, model.StatusFailed)
				So(audit.Progress, ShouldEqual, 15)
				So(audit.CurrentStep, ShouldBeEmpty)
				So(audit.ErrorMessage, ShouldContainSubstring, "missing.brand")
				So(audit.Brand, ShouldBeNil)
			})
		})
	})
}

func TestRunWithEmptyDiscovery(t *testing.T) {
	ctx := context.Background()

	Convey("Given a brand with no influencer ecosystem", t, func() {
		store := repository.NewMemStore()
		newAudit(store, "a-1", "barren.startup")
		r := newRunner(store, narrative.NewTemplate())

		Convey("When the pipeline runs", func() {
			err := r.Run(ctx, "a-1")

			Convey("Then the audit still completes with brand-only findings", func() {
				So(err, ShouldBeNil)

				audit, err := store.Get(ctx, "a-1")
				So(err, ShouldBeNil)
				So(audit.Status, ShouldEqual, model.StatusCompleted)
				So(audit.Influencers, ShouldBeEmpty)
				So(audit.Overlaps, ShouldBeEmpty)
				So(audit.HealthScore, ShouldNotBeNil)
				So(audit.Summary, ShouldNotBeNil)
			})
		})
	})
}

func TestRunSurvivesNarrativeFailure(t *testing.T) {
	ctx := context.Background()

	Convey("Given a narrative generator that always fails", t, func() {
		store := repository.NewMemStore()
		newAudit(store, "a-1", "glowcosmetics.pl")
		r := newRunner(store, failingGenerator{})

		Convey("When the pipeline runs", func() {
			err := r.Run(ctx, "a-1")

			Convey("Then the audit completes without a summary", func() {
				So(err, ShouldBeNil)

				audit, err := store.Get(ctx, "a-1")
				So(err, ShouldBeNil)
				So(audit.Status, ShouldEqual, model.StatusCompleted)
				So(audit.HealthScore, ShouldNotBeNil)
				So(audit.Summary, ShouldBeNil)
				So(audit.Recommendations, ShouldBeEmpty)
			})
		})
	})
}

// cancellingSource cancels the run as soon as the first candidate
// profile is fetched, simulating a caller abandoning an in-flight
// audit mid-analysis.
type cancellingSource struct {
	source.Source
	brand  string
	cancel context.CancelFunc
	once   sync.Once
}

func (c *cancellingSource) FetchProfile(ctx context.Context, handle string) (source.Profile, error) {
	if handle != c.brand {
		c.once.Do(c.cancel)
	}
	return c.Source.FetchProfile(ctx, handle)
}

func TestRunCancelledMidAnalysis(t *testing.T) {
	Convey("Given a run whose context is cancelled during analysis", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		store := repository.NewMemStore()
		newAudit(store, "a-1", "glowcosmetics.pl")
		src := &cancellingSource{
			Source: source.NewGenerated(),
			brand:  "glowcosmetics.pl",
			cancel: cancel,
		}
		r := New(store, src, scoring.New(), narrative.NewTemplate(),
			WithAnalysisConcurrency(4),
			WithOverlapMinSample(50),
		)

		Convey("When the pipeline runs", func() {
			err := r.Run(ctx, "a-1")

			Convey("Then the audit fails with progress frozen at analysis", func() {
				So(err, ShouldBeNil)

				audit, err := store.Get(context.Background(), "a-1")
				So(err, ShouldBeNil)
				So(audit.Status, ShouldEqual, model.StatusFailed)
				So(audit.Progress, ShouldEqual, 55)
				So(audit.ErrorMessage, ShouldContainSubstring, "cancelled")
			})

			Convey("Then no candidate drops are recorded as warnings", func() {
				audit, err := store.Get(context.Background(), "a-1")
				So(err, ShouldBeNil)
				So(audit.Warnings, ShouldBeEmpty)
				So(audit.Influencers, ShouldBeEmpty)
			})
		})
	})
}

func TestRunDropsUnreachableCandidate(t *testing.T) {
	ctx := context.Background()

	Convey("Given a brand whose discovery includes an unreachable candidate", t, func() {
		store := repository.NewMemStore()
		newAudit(store, "a-1", "patchy.outdoors")
		src := source.NewGenerated()
		r := New(store, src, scoring.New(), narrative.NewTemplate(),
			WithAnalysisConcurrency(4),
			WithOverlapMinSample(50),
		)

		d, err := src.Discover(ctx, "patchy.outdoors", "")
		So(err, ShouldBeNil)
		So(len(d.Candidates), ShouldBeGreaterThan, 1)

		Convey("When the pipeline runs", func() {
			err := r.Run(ctx, "a-1")

			Convey("Then the audit completes with the survivors scored", func() {
				So(err, ShouldBeNil)

				audit, err := store.Get(ctx, "a-1")
				So(err, ShouldBeNil)
				So(audit.Status, ShouldEqual, model.StatusCompleted)
				So(audit.Progress, ShouldEqual, 100)
				So(len(audit.Influencers), ShouldEqual, len(d.Candidates)-1)
			})

			Convey("Then the drop is recorded as a warning on the audit", func() {
				audit, err := store.Get(ctx, "a-1")
				So(err, ShouldBeNil)
				So(audit.Warnings, ShouldHaveLength, 1)
				So(audit.Warnings[0].Stage, ShouldEqual, model.StatusAnalyzingInfluencers)
				So(audit.Warnings[0].Subject, ShouldEqual, "flaky.collab.scout")
				So(audit.Warnings[0].Reason, ShouldNotBeEmpty)
			})
		})
	})
}

func TestRunUnknownAudit(t *testing.T) {
	ctx := context.Background()

	Convey("Given an audit id the store has never seen", t, func() {
		store := repository.NewMemStore()
		r := newRunner(store, narrative.NewTemplate())

		Convey("When the pipeline runs", func() {
			err := r.Run(ctx, "nope")

			Convey("Then the store error propagates", func() {
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestAcquisitionError(t *testing.T) {
	Convey("Given an acquisition error", t, func() {
		cause := errors.New("profile not found")
		err := &AcquisitionError{Handle: "missing.brand", Err: cause}

		Convey("Then it names the handle and unwraps to its cause", func() {
			So(err.Error(), ShouldContainSubstring, "missing.brand")
			So(errors.Is(err, cause), ShouldBeTrue)
		})
	})
}
