package source

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestGeneratedProfiles(t *testing.T) {
	ctx := context.Background()
	src := NewGenerated()

	Convey("Given the deterministic source", t, func() {
		Convey("When the same handle is fetched twice", func() {
			first, err1 := src.FetchProfile(ctx, "glowcosmetics.pl")
			second, err2 := src.FetchProfile(ctx, "glowcosmetics.pl")

			Convey("Then both fetches succeed with identical profiles", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(first, ShouldResemble, second)
				So(first.Handle, ShouldEqual, "glowcosmetics.pl")
				So(first.FollowersCount, ShouldBeGreaterThanOrEqualTo, 5_000)
				So(first.Bio, ShouldNotBeEmpty)
			})
		})

		Convey("When different handles are fetched", func() {
			a, _ := src.FetchProfile(ctx, "glowcosmetics.pl")
			b, _ := src.FetchProfile(ctx, "urbanfit.store")

			Convey("Then the profiles differ", func() {
				So(a.FollowersCount, ShouldNotEqual, b.FollowersCount)
			})
		})

		Convey("When a missing-prefixed handle is fetched", func() {
			_, err := src.FetchProfile(ctx, "missing.brand")

			Convey("Then the not-found sentinel is returned", func() {
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When a flaky-prefixed handle is fetched", func() {
			_, err := src.FetchProfile(ctx, "flaky.brand")

			Convey("Then the unavailable sentinel is returned", func() {
				So(errors.Is(err, ErrUnavailable), ShouldBeTrue)
			})
		})
	})
}

func TestGeneratedPosts(t *testing.T) {
	ctx := context.Background()
	src := NewGenerated()
	fixed := time.Now()
	src.now = func() time.Time { return fixed }

	Convey("Given the deterministic source", t, func() {
		Convey("When recent posts are fetched", func() {
			posts, err := src.FetchRecentPosts(ctx, "lifestyle.anna", 20)

			Convey("Then a capped, stable history is returned", func() {
				So(err, ShouldBeNil)
				So(len(posts), ShouldBeGreaterThanOrEqualTo, 8)
				So(len(posts), ShouldBeLessThanOrEqualTo, 20)

				again, _ := src.FetchRecentPosts(ctx, "lifestyle.anna", 20)
				So(again, ShouldResemble, posts)

				for _, p := range posts {
					So(p.Likes, ShouldBeGreaterThanOrEqualTo, 0)
					So(p.Comments, ShouldBeGreaterThanOrEqualTo, 0)
					So(p.Hashtags, ShouldNotBeEmpty)
				}
			})
		})

		Convey("When the cap is below the usual history floor", func() {
			posts, err := src.FetchRecentPosts(ctx, "acme_brand", 5)

			Convey("Then exactly the capped count is returned", func() {
				So(err, ShouldBeNil)
				So(posts, ShouldHaveLength, 5)
			})
		})

		Convey("When the cap equals the history floor", func() {
			posts, err := src.FetchRecentPosts(ctx, "acme_brand", 8)

			Convey("Then the full floor-sized history is returned", func() {
				So(err, ShouldBeNil)
				So(posts, ShouldHaveLength, 8)
			})
		})
	})
}

func TestGeneratedAudience(t *testing.T) {
	ctx := context.Background()
	src := NewGenerated()

	Convey("Given the deterministic source", t, func() {
		Convey("When an audience sample is fetched", func() {
			sample, err := src.FetchAudienceSample(ctx, "fitcoach_mike")

			Convey("Then the sample is stable and free of duplicates", func() {
				So(err, ShouldBeNil)
				So(len(sample), ShouldBeGreaterThanOrEqualTo, 150)

				seen := make(map[string]struct{}, len(sample))
				for _, id := range sample {
					_, dup := seen[id]
					So(dup, ShouldBeFalse)
					seen[id] = struct{}{}
				}

				again, _ := src.FetchAudienceSample(ctx, "fitcoach_mike")
				So(again, ShouldResemble, sample)
			})
		})

		Convey("When a private-prefixed handle is sampled", func() {
			_, err := src.FetchAudienceSample(ctx, "private.account")

			Convey("Then audience data is unavailable", func() {
				So(errors.Is(err, ErrUnavailable), ShouldBeTrue)
			})
		})
	})
}

func TestGeneratedDiscovery(t *testing.T) {
	ctx := context.Background()
	src := NewGenerated()

	Convey("Given the deterministic source", t, func() {
		Convey("When discovery runs for a brand", func() {
			d, err := src.Discover(ctx, "glowcosmetics.pl", "beauty brand")

			Convey("Then candidates span all three methods without duplicates", func() {
				So(err, ShouldBeNil)
				So(len(d.Candidates), ShouldBeGreaterThanOrEqualTo, 8)
				So(len(d.Candidates), ShouldBeLessThanOrEqualTo, 15)
				So(d.SourcesSucceeded, ShouldHaveLength, 3)

				seen := make(map[string]struct{}, len(d.Candidates))
				methods := make(map[string]struct{})
				for _, c := range d.Candidates {
					_, dup := seen[c.Handle]
					So(dup, ShouldBeFalse)
					seen[c.Handle] = struct{}{}
					methods[string(c.DiscoverySource)] = struct{}{}
					So(c.Handle, ShouldNotEqual, "glowcosmetics.pl")
				}
				So(len(methods), ShouldEqual, 3)
			})
		})

		Convey("When discovery runs for a brand with no ecosystem", func() {
			d, err := src.Discover(ctx, "barren.startup", "")

			Convey("Then the result is empty but successful", func() {
				So(err, ShouldBeNil)
				So(d.Candidates, ShouldBeEmpty)
				So(d.SourcesSucceeded, ShouldHaveLength, 3)
			})
		})
	})
}

func TestLimitedPassThrough(t *testing.T) {
	ctx := context.Background()

	Convey("Given a rate-limited source", t, func() {
		src := NewLimited(NewGenerated(), 1_000, 100)

		Convey("When calls go through the limiter", func() {
			p, err := src.FetchProfile(ctx, "glowcosmetics.pl")

			Convey("Then results pass through unchanged", func() {
				So(err, ShouldBeNil)
				So(p.Handle, ShouldEqual, "glowcosmetics.pl")
			})
		})

		Convey("When the context is already cancelled", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			_, err := src.FetchProfile(cancelled, "glowcosmetics.pl")

			Convey("Then the limiter surfaces the cancellation", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}
