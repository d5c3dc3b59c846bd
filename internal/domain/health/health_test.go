package health_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/veride/brandaudit/internal/domain/health"
	"github.com/veride/brandaudit/internal/domain/model"
)

func scored(fraud, content, audience, engagement float64) model.InfluencerScore {
	return model.InfluencerScore{
		FraudScore:           &fraud,
		ContentQualityScore:  &content,
		AudienceQualityScore: &audience,
		EngagementRate:       &engagement,
	}
}

func TestScore(t *testing.T) {
	Convey("Given a health score aggregation", t, func() {
		brand := &model.BrandProfile{
			Handle:         "acme_brand",
			Bio:            "Official Acme | Delivering quality since 2015",
			FollowersCount: 50_000,
		}

		Convey("When influencers are clean and engaged", func() {
			score := health.Score(brand, []model.InfluencerScore{
				scored(0.05, 0.8, 0.85, 0.05),
				scored(0.10, 0.7, 0.80, 0.04),
			})

			Convey("Then the score is high and within [0,100]", func() {
				So(score, ShouldNotBeNil)
				So(*score, ShouldBeGreaterThan, 60)
				So(*score, ShouldBeLessThanOrEqualTo, 100)
			})
		})

		Convey("When the roster is mostly fraudulent", func() {
			clean := health.Score(brand, []model.InfluencerScore{scored(0.05, 0.7, 0.7, 0.04)})
			dirty := health.Score(brand, []model.InfluencerScore{scored(0.95, 0.7, 0.7, 0.04)})

			Convey("Then the score drops", func() {
				So(*dirty, ShouldBeLessThan, *clean)
			})
		})

		Convey("When an influencer has all scores missing", func() {
			score := health.Score(brand, []model.InfluencerScore{{}})

			Convey("Then only the unknown-fraud default contributes", func() {
				// (1-0.5)*0.30 * 100 = 15.0
				So(score, ShouldNotBeNil)
				So(*score, ShouldEqual, 15.0)
			})
		})

		Convey("When no influencers survived", func() {
			score := health.Score(brand, nil)

			Convey("Then the brand-only fallback still yields a score", func() {
				// follower signal 0.5*0.6 + bio 1.0*0.4 = 0.7
				So(score, ShouldNotBeNil)
				So(*score, ShouldEqual, 70.0)
			})
		})

		Convey("When even the brand snapshot is missing", func() {
			So(health.Score(nil, nil), ShouldBeNil)
		})

		Convey("When engagement exceeds the normalization cap", func() {
			capped := health.Score(brand, []model.InfluencerScore{scored(0, 0, 0, 0.10)})
			over := health.Score(brand, []model.InfluencerScore{scored(0, 0, 0, 0.50)})

			Convey("Then extra engagement does not inflate the score", func() {
				So(*over, ShouldEqual, *capped)
			})
		})
	})
}

func TestBand(t *testing.T) {
	Convey("Given the banding function", t, func() {
		Convey("Then thresholds map to the documented bands", func() {
			So(health.Band(85, false), ShouldEqual, health.BandHealthy)
			So(health.Band(70, false), ShouldEqual, health.BandHealthy)
			So(health.Band(55, false), ShouldEqual, health.BandNeedsWork)
			So(health.Band(40, false), ShouldEqual, health.BandNeedsWork)
			So(health.Band(39.9, false), ShouldEqual, health.BandAtRisk)
		})

		Convey("Then inverted banding maps low fraud to healthy", func() {
			So(health.Band(10, true), ShouldEqual, health.BandHealthy)
			So(health.Band(45, true), ShouldEqual, health.BandNeedsWork)
			So(health.Band(80, true), ShouldEqual, health.BandAtRisk)
		})

		Convey("Then banding is monotonic in both directions", func() {
			prevUp, prevDown := -1, 3
			for v := 0.0; v <= 100; v += 0.5 {
				up := health.BandRank(health.Band(v, false))
				So(up, ShouldBeGreaterThanOrEqualTo, prevUp)
				prevUp = up

				down := health.BandRank(health.Band(v, true))
				So(down, ShouldBeLessThanOrEqualTo, prevDown)
				prevDown = down
			}
		})
	})
}
