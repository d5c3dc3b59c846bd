package scoring_test

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/veride/brandaudit/internal/domain/model"
	"github.com/veride/brandaudit/internal/domain/scoring"
)

type profileOpts struct {
	followers   int
	following   int
	numPosts    int
	avgLikes    int
	avgComments int
	captionLen  int
	hashtags    int
	spreadDays  int
	postTypes   []model.PostType
}

func makeProfile(o profileOpts) model.InfluencerProfile {
	now := time.Now().UTC()
	if o.postTypes == nil {
		o.postTypes = []model.PostType{model.PostImage, model.PostCarousel, model.PostReel, model.PostVideo}
	}
	if o.spreadDays == 0 {
		o.spreadDays = 60
	}

	posts := make([]model.Post, 0, o.numPosts)
	for i := 0; i < o.numPosts; i++ {
		// Some natural variance so consistency checks do not fire.
		variance := 0.8 + float64(i%5)*0.1
		tags := make([]string, o.hashtags)
		caption := make([]byte, o.captionLen)
		for j := range caption {
			caption[j] = 'x'
		}
		for j := range tags {
			tags[j] = "tag" + string(rune('a'+j))
		}
		offset := time.Duration(float64(o.spreadDays) * float64(i) / float64(max(o.numPosts-1, 1)) * 24 * float64(time.Hour))
		posts = append(posts, model.Post{
			ID:        "post-" + string(rune('a'+i%26)),
			Type:      o.postTypes[i%len(o.postTypes)],
			Caption:   string(caption),
			Likes:     int(float64(o.avgLikes) * variance),
			Comments:  int(float64(o.avgComments) * variance),
			Timestamp: now.Add(-offset),
			Hashtags:  tags,
		})
	}

	return model.InfluencerProfile{
		Handle:         "test_user",
		FullName:       "Test User",
		FollowersCount: o.followers,
		FollowingCount: o.following,
		PostsCount:     100,
		RecentPosts:    posts,
	}
}

func healthyProfile() model.InfluencerProfile {
	return makeProfile(profileOpts{
		followers: 10_000, following: 500, numPosts: 15,
		avgLikes: 500, avgComments: 25, captionLen: 120, hashtags: 6,
	})
}

func suspiciousProfile() model.InfluencerProfile {
	return makeProfile(profileOpts{
		followers: 200_000, following: 5_000, numPosts: 15,
		avgLikes: 100, avgComments: 1, captionLen: 20, hashtags: 2,
		postTypes: []model.PostType{model.PostImage},
	})
}

func TestEngagement(t *testing.T) {
	Convey("Given a scorer", t, func() {
		s := scoring.New()

		Convey("When scoring a healthy profile", func() {
			eng := s.Engagement(healthyProfile())

			Convey("Then the rate is measurable and bounded", func() {
				So(eng.Rate, ShouldNotBeNil)
				So(*eng.Rate, ShouldBeGreaterThan, 0)
				So(*eng.Rate, ShouldBeLessThanOrEqualTo, 1)
				So(eng.AvgLikes, ShouldBeGreaterThan, 0)
				So(eng.AvgComments, ShouldBeGreaterThan, 0)
			})
		})

		Convey("When the profile has zero posts", func() {
			eng := s.Engagement(makeProfile(profileOpts{followers: 10_000}))

			Convey("Then the rate is nil, not zero", func() {
				So(eng.Rate, ShouldBeNil)
				So(eng.AvgLikes, ShouldEqual, 0)
			})
		})

		Convey("When the profile has zero followers", func() {
			eng := s.Engagement(makeProfile(profileOpts{
				numPosts: 5, avgLikes: 100, avgComments: 10, captionLen: 50, hashtags: 3,
			}))

			Convey("Then averages are computed but the rate is nil", func() {
				So(eng.Rate, ShouldBeNil)
				So(eng.AvgLikes, ShouldBeGreaterThan, 0)
			})
		})

		Convey("When likes and comments are exact", func() {
			p := model.InfluencerProfile{
				FollowersCount: 10_000,
				RecentPosts: []model.Post{
					{Likes: 500, Comments: 50, Timestamp: time.Now()},
				},
			}
			eng := s.Engagement(p)

			Convey("Then the rate matches (likes+comments)/followers", func() {
				So(eng.Rate, ShouldNotBeNil)
				So(*eng.Rate, ShouldAlmostEqual, 0.055, 1e-9)
			})
		})
	})
}

func TestFraud(t *testing.T) {
	Convey("Given a scorer", t, func() {
		s := scoring.New()

		Convey("When scoring a healthy profile", func() {
			p := healthyProfile()
			fraud, indicators := s.Fraud(p, s.Engagement(p))

			Convey("Then the composite is low and all indicators are present", func() {
				So(fraud, ShouldNotBeNil)
				So(*fraud, ShouldBeLessThan, 0.4)
				So(indicators, ShouldContainKey, scoring.IndicatorFollowerFollowingRatio)
				So(indicators, ShouldContainKey, scoring.IndicatorEngagementAnomaly)
				So(indicators, ShouldContainKey, scoring.IndicatorLikeCommentRatio)
				So(indicators, ShouldContainKey, scoring.IndicatorEngagementConsistency)
				So(indicators, ShouldContainKey, scoring.IndicatorPostingFrequency)
			})
		})

		Convey("When scoring a suspicious profile", func() {
			p := suspiciousProfile()
			fraud, indicators := s.Fraud(p, s.Engagement(p))

			Convey("Then the composite is clearly higher than a healthy one", func() {
				h := healthyProfile()
				healthy, _ := s.Fraud(h, s.Engagement(h))
				So(fraud, ShouldNotBeNil)
				So(*fraud, ShouldBeGreaterThan, *healthy)
			})

			Convey("Then the engagement anomaly indicator fires", func() {
				// 100 likes on 200K followers is far below 0.5% engagement.
				So(indicators[scoring.IndicatorEngagementAnomaly], ShouldBeGreaterThan, 0.5)
			})
		})

		Convey("When the profile has no posts", func() {
			p := makeProfile(profileOpts{followers: 50_000, following: 100})
			fraud, indicators := s.Fraud(p, s.Engagement(p))

			Convey("Then fraud is unmeasurable", func() {
				So(fraud, ShouldBeNil)
				So(indicators, ShouldBeNil)
			})
		})

		Convey("When likes are suspiciously uniform", func() {
			now := time.Now().UTC()
			posts := make([]model.Post, 10)
			for i := range posts {
				posts[i] = model.Post{
					Likes: 1000, Comments: 30,
					Timestamp: now.Add(-time.Duration(i*i+1) * 13 * time.Hour),
				}
			}
			p := model.InfluencerProfile{FollowersCount: 40_000, FollowingCount: 400, RecentPosts: posts}
			_, indicators := s.Fraud(p, s.Engagement(p))

			Convey("Then the consistency indicator is maximal", func() {
				So(indicators[scoring.IndicatorEngagementConsistency], ShouldEqual, 1.0)
			})
		})

		Convey("When the composite is computed", func() {
			p := suspiciousProfile()
			fraud, _ := s.Fraud(p, s.Engagement(p))

			Convey("Then it stays within [0,1]", func() {
				So(*fraud, ShouldBeGreaterThanOrEqualTo, 0)
				So(*fraud, ShouldBeLessThanOrEqualTo, 1)
			})
		})

		Convey("When custom fraud weights are supplied", func() {
			heavy := scoring.New(scoring.WithFraudWeights(map[string]float64{
				scoring.IndicatorEngagementAnomaly: 0.9,
			}))
			p := suspiciousProfile()
			def, _ := s.Fraud(p, s.Engagement(p))
			custom, _ := heavy.Fraud(p, heavy.Engagement(p))

			Convey("Then the anomaly dominates the composite", func() {
				So(*custom, ShouldBeGreaterThan, *def)
			})
		})
	})
}

func TestContentQuality(t *testing.T) {
	Convey("Given a scorer", t, func() {
		s := scoring.New()

		Convey("When scoring diverse, well-captioned content", func() {
			score, analysis := s.ContentQuality(healthyProfile())

			Convey("Then the score is solid and bounded", func() {
				So(score, ShouldNotBeNil)
				So(*score, ShouldBeGreaterThan, 0.5)
				So(*score, ShouldBeLessThanOrEqualTo, 1)
				So(analysis[scoring.SignalMediaTypeDiversity], ShouldEqual, 1.0)
				So(analysis[scoring.SignalHashtagUsage], ShouldEqual, 1.0)
			})
		})

		Convey("When scoring thin single-format content", func() {
			good, _ := s.ContentQuality(healthyProfile())
			poor, analysis := s.ContentQuality(suspiciousProfile())

			Convey("Then it scores below the healthy profile", func() {
				So(*poor, ShouldBeLessThan, *good)
				So(analysis[scoring.SignalMediaTypeDiversity], ShouldEqual, 0.3)
			})
		})

		Convey("When there are no posts", func() {
			score, analysis := s.ContentQuality(makeProfile(profileOpts{followers: 1000}))

			Convey("Then content quality is nil, not zero", func() {
				So(score, ShouldBeNil)
				So(analysis, ShouldBeNil)
			})
		})
	})
}

func TestAudienceQuality(t *testing.T) {
	Convey("Given a scorer", t, func() {
		s := scoring.New()

		Convey("When engagement and fraud are measurable", func() {
			p := healthyProfile()
			eng := s.Engagement(p)
			fraud, _ := s.Fraud(p, eng)
			quality, audience := s.AudienceQuality(p.FollowersCount, eng, fraud)

			Convey("Then quality is bounded and demographics are estimated", func() {
				So(quality, ShouldNotBeNil)
				So(*quality, ShouldBeGreaterThanOrEqualTo, 0)
				So(*quality, ShouldBeLessThanOrEqualTo, 1)
				So(audience.FollowerTier, ShouldEqual, scoring.TierMicro)
				So(audience.RealFollowersPct, ShouldBeGreaterThan, 0)
			})
		})

		Convey("When a high fraud score is applied", func() {
			rate := 0.06
			low, high := 0.0, 0.9
			qClean, _ := s.AudienceQuality(10_000, scoring.Engagement{Rate: &rate}, &low)
			qFraud, _ := s.AudienceQuality(10_000, scoring.Engagement{Rate: &rate}, &high)

			Convey("Then quality is penalized", func() {
				So(*qFraud, ShouldBeLessThan, *qClean)
			})
		})

		Convey("When engagement is unmeasurable", func() {
			fraud := 0.2
			quality, audience := s.AudienceQuality(10_000, scoring.Engagement{}, &fraud)

			Convey("Then audience quality is nil", func() {
				So(quality, ShouldBeNil)
				So(audience, ShouldBeNil)
			})
		})
	})
}

func TestEstimateReach(t *testing.T) {
	Convey("Given reach estimation", t, func() {
		Convey("When followers are zero", func() {
			reach, cpm := scoring.EstimateReach(0, 0.05, 0.8)
			So(reach, ShouldEqual, 0)
			So(cpm, ShouldEqual, 0)
		})

		Convey("When comparing tiers at equal engagement", func() {
			nanoReach, nanoCPM := scoring.EstimateReach(5_000, 0.04, 0.6)
			macroReach, macroCPM := scoring.EstimateReach(1_000_000, 0.04, 0.6)

			Convey("Then nano reaches a higher share but commands a lower CPM", func() {
				So(float64(nanoReach)/5_000, ShouldBeGreaterThan, float64(macroReach)/1_000_000)
				So(nanoCPM, ShouldBeLessThan, macroCPM)
			})
		})

		Convey("When engagement improves", func() {
			lowReach, _ := scoring.EstimateReach(50_000, 0.005, 0.5)
			highReach, _ := scoring.EstimateReach(50_000, 0.08, 0.5)
			So(highReach, ShouldBeGreaterThan, lowReach)
		})
	})

	Convey("Given follower tiers", t, func() {
		So(scoring.FollowerTier(5_000), ShouldEqual, scoring.TierNano)
		So(scoring.FollowerTier(25_000), ShouldEqual, scoring.TierMicro)
		So(scoring.FollowerTier(250_000), ShouldEqual, scoring.TierMid)
		So(scoring.FollowerTier(2_000_000), ShouldEqual, scoring.TierMacro)
	})
}

func TestScoreBounds(t *testing.T) {
	Convey("Given full scoring of varied profiles", t, func() {
		s := scoring.New()
		profiles := []model.InfluencerProfile{
			healthyProfile(),
			suspiciousProfile(),
			makeProfile(profileOpts{followers: 1_000}),          // no posts
			makeProfile(profileOpts{numPosts: 3, avgLikes: 10}), // no followers
		}

		Convey("Then every bounded score is nil or within [0,1]", func() {
			for _, p := range profiles {
				out := s.Score(p)
				for _, v := range []*float64{out.EngagementRate, out.FraudScore, out.ContentQualityScore, out.AudienceQualityScore} {
					if v != nil {
						So(*v, ShouldBeGreaterThanOrEqualTo, 0)
						So(*v, ShouldBeLessThanOrEqualTo, 1)
					}
				}
				So(out.EstimatedReach, ShouldBeGreaterThanOrEqualTo, 0)
			}
		})

		Convey("Then zero posts leave all content-dependent scores nil", func() {
			out := s.Score(makeProfile(profileOpts{followers: 1_000}))
			So(out.EngagementRate, ShouldBeNil)
			So(out.FraudScore, ShouldBeNil)
			So(out.ContentQualityScore, ShouldBeNil)
			So(out.AudienceQualityScore, ShouldBeNil)
		})
	})
}
