// Package scoring converts raw influencer profiles into per-influencer
// scores and fraud indicators. Everything here is pure and deterministic:
// no clocks, no I/O, no shared state.
package scoring

import (
	"math"
	"slices"

	"github.com/veride/brandaudit/internal/domain/model"
)

// Fraud indicator names. The raw magnitude of each indicator is stored
// verbatim in InfluencerScore.FraudIndicators.
const (
	IndicatorFollowerFollowingRatio = "follower_following_ratio"
	IndicatorEngagementAnomaly      = "engagement_anomaly"
	IndicatorLikeCommentRatio       = "like_comment_ratio"
	IndicatorEngagementConsistency  = "engagement_consistency"
	IndicatorPostingFrequency       = "posting_frequency"
)

// Content analysis signal names.
const (
	SignalCaptionQuality     = "caption_quality"
	SignalHashtagUsage       = "hashtag_usage"
	SignalPostingFrequency   = "posting_frequency"
	SignalMediaTypeDiversity = "media_type_diversity"
)

// Scoring thresholds and fallback magnitudes.
const (
	lowEngagementRate    = 0.005 // below this, followers are likely fake
	highEngagementRate   = 0.20  // above this, engagement pods are likely
	lowCommentRatio      = 0.01
	highCommentRatio     = 0.20
	uniformLikesCV       = 0.10 // near-identical likes across posts
	uniformGapCV         = 0.05 // near-identical posting intervals
	erraticGapCV         = 3.0
	minPostsForVariance  = 3
	noDataIndicator      = 0.5
	sparseDataIndicator  = 0.3
	fraudAudiencePenalty = 0.8
)

// Follower tier names.
const (
	TierNano  = "nano"  // under 10K
	TierMicro = "micro" // 10K-50K
	TierMid   = "mid"   // 50K-500K
	TierMacro = "macro" // 500K+
)

func defaultFraudWeights() map[string]float64 {
	return map[string]float64{
		IndicatorFollowerFollowingRatio: 0.20,
		IndicatorEngagementAnomaly:      0.25,
		IndicatorLikeCommentRatio:       0.20,
		IndicatorEngagementConsistency:  0.20,
		IndicatorPostingFrequency:       0.15,
	}
}

func defaultContentWeights() map[string]float64 {
	return map[string]float64{
		SignalCaptionQuality:     0.30,
		SignalHashtagUsage:       0.20,
		SignalPostingFrequency:   0.25,
		SignalMediaTypeDiversity: 0.25,
	}
}

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithFraudWeights overrides fraud indicator weights. Unknown names and
// non-positive weights are ignored; missing indicators keep their default.
func WithFraudWeights(weights map[string]float64) Option {
	return func(s *Scorer) {
		for name, w := range weights {
			if _, ok := s.fraudWeights[name]; ok && w > 0 {
				s.fraudWeights[name] = w
			}
		}
	}
}

// WithContentWeights overrides content signal weights, same rules as
// WithFraudWeights.
func WithContentWeights(weights map[string]float64) Option {
	return func(s *Scorer) {
		for name, w := range weights {
			if _, ok := s.contentWeights[name]; ok && w > 0 {
				s.contentWeights[name] = w
			}
		}
	}
}

// Scorer computes InfluencerScore values from raw profiles. The zero
// configuration uses the documented default weights.
type Scorer struct {
	fraudWeights   map[string]float64
	contentWeights map[string]float64
}

// New creates a Scorer with configuration options.
func New(opts ...Option) *Scorer {
	s := &Scorer{
		fraudWeights:   defaultFraudWeights(),
		contentWeights: defaultContentWeights(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Engagement holds the raw engagement aggregates for one profile.
// Rate is nil when the post sample is empty or the follower count is zero:
// nil means unmeasurable, zero would mean measured and poor.
type Engagement struct {
	Rate        *float64
	AvgLikes    float64
	AvgComments float64
}

// Score runs the full per-influencer scoring and returns one
// InfluencerScore. All bounded outputs are nil or within [0,1].
func (s *Scorer) Score(p model.InfluencerProfile) model.InfluencerScore {
	eng := s.Engagement(p)
	fraud, indicators := s.Fraud(p, eng)
	content, analysis := s.ContentQuality(p)
	audience, demographics := s.AudienceQuality(p.FollowersCount, eng, fraud)

	out := model.InfluencerScore{
		Handle:               p.Handle,
		DisplayName:          p.FullName,
		AvatarURL:            p.AvatarURL,
		FollowersCount:       p.FollowersCount,
		EngagementRate:       eng.Rate,
		AvgLikes:             eng.AvgLikes,
		AvgComments:          eng.AvgComments,
		FraudScore:           fraud,
		FraudIndicators:      indicators,
		ContentQualityScore:  content,
		ContentAnalysis:      analysis,
		AudienceQualityScore: audience,
		Audience:             demographics,
		DiscoverySource:      p.DiscoverySource,
	}

	contentVal := 0.0
	if content != nil {
		contentVal = *content
	}
	rateVal := 0.0
	if eng.Rate != nil {
		rateVal = *eng.Rate
	}
	out.EstimatedReach, out.EstimatedCPM = EstimateReach(p.FollowersCount, rateVal, contentVal)
	return out
}

// Engagement computes the engagement rate and per-post averages:
// mean(likes+comments) over recent posts divided by the follower count,
// clamped to [0,1].
func (s *Scorer) Engagement(p model.InfluencerProfile) Engagement {
	if len(p.RecentPosts) == 0 {
		return Engagement{}
	}
	var likes, comments int
	for _, post := range p.RecentPosts {
		likes += post.Likes
		comments += post.Comments
	}
	n := float64(len(p.RecentPosts))
	eng := Engagement{
		AvgLikes:    roundTo(float64(likes)/n, 2),
		AvgComments: roundTo(float64(comments)/n, 2),
	}
	if p.FollowersCount > 0 {
		rate := roundTo(clamp01((eng.AvgLikes+eng.AvgComments)/float64(p.FollowersCount)), 6)
		eng.Rate = &rate
	}
	return eng
}

// Fraud evaluates the five weighted fraud indicators and returns the
// composite score with the raw indicator magnitudes. The composite is nil
// when the profile has no posts at all: too little signal to accuse.
func (s *Scorer) Fraud(p model.InfluencerProfile, eng Engagement) (*float64, map[string]float64) {
	if len(p.RecentPosts) == 0 {
		return nil, nil
	}

	indicators := map[string]float64{
		IndicatorFollowerFollowingRatio: followerFollowingSignal(p.FollowersCount, p.FollowingCount),
		IndicatorEngagementAnomaly:      engagementAnomalySignal(p.FollowersCount, eng.Rate),
		IndicatorLikeCommentRatio:       likeCommentSignal(eng.AvgLikes, eng.AvgComments),
		IndicatorEngagementConsistency:  consistencySignal(p.RecentPosts),
		IndicatorPostingFrequency:       postingGapSignal(p.RecentPosts),
	}

	var composite float64
	for name, weight := range s.fraudWeights {
		composite += indicators[name] * weight
	}
	composite = roundTo(clamp01(composite), 4)
	return &composite, indicators
}

// ContentQuality evaluates caption, hashtag, cadence, and media diversity
// signals. Nil when the profile has no posts.
func (s *Scorer) ContentQuality(p model.InfluencerProfile) (*float64, map[string]float64) {
	posts := p.RecentPosts
	if len(posts) == 0 {
		return nil, nil
	}

	analysis := map[string]float64{
		SignalCaptionQuality:     captionSignal(posts),
		SignalHashtagUsage:       hashtagSignal(posts),
		SignalPostingFrequency:   cadenceSignal(posts),
		SignalMediaTypeDiversity: diversitySignal(posts),
	}

	var score float64
	for name, weight := range s.contentWeights {
		score += analysis[name] * weight
	}
	score = roundTo(clamp01(score), 4)
	return &score, analysis
}

// AudienceQuality estimates how real and engaged the audience is from the
// engagement band, penalized by the fraud score. Nil when either input is
// unmeasurable.
func (s *Scorer) AudienceQuality(followers int, eng Engagement, fraud *float64) (*float64, *model.AudienceProfile) {
	if eng.Rate == nil || fraud == nil {
		return nil, nil
	}
	rate := *eng.Rate

	var base float64
	switch {
	case rate >= 0.05:
		base = 0.9
	case rate >= 0.03:
		base = 0.7
	case rate >= 0.01:
		base = 0.5
	default:
		base = 0.2
	}

	quality := roundTo(clamp01(base*(1-*fraud*fraudAudiencePenalty)), 4)

	band := "low"
	switch {
	case rate >= 0.05:
		band = "high"
	case rate >= 0.02:
		band = "medium"
	}

	return &quality, &model.AudienceProfile{
		RealFollowersPct: roundTo((1-*fraud)*100, 1),
		EngagementBand:   band,
		FollowerTier:     FollowerTier(followers),
	}
}

// EstimateReach estimates per-post reach and a EUR CPM from the follower
// tier, adjusted by engagement and content quality.
func EstimateReach(followers int, engagementRate, contentQuality float64) (int, float64) {
	if followers == 0 {
		return 0, 0
	}

	tier := FollowerTier(followers)
	reachPct := map[string]float64{
		TierNano:  0.25,
		TierMicro: 0.15,
		TierMid:   0.08,
		TierMacro: 0.04,
	}[tier]
	baseCPM := map[string]float64{
		TierNano:  5.0,
		TierMicro: 8.0,
		TierMid:   12.0,
		TierMacro: 18.0,
	}[tier]

	engagementBoost := 1.0 + math.Min(engagementRate*10, 1.0)
	reach := int(float64(followers) * reachPct * engagementBoost)

	qualityMult := 0.7 + contentQuality*0.6                 // 0.7 - 1.3
	engagementMult := 0.8 + math.Min(engagementRate*8, 0.8) // 0.8 - 1.6
	cpm := roundTo(baseCPM*qualityMult*engagementMult, 2)

	return reach, cpm
}

// FollowerTier classifies a follower count into nano/micro/mid/macro.
func FollowerTier(followers int) string {
	switch {
	case followers < 10_000:
		return TierNano
	case followers < 50_000:
		return TierMicro
	case followers < 500_000:
		return TierMid
	default:
		return TierMacro
	}
}

// --- fraud signals ---

func followerFollowingSignal(followers, following int) float64 {
	if following <= 0 {
		return noDataIndicator
	}
	ratio := float64(followers) / float64(following)
	switch {
	case ratio < 1.0:
		// More following than followers.
		return math.Min(1.0, 1.0-ratio)
	case ratio > 100:
		// Extremely high ratio can indicate bought followers.
		return math.Min(1.0, (ratio-100)/500)
	default:
		return 0
	}
}

func engagementAnomalySignal(followers int, rate *float64) float64 {
	if followers <= 0 || rate == nil {
		return noDataIndicator
	}
	switch {
	case *rate < lowEngagementRate:
		return math.Min(1.0, (lowEngagementRate-*rate)/lowEngagementRate)
	case *rate > highEngagementRate:
		return math.Min(1.0, (*rate-highEngagementRate)/0.30)
	default:
		return 0
	}
}

func likeCommentSignal(avgLikes, avgComments float64) float64 {
	if avgLikes <= 0 {
		return sparseDataIndicator
	}
	ratio := avgComments / avgLikes
	switch {
	case ratio < lowCommentRatio:
		// Almost no comments relative to likes.
		return math.Min(1.0, (lowCommentRatio-ratio)/lowCommentRatio)
	case ratio > highCommentRatio:
		// Comment bots.
		return math.Min(1.0, (ratio-highCommentRatio)/0.30)
	default:
		return 0
	}
}

func consistencySignal(posts []model.Post) float64 {
	if len(posts) < minPostsForVariance {
		return sparseDataIndicator
	}
	var sum float64
	for _, p := range posts {
		sum += float64(p.Likes)
	}
	mean := sum / float64(len(posts))
	if mean <= 0 {
		return sparseDataIndicator
	}
	var variance float64
	for _, p := range posts {
		d := float64(p.Likes) - mean
		variance += d * d
	}
	cv := math.Sqrt(variance/float64(len(posts))) / mean
	if cv < uniformLikesCV {
		// Almost identical likes across posts.
		return math.Min(1.0, (uniformLikesCV-cv)/uniformLikesCV)
	}
	return 0
}

func postingGapSignal(posts []model.Post) float64 {
	var stamps []float64
	for _, p := range posts {
		if !p.Timestamp.IsZero() {
			stamps = append(stamps, float64(p.Timestamp.Unix()))
		}
	}
	if len(stamps) < minPostsForVariance {
		return sparseDataIndicator
	}
	slices.Sort(stamps)

	gaps := make([]float64, 0, len(stamps)-1)
	var sum float64
	for i := 1; i < len(stamps); i++ {
		g := stamps[i] - stamps[i-1]
		gaps = append(gaps, g)
		sum += g
	}
	mean := sum / float64(len(gaps))
	if mean <= 0 {
		return noDataIndicator
	}
	var variance float64
	for _, g := range gaps {
		d := g - mean
		variance += d * d
	}
	cv := math.Sqrt(variance/float64(len(gaps))) / mean
	switch {
	case cv < uniformGapCV:
		// Metronome posting, bot-like.
		return 0.8
	case cv > erraticGapCV:
		return math.Min(1.0, (cv-erraticGapCV)/5.0)
	default:
		return 0
	}
}

// --- content signals ---

func captionSignal(posts []model.Post) float64 {
	var total float64
	for _, p := range posts {
		total += float64(len(p.Caption))
	}
	avg := total / float64(len(posts))
	switch {
	case avg >= 100:
		return math.Min(1.0, avg/300)
	case avg >= 30:
		return avg / 100
	default:
		return math.Max(0.1, avg/100)
	}
}

func hashtagSignal(posts []model.Post) float64 {
	var total float64
	for _, p := range posts {
		total += float64(len(p.Hashtags))
	}
	avg := total / float64(len(posts))
	switch {
	case avg >= 5 && avg <= 15:
		// Sweet spot.
		return 1.0
	case avg < 5:
		return math.Max(0.2, avg/5)
	default:
		return math.Max(0.3, 1.0-(avg-15)/20)
	}
}

func cadenceSignal(posts []model.Post) float64 {
	var stamps []float64
	for _, p := range posts {
		if !p.Timestamp.IsZero() {
			stamps = append(stamps, float64(p.Timestamp.Unix()))
		}
	}
	if len(stamps) < 2 {
		return sparseDataIndicator
	}
	slices.Sort(stamps)
	span := stamps[len(stamps)-1] - stamps[0]
	weeks := math.Max(span/(7*24*3600), 0.1)
	perWeek := float64(len(stamps)) / weeks
	switch {
	case perWeek >= 2 && perWeek <= 7:
		return 1.0
	case perWeek < 2:
		return math.Max(0.2, perWeek/2)
	default:
		return math.Max(0.4, 1.0-(perWeek-7)/14)
	}
}

func diversitySignal(posts []model.Post) float64 {
	types := make(map[model.PostType]struct{})
	for _, p := range posts {
		types[p.Type] = struct{}{}
	}
	switch len(types) {
	case 1:
		return 0.3
	case 2:
		return 0.7
	default:
		return 1.0
	}
}

// --- helpers ---

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func roundTo(v float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(v*pow) / pow
}
