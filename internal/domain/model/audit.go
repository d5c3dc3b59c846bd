// Package model contains domain models passed between layers.
package model

import "time"

// Status is the audit pipeline state. States form a total order on a
// successful run; Failed is reachable from any non-terminal state.
type Status string

// Pipeline states in execution order.
const (
	StatusPending                Status = "pending"
	StatusScrapingBrand          Status = "scraping_brand"
	StatusDiscoveringInfluencers Status = "discovering_influencers"
	StatusAnalyzingInfluencers   Status = "analyzing_influencers"
	StatusScoring                Status = "scoring"
	StatusGeneratingNarrative    Status = "generating_narrative"
	StatusCompleted              Status = "completed"
	StatusFailed                 Status = "failed"
)

// stageOrder maps each state to its position in the pipeline. Failed is
// absent on purpose: it is ordered by CanTransitionTo, not by rank.
var stageOrder = map[Status]int{
	StatusPending:                0,
	StatusScrapingBrand:          1,
	StatusDiscoveringInfluencers: 2,
	StatusAnalyzingInfluencers:   3,
	StatusScoring:                4,
	StatusGeneratingNarrative:    5,
	StatusCompleted:              6,
}

// stageProgress is the progress value committed when entering each state.
// A failed audit keeps the progress of the stage it failed in.
var stageProgress = map[Status]int{
	StatusPending:                0,
	StatusScrapingBrand:          15,
	StatusDiscoveringInfluencers: 30,
	StatusAnalyzingInfluencers:   55,
	StatusScoring:                75,
	StatusGeneratingNarrative:    90,
	StatusCompleted:              100,
}

// stageLabels are the human-readable step descriptions reported to pollers.
var stageLabels = map[Status]string{
	StatusScrapingBrand:          "Scraping brand profile",
	StatusDiscoveringInfluencers: "Discovering associated influencers",
	StatusAnalyzingInfluencers:   "Analyzing influencer profiles",
	StatusScoring:                "Calculating scores and metrics",
	StatusGeneratingNarrative:    "Generating audit narrative",
	StatusCompleted:              "Audit complete",
}

// Valid reports whether s is a known pipeline state.
func (s Status) Valid() bool {
	if s == StatusFailed {
		return true
	}
	_, ok := stageOrder[s]
	return ok
}

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Progress returns the progress value committed when entering s.
// Failed has no progress of its own.
func (s Status) Progress() int {
	return stageProgress[s]
}

// Label returns the step description for s, empty for pending/failed.
func (s Status) Label() string {
	return stageLabels[s]
}

// Next returns the state that follows s on a successful run.
// The second result is false for terminal and unknown states.
func (s Status) Next() (Status, bool) {
	rank, ok := stageOrder[s]
	if !ok || s == StatusCompleted {
		return s, false
	}
	for st, r := range stageOrder {
		if r == rank+1 {
			return st, true
		}
	}
	return s, false
}

// CanTransitionTo reports whether moving from s to next is a legal
// transition: one step forward through the stage order, or a jump to
// Failed from any non-terminal state. No state is ever re-entered.
func (s Status) CanTransitionTo(next Status) bool {
	if s.Terminal() {
		return false
	}
	if next == StatusFailed {
		return true
	}
	from, okFrom := stageOrder[s]
	to, okTo := stageOrder[next]
	return okFrom && okTo && to == from+1
}

// DiscoverySource tags how an influencer candidate was found.
type DiscoverySource string

// Discovery provenance values.
const (
	SourceTaggedPosts     DiscoverySource = "tagged_posts"
	SourceRelatedProfiles DiscoverySource = "related_profiles"
	SourceHashtagSearch   DiscoverySource = "hashtag_search"
)

// PostType is the media kind of a single post.
type PostType string

// Post media kinds.
const (
	PostImage    PostType = "image"
	PostVideo    PostType = "video"
	PostCarousel PostType = "carousel"
	PostReel     PostType = "reel"
)

// Post is one recent post with the raw engagement inputs used by scoring.
type Post struct {
	ID        string
	Type      PostType
	Caption   string
	Likes     int
	Comments  int
	Timestamp time.Time
	Hashtags  []string
}

// BrandProfile is the immutable brand snapshot captured once per audit
// during the acquisition stage.
type BrandProfile struct {
	Handle         string
	FullName       string
	Bio            string
	FollowersCount int
	FollowingCount int
	PostsCount     int
	AvatarURL      string
	Verified       bool
	Business       bool
}

// Candidate is a discovered influencer handle with its provenance.
type Candidate struct {
	Handle           string
	FollowersCount   int
	DiscoverySource  DiscoverySource
	DiscoveryContext string
}

// InfluencerProfile carries everything scoring and overlap need for one
// influencer. AudienceSample holds opaque audience identifiers; an empty
// sample means the audience data source was unavailable for this handle.
type InfluencerProfile struct {
	Handle           string
	FullName         string
	Bio              string
	FollowersCount   int
	FollowingCount   int
	PostsCount       int
	AvatarURL        string
	Verified         bool
	RecentPosts      []Post
	AudienceSample   []string
	DiscoverySource  DiscoverySource
	DiscoveryContext string
}

// AudienceProfile is the estimated audience breakdown for an influencer.
type AudienceProfile struct {
	RealFollowersPct float64 `json:"estimated_real_followers_pct"`
	EngagementBand   string  `json:"engagement_quality"`
	FollowerTier     string  `json:"follower_tier"`
}

// InfluencerScore is the scored view of one influencer. Bounded scores are
// nil when their raw inputs were absent: nil means unmeasurable, zero means
// measured and poor.
type InfluencerScore struct {
	Handle               string             `json:"handle"`
	DisplayName          string             `json:"display_name,omitempty"`
	AvatarURL            string             `json:"avatar_url,omitempty"`
	FollowersCount       int                `json:"followers_count"`
	EngagementRate       *float64           `json:"engagement_rate"`
	AvgLikes             float64            `json:"avg_likes"`
	AvgComments          float64            `json:"avg_comments"`
	FraudScore           *float64           `json:"fraud_score"`
	FraudIndicators      map[string]float64 `json:"fraud_indicators,omitempty"`
	ContentQualityScore  *float64           `json:"content_quality_score"`
	ContentAnalysis      map[string]float64 `json:"content_analysis,omitempty"`
	AudienceQualityScore *float64           `json:"audience_quality_score"`
	Audience             *AudienceProfile   `json:"audience_demographics,omitempty"`
	EstimatedReach       int                `json:"estimated_reach"`
	EstimatedCPM         float64            `json:"estimated_cpm"`
	DiscoverySource      DiscoverySource    `json:"discovery_source,omitempty"`
}

// OverlapEntry is the audience overlap for one unordered influencer pair.
// HandleA sorts lexicographically before HandleB so (a,b) and (b,a)
// address the same entry.
type OverlapEntry struct {
	HandleA           string  `json:"influencer_a_handle"`
	HandleB           string  `json:"influencer_b_handle"`
	OverlapPercentage float64 `json:"overlap_percentage"`
	SampleSize        int     `json:"sample_size"`
}

// Warning records a non-fatal incident during a run, such as a dropped
// influencer candidate.
type Warning struct {
	Stage   Status `json:"stage"`
	Subject string `json:"subject"`
	Reason  string `json:"reason"`
}

// Audit is the orchestrator-owned record of one audit run. Only the
// orchestrator mutates it; readers always receive copies.
type Audit struct {
	ID          string
	Handle      string
	Language    string
	Status      Status
	Progress    int
	CurrentStep string

	Brand           *BrandProfile
	Influencers     []InfluencerScore
	Overlaps        []OverlapEntry
	HealthScore     *float64
	Summary         *string
	Recommendations []string

	Warnings []Warning
	// ErrorMessage is operator-facing diagnostic detail. It is never part
	// of the public read contract; pollers see only status=failed.
	ErrorMessage string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy of the audit so readers never observe a
// partially written record.
func (a *Audit) Clone() *Audit {
	c := *a
	if a.Brand != nil {
		b := *a.Brand
		c.Brand = &b
	}
	if a.HealthScore != nil {
		v := *a.HealthScore
		c.HealthScore = &v
	}
	if a.Summary != nil {
		v := *a.Summary
		c.Summary = &v
	}
	c.Recommendations = append([]string(nil), a.Recommendations...)
	c.Warnings = append([]Warning(nil), a.Warnings...)
	c.Overlaps = append([]OverlapEntry(nil), a.Overlaps...)
	if a.Influencers != nil {
		c.Influencers = make([]InfluencerScore, len(a.Influencers))
		for i := range a.Influencers {
			c.Influencers[i] = cloneScore(a.Influencers[i])
		}
	}
	return &c
}

func cloneScore(s InfluencerScore) InfluencerScore {
	c := s
	c.EngagementRate = clonePtr(s.EngagementRate)
	c.FraudScore = clonePtr(s.FraudScore)
	c.ContentQualityScore = clonePtr(s.ContentQualityScore)
	c.AudienceQualityScore = clonePtr(s.AudienceQualityScore)
	if s.Audience != nil {
		a := *s.Audience
		c.Audience = &a
	}
	c.FraudIndicators = cloneMap(s.FraudIndicators)
	c.ContentAnalysis = cloneMap(s.ContentAnalysis)
	return c
}

func clonePtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneMap(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
