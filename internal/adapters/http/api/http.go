// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/veride/brandaudit/internal/domain/health"
	"github.com/veride/brandaudit/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Submit accepts an audit request. The bool reports whether a new
	// audit was created; existing audits come back for coalesced
	// submissions.
	Submit(ctx context.Context, handle, language string) (*model.Audit, bool, error)

	// Get returns a snapshot of the audit by id.
	Get(ctx context.Context, id string) (*model.Audit, error)

	// Lookup returns the most recent audit for a handle.
	Lookup(ctx context.Context, handle string) (*model.Audit, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	auditsHandler *AuditsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		auditsHandler: NewAuditsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	// Exact paths win over the /audits/ prefix, so lookup must be
	// registered on its own.
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/audits", MetricsMiddleware(s.auditsHandler.HandleSubmit, "audits"))
	mux.HandleFunc("/audits/lookup", MetricsMiddleware(s.auditsHandler.HandleLookup, "audits_lookup"))
	mux.HandleFunc("/audits/", MetricsMiddleware(s.auditsHandler.HandleGet, "audits_get"))
}

// auditRequest mirrors the submission schema for POST /audits.
type auditRequest struct {
	Handle   string `json:"handle"`
	Language string `json:"language"`
}

// brandView is the public shape of the brand snapshot.
type brandView struct {
	Handle         string `json:"handle"`
	FullName       string `json:"full_name,omitempty"`
	Bio            string `json:"bio,omitempty"`
	FollowersCount int    `json:"followers_count"`
	FollowingCount int    `json:"following_count"`
	PostsCount     int    `json:"posts_count"`
	AvatarURL      string `json:"avatar_url,omitempty"`
	Verified       bool   `json:"verified"`
}

// auditResponse is the public read shape of one audit. A failed audit
// exposes only its status and frozen progress; diagnostic detail stays
// internal.
type auditResponse struct {
	ID          string `json:"id"`
	Handle      string `json:"handle"`
	Language    string `json:"language"`
	Status      string `json:"status"`
	Progress    int    `json:"progress"`
	CurrentStep string `json:"current_step,omitempty"`

	Brand           *brandView              `json:"brand,omitempty"`
	Influencers     []model.InfluencerScore `json:"influencers,omitempty"`
	Overlaps        []model.OverlapEntry    `json:"audience_overlaps,omitempty"`
	HealthScore     *float64                `json:"health_score"`
	HealthBand      string                  `json:"health_band,omitempty"`
	Summary         *string                 `json:"summary,omitempty"`
	Recommendations []string                `json:"recommendations"`
	Warnings        []model.Warning         `json:"warnings,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toAuditResponse(a *model.Audit) auditResponse {
	resp := auditResponse{
		ID:              a.ID,
		Handle:          a.Handle,
		Language:        a.Language,
		Status:          string(a.Status),
		Progress:        a.Progress,
		CurrentStep:     a.CurrentStep,
		Influencers:     a.Influencers,
		Overlaps:        a.Overlaps,
		HealthScore:     a.HealthScore,
		Summary:         a.Summary,
		Recommendations: a.Recommendations,
		Warnings:        a.Warnings,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
	if a.Brand != nil {
		resp.Brand = &brandView{
			Handle:         a.Brand.Handle,
			FullName:       a.Brand.FullName,
			Bio:            a.Brand.Bio,
			FollowersCount: a.Brand.FollowersCount,
			FollowingCount: a.Brand.FollowingCount,
			PostsCount:     a.Brand.PostsCount,
			AvatarURL:      a.Brand.AvatarURL,
			Verified:       a.Brand.Verified,
		}
	}
	if a.HealthScore != nil {
		resp.HealthBand = health.Band(*a.HealthScore, false)
	}
	// A terminal audit always carries a recommendations list, even when
	// the narrative produced none.
	if resp.Recommendations == nil && a.Status.Terminal() {
		resp.Recommendations = []string{}
	}
	return resp
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
