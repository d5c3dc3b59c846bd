// Package source defines the external social-data source contract and
// its implementations. The pipeline treats every call as fallible and
// rate-limited; nothing here is cached across audits.
package source

import (
	"context"
	"errors"

	"github.com/veride/brandaudit/internal/domain/model"
)

// Sentinel kinds for data source failures.
var (
	// ErrNotFound means the handle does not resolve to a profile.
	ErrNotFound = errors.New("profile not found")
	// ErrUnavailable means the upstream source could not serve the
	// request; the caller decides whether that is fatal for its stage.
	ErrUnavailable = errors.New("source unavailable")
)

// Profile is the raw profile shape returned by the source for any
// account, brand or influencer alike.
type Profile struct {
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

// Discovery is the outcome of influencer discovery across the three
// discovery methods. A method can fail without failing the whole call.
type Discovery struct {
	Candidates       []model.Candidate
	SourcesSucceeded []string
	SourcesFailed    []string
}

// Source is the upstream social-data dependency.
type Source interface {
	// FetchProfile resolves a handle to its profile. ErrNotFound when
	// the handle does not exist, ErrUnavailable on upstream failure.
	FetchProfile(ctx context.Context, handle string) (Profile, error)

	// FetchRecentPosts returns up to n recent posts for the handle.
	FetchRecentPosts(ctx context.Context, handle string, n int) ([]model.Post, error)

	// FetchAudienceSample returns opaque audience identifiers for the
	// handle, or ErrUnavailable when audience data cannot be served.
	FetchAudienceSample(ctx context.Context, handle string) ([]string, error)

	// Discover finds influencer candidates related to the brand via
	// tagged posts, related profiles, and hashtag search. An empty
	// candidate list is a valid result, not an error.
	Discover(ctx context.Context, handle, bio string) (Discovery, error)
}
