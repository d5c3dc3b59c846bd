package source

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/veride/brandaudit/internal/domain/model"
)

// Limited wraps a Source with a shared token-bucket limiter so concurrent
// pipeline workers cannot stampede the upstream. Calls wait for a token
// rather than failing; a cancelled context is the only way out early.
type Limited struct {
	inner   Source
	limiter *rate.Limiter
}

// NewLimited wraps src with a limiter of rps requests per second and the
// given burst. Non-positive values disable limiting.
func NewLimited(src Source, rps float64, burst int) *Limited {
	if rps <= 0 {
		return &Limited{inner: src, limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	if burst < 1 {
		burst = 1
	}
	return &Limited{inner: src, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (l *Limited) FetchProfile(ctx context.Context, handle string) (Profile, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return Profile{}, err
	}
	return l.inner.FetchProfile(ctx, handle)
}

func (l *Limited) FetchRecentPosts(ctx context.Context, handle string, n int) ([]model.Post, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return l.inner.FetchRecentPosts(ctx, handle, n)
}

func (l *Limited) FetchAudienceSample(ctx context.Context, handle string) ([]string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return l.inner.FetchAudienceSample(ctx, handle)
}

func (l *Limited) Discover(ctx context.Context, handle, bio string) (Discovery, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return Discovery{}, err
	}
	return l.inner.Discover(ctx, handle, bio)
}
