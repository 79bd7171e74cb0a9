package provider

import (
	"context"
	"time"

	"dramadl/internal/model"
	"dramadl/internal/ratelimit"
)

// RateLimited decorates a Provider with a sliding-window limit on resolution
// calls. Callers over the limit are delayed until a slot frees, not rejected.
type RateLimited struct {
	inner   Provider
	limiter *ratelimit.SlidingWindow
}

func NewRateLimited(inner Provider, maxCalls int, window time.Duration) *RateLimited {
	return &RateLimited{
		inner:   inner,
		limiter: ratelimit.NewSlidingWindow(maxCalls, window),
	}
}

func (p *RateLimited) Name() string {
	return p.inner.Name()
}

func (p *RateLimited) GetVideoURL(ctx context.Context, episodeID, quality string) (*model.VideoInfo, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return p.inner.GetVideoURL(ctx, episodeID, quality)
}
