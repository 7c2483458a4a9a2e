package prayer

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitedSource wraps a RemoteSource with rate limiting
type RateLimitedSource struct {
	source  RemoteSource
	limiter *rate.Limiter
}

// NewRateLimitedSource creates a new rate limited remote source.
// rps is the maximum requests per second allowed (can be fractional), burst the maximum burst size.
func NewRateLimitedSource(source RemoteSource, rps float64, burst int) *RateLimitedSource {
	return &RateLimitedSource{
		source:  source,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Fetch waits for the limiter before forwarding. A canceled wait counts as the network being unreachable.
func (r *RateLimitedSource) Fetch(ctx context.Context, coords Coordinates, date time.Time, method Method) (*TimingsResponse, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, &FetchError{Kind: NetworkUnreachable, Err: err}
	}
	return r.source.Fetch(ctx, coords, date, method)
}

var _ RemoteSource = (*RateLimitedSource)(nil)
