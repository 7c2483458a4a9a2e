package prayer

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Resolver decides, per cycle, which source supplies the day's times.
//
// Order: remote when online (cache on failure), local calculation when offline
// (cache when the calculator is unavailable), then nothing. A remote failure never
// falls through to local calculation, and only a remote success writes the cache.
type Resolver struct {
	connectivity Connectivity
	remote       RemoteSource
	calculator   Calculator // nil when local calculation is disabled
	cache        *Cache
	logger       zerolog.Logger
	now          func() time.Time

	state atomic.Int32
}

// ResolverOption configures a Resolver
type ResolverOption func(*Resolver)

// WithCalculator enables offline computation
func WithCalculator(c Calculator) ResolverOption {
	return func(r *Resolver) { r.calculator = c }
}

// WithLogger sets the logger used to report recovered failures
func WithLogger(l zerolog.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = l }
}

// WithClock overrides time.Now, which stamps cache writes
func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) { r.now = now }
}

// NewResolver creates a resolver; build one per session and pass it where needed.
func NewResolver(conn Connectivity, remote RemoteSource, cache *Cache, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		connectivity: conn,
		remote:       remote,
		cache:        cache,
		logger:       zerolog.Nop(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State reports the state of the most recent cycle
func (r *Resolver) State() State {
	return State(r.state.Load())
}

// Resolve runs one resolution cycle. It never fails; an empty Resolution means nothing is available.
func (r *Resolver) Resolve(ctx context.Context, coords Coordinates, date time.Time, method Method) Resolution {
	r.state.Store(int32(StateResolving))
	res := r.resolve(ctx, coords, date, method)
	if res.Empty() {
		res.State = StateFailed
	} else {
		res.State = StateResolved
	}
	r.state.Store(int32(res.State))
	return res
}

func (r *Resolver) resolve(ctx context.Context, coords Coordinates, date time.Time, method Method) Resolution {
	log := r.logger.With().
		Float64("lat", coords.Latitude).
		Float64("lon", coords.Longitude).
		Int("method", method.Code).
		Logger()

	if r.connectivity != nil && r.connectivity.Online(ctx) {
		if set, ok := r.fetchRemote(ctx, log, coords, date, method); ok {
			return Resolution{Times: set, Source: SourceRemote}
		}
	} else if r.calculator != nil {
		set, err := r.calculator.Compute(coords, date, method)
		if err == nil {
			log.Debug().Msg("prayer times calculated locally")
			return Resolution{Times: set, Source: SourceLocal}
		}
		log.Warn().Err(err).Msg("local calculation failed, falling back to cache")
	} else {
		log.Warn().Err(ErrCalculationUnavailable).Msg("offline, falling back to cache")
	}

	return r.fromCache(ctx, log)
}

func (r *Resolver) fetchRemote(ctx context.Context, log zerolog.Logger, coords Coordinates, date time.Time, method Method) (TimeSet, bool) {
	resp, err := r.remote.Fetch(ctx, coords, date, method)
	if err == nil {
		var set TimeSet
		if set, err = resp.TimeSet(); err == nil {
			if werr := r.cache.Write(ctx, set, r.now()); werr != nil {
				log.Warn().Err(werr).Msg("failed to update prayer time cache")
			}
			log.Debug().Msg("prayer times fetched from remote")
			return set, true
		}
		err = &FetchError{Kind: MalformedResponse, Err: err}
	}

	ev := log.Warn().Err(err)
	var fe *FetchError
	if errors.As(err, &fe) {
		ev = ev.Stringer("kind", fe.Kind)
	}
	ev.Msg("remote fetch failed, falling back to cache")
	return TimeSet{}, false
}

func (r *Resolver) fromCache(ctx context.Context, log zerolog.Logger) Resolution {
	entry, ok, err := r.cache.Read(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("cache read failed")
		return Resolution{Source: SourceNone}
	}
	if !ok {
		log.Info().Msg("no prayer times available")
		return Resolution{Source: SourceNone}
	}
	log.Debug().Str("cached_date", entry.RawDate).Msg("prayer times served from cache")
	return Resolution{Times: entry.Times, Source: SourceCache}
}
