// Package app wires configuration into a ready-to-use prayer-time session.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/swelljoe/sunnybloom/internal/config"
	"github.com/swelljoe/sunnybloom/internal/db"
	"github.com/swelljoe/sunnybloom/internal/prayer"
)

// Store is the durable storage behind the cache
type Store interface {
	prayer.KV
	Check(ctx context.Context) error
	Close() error
}

// App is the session context: everything a resolution cycle needs, built once.
type App struct {
	Store     Store
	Resolver  *prayer.Resolver
	Locations *prayer.LocationProvider
	// IPLocator locates this host; only on-device callers like the CLI should use it.
	IPLocator prayer.Locator
	Method    prayer.Method
	Location  *time.Location

	cfg        *config.Config
	httpClient *http.Client
}

// New opens storage and builds the resolver and location provider from cfg
func New(cfg *config.Config, logger zerolog.Logger) (*App, error) {
	method, err := prayer.MethodByCode(cfg.CalculationMethod)
	if err != nil {
		return nil, err
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	client := prayer.NewClient(cfg.AladhanBaseURL, cfg.UserAgent, cfg.HTTPTimeout)
	var remote prayer.RemoteSource = client
	if cfg.AladhanRPS > 0 {
		remote = prayer.NewRateLimitedSource(client, cfg.AladhanRPS, cfg.AladhanBurst)
	}

	var conn prayer.Connectivity
	switch cfg.Connectivity {
	case "online":
		conn = prayer.StaticConnectivity(true)
	case "offline":
		conn = prayer.StaticConnectivity(false)
	default:
		conn = prayer.DialProbe{Addr: cfg.ProbeAddr, Timeout: 2 * time.Second}
	}

	loc := cfg.Location()
	opts := []prayer.ResolverOption{
		prayer.WithLogger(logger.With().Str("component", "resolver").Logger()),
		// cache stamps follow the configured zone, not the host's
		prayer.WithClock(func() time.Time { return time.Now().In(loc) }),
	}
	if cfg.LocalCalculation {
		opts = append(opts, prayer.WithCalculator(prayer.Astronomical{}))
	}

	a := &App{
		Store:    store,
		Resolver: prayer.NewResolver(conn, remote, prayer.NewCache(store), opts...),
		Locations: prayer.NewLocationProvider(
			prayer.Coordinates{Latitude: cfg.FallbackLatitude, Longitude: cfg.FallbackLongitude},
			cfg.GeolocationTimeout,
			logger.With().Str("component", "location").Logger(),
		),
		Method:     method,
		Location:   loc,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
	}
	if cfg.GeolocationURL != "" {
		a.IPLocator = &prayer.IPLocator{URL: cfg.GeolocationURL, UserAgent: cfg.UserAgent, HTTPClient: a.httpClient}
	}
	return a, nil
}

// Geocoder returns a locator for a free-text place name
func (a *App) Geocoder(query string) prayer.Locator {
	return &prayer.GeocodeLocator{Query: query, UserAgent: a.cfg.UserAgent, HTTPClient: a.httpClient}
}

// Close releases storage
func (a *App) Close() error {
	return a.Store.Close()
}

func openStore(cfg *config.Config) (Store, error) {
	if cfg.CacheBackend == "redis" {
		store := db.NewRedisStore(db.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   "sunnybloom:",
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Check(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return store, nil
	}

	database, err := db.NewDB(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	return database, nil
}
