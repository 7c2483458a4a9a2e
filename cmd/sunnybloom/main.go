package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/swelljoe/sunnybloom/internal/app"
	"github.com/swelljoe/sunnybloom/internal/config"
	"github.com/swelljoe/sunnybloom/internal/handlers"
	"github.com/swelljoe/sunnybloom/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	a, err := app.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer a.Close()
	logger.Info().Str("backend", cfg.CacheBackend).Msg("storage ready")

	mux := newMux(a, cfg, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		logger.Info().Msgf("Server starting on http://localhost%s", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info().Msg("shutting down")
	return srv.Shutdown(shutdownCtx)
}

func newMux(a *app.App, cfg *config.Config, logger zerolog.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	h := handlers.New(a.Store, a.Resolver, a.Locations, handlers.Options{
		Method:      a.Method,
		Location:    a.Location,
		Locale:      cfg.Locale,
		NewGeocoder: a.Geocoder,
	}, logger.With().Str("component", "http").Logger())
	h.Register(mux)

	return mux
}
