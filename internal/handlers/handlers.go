package handlers

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/swelljoe/sunnybloom/internal/prayer"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// HealthChecker is the storage dependency needed for health reporting
type HealthChecker interface {
	Check(ctx context.Context) error
}

// Options are the per-deployment settings the handlers need
type Options struct {
	Method prayer.Method
	Locale string

	// Location is the zone used when the browser does not send one.
	Location *time.Location

	// NewGeocoder builds a locator for a free-text place name; nil disables ?location=.
	NewGeocoder func(query string) prayer.Locator
}

// Handlers holds dependencies for HTTP handlers
type Handlers struct {
	store     HealthChecker
	resolver  *prayer.Resolver
	locations *prayer.LocationProvider
	opts      Options
	logger    zerolog.Logger
	now       func() time.Time
}

// New creates a new Handlers instance
func New(store HealthChecker, resolver *prayer.Resolver, locations *prayer.LocationProvider, opts Options, logger zerolog.Logger) *Handlers {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Method.Code == 0 {
		opts.Method = prayer.DefaultMethod
	}

	return &Handlers{
		store:     store,
		resolver:  resolver,
		locations: locations,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

// Register mounts every route on mux
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("/", h.HandleIndex)
	mux.HandleFunc("/health", h.HandleHealth)
	mux.HandleFunc("/prayer-times", h.HandlePrayerTimes)
	mux.HandleFunc("/api/prayer-times", h.HandlePrayerTimesAPI)
}

// HandleIndex serves the page shell; the strip is filled in by the browser
func (h *Handlers) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.ExecuteTemplate(w, "index.html", struct{ Locale string }{h.opts.Locale}); err != nil {
		h.logger.Error().Err(err).Msg("index template")
	}
}

type healthResponse struct {
	Status string `json:"status"`
}

// HandleHealth reports whether the cache store answers
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	switch {
	case h.store == nil:
		resp.Status = "no_database"
	case h.store.Check(r.Context()) != nil:
		resp.Status = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// HandlePrayerTimes renders the prayer strip fragment. With nothing to show it answers
// 204 so the page keeps whatever it already displays.
func (h *Handlers) HandlePrayerTimes(w http.ResponseWriter, r *http.Request) {
	entries, _, ok := h.resolve(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.ExecuteTemplate(w, "prayer_strip", entries); err != nil {
		h.logger.Error().Err(err).Msg("template error")
	}
}

type prayerTimesResponse struct {
	Source      prayer.Source      `json:"source"`
	Coordinates prayer.Coordinates `json:"coordinates"`
	Times       prayer.TimeSet     `json:"times"`
	Entries     []prayer.Entry     `json:"entries"`
}

// HandlePrayerTimesAPI returns the same resolution as JSON
func (h *Handlers) HandlePrayerTimesAPI(w http.ResponseWriter, r *http.Request) {
	entries, res, ok := h.resolve(w, r)
	if !ok {
		return
	}

	data, err := json.Marshal(prayerTimesResponse{
		Source:      res.resolution.Source,
		Coordinates: res.coords,
		Times:       res.resolution.Times,
		Entries:     entries,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("JSON encode error")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(data); err != nil {
		h.logger.Error().Err(err).Msg("response write error")
	}
}

type resolved struct {
	coords     prayer.Coordinates
	resolution prayer.Resolution
}

// resolve runs one cycle for the request. It writes the response itself and
// returns ok=false on bad input or an empty result.
func (h *Handlers) resolve(w http.ResponseWriter, r *http.Request) ([]prayer.Entry, resolved, bool) {
	q := r.URL.Query()

	locator, err := h.locatorFor(q.Get("location"), q.Get("lat"), q.Get("lon"))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(err.Error()))
		return nil, resolved{}, false
	}

	method := h.opts.Method
	if m := q.Get("method"); m != "" {
		code, err := strconv.Atoi(m)
		if err == nil {
			method, err = prayer.MethodByCode(code)
		}
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("invalid method"))
			return nil, resolved{}, false
		}
	}

	loc := h.opts.Location
	if tz := q.Get("tz"); tz != "" {
		zone, err := time.LoadLocation(tz)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("invalid tz"))
			return nil, resolved{}, false
		}
		loc = zone
	}

	coords := h.locations.Resolve(r.Context(), locator)
	// times are reported on the clock of the caller's zone
	today := h.now().In(loc)
	res := h.resolver.Resolve(r.Context(), coords, today, method)
	if res.Empty() {
		w.WriteHeader(http.StatusNoContent)
		return nil, resolved{}, false
	}

	locale := q.Get("locale")
	if locale == "" {
		locale = r.Header.Get("Accept-Language")
	}
	if locale == "" {
		locale = h.opts.Locale
	}
	return prayer.Format(res.Times, locale), resolved{coords: coords, resolution: res}, true
}

type badRequest string

func (e badRequest) Error() string { return string(e) }

func (h *Handlers) locatorFor(location, latStr, lonStr string) (prayer.Locator, error) {
	switch {
	case location != "":
		if h.opts.NewGeocoder == nil {
			return nil, badRequest("location search is not available")
		}
		return h.opts.NewGeocoder(location), nil
	case latStr != "" || lonStr != "":
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return nil, badRequest("invalid latitude")
		}
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			return nil, badRequest("invalid longitude")
		}
		return prayer.StaticLocator(prayer.Coordinates{Latitude: lat, Longitude: lon}), nil
	}
	// the browser did not share a position: fall back
	return nil, nil
}
