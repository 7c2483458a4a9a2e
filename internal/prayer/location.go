package prayer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// ErrLocationUnavailable is returned by a Locator that cannot produce coordinates
var ErrLocationUnavailable = errors.New("location unavailable")

// Locator produces device coordinates
type Locator interface {
	Locate(ctx context.Context) (Coordinates, error)
}

// StaticLocator returns coordinates already known to the caller, e.g. from the browser's geolocation.
type StaticLocator Coordinates

func (s StaticLocator) Locate(context.Context) (Coordinates, error) {
	return Coordinates(s), nil
}

// LocationProvider resolves coordinates and never fails
type LocationProvider struct {
	Fallback Coordinates
	Timeout  time.Duration
	logger   zerolog.Logger
}

// NewLocationProvider bounds every lookup by timeout and answers fallback on any failure
func NewLocationProvider(fallback Coordinates, timeout time.Duration, logger zerolog.Logger) *LocationProvider {
	return &LocationProvider{Fallback: fallback, Timeout: timeout, logger: logger}
}

// Resolve asks locator for coordinates. A nil locator means no geolocation capability.
func (p *LocationProvider) Resolve(ctx context.Context, locator Locator) Coordinates {
	if locator == nil {
		p.logger.Debug().Msg("no geolocation capability, using fallback coordinates")
		return p.Fallback
	}

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	coords, err := locator.Locate(ctx)
	if err == nil && !coords.Valid() {
		err = fmt.Errorf("%w: out of range %v", ErrLocationUnavailable, coords)
	}
	if err != nil {
		p.logger.Warn().Err(err).Msg("geolocation failed, using fallback coordinates")
		return p.Fallback
	}
	return coords
}

// IPLocator geolocates the host through an ip-api.com style JSON service
type IPLocator struct {
	URL        string
	UserAgent  string
	HTTPClient *http.Client
}

type ipLocation struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

func (l *IPLocator) Locate(ctx context.Context) (Coordinates, error) {
	var loc ipLocation
	if err := getJSON(ctx, l.HTTPClient, l.UserAgent, l.URL, &loc); err != nil {
		return Coordinates{}, fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
	}
	if loc.Status != "success" {
		return Coordinates{}, fmt.Errorf("%w: %s %s", ErrLocationUnavailable, loc.Status, loc.Message)
	}
	return Coordinates{Latitude: loc.Lat, Longitude: loc.Lon}, nil
}

// GeocodeLocator resolves a free-text place name using OpenStreetMap Nominatim
type GeocodeLocator struct {
	Query      string
	BaseURL    string
	UserAgent  string
	HTTPClient *http.Client
}

// GeocodeResponse represents Nominatim response
type GeocodeResponse []struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func (g *GeocodeLocator) Locate(ctx context.Context) (Coordinates, error) {
	baseURL := g.BaseURL
	if baseURL == "" {
		baseURL = "https://nominatim.openstreetmap.org/search"
	}
	params := url.Values{}
	params.Set("q", g.Query)
	params.Set("format", "json")
	params.Set("limit", "1")

	var resp GeocodeResponse
	if err := getJSON(ctx, g.HTTPClient, g.UserAgent, baseURL+"?"+params.Encode(), &resp); err != nil {
		return Coordinates{}, fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
	}
	if len(resp) == 0 {
		return Coordinates{}, fmt.Errorf("%w: %q not found", ErrLocationUnavailable, g.Query)
	}

	lat, err := strconv.ParseFloat(resp[0].Lat, 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("%w: bad latitude %q", ErrLocationUnavailable, resp[0].Lat)
	}
	lon, err := strconv.ParseFloat(resp[0].Lon, 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("%w: bad longitude %q", ErrLocationUnavailable, resp[0].Lon)
	}
	return Coordinates{Latitude: lat, Longitude: lon}, nil
}

func getJSON(ctx context.Context, client *http.Client, userAgent, rawURL string, v any) error {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
