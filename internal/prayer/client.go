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
	"strings"
	"time"
)

// FetchErrorKind classifies remote failures
type FetchErrorKind int

const (
	NetworkUnreachable FetchErrorKind = iota
	MalformedResponse
	NonSuccessStatus
)

func (k FetchErrorKind) String() string {
	switch k {
	case NetworkUnreachable:
		return "network unreachable"
	case MalformedResponse:
		return "malformed response"
	case NonSuccessStatus:
		return "non-success status"
	}
	return "unknown"
}

// FetchError is returned by RemoteSource implementations
type FetchError struct {
	Kind FetchErrorKind
	// Code is the status reported by the API for NonSuccessStatus.
	Code int
	Err  error
}

func (e *FetchError) Error() string {
	switch {
	case e.Kind == NonSuccessStatus:
		return fmt.Sprintf("aladhan: %s %d", e.Kind, e.Code)
	case e.Err != nil:
		return fmt.Sprintf("aladhan: %s: %v", e.Kind, e.Err)
	}
	return "aladhan: " + e.Kind.String()
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is lets errors.Is match on kind alone, e.g. errors.Is(err, &FetchError{Kind: MalformedResponse}).
func (e *FetchError) Is(target error) bool {
	t, ok := target.(*FetchError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Code == 0 || t.Code == e.Code)
}

// RemoteSource fetches authoritative times. One attempt per call.
type RemoteSource interface {
	Fetch(ctx context.Context, coords Coordinates, date time.Time, method Method) (*TimingsResponse, error)
}

// TimingsResponse represents the Aladhan /timings response
type TimingsResponse struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
	Data   struct {
		Timings struct {
			Fajr    string `json:"Fajr"`
			Sunrise string `json:"Sunrise"`
			Dhuhr   string `json:"Dhuhr"`
			Asr     string `json:"Asr"`
			Sunset  string `json:"Sunset"`
			Maghrib string `json:"Maghrib"`
			Isha    string `json:"Isha"`
		} `json:"timings"`
		Meta struct {
			Timezone string `json:"timezone"`
			Method   struct {
				ID   int    `json:"id"`
				Name string `json:"name"`
			} `json:"method"`
		} `json:"meta"`
	} `json:"data"`
}

// TimeSet converts the timings into a normalized TimeSet
func (r *TimingsResponse) TimeSet() (TimeSet, error) {
	raw := r.Data.Timings
	var set TimeSet
	fields := []struct {
		prayer Prayer
		value  string
		dst    *string
	}{
		{Fajr, raw.Fajr, &set.Fajr},
		{Dhuhr, raw.Dhuhr, &set.Dhuhr},
		{Asr, raw.Asr, &set.Asr},
		{Maghrib, raw.Maghrib, &set.Maghrib},
		{Isha, raw.Isha, &set.Isha},
	}
	for _, f := range fields {
		v, ok := normalizeClock(f.value)
		if !ok {
			return TimeSet{}, fmt.Errorf("invalid %s timing %q", f.prayer, f.value)
		}
		*f.dst = v
	}
	return set, nil
}

// Client handles Aladhan API interactions
type Client struct {
	BaseURL    string
	UserAgent  string
	HTTPClient *http.Client
}

// NewClient creates a new Aladhan API client
func NewClient(baseURL, userAgent string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "https://api.aladhan.com/v1"
	}
	if userAgent == "" {
		userAgent = "sunnybloom/1.0"
	}

	return &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		UserAgent: userAgent,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch requests the timings for the calendar day of date at coords. The day is sent
// as the Unix timestamp of local noon so the API cannot land on a neighbouring day.
func (c *Client) Fetch(ctx context.Context, coords Coordinates, date time.Time, method Method) (*TimingsResponse, error) {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(coords.Latitude, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(coords.Longitude, 'f', -1, 64))
	params.Set("method", strconv.Itoa(method.Code))
	y, m, d := date.Date()
	noon := time.Date(y, m, d, 12, 0, 0, 0, date.Location())
	requestURL := fmt.Sprintf("%s/timings/%d?%s", c.BaseURL, noon.Unix(), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, &FetchError{Kind: NetworkUnreachable, Err: err}
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: NetworkUnreachable, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Kind: NetworkUnreachable, Err: err}
	}

	var tr TimingsResponse
	if err := json.Unmarshal(data, &tr); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, &FetchError{Kind: NonSuccessStatus, Code: resp.StatusCode}
		}
		return nil, &FetchError{Kind: MalformedResponse, Err: err}
	}
	if tr.Code != http.StatusOK {
		code := tr.Code
		if code == 0 {
			code = resp.StatusCode
		}
		if code == http.StatusOK {
			return nil, &FetchError{Kind: MalformedResponse, Err: errors.New("missing code")}
		}
		return nil, &FetchError{Kind: NonSuccessStatus, Code: code}
	}
	if _, err := tr.TimeSet(); err != nil {
		return nil, &FetchError{Kind: MalformedResponse, Err: err}
	}
	return &tr, nil
}

var _ RemoteSource = (*Client)(nil)
