package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/swelljoe/sunnybloom/internal/db"
	"github.com/swelljoe/sunnybloom/internal/prayer"
)

type memoryKV map[string]string

func (m memoryKV) Get(_ context.Context, key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", db.ErrNotFound
	}
	return v, nil
}

func (m memoryKV) Set(_ context.Context, key, value string) error {
	m[key] = value
	return nil
}

type fakeStore struct{ err error }

func (f fakeStore) Check(context.Context) error { return f.err }

const aladhanBody = `{"code":200,"status":"OK","data":{"timings":{"Fajr":"04:45","Dhuhr":"12:03","Asr":"15:24","Maghrib":"18:05","Isha":"19:15"}}}`

type requestLog struct {
	mu   sync.Mutex
	seen []string
}

func (l *requestLog) add(q string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen = append(l.seen, q)
}

func (l *requestLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.seen...)
}

// newTestHandlers wires a resolver against a fake Aladhan server
func newTestHandlers(t *testing.T, online bool, body string) (*Handlers, *requestLog) {
	t.Helper()

	requests := &requestLog{}
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.add(r.URL.RawQuery)
		if body == "" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(api.Close)

	client := prayer.NewClient(api.URL, "test-agent", time.Second)
	resolver := prayer.NewResolver(prayer.StaticConnectivity(online), client, prayer.NewCache(memoryKV{}))
	locations := prayer.NewLocationProvider(prayer.FallbackCoordinates, time.Second, zerolog.Nop())

	h := New(fakeStore{}, resolver, locations, Options{Locale: "id"}, zerolog.Nop())
	return h, requests
}

func TestHandleHealth(t *testing.T) {
	tests := []struct {
		name  string
		store HealthChecker
		want  string
	}{
		{name: "ok", store: fakeStore{}, want: "ok"},
		{name: "degraded", store: fakeStore{err: errors.New("down")}, want: "degraded"},
		{name: "no database", store: nil, want: "no_database"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(tt.store, nil, nil, Options{}, zerolog.Nop())

			req := httptest.NewRequest("GET", "/health", nil)
			w := httptest.NewRecorder()
			h.HandleHealth(w, req)

			resp := w.Result()
			if resp.StatusCode != http.StatusOK {
				t.Errorf("expected status OK, got %v", resp.StatusCode)
			}
			if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected Content-Type application/json, got %v", ct)
			}
			var body healthResponse
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Status != tt.want {
				t.Errorf("expected status %q, got %q", tt.want, body.Status)
			}
		})
	}
}

func TestTemplates(t *testing.T) {
	for _, name := range []string{"index.html", "prayer_strip"} {
		if templates.Lookup(name) == nil {
			t.Errorf("expected embedded template %q", name)
		}
	}
}

func TestHandleIndex(t *testing.T) {
	h := New(nil, nil, nil, Options{Locale: "id"}, zerolog.Nop())

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()

	h.HandleIndex(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status OK, got %v", resp.StatusCode)
	}
	body := w.Body.String()
	if !strings.Contains(body, `id="prayer-times-strip"`) {
		t.Error("expected the prayer strip container in the index page")
	}
	if !strings.Contains(body, "resolvedOptions().timeZone") {
		t.Error("expected the page to send the browser time zone")
	}
}

func TestHandleIndexNotFound(t *testing.T) {
	h := New(nil, nil, nil, Options{}, zerolog.Nop())

	req := httptest.NewRequest("GET", "/notfound", nil)
	w := httptest.NewRecorder()

	h.HandleIndex(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected status NotFound, got %v", resp.StatusCode)
	}
}

func TestHandlePrayerTimes_RendersStrip(t *testing.T) {
	h, requests := newTestHandlers(t, true, aladhanBody)

	req := httptest.NewRequest("GET", "/prayer-times?lat=-6.9175&lon=107.6191", nil)
	w := httptest.NewRecorder()
	h.HandlePrayerTimes(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status OK, got %v", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"Subuh", "04:45", "Dhuhr", "12:03", "Asr", "15:24", "Maghrib", "18:05", "Isha", "19:15"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in fragment:\n%s", want, body)
		}
	}
	if n := strings.Count(body, "text-primary"); n != 1 {
		t.Errorf("expected exactly one highlighted time, got %d", n)
	}
	if !strings.Contains(body, `data-prayer="Maghrib"`) {
		t.Errorf("expected data-prayer attributes in fragment:\n%s", body)
	}

	if got := requests.all(); len(got) != 1 || !strings.Contains(got[0], "latitude=-6.9175") {
		t.Errorf("expected browser coordinates to reach the API, got %v", got)
	}
}

func TestHandlePrayerTimes_FallbackCoordinates(t *testing.T) {
	h, requests := newTestHandlers(t, true, aladhanBody)

	req := httptest.NewRequest("GET", "/prayer-times", nil)
	w := httptest.NewRecorder()
	h.HandlePrayerTimes(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status OK, got %v", w.Code)
	}
	got := requests.all()
	if len(got) != 1 || !strings.Contains(got[0], "latitude=-6.2088") || !strings.Contains(got[0], "longitude=106.8456") {
		t.Errorf("expected fallback coordinates, got %v", got)
	}
}

func TestHandlePrayerTimes_EmptyIsNoContent(t *testing.T) {
	h, _ := newTestHandlers(t, true, "")

	req := httptest.NewRequest("GET", "/prayer-times", nil)
	w := httptest.NewRecorder()
	h.HandlePrayerTimes(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204 No Content, got %v", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("expected empty body, got %q", w.Body.String())
	}
}

func TestHandlePrayerTimes_BadInput(t *testing.T) {
	h, requests := newTestHandlers(t, true, aladhanBody)

	for _, target := range []string{
		"/prayer-times?lat=abc&lon=106",
		"/prayer-times?lat=-6&lon=",
		"/prayer-times?method=99",
		"/prayer-times?location=Bandung",
		"/prayer-times?tz=Mars/Olympus_Mons",
	} {
		t.Run(target, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.HandlePrayerTimes(w, httptest.NewRequest("GET", target, nil))
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %v", w.Code)
			}
		})
	}
	if got := requests.all(); len(got) != 0 {
		t.Errorf("expected no API calls on bad input, got %v", got)
	}
}

func TestHandlePrayerTimesAPI(t *testing.T) {
	h, _ := newTestHandlers(t, true, aladhanBody)

	req := httptest.NewRequest("GET", "/api/prayer-times?locale=en", nil)
	w := httptest.NewRecorder()
	h.HandlePrayerTimesAPI(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status OK, got %v", w.Code)
	}

	var resp struct {
		Source  string            `json:"source"`
		Times   map[string]string `json:"times"`
		Entries []struct {
			Label     string `json:"label"`
			Value     string `json:"value"`
			Highlight bool   `json:"highlight"`
		} `json:"entries"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Source != "remote" {
		t.Errorf("expected remote source, got %q", resp.Source)
	}
	if resp.Times["Fajr"] != "04:45" {
		t.Errorf("expected Fajr 04:45, got %q", resp.Times["Fajr"])
	}
	if len(resp.Entries) != 5 || resp.Entries[0].Label != "Fajr" || !resp.Entries[3].Highlight {
		t.Errorf("unexpected entries %+v", resp.Entries)
	}
}

func TestHandlePrayerTimesAPI_OfflineComputesLocally(t *testing.T) {
	requests := &requestLog{}
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.add(r.URL.RawQuery)
	}))
	defer api.Close()

	resolver := prayer.NewResolver(
		prayer.StaticConnectivity(false),
		prayer.NewClient(api.URL, "", time.Second),
		prayer.NewCache(memoryKV{}),
		prayer.WithCalculator(prayer.Astronomical{}),
	)
	locations := prayer.NewLocationProvider(prayer.FallbackCoordinates, time.Second, zerolog.Nop())
	h := New(fakeStore{}, resolver, locations, Options{Locale: "id"}, zerolog.Nop())

	w := httptest.NewRecorder()
	h.HandlePrayerTimesAPI(w, httptest.NewRequest("GET", "/api/prayer-times", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status OK, got %v", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"source":"local"`) {
		t.Errorf("expected local source, got %s", w.Body.String())
	}
	if got := requests.all(); len(got) != 0 {
		t.Errorf("expected no API calls while offline, got %v", got)
	}
}

// newLocalHandlers computes times offline for a fixed instant, with Jakarta
// as the deployment zone.
func newLocalHandlers(t *testing.T, now time.Time) *Handlers {
	t.Helper()

	jakarta, err := time.LoadLocation("Asia/Jakarta")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	resolver := prayer.NewResolver(
		prayer.StaticConnectivity(false),
		nil,
		prayer.NewCache(memoryKV{}),
		prayer.WithCalculator(prayer.Astronomical{}),
	)
	locations := prayer.NewLocationProvider(prayer.FallbackCoordinates, time.Second, zerolog.Nop())
	h := New(fakeStore{}, resolver, locations, Options{Location: jakarta, Locale: "en"}, zerolog.Nop())
	h.now = func() time.Time { return now }
	return h
}

func decodeTimes(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()

	if w.Code != http.StatusOK {
		t.Fatalf("expected status OK, got %v: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Times map[string]string `json:"times"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp.Times
}

func TestHandlePrayerTimesAPI_BrowserZone(t *testing.T) {
	h := newLocalHandlers(t, time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))

	w := httptest.NewRecorder()
	h.HandlePrayerTimesAPI(w, httptest.NewRequest("GET", "/api/prayer-times?lat=51.5074&lon=-0.1278&tz=Europe/London", nil))
	times := decodeTimes(t, w)

	// London on its own clock, not shifted to Jakarta (which would put Maghrib at 01:06)
	if times["Asr"] != "15:21" || times["Maghrib"] != "18:06" {
		t.Errorf("expected London clock times, got %v", times)
	}
	if !strings.HasPrefix(times["Dhuhr"], "12:") {
		t.Errorf("expected Dhuhr around midday, got %q", times["Dhuhr"])
	}
}

func TestHandlePrayerTimesAPI_DefaultZone(t *testing.T) {
	h := newLocalHandlers(t, time.Date(2024, 3, 15, 2, 0, 0, 0, time.UTC))

	w := httptest.NewRecorder()
	h.HandlePrayerTimesAPI(w, httptest.NewRequest("GET", "/api/prayer-times", nil))
	times := decodeTimes(t, w)

	want := map[string]string{"Fajr": "04:40", "Dhuhr": "12:02", "Asr": "15:09", "Maghrib": "18:06", "Isha": "19:15"}
	for k, v := range want {
		if times[k] != v {
			t.Errorf("%s: expected %s, got %s", k, v, times[k])
		}
	}
}

func TestHandlePrayerTimesAPI_ZoneSelectsDay(t *testing.T) {
	// 23:30 UTC on the 14th is already the 15th in Jakarta
	h := newLocalHandlers(t, time.Date(2024, 3, 14, 23, 30, 0, 0, time.UTC))

	w := httptest.NewRecorder()
	h.HandlePrayerTimesAPI(w, httptest.NewRequest("GET", "/api/prayer-times?tz=Asia/Jakarta", nil))
	times := decodeTimes(t, w)

	if times["Fajr"] != "04:40" || times["Maghrib"] != "18:06" {
		t.Errorf("expected the Jakarta day of 2024-03-15, got %v", times)
	}
}

func TestRegister(t *testing.T) {
	h, _ := newTestHandlers(t, true, aladhanBody)
	mux := http.NewServeMux()
	h.Register(mux)

	for _, path := range []string{"/", "/health", "/prayer-times", "/api/prayer-times"} {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("GET %s: expected 200, got %v", path, w.Code)
		}
	}
}
