package prayer

import (
	"fmt"
	"strings"
)

// Coordinates is a resolved location
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// FallbackCoordinates is used whenever the device location cannot be resolved (Jakarta).
var FallbackCoordinates = Coordinates{Latitude: -6.2088, Longitude: 106.8456}

// Valid reports whether c is a real point on the globe
func (c Coordinates) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

// Prayer names one of the five daily prayers
type Prayer int

const (
	Fajr Prayer = iota
	Dhuhr
	Asr
	Maghrib
	Isha
)

// Prayers is the fixed display order
var Prayers = []Prayer{Fajr, Dhuhr, Asr, Maghrib, Isha}

func (p Prayer) String() string {
	switch p {
	case Fajr:
		return "Fajr"
	case Dhuhr:
		return "Dhuhr"
	case Asr:
		return "Asr"
	case Maghrib:
		return "Maghrib"
	case Isha:
		return "Isha"
	}
	return fmt.Sprintf("Prayer(%d)", int(p))
}

// TimeSet maps each prayer to an "HH:MM" 24-hour time of day.
// The JSON field names match the remote API's timings object.
type TimeSet struct {
	Fajr    string `json:"Fajr"`
	Dhuhr   string `json:"Dhuhr"`
	Asr     string `json:"Asr"`
	Maghrib string `json:"Maghrib"`
	Isha    string `json:"Isha"`
}

// Get returns the time for p
func (s TimeSet) Get(p Prayer) string {
	switch p {
	case Fajr:
		return s.Fajr
	case Dhuhr:
		return s.Dhuhr
	case Asr:
		return s.Asr
	case Maghrib:
		return s.Maghrib
	case Isha:
		return s.Isha
	}
	return ""
}

// Complete reports whether every prayer has a time
func (s TimeSet) Complete() bool {
	for _, p := range Prayers {
		if s.Get(p) == "" {
			return false
		}
	}
	return true
}

// normalizeClock turns API values like "04:45 (WIB)" or "04:45:30" into "04:45".
func normalizeClock(raw string) (string, bool) {
	v := strings.TrimSpace(raw)
	if i := strings.IndexByte(v, ' '); i >= 0 {
		v = v[:i]
	}
	var h, m int
	if n, err := fmt.Sscanf(v, "%d:%d", &h, &m); err != nil || n != 2 {
		return "", false
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d", h, m), true
}

// Source says where a resolved TimeSet came from
type Source string

const (
	SourceNone   Source = "none"
	SourceRemote Source = "remote"
	SourceLocal  Source = "local"
	SourceCache  Source = "cache"
)

// State is the lifecycle of a resolution cycle
type State int32

const (
	StateIdle State = iota
	StateResolving
	StateResolved
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolving:
		return "resolving"
	case StateResolved:
		return "resolved"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Resolution is the outcome of one resolution cycle.
// An empty Resolution means no times are available and the caller should leave its display alone.
type Resolution struct {
	Times  TimeSet `json:"times"`
	Source Source  `json:"source"`
	State  State   `json:"-"`
}

// Empty reports whether the cycle produced nothing
func (r Resolution) Empty() bool {
	return r.Source == SourceNone || r.Source == ""
}
