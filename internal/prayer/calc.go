package prayer

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrCalculationUnavailable means times cannot be computed locally
var ErrCalculationUnavailable = errors.New("local calculation unavailable")

// Calculator computes prayer times without the network
type Calculator interface {
	Compute(coords Coordinates, date time.Time, method Method) (TimeSet, error)
}

// sunset and sunrise are taken when the sun's upper limb touches the horizon, refraction included
const horizonAngle = 0.833

// Astronomical computes times from the sun's position for the calendar day of date.
// Times are reported in date's location.
type Astronomical struct{}

// Compute is deterministic in (coords, date, method).
func (Astronomical) Compute(coords Coordinates, date time.Time, method Method) (TimeSet, error) {
	if !coords.Valid() {
		return TimeSet{}, fmt.Errorf("%w: invalid coordinates %v", ErrCalculationUnavailable, coords)
	}

	y, m, d := date.Date()
	day := solarDay{
		lat: coords.Latitude,
		lng: coords.Longitude,
		jd:  julianDate(y, int(m), d) - coords.Longitude/(15*24),
	}

	// first guesses (hours) refine the sun position for each prayer
	hours := map[Prayer]float64{
		Fajr:    day.sunAngleTime(method.FajrAngle, 5, true),
		Dhuhr:   day.midDay(12),
		Asr:     day.asrTime(1, 13),
		Maghrib: day.sunAngleTime(horizonAngle, 18, false),
	}
	if method.IshaInterval > 0 {
		hours[Isha] = hours[Maghrib] + float64(method.IshaInterval)/60
	} else {
		hours[Isha] = day.sunAngleTime(method.IshaAngle, 18, false)
	}

	midnight := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	var set TimeSet
	for _, p := range Prayers {
		h := hours[p]
		if math.IsNaN(h) || math.IsInf(h, 0) {
			return TimeSet{}, fmt.Errorf("%w: no %s at latitude %.4f on %s", ErrCalculationUnavailable, p, coords.Latitude, date.Format("2006-01-02"))
		}
		// solar hours are local mean time; shift to UTC
		utc := h - coords.Longitude/15
		at := midnight.Add(time.Duration(utc * float64(time.Hour)))
		at = at.Add(time.Duration(method.Adjustments[p]) * time.Minute)
		at = at.Round(time.Minute).In(date.Location())

		v := fmt.Sprintf("%02d:%02d", at.Hour(), at.Minute())
		switch p {
		case Fajr:
			set.Fajr = v
		case Dhuhr:
			set.Dhuhr = v
		case Asr:
			set.Asr = v
		case Maghrib:
			set.Maghrib = v
		case Isha:
			set.Isha = v
		}
	}
	return set, nil
}

type solarDay struct {
	lat, lng float64
	jd       float64
}

// sunPosition returns declination (degrees) and equation of time (hours)
func sunPosition(jd float64) (decl, eqt float64) {
	D := jd - 2451545.0
	g := fixAngle(357.529 + 0.98560028*D)
	q := fixAngle(280.459 + 0.98564736*D)
	L := fixAngle(q + 1.915*dsin(g) + 0.020*dsin(2*g))
	e := 23.439 - 0.00000036*D

	ra := darctan2(dcos(e)*dsin(L), dcos(L)) / 15
	eqt = q/15 - fixHour(ra)
	decl = darcsin(dsin(e) * dsin(L))
	return decl, eqt
}

func (s solarDay) midDay(hour float64) float64 {
	_, eqt := sunPosition(s.jd + hour/24)
	return fixHour(12 - eqt)
}

// sunAngleTime is when the sun is angle degrees below the horizon, before noon when ccw
func (s solarDay) sunAngleTime(angle, hour float64, ccw bool) float64 {
	decl, _ := sunPosition(s.jd + hour/24)
	noon := s.midDay(hour)
	t := darccos((-dsin(angle)-dsin(decl)*dsin(s.lat))/(dcos(decl)*dcos(s.lat))) / 15
	if ccw {
		return noon - t
	}
	return noon + t
}

// asrTime is when an object's shadow is factor times its length plus the noon shadow
func (s solarDay) asrTime(factor, hour float64) float64 {
	decl, _ := sunPosition(s.jd + hour/24)
	angle := -darccot(factor + dtan(math.Abs(s.lat-decl)))
	return s.sunAngleTime(angle, hour, false)
}

func julianDate(year, month, day int) float64 {
	if month <= 2 {
		year--
		month += 12
	}
	a := math.Floor(float64(year) / 100)
	b := 2 - a + math.Floor(a/4)
	return math.Floor(365.25*float64(year+4716)) + math.Floor(30.6001*float64(month+1)) + float64(day) + b - 1524.5
}

func dtr(d float64) float64 { return d * math.Pi / 180 }
func rtd(r float64) float64 { return r * 180 / math.Pi }

func dsin(d float64) float64        { return math.Sin(dtr(d)) }
func dcos(d float64) float64        { return math.Cos(dtr(d)) }
func dtan(d float64) float64        { return math.Tan(dtr(d)) }
func darcsin(x float64) float64     { return rtd(math.Asin(x)) }
func darccos(x float64) float64     { return rtd(math.Acos(x)) }
func darctan2(y, x float64) float64 { return rtd(math.Atan2(y, x)) }
func darccot(x float64) float64     { return rtd(math.Atan(1 / x)) }

func fixAngle(a float64) float64 { return fix(a, 360) }
func fixHour(h float64) float64  { return fix(h, 24) }

func fix(a, b float64) float64 {
	a = a - b*math.Floor(a/b)
	if a < 0 {
		return a + b
	}
	return a
}

var _ Calculator = Astronomical{}
