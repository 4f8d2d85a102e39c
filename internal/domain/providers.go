package domain

import (
	"context"
	"time"
)

// Ephemeris computes apparent sky positions for the observing site.
type Ephemeris interface {
	// AltAz converts J2000 equatorial coordinates in degrees to local
	// altitude and azimuth (degrees east of true north) at the given instant.
	AltAz(raDeg, decDeg, lat, lon float64, when time.Time) (altDeg, azDeg float64)

	// MoonState returns the Moon's position and phase for the site.
	MoonState(lat, lon float64, when time.Time) MoonState
}

// SunEphemeris reports the Sun's altitude for darkness checks. Assessments
// run without one treat every evening hour as dark.
type SunEphemeris interface {
	SunAltitude(lat, lon float64, when time.Time) float64
}

// ZoneLocator resolves coordinates to the local timezone.
type ZoneLocator interface {
	LocationFor(lat, lon float64) (*time.Location, error)
}

// WeatherProvider fetches the observing-hour weather snapshot for a site.
type WeatherProvider interface {
	NightWeather(ctx context.Context, lat, lon float64, when time.Time) (WeatherSnapshot, error)
}
