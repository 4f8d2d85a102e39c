// Package tzf resolves site coordinates to IANA timezones with the tzf
// polygon index.
package tzf

import (
	"fmt"
	"time"

	tzflib "github.com/ringsaturn/tzf"
)

// Locator maps coordinates to local timezones. Building the underlying
// finder parses the whole embedded dataset, so construct one Locator at
// startup and share it; lookups are cheap and safe for concurrent use.
type Locator struct {
	finder tzflib.F
}

// NewLocator builds a Locator over the default embedded timezone data.
func NewLocator() (*Locator, error) {
	finder, err := tzflib.NewDefaultFinder()
	if err != nil {
		return nil, fmt.Errorf("build timezone finder: %w", err)
	}
	return &Locator{finder: finder}, nil
}

// LocationFor returns the local *time.Location for the coordinates.
// Out-of-range coordinates are an error. A lookup with no answer, or a zone
// name the host cannot load, falls back to UTC so a drifting buoy still gets
// an assessment.
func (l *Locator) LocationFor(lat, lon float64) (*time.Location, error) {
	if lat < -90 || lat > 90 {
		return nil, fmt.Errorf("latitude %.4f out of range [-90, 90]", lat)
	}
	if lon < -180 || lon > 180 {
		return nil, fmt.Errorf("longitude %.4f out of range [-180, 180]", lon)
	}

	// tzf takes longitude first.
	name := l.finder.GetTimezoneName(lon, lat)
	if name == "" {
		return time.UTC, nil
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC, nil
	}
	return loc, nil
}
