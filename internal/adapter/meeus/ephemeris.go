// Package meeus computes sky positions with the Meeus astronomical
// algorithms. Positions are geocentric (no topocentric parallax), which is
// well inside the tolerance of the fixed altitude and separation thresholds
// used by the assessment.
package meeus

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/base"
	"github.com/soniakeys/meeus/v3/coord"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/moonillum"
	"github.com/soniakeys/meeus/v3/moonposition"
	"github.com/soniakeys/meeus/v3/nutation"
	"github.com/soniakeys/meeus/v3/sidereal"
	"github.com/soniakeys/meeus/v3/solar"
	"github.com/soniakeys/unit"

	"github.com/couchcryptid/night-sky-guidance-service/internal/domain"
)

// Ephemeris implements domain.Ephemeris and domain.SunEphemeris. It is
// stateless and safe for concurrent use.
type Ephemeris struct{}

// New returns a ready Ephemeris.
func New() *Ephemeris {
	return &Ephemeris{}
}

// AltAz converts J2000 equatorial coordinates in degrees to local altitude
// and compass azimuth at the given instant.
func (e *Ephemeris) AltAz(raDeg, decDeg, lat, lon float64, when time.Time) (float64, float64) {
	jd := julian.TimeToJD(when.UTC())
	return altAz(unit.RAFromDeg(raDeg), unit.AngleFromDeg(decDeg), lat, lon, jd)
}

// MoonState returns the Moon's apparent position and phase for the site.
// The phase angle follows the waxing convention: 0° new, 90° first quarter,
// 180° full, 270° last quarter.
func (e *Ephemeris) MoonState(lat, lon float64, when time.Time) domain.MoonState {
	jd := julian.TimeToJD(when.UTC())

	λ, β, _ := moonposition.Position(jd)
	Δψ, Δε := nutation.Nutation(jd)
	λ += Δψ // mean → apparent longitude

	ε := nutation.MeanObliquity(jd) + Δε
	sε, cε := math.Sincos(ε.Rad())
	α, δ := coord.EclToEq(λ, β, sε, cε)

	alt, az := altAz(α, δ, lat, lon, jd)

	λ0 := solar.ApparentLongitude(base.J2000Century(jd))
	illum := base.Illuminated(moonillum.PhaseAngleEcl2(λ, β, λ0))

	// Elongation east of the Sun, so the angle itself encodes waxing vs
	// waning and feeds straight into the phase bins.
	phase := math.Mod(λ.Deg()-λ0.Deg(), 360.0)
	if phase < 0 {
		phase += 360.0
	}

	return domain.MoonState{
		RADeg:         unit.Angle(α).Deg(),
		DecDeg:        δ.Deg(),
		AltDeg:        alt,
		AzDeg:         az,
		Illum:         illum,
		PhaseAngleDeg: phase,
		PhaseIdx:      domain.PhaseIndex(phase),
	}
}

// SunAltitude returns the Sun's altitude in degrees for the site.
func (e *Ephemeris) SunAltitude(lat, lon float64, when time.Time) float64 {
	jd := julian.TimeToJD(when.UTC())
	α, δ := solar.ApparentEquatorial(jd)
	alt, _ := altAz(α, δ, lat, lon, jd)
	return alt
}

// altAz converts equatorial coordinates to local horizontal ones. Meeus
// takes the observer longitude positive west and measures azimuth westward
// from South, so the east-positive site longitude is negated and the azimuth
// rotated 180° back to compass convention.
func altAz(α unit.RA, δ unit.Angle, lat, lon, jd float64) (altDeg, azDeg float64) {
	st := sidereal.Apparent(jd)
	A, h := coord.EqToHz(α, δ, unit.AngleFromDeg(lat), unit.AngleFromDeg(-lon), st)

	az := math.Mod(A.Deg()+180.0, 360.0)
	if az < 0 {
		az += 360.0
	}
	return h.Deg(), az
}
