package domain

import (
	"fmt"
	"math"
)

// phaseNames indexes phase labels by phase index (0=new … 7=waning crescent).
var phaseNames = [8]string{
	"New Moon", "Waxing Crescent", "First Quarter", "Waxing Gibbous",
	"Full Moon", "Waning Gibbous", "Last Quarter", "Waning Crescent",
}

// compassDirs is the 16-point compass rose, clockwise from north.
var compassDirs = [16]string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// MoonState is the Moon's position and phase at one instant, as seen from
// the observing site.
type MoonState struct {
	RADeg         float64 `json:"ra_deg"`
	DecDeg        float64 `json:"dec_deg"`
	AltDeg        float64 `json:"alt_deg"`
	AzDeg         float64 `json:"az_deg"`
	Illum         float64 `json:"illum"`
	PhaseAngleDeg float64 `json:"phase_angle_deg"`
	PhaseIdx      int     `json:"phase_idx"`
}

// PhaseName returns the display label for the Moon's phase.
func (m MoonState) PhaseName() string {
	if m.PhaseIdx < 0 || m.PhaseIdx >= len(phaseNames) {
		return phaseNames[0]
	}
	return phaseNames[m.PhaseIdx]
}

// SepMin is the minimum tolerable separation from the Moon in degrees,
// scaling linearly from 20° at new moon to 45° at full.
func (m MoonState) SepMin() float64 {
	return 20.0 + 25.0*m.Illum
}

// Up reports whether the Moon is above the horizon.
func (m MoonState) Up() bool {
	return m.AltDeg > 0.0
}

// PhaseIndex maps a phase angle in degrees (0=new, 180=full, sun-referenced
// elongation) to a phase index 0–7.
func PhaseIndex(deg float64) int {
	deg = math.Mod(deg, 360.0)
	if deg < 0 {
		deg += 360.0
	}
	switch {
	case deg < 22.5 || deg >= 337.5:
		return 0 // new
	case deg < 67.5:
		return 1 // waxing crescent
	case deg < 112.5:
		return 2 // first quarter
	case deg < 157.5:
		return 3 // waxing gibbous
	case deg < 202.5:
		return 4 // full
	case deg < 247.5:
		return 5 // waning gibbous
	case deg < 292.5:
		return 6 // last quarter
	default:
		return 7 // waning crescent
	}
}

// AngularSeparation is the great-circle separation in degrees between two
// equatorial positions given in degrees.
func AngularSeparation(ra1Deg, dec1Deg, ra2Deg, dec2Deg float64) float64 {
	r1 := ra1Deg * math.Pi / 180
	d1 := dec1Deg * math.Pi / 180
	r2 := ra2Deg * math.Pi / 180
	d2 := dec2Deg * math.Pi / 180
	cosSep := math.Sin(d1)*math.Sin(d2) + math.Cos(d1)*math.Cos(d2)*math.Cos(r1-r2)
	return math.Acos(max(-1.0, min(1.0, cosSep))) * 180 / math.Pi
}

// Compass16 converts an azimuth in degrees to a 16-point compass direction.
func Compass16(az float64) string {
	idx := int(math.Floor((az+11.25)/22.5)) % 16
	if idx < 0 {
		idx += 16
	}
	return compassDirs[idx]
}

// MoonNarrative renders the observing guidance for the Moon: illumination,
// position in the sky, glare strength, and the separation rule in effect.
func MoonNarrative(m *MoonState) string {
	if m == nil {
		return "Moon data unavailable."
	}

	illumPct := int(math.Round(m.Illum * 100))
	dir := Compass16(m.AzDeg)

	var glare string
	switch {
	case illumPct < 20:
		glare = "minimal"
	case illumPct < 50:
		glare = "moderate"
	case illumPct < 80:
		glare = "strong"
	default:
		glare = "very strong"
	}

	var pos string
	switch {
	case m.AltDeg < 0:
		pos = "below the horizon toward " + dir
	case m.AltDeg < 15:
		pos = "very low in the " + dir
	case m.AltDeg < 30:
		pos = "low in the " + dir
	case m.AltDeg < 55:
		pos = "mid-height in the " + dir
	default:
		pos = "high in the " + dir
	}

	sepMin := int(math.Round(m.SepMin()))

	return fmt.Sprintf(
		"%d%% illuminated.\nAt 9:00 PM it's %s (%.0f° alt, az %.0f°, %s).\nMoon glare: %s. Avoid DSOs within ~%d° of the Moon.",
		illumPct, pos, m.AltDeg, m.AzDeg, dir, glare, sepMin,
	)
}
