package domain

import "fmt"

// bortleToNELM maps Bortle class to naked-eye limiting magnitude.
var bortleToNELM = map[int]float64{
	1: 7.6, 2: 7.1, 3: 6.6, 4: 6.1, 5: 5.6, 6: 5.1, 7: 4.6, 8: 4.1, 9: 3.6,
}

// WeatherSnapshot holds normalized hourly conditions near the observing time.
// VisibilityKm and PrecipProbPct are nil when the provider reports no value;
// the remaining fields treat absent and zero alike.
type WeatherSnapshot struct {
	CloudPct      float64  `json:"cloud_pct"`
	VisibilityKm  *float64 `json:"visibility_km"`
	TempC         float64  `json:"temp_c"`
	PrecipMMPerHr float64  `json:"precip_mm_per_hr"`
	SnowMMPerHr   float64  `json:"snow_mm_per_hr"`
	WindKph       float64  `json:"wind_kph"`
	GustKph       float64  `json:"gust_kph"`
	ThunderProb   float64  `json:"thunder_prob"`
	PrecipProbPct *float64 `json:"precip_prob_pct"`
	HourISO       string   `json:"hour_iso"`
}

// UnsafeReasons returns the hard-stop reasons that make observing pointless
// or dangerous: active precipitation or snow, sustained wind ≥ 35 km/h,
// gusts ≥ 55 km/h, visibility below 5 km (only when known), or thunderstorm
// risk. A zero gust reading falls back to the sustained wind speed. Nil and
// empty snapshots are safe.
func (w *WeatherSnapshot) UnsafeReasons() []string {
	if w == nil {
		return nil
	}

	gust := w.GustKph
	if gust == 0 {
		gust = w.WindKph
	}

	var reasons []string
	if w.PrecipMMPerHr >= 0.1 {
		reasons = append(reasons, fmt.Sprintf("precip %.1f mm/h", w.PrecipMMPerHr))
	}
	if w.SnowMMPerHr >= 0.1 {
		reasons = append(reasons, fmt.Sprintf("snow %.1f mm/h", w.SnowMMPerHr))
	}
	if w.WindKph >= 35 {
		reasons = append(reasons, fmt.Sprintf("wind %.0f km/h", w.WindKph))
	}
	if gust >= 55 {
		reasons = append(reasons, fmt.Sprintf("gusts %.0f km/h", gust))
	}
	if w.VisibilityKm != nil && *w.VisibilityKm < 5 {
		reasons = append(reasons, fmt.Sprintf("visibility %.1f km", *w.VisibilityKm))
	}
	if w.ThunderProb >= 0.3 {
		reasons = append(reasons, "thunder risk")
	}
	return reasons
}

// Summary renders a one-line conditions report for display.
func (w *WeatherSnapshot) Summary() string {
	if w == nil {
		return "Weather conditions unavailable."
	}
	gust := w.GustKph
	if gust == 0 {
		gust = w.WindKph
	}
	vis := "—"
	if w.VisibilityKm != nil {
		vis = fmt.Sprintf("%.1f km", *w.VisibilityKm)
	}
	return fmt.Sprintf(
		"Cloud cover: %.0f%%, Visibility: %s, Temp: %.1f°C, Wind: %.0f km/h (gust %.0f), Precip: %.1f mm/h, Snow: %.1f mm/h.",
		w.CloudPct, vis, w.TempC, w.WindKph, gust, w.PrecipMMPerHr, w.SnowMMPerHr,
	)
}

// ConditionsLead gives the quick-read verdict shown ahead of the summary.
// Hard stops are enforced separately by the assessment; this is display only.
func (w *WeatherSnapshot) ConditionsLead() string {
	if w == nil {
		return "Unable to fetch weather conditions."
	}
	switch {
	case w.ThunderProb >= 0.3 || w.PrecipMMPerHr >= 0.1 || w.SnowMMPerHr >= 1.0:
		return "Poor/Unsafe: Wet or stormy conditions."
	case w.CloudPct < 30 && (w.VisibilityKm == nil || *w.VisibilityKm > 10) && w.WindKph < 25:
		return "Good Conditions: Promising for stargazing."
	case w.CloudPct > 80 || (w.VisibilityKm != nil && *w.VisibilityKm < 5):
		return "Poor Conditions: Too cloudy or low visibility."
	default:
		return "Mixed Conditions: Check the sky before observing."
	}
}

// WeatherMagLimit is the limiting magnitude under cloud cover: a two
// magnitude penalty at full overcast. Cloud percentage is clamped to [0, 100].
func WeatherMagLimit(cloudPct float64) float64 {
	cloudPct = max(0.0, min(100.0, cloudPct))
	return 8.8 - 0.02*cloudPct
}

// BortleMagLimit is the limiting magnitude for the site's sky brightness.
// Class 0 (unset) falls back to Bortle 5; classes outside the table use the
// suburban NELM of 5.6. Telescopic reach is NELM + 1.8.
func BortleMagLimit(bortleClass int) float64 {
	if bortleClass == 0 {
		bortleClass = 5
	}
	nelm, ok := bortleToNELM[bortleClass]
	if !ok {
		nelm = 5.6
	}
	return nelm + 1.8
}

// WeatherLabel buckets cloud cover into the narrative's four condition labels.
func WeatherLabel(cloudPct float64) string {
	switch {
	case cloudPct < 20:
		return "Clear"
	case cloudPct < 50:
		return "Fair"
	case cloudPct < 80:
		return "Poor"
	default:
		return "Cloudy"
	}
}
