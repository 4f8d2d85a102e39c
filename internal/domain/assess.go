package domain

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Evening scan window, local hours inclusive.
const (
	eveningStartHour = 20
	eveningEndHour   = 23
)

// twilightLimitDeg is the Sun altitude above which an hour is still too
// bright to observe. −12° is nautical darkness; use −18° for astro-dark.
const twilightLimitDeg = -12.0

const (
	defaultTopN   = 5
	defaultMinAlt = 25.0
)

// Disposition names the single stage at which an object left the assessment,
// or "survivor" when it was scored and ranked.
type Disposition string

const (
	DispositionSeen     Disposition = "seen"
	DispositionWeather  Disposition = "weather"
	DispositionBortle   Disposition = "bortle"
	DispositionAltitude Disposition = "altitude"
	DispositionMoon     Disposition = "moon"
	DispositionSurvivor Disposition = "survivor"
)

// TargetOutcome records the disposition of one pooled catalog object. Every
// pooled object appears exactly once, which is what makes the per-stage
// counts add up.
type TargetOutcome struct {
	Number      int         `json:"number"`
	Disposition Disposition `json:"disposition"`
}

// StageReport is one line of the filtering narrative.
type StageReport struct {
	Stage     string `json:"stage"`
	Removed   int    `json:"removed"`
	Remaining int    `json:"remaining"`
	Detail    string `json:"detail"`
}

// ScoredTarget is a ranked survivor carrying the sky geometry of its best
// evening hour.
type ScoredTarget struct {
	Number        int       `json:"number"`
	Name          string    `json:"name"`
	Type          string    `json:"type"`
	Constellation string    `json:"constellation"`
	Magnitude     *float64  `json:"magnitude"`
	AltDeg        float64   `json:"alt_deg"`
	AzDeg         float64   `json:"az_deg"`
	MoonSepDeg    float64   `json:"moon_sep_deg"`
	MoonUp        bool      `json:"moon_up"`
	MoonAltDeg    float64   `json:"moon_alt_deg"`
	Score         float64   `json:"score"`
	When          time.Time `json:"when"`
}

// AssessmentResult is the full outcome of one assessment: the ranked targets
// plus the stage-by-stage narrative of what was filtered and why.
type AssessmentResult struct {
	ReferenceTime time.Time       `json:"reference_time"`
	Timezone      string          `json:"timezone"`
	PoolSize      int             `json:"pool_size"`
	WeatherUnsafe bool            `json:"weather_unsafe"`
	Stages        []StageReport   `json:"stages"`
	RankedTargets []ScoredTarget  `json:"ranked_targets"`
	Moon          MoonState       `json:"moon"`
	Outcomes      []TargetOutcome `json:"outcomes,omitempty"`
}

// AssessParams are the inputs for one site-and-night assessment. Zero TopN
// and MinAlt take the defaults (5 targets, 25°); a zero ObsDate means
// tonight at the site; a nil Weather snapshot disables the hard stop and
// leaves only the cloud-cover faintness gate.
type AssessParams struct {
	Catalog     []CatalogObject
	Lat         float64
	Lon         float64
	CloudPct    float64
	BortleClass int
	Seen        any
	TopN        int
	MinAlt      float64
	Weather     *WeatherSnapshot
	ObsDate     time.Time

	// DisableWeatherHardStop ranks targets even in hard-stop weather,
	// for planning ahead of a clearing forecast.
	DisableWeatherHardStop bool
}

// Engine runs target assessments against injected sky providers. It does no
// I/O of its own and is safe for concurrent use. When the Ephemeris also
// implements SunEphemeris, evening hours still in twilight are skipped;
// otherwise every hour counts as dark.
type Engine struct {
	eph   Ephemeris
	zones ZoneLocator
}

// NewEngine creates an Engine with the given providers.
func NewEngine(eph Ephemeris, zones ZoneLocator) *Engine {
	return &Engine{eph: eph, zones: zones}
}

// ValidateCoordinates checks that a latitude/longitude pair is on Earth.
func ValidateCoordinates(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude %.4f out of range [-90, 90]", lat)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("longitude %.4f out of range [-180, 180]", lon)
	}
	return nil
}

// ReferenceEvening resolves the 21:00 local instant an assessment at the
// given coordinates would be anchored to: tonight at the site, or the
// evening of obsDate when it is nonzero.
func (e *Engine) ReferenceEvening(lat, lon float64, obsDate time.Time) time.Time {
	loc, err := e.zones.LocationFor(lat, lon)
	if err != nil || loc == nil {
		loc = time.UTC
	}
	return referenceTime(obsDate, loc)
}

// Assess filters and ranks the catalog for one site and night. It errors
// only on out-of-range coordinates; every other degraded input (missing
// weather, unknown zone, empty catalog) yields a well-formed result.
func (e *Engine) Assess(p AssessParams) (AssessmentResult, error) {
	if err := ValidateCoordinates(p.Lat, p.Lon); err != nil {
		return AssessmentResult{}, err
	}

	topN := p.TopN
	if topN <= 0 {
		topN = defaultTopN
	}
	minAlt := p.MinAlt
	if minAlt <= 0 {
		minAlt = defaultMinAlt
	}

	loc, err := e.zones.LocationFor(p.Lat, p.Lon)
	if err != nil || loc == nil {
		loc = time.UTC
	}
	ref := referenceTime(p.ObsDate, loc)
	moon := e.eph.MoonState(p.Lat, p.Lon, ref)

	pool := make([]CatalogObject, 0, len(p.Catalog))
	for _, o := range p.Catalog {
		if !strings.EqualFold(o.Catalog, "M") || o.Number <= 0 {
			continue
		}
		pool = append(pool, o)
	}

	res := AssessmentResult{
		ReferenceTime: ref,
		Timezone:      loc.String(),
		PoolSize:      len(pool),
		Moon:          moon,
		RankedTargets: []ScoredTarget{},
	}

	if !p.DisableWeatherHardStop {
		if reasons := p.Weather.UnsafeReasons(); len(reasons) > 0 {
			res.WeatherUnsafe = true
			res.Stages = []StageReport{{
				Stage:     "weather_unsafe",
				Removed:   len(pool),
				Remaining: 0,
				Detail:    strings.Join(reasons, "; "),
			}}
			return res, nil
		}
	}

	seen := CoerceSeen(p.Seen)
	wLimit := WeatherMagLimit(p.CloudPct)
	bLimit := BortleMagLimit(p.BortleClass)
	sepMin := moon.SepMin()

	outcomes := make([]TargetOutcome, 0, len(pool))
	survivors := []ScoredTarget{}

	for _, o := range pool {
		var disp Disposition
		switch {
		case hasSeen(seen, o.Number):
			disp = DispositionSeen
		case filterMag(o.Magnitude) > wLimit:
			disp = DispositionWeather
		case filterMag(o.Magnitude) > bLimit:
			disp = DispositionBortle
		default:
			var best ScoredTarget
			best, disp = e.scanEvening(o, p.Lat, p.Lon, ref, loc, minAlt, sepMin)
			if disp == DispositionSurvivor {
				survivors = append(survivors, best)
			}
		}
		outcomes = append(outcomes, TargetOutcome{Number: o.Number, Disposition: disp})
	}

	// Stable sort keeps catalog order for equal scores.
	sort.SliceStable(survivors, func(i, j int) bool {
		return survivors[i].Score > survivors[j].Score
	})
	if len(survivors) > topN {
		survivors = survivors[:topN]
	}

	res.RankedTargets = survivors
	res.Outcomes = outcomes
	res.Stages = buildStages(outcomes, len(pool), p.CloudPct, wLimit, p.BortleClass, bLimit, minAlt, moon)
	return res, nil
}

// scanEvening finds the best passing hour for one object, or the disposition
// that removed it. Gates run in order per hour: darkness, then altitude,
// then Moon proximity. An object only counts as "had altitude" for hours
// that were dark enough, so a target lost to twilight buckets as altitude.
func (e *Engine) scanEvening(o CatalogObject, lat, lon float64, ref time.Time, loc *time.Location, minAlt, sepMin float64) (ScoredTarget, Disposition) {
	sun, hasSun := e.eph.(SunEphemeris)

	var (
		best      ScoredTarget
		hadAlt    bool
		passedAny bool
	)

	y, m, d := ref.Date()
	for h := eveningStartHour; h <= eveningEndHour; h++ {
		when := time.Date(y, m, d, h, 0, 0, 0, loc)

		if hasSun && sun.SunAltitude(lat, lon, when) > twilightLimitDeg {
			continue
		}

		alt, az := e.eph.AltAz(o.RADeg, o.DecDeg, lat, lon, when)
		if alt < minAlt {
			continue
		}
		hadAlt = true

		hm := e.eph.MoonState(lat, lon, when)
		sep := AngularSeparation(hm.RADeg, hm.DecDeg, o.RADeg, o.DecDeg)
		if hm.Up() && sep < sepMin {
			continue
		}

		score := ScoreTarget(alt, o.Magnitude) - 0.4*MoonPenalty(sep, hm.Illum, hm.Up())
		if !passedAny || score > best.Score {
			best = ScoredTarget{
				Number:        o.Number,
				Name:          o.Name,
				Type:          o.Type,
				Constellation: o.Constellation,
				Magnitude:     o.Magnitude,
				AltDeg:        alt,
				AzDeg:         az,
				MoonSepDeg:    sep,
				MoonUp:        hm.Up(),
				MoonAltDeg:    hm.AltDeg,
				Score:         score,
				When:          when,
			}
		}
		passedAny = true
	}

	if !hadAlt {
		return ScoredTarget{}, DispositionAltitude
	}
	if !passedAny {
		return ScoredTarget{}, DispositionMoon
	}
	if best.Type == "" {
		best.Type = "Deep-Sky Object"
	}
	if best.Constellation == "" {
		best.Constellation = "—"
	}
	return best, DispositionSurvivor
}

// ScoreTarget scores a target at the given altitude: higher is better,
// altitude boosts, faintness penalizes. Unknown magnitude scores as 12.0.
func ScoreTarget(altDeg float64, mag *float64) float64 {
	magVal := 12.0
	if mag != nil {
		magVal = *mag
	}
	return max(0.0, altDeg)/90.0 - 0.02*magVal
}

// MoonPenalty is the glare penalty for a target at the given separation from
// a Moon of the given illumination: 0 beyond 45° or with the Moon down,
// rising linearly to the full illumination fraction at 0° separation.
func MoonPenalty(sepDeg, illum float64, moonUp bool) float64 {
	if !moonUp {
		return 0.0
	}
	return max(0.0, 45.0-sepDeg) / 45.0 * illum
}

// referenceTime pins the assessment to 21:00 local wall clock on the
// observation date. A zero obsDate means tonight at the site; there is no
// rollover past 21:00, the result always describes the local calendar date.
func referenceTime(obsDate time.Time, loc *time.Location) time.Time {
	base := obsDate
	if base.IsZero() {
		base = clock.Now().In(loc)
	}
	y, m, d := base.Date()
	return time.Date(y, m, d, 21, 0, 0, 0, loc)
}

// filterMag is the magnitude the faintness gates compare against limits;
// unknown magnitudes never pass.
func filterMag(mag *float64) float64 {
	if mag == nil {
		return 99.0
	}
	return *mag
}

func hasSeen(seen map[int]struct{}, number int) bool {
	_, ok := seen[number]
	return ok
}

// buildStages aggregates outcomes into the five-stage narrative. Counts come
// solely from the outcomes so the partition always reconciles.
func buildStages(outcomes []TargetOutcome, poolSize int, cloudPct, wLimit float64, bortleClass int, bLimit, minAlt float64, moon MoonState) []StageReport {
	counts := make(map[Disposition]int, 6)
	for _, oc := range outcomes {
		counts[oc.Disposition]++
	}

	remaining := poolSize
	stages := make([]StageReport, 0, 5)
	add := func(stage string, disp Disposition, detail string) {
		removed := counts[disp]
		remaining -= removed
		stages = append(stages, StageReport{Stage: stage, Removed: removed, Remaining: remaining, Detail: detail})
	}

	illumPct := int(math.Round(moon.Illum * 100))
	add("already_seen", DispositionSeen, "logged as seen")
	add("weather", DispositionWeather, fmt.Sprintf("%s skies, mag > %.1f", WeatherLabel(cloudPct), wLimit))
	add("bortle", DispositionBortle, fmt.Sprintf("class %d skies, mag > %.1f", bortleClass, bLimit))
	add("altitude", DispositionAltitude, fmt.Sprintf("below %.0f° every hour %02d:00–%02d:00", minAlt, eveningStartHour, eveningEndHour))
	add("moon", DispositionMoon, fmt.Sprintf("%s, %d%% illuminated, sep < %.0f°", moon.PhaseName(), illumPct, moon.SepMin()))
	return stages
}
