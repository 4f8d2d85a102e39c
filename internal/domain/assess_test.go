package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fake providers ---

// fakeEphemeris keys object altitudes by RA so tests can steer each catalog
// entry independently: alts[ra] holds the altitude for local hours 20–23.
type fakeEphemeris struct {
	alts       map[float64][4]float64
	moon       MoonState
	moonByHour map[int]MoonState
}

func (f *fakeEphemeris) AltAz(raDeg, _, _, _ float64, when time.Time) (float64, float64) {
	idx := when.Hour() - 20
	if hours, ok := f.alts[raDeg]; ok && idx >= 0 && idx < len(hours) {
		return hours[idx], 135.0
	}
	return -90.0, 0.0
}

func (f *fakeEphemeris) MoonState(_, _ float64, when time.Time) MoonState {
	if m, ok := f.moonByHour[when.Hour()]; ok {
		return m
	}
	return f.moon
}

// fakeSunEphemeris adds the optional Sun capability on top of fakeEphemeris.
// Hours not listed are fully dark.
type fakeSunEphemeris struct {
	fakeEphemeris
	sunAltByHour map[int]float64
}

func (f *fakeSunEphemeris) SunAltitude(_, _ float64, when time.Time) float64 {
	if alt, ok := f.sunAltByHour[when.Hour()]; ok {
		return alt
	}
	return -30.0
}

type fixedZone struct{ loc *time.Location }

func (z fixedZone) LocationFor(_, _ float64) (*time.Location, error) { return z.loc, nil }

type failingZone struct{}

func (failingZone) LocationFor(_, _ float64) (*time.Location, error) {
	return nil, errors.New("zone lookup failed")
}

// --- helpers ---

// mObj builds a Messier entry whose RA equals its number, so its separation
// from a Moon parked at RA 0, Dec 0 is just the number in degrees.
func mObj(num int, mag float64) CatalogObject {
	return CatalogObject{
		Catalog:       "M",
		Number:        num,
		Name:          fmt.Sprintf("Messier %d", num),
		Type:          "Galaxy",
		Constellation: "Andromeda",
		Magnitude:     fptr(mag),
		RADeg:         float64(num),
		DecDeg:        0,
	}
}

// flatAlts gives every listed object the same altitude for all four hours.
func flatAlts(alt float64, objects ...CatalogObject) map[float64][4]float64 {
	out := make(map[float64][4]float64, len(objects))
	for _, o := range objects {
		out[o.RADeg] = [4]float64{alt, alt, alt, alt}
	}
	return out
}

func freezeClock(t *testing.T, at time.Time) {
	t.Helper()
	SetClock(clockwork.NewFakeClockAt(at))
	t.Cleanup(func() { SetClock(nil) })
}

func outcomeFor(t *testing.T, res AssessmentResult, number int) Disposition {
	t.Helper()
	for _, oc := range res.Outcomes {
		if oc.Number == number {
			return oc.Disposition
		}
	}
	t.Fatalf("no outcome recorded for M%d", number)
	return ""
}

// --- tests ---

func TestAssessInvalidCoordinates(t *testing.T) {
	engine := NewEngine(&fakeEphemeris{}, fixedZone{time.UTC})

	_, err := engine.Assess(AssessParams{Lat: 90.1, Lon: 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "latitude")

	_, err = engine.Assess(AssessParams{Lat: 0, Lon: -180.5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "longitude")
}

func TestAssessWeatherHardStop(t *testing.T) {
	freezeClock(t, time.Date(2026, 3, 21, 4, 0, 0, 0, time.UTC))

	catalog := []CatalogObject{mObj(31, 3.4), mObj(42, 4.0)}
	eph := &fakeEphemeris{
		alts: flatAlts(60, catalog...),
		moon: MoonState{AltDeg: -20, Illum: 0.25, PhaseIdx: 1},
	}
	engine := NewEngine(eph, fixedZone{time.UTC})

	t.Run("unsafe weather stops the assessment", func(t *testing.T) {
		res, err := engine.Assess(AssessParams{
			Catalog: catalog,
			Lat:     42.36, Lon: -71.06,
			Weather: &WeatherSnapshot{WindKph: 40},
		})

		require.NoError(t, err)
		assert.True(t, res.WeatherUnsafe)
		assert.Empty(t, res.RankedTargets)
		assert.Empty(t, res.Outcomes)
		assert.Equal(t, 2, res.PoolSize)

		require.Len(t, res.Stages, 1)
		assert.Equal(t, "weather_unsafe", res.Stages[0].Stage)
		assert.Equal(t, 2, res.Stages[0].Removed)
		assert.Equal(t, 0, res.Stages[0].Remaining)
		assert.Equal(t, "wind 40 km/h", res.Stages[0].Detail)

		// Narrative inputs are still populated for rendering.
		assert.False(t, res.ReferenceTime.IsZero())
		assert.InDelta(t, 0.25, res.Moon.Illum, 1e-9)
	})

	t.Run("multiple reasons joined", func(t *testing.T) {
		res, err := engine.Assess(AssessParams{
			Catalog: catalog,
			Lat:     42.36, Lon: -71.06,
			Weather: &WeatherSnapshot{WindKph: 40, ThunderProb: 0.5},
		})

		require.NoError(t, err)
		assert.Equal(t, "wind 40 km/h; thunder risk", res.Stages[0].Detail)
	})

	t.Run("hard stop can be disabled", func(t *testing.T) {
		res, err := engine.Assess(AssessParams{
			Catalog: catalog,
			Lat:     42.36, Lon: -71.06,
			Weather:                &WeatherSnapshot{WindKph: 40},
			DisableWeatherHardStop: true,
		})

		require.NoError(t, err)
		assert.False(t, res.WeatherUnsafe)
		assert.Len(t, res.Outcomes, 2)
		assert.NotEmpty(t, res.RankedTargets)
	})

	t.Run("missing weather never stops", func(t *testing.T) {
		res, err := engine.Assess(AssessParams{
			Catalog: catalog,
			Lat:     42.36, Lon: -71.06,
		})

		require.NoError(t, err)
		assert.False(t, res.WeatherUnsafe)
		assert.Len(t, res.Outcomes, 2)
	})

	t.Run("safe weather proceeds", func(t *testing.T) {
		res, err := engine.Assess(AssessParams{
			Catalog: catalog,
			Lat:     42.36, Lon: -71.06,
			Weather: &WeatherSnapshot{CloudPct: 10, VisibilityKm: fptr(20)},
		})

		require.NoError(t, err)
		assert.False(t, res.WeatherUnsafe)
	})
}

func TestAssessReferenceTime(t *testing.T) {
	catalog := []CatalogObject{mObj(31, 3.4)}
	eph := &fakeEphemeris{alts: flatAlts(60, catalog...)}

	t.Run("tonight at the site", func(t *testing.T) {
		freezeClock(t, time.Date(2026, 3, 21, 4, 30, 0, 0, time.UTC))
		engine := NewEngine(eph, fixedZone{time.UTC})

		res, err := engine.Assess(AssessParams{Catalog: catalog, Lat: 40, Lon: -74})

		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 3, 21, 21, 0, 0, 0, time.UTC), res.ReferenceTime)
		assert.Equal(t, "UTC", res.Timezone)
	})

	t.Run("zone shifts the calendar date", func(t *testing.T) {
		// 02:00 UTC is still the previous evening at UTC-5; the assessment
		// must describe that local date, not the UTC one.
		freezeClock(t, time.Date(2026, 3, 21, 2, 0, 0, 0, time.UTC))
		loc := time.FixedZone("UTC-5", -5*3600)
		engine := NewEngine(eph, fixedZone{loc})

		res, err := engine.Assess(AssessParams{Catalog: catalog, Lat: 40, Lon: -74})

		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 3, 20, 21, 0, 0, 0, loc), res.ReferenceTime)
		assert.Equal(t, "UTC-5", res.Timezone)
	})

	t.Run("explicit observation date wins", func(t *testing.T) {
		freezeClock(t, time.Date(2026, 3, 21, 4, 0, 0, 0, time.UTC))
		engine := NewEngine(eph, fixedZone{time.UTC})

		res, err := engine.Assess(AssessParams{
			Catalog: catalog,
			Lat:     40, Lon: -74,
			ObsDate: time.Date(2026, 7, 4, 0, 0, 0, 0, time.UTC),
		})

		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 7, 4, 21, 0, 0, 0, time.UTC), res.ReferenceTime)
	})

	t.Run("zone lookup failure degrades to UTC", func(t *testing.T) {
		freezeClock(t, time.Date(2026, 3, 21, 4, 0, 0, 0, time.UTC))
		engine := NewEngine(eph, failingZone{})

		res, err := engine.Assess(AssessParams{Catalog: catalog, Lat: 40, Lon: -74})

		require.NoError(t, err)
		assert.Equal(t, "UTC", res.Timezone)
	})
}

func TestAssessSeenFilter(t *testing.T) {
	freezeClock(t, time.Date(2026, 3, 21, 4, 0, 0, 0, time.UTC))

	catalog := []CatalogObject{mObj(1, 5.0), mObj(3, 5.5), mObj(5, 5.7)}
	eph := &fakeEphemeris{alts: flatAlts(60, catalog...)}
	engine := NewEngine(eph, fixedZone{time.UTC})

	t.Run("free-form string", func(t *testing.T) {
		res, err := engine.Assess(AssessParams{
			Catalog: catalog,
			Lat:     40, Lon: -74,
			Seen: "M1, M3",
		})

		require.NoError(t, err)
		assert.Equal(t, DispositionSeen, outcomeFor(t, res, 1))
		assert.Equal(t, DispositionSeen, outcomeFor(t, res, 3))
		assert.Equal(t, DispositionSurvivor, outcomeFor(t, res, 5))

		assert.Equal(t, "already_seen", res.Stages[0].Stage)
		assert.Equal(t, 2, res.Stages[0].Removed)
		assert.Equal(t, 1, res.Stages[0].Remaining)
	})

	t.Run("array form matches string form", func(t *testing.T) {
		fromString, err := engine.Assess(AssessParams{
			Catalog: catalog, Lat: 40, Lon: -74, Seen: "1,3",
		})
		require.NoError(t, err)

		fromArray, err := engine.Assess(AssessParams{
			Catalog: catalog, Lat: 40, Lon: -74, Seen: []any{1.0, 3.0},
		})
		require.NoError(t, err)

		assert.Equal(t, fromString.Outcomes, fromArray.Outcomes)
		assert.Equal(t, fromString.Stages, fromArray.Stages)
	})
}

func TestAssessFaintnessGates(t *testing.T) {
	freezeClock(t, time.Date(2026, 3, 21, 4, 0, 0, 0, time.UTC))

	t.Run("cloud cover removes the faintest objects", func(t *testing.T) {
		catalog := []CatalogObject{mObj(1, 7.0), mObj(2, 5.0)}
		eph := &fakeEphemeris{alts: flatAlts(60, catalog...)}
		engine := NewEngine(eph, fixedZone{time.UTC})

		// 100% cloud → limit 6.8.
		res, err := engine.Assess(AssessParams{
			Catalog: catalog, Lat: 40, Lon: -74, CloudPct: 100,
		})

		require.NoError(t, err)
		assert.Equal(t, DispositionWeather, outcomeFor(t, res, 1))
		assert.Equal(t, DispositionSurvivor, outcomeFor(t, res, 2))
		assert.Contains(t, res.Stages[1].Detail, "mag > 6.8")
		assert.Contains(t, res.Stages[1].Detail, "Cloudy")
	})

	t.Run("bortle removes what weather let through", func(t *testing.T) {
		// Clear skies (limit 8.8) but Bortle 8 (limit 5.9): mag 7 passes
		// weather and fails bortle.
		catalog := []CatalogObject{mObj(1, 7.0)}
		eph := &fakeEphemeris{alts: flatAlts(60, catalog...)}
		engine := NewEngine(eph, fixedZone{time.UTC})

		res, err := engine.Assess(AssessParams{
			Catalog: catalog, Lat: 40, Lon: -74, BortleClass: 8,
		})

		require.NoError(t, err)
		assert.Equal(t, DispositionBortle, outcomeFor(t, res, 1))
		assert.Contains(t, res.Stages[2].Detail, "class 8")
		assert.Contains(t, res.Stages[2].Detail, "mag > 5.9")
	})

	t.Run("unknown magnitude never passes a faintness gate", func(t *testing.T) {
		obj := mObj(1, 0)
		obj.Magnitude = nil
		eph := &fakeEphemeris{alts: flatAlts(60, obj)}
		engine := NewEngine(eph, fixedZone{time.UTC})

		res, err := engine.Assess(AssessParams{
			Catalog: []CatalogObject{obj}, Lat: 40, Lon: -74,
		})

		require.NoError(t, err)
		assert.Equal(t, DispositionWeather, outcomeFor(t, res, 1))
	})

	t.Run("seen wins over faintness", func(t *testing.T) {
		catalog := []CatalogObject{mObj(1, 7.0)}
		eph := &fakeEphemeris{alts: flatAlts(60, catalog...)}
		engine := NewEngine(eph, fixedZone{time.UTC})

		res, err := engine.Assess(AssessParams{
			Catalog: catalog, Lat: 40, Lon: -74, CloudPct: 100, Seen: "1",
		})

		require.NoError(t, err)
		assert.Equal(t, DispositionSeen, outcomeFor(t, res, 1))
	})
}

func TestAssessAltitudeAndMoonBuckets(t *testing.T) {
	freezeClock(t, time.Date(2026, 3, 21, 4, 0, 0, 0, time.UTC))

	// low never clears 25°; nearMoon sits 30° from the Moon, inside sepMin;
	// farMoon is 90° away and fine.
	low := mObj(10, 5.0)
	nearMoon := mObj(30, 5.0)
	farMoon := mObj(90, 5.0)

	eph := &fakeEphemeris{
		alts: map[float64][4]float64{
			low.RADeg:      {10, 12, 14, 12},
			nearMoon.RADeg: {60, 60, 60, 60},
			farMoon.RADeg:  {60, 60, 60, 60},
		},
		// Full-ish Moon parked at RA 0, Dec 0: sepMin = 20 + 25×0.8 = 40.
		moon: MoonState{RADeg: 0, DecDeg: 0, AltDeg: 35, Illum: 0.8, PhaseIdx: 4},
	}
	engine := NewEngine(eph, fixedZone{time.UTC})

	res, err := engine.Assess(AssessParams{
		Catalog: []CatalogObject{low, nearMoon, farMoon},
		Lat:     40, Lon: -74,
	})

	require.NoError(t, err)
	assert.Equal(t, DispositionAltitude, outcomeFor(t, res, 10))
	assert.Equal(t, DispositionMoon, outcomeFor(t, res, 30))
	assert.Equal(t, DispositionSurvivor, outcomeFor(t, res, 90))

	require.Len(t, res.RankedTargets, 1)
	got := res.RankedTargets[0]
	assert.Equal(t, 90, got.Number)
	assert.InDelta(t, 90.0, got.MoonSepDeg, 1e-9)
	assert.True(t, got.MoonUp)
	assert.InDelta(t, 35.0, got.MoonAltDeg, 1e-9)

	// Stage narrative reflects the Moon rule in force.
	moonStage := res.Stages[4]
	assert.Equal(t, "moon", moonStage.Stage)
	assert.Equal(t, 1, moonStage.Removed)
	assert.Contains(t, moonStage.Detail, "Full Moon")
	assert.Contains(t, moonStage.Detail, "80% illuminated")
	assert.Contains(t, moonStage.Detail, "sep < 40°")
}

func TestAssessTwilightGate(t *testing.T) {
	freezeClock(t, time.Date(2026, 6, 20, 4, 0, 0, 0, time.UTC))

	early := mObj(50, 5.0) // only high before darkness
	late := mObj(60, 5.0)  // rises after darkness

	alts := map[float64][4]float64{
		early.RADeg: {60, 60, 10, 10},
		late.RADeg:  {10, 10, 60, 60},
	}

	t.Run("bright hours are skipped when the sun is known", func(t *testing.T) {
		eph := &fakeSunEphemeris{
			fakeEphemeris: fakeEphemeris{alts: alts},
			sunAltByHour:  map[int]float64{20: -6, 21: -11.9, 22: -12, 23: -18},
		}
		engine := NewEngine(eph, fixedZone{time.UTC})

		res, err := engine.Assess(AssessParams{
			Catalog: []CatalogObject{early, late},
			Lat:     40, Lon: -74,
		})

		require.NoError(t, err)
		// early's only usable hours fall in twilight, so it never counts
		// as having cleared altitude.
		assert.Equal(t, DispositionAltitude, outcomeFor(t, res, 50))
		assert.Equal(t, DispositionSurvivor, outcomeFor(t, res, 60))

		require.Len(t, res.RankedTargets, 1)
		assert.Equal(t, 22, res.RankedTargets[0].When.Hour())
	})

	t.Run("no sun capability treats every hour as dark", func(t *testing.T) {
		eph := &fakeEphemeris{alts: alts}
		engine := NewEngine(eph, fixedZone{time.UTC})

		res, err := engine.Assess(AssessParams{
			Catalog: []CatalogObject{early, late},
			Lat:     40, Lon: -74,
		})

		require.NoError(t, err)
		assert.Equal(t, DispositionSurvivor, outcomeFor(t, res, 50))
		assert.Equal(t, DispositionSurvivor, outcomeFor(t, res, 60))
	})
}

func TestAssessBestHourSelection(t *testing.T) {
	freezeClock(t, time.Date(2026, 3, 21, 4, 0, 0, 0, time.UTC))

	t.Run("keeps the highest-scoring hour", func(t *testing.T) {
		obj := mObj(31, 4.0)
		eph := &fakeEphemeris{
			alts: map[float64][4]float64{obj.RADeg: {30, 50, 70, 40}},
		}
		engine := NewEngine(eph, fixedZone{time.UTC})

		res, err := engine.Assess(AssessParams{
			Catalog: []CatalogObject{obj}, Lat: 40, Lon: -74,
		})

		require.NoError(t, err)
		require.Len(t, res.RankedTargets, 1)
		got := res.RankedTargets[0]
		assert.Equal(t, 22, got.When.Hour())
		assert.InDelta(t, 70.0, got.AltDeg, 1e-9)
		assert.InDelta(t, 70.0/90.0-0.02*4.0, got.Score, 1e-9)
	})

	t.Run("score ties keep the earlier hour", func(t *testing.T) {
		obj := mObj(31, 4.0)
		eph := &fakeEphemeris{
			alts: map[float64][4]float64{obj.RADeg: {60, 60, 60, 60}},
		}
		engine := NewEngine(eph, fixedZone{time.UTC})

		res, err := engine.Assess(AssessParams{
			Catalog: []CatalogObject{obj}, Lat: 40, Lon: -74,
		})

		require.NoError(t, err)
		require.Len(t, res.RankedTargets, 1)
		assert.Equal(t, 20, res.RankedTargets[0].When.Hour())
	})
}

func TestAssessMoonPenaltyInScore(t *testing.T) {
	freezeClock(t, time.Date(2026, 3, 21, 4, 0, 0, 0, time.UTC))

	// near is 40° from the Moon: past sepMin but penalized. far is 120°
	// away: no penalty at all.
	near := mObj(40, 5.0)
	far := mObj(120, 5.0)

	eph := &fakeEphemeris{
		alts: flatAlts(50, near, far),
		// Waxing Moon up at RA 0: sepMin = 20 + 25×0.6 = 35.
		moon: MoonState{RADeg: 0, DecDeg: 0, AltDeg: 30, Illum: 0.6, PhaseIdx: 3},
	}
	engine := NewEngine(eph, fixedZone{time.UTC})

	res, err := engine.Assess(AssessParams{
		Catalog: []CatalogObject{near, far},
		Lat:     40, Lon: -74,
	})

	require.NoError(t, err)
	require.Len(t, res.RankedTargets, 2)

	// Same altitude and magnitude, so glare decides the order.
	assert.Equal(t, 120, res.RankedTargets[0].Number)
	assert.Equal(t, 40, res.RankedTargets[1].Number)

	base := 50.0/90.0 - 0.02*5.0
	pen := (45.0 - 40.0) / 45.0 * 0.6
	assert.InDelta(t, base, res.RankedTargets[0].Score, 1e-9)
	assert.InDelta(t, base-0.4*pen, res.RankedTargets[1].Score, 1e-9)
}

func TestAssessRankingAndTopN(t *testing.T) {
	freezeClock(t, time.Date(2026, 3, 21, 4, 0, 0, 0, time.UTC))

	catalog := []CatalogObject{
		mObj(1, 6.0), mObj(2, 3.0), mObj(3, 5.0),
		mObj(4, 4.0), mObj(5, 2.0), mObj(6, 7.0), mObj(7, 1.0),
	}
	eph := &fakeEphemeris{alts: flatAlts(60, catalog...)}
	engine := NewEngine(eph, fixedZone{time.UTC})

	t.Run("defaults to five targets sorted by score", func(t *testing.T) {
		res, err := engine.Assess(AssessParams{Catalog: catalog, Lat: 40, Lon: -74})

		require.NoError(t, err)
		require.Len(t, res.RankedTargets, 5)

		// Equal altitudes, so brighter means higher score.
		numbers := make([]int, 0, 5)
		for _, tgt := range res.RankedTargets {
			numbers = append(numbers, tgt.Number)
		}
		assert.Equal(t, []int{7, 5, 2, 4, 3}, numbers)

		// Truncated survivors still appear in the outcomes.
		assert.Equal(t, DispositionSurvivor, outcomeFor(t, res, 1))
		assert.Equal(t, DispositionSurvivor, outcomeFor(t, res, 6))
	})

	t.Run("explicit top N", func(t *testing.T) {
		res, err := engine.Assess(AssessParams{Catalog: catalog, Lat: 40, Lon: -74, TopN: 2})

		require.NoError(t, err)
		require.Len(t, res.RankedTargets, 2)
		assert.Equal(t, 7, res.RankedTargets[0].Number)
		assert.Equal(t, 5, res.RankedTargets[1].Number)
	})

	t.Run("top N beyond the pool returns everything", func(t *testing.T) {
		res, err := engine.Assess(AssessParams{Catalog: catalog, Lat: 40, Lon: -74, TopN: 50})

		require.NoError(t, err)
		assert.Len(t, res.RankedTargets, 7)
	})

	t.Run("equal scores keep catalog order", func(t *testing.T) {
		twins := []CatalogObject{mObj(11, 5.0), mObj(12, 5.0), mObj(13, 5.0)}
		twinEph := &fakeEphemeris{alts: flatAlts(60, twins...)}
		twinEngine := NewEngine(twinEph, fixedZone{time.UTC})

		res, err := twinEngine.Assess(AssessParams{Catalog: twins, Lat: 40, Lon: -74})

		require.NoError(t, err)
		require.Len(t, res.RankedTargets, 3)
		assert.Equal(t, 11, res.RankedTargets[0].Number)
		assert.Equal(t, 12, res.RankedTargets[1].Number)
		assert.Equal(t, 13, res.RankedTargets[2].Number)
	})
}

func TestAssessOutcomesPartitionPool(t *testing.T) {
	freezeClock(t, time.Date(2026, 3, 21, 4, 0, 0, 0, time.UTC))

	// One object per disposition.
	seen := mObj(1, 5.0)
	faintWeather := mObj(2, 8.0) // cloud 50 → limit 7.8
	faintBortle := mObj(3, 7.0)  // bortle 6 → limit 6.9
	lowAlt := mObj(4, 5.0)
	moonClose := mObj(5, 5.0) // 5° from the Moon
	winner := mObj(50, 5.0)   // 50° away

	catalog := []CatalogObject{seen, faintWeather, faintBortle, lowAlt, moonClose, winner}
	eph := &fakeEphemeris{
		alts: map[float64][4]float64{
			seen.RADeg:         {60, 60, 60, 60},
			faintWeather.RADeg: {60, 60, 60, 60},
			faintBortle.RADeg:  {60, 60, 60, 60},
			lowAlt.RADeg:       {5, 8, 10, 6},
			moonClose.RADeg:    {60, 60, 60, 60},
			winner.RADeg:       {60, 60, 60, 60},
		},
		moon: MoonState{RADeg: 0, DecDeg: 0, AltDeg: 35, Illum: 0.8, PhaseIdx: 4},
	}
	engine := NewEngine(eph, fixedZone{time.UTC})

	res, err := engine.Assess(AssessParams{
		Catalog:     catalog,
		Lat:         40, Lon: -74,
		CloudPct:    50,
		BortleClass: 6,
		Seen:        "1",
	})

	require.NoError(t, err)

	want := map[int]Disposition{
		1:  DispositionSeen,
		2:  DispositionWeather,
		3:  DispositionBortle,
		4:  DispositionAltitude,
		5:  DispositionMoon,
		50: DispositionSurvivor,
	}
	require.Len(t, res.Outcomes, len(want))
	for num, disp := range want {
		assert.Equal(t, disp, outcomeFor(t, res, num), "M%d", num)
	}

	// Every pooled object is counted exactly once, so the stage chain
	// reconciles: each stage's remaining equals the previous minus removed,
	// and the final remaining equals the survivor count.
	require.Len(t, res.Stages, 5)
	remaining := res.PoolSize
	totalRemoved := 0
	for _, st := range res.Stages {
		remaining -= st.Removed
		totalRemoved += st.Removed
		assert.Equal(t, remaining, st.Remaining, "stage %s", st.Stage)
	}
	assert.Equal(t, 1, remaining)
	assert.Equal(t, res.PoolSize-1, totalRemoved)

	stageNames := make([]string, 0, len(res.Stages))
	for _, st := range res.Stages {
		stageNames = append(stageNames, st.Stage)
	}
	assert.Equal(t, []string{"already_seen", "weather", "bortle", "altitude", "moon"}, stageNames)
}

func TestAssessPoolFiltering(t *testing.T) {
	freezeClock(t, time.Date(2026, 3, 21, 4, 0, 0, 0, time.UTC))

	lower := mObj(13, 5.9)
	lower.Catalog = "m" // case-insensitive match

	ngc := mObj(7000, 4.0)
	ngc.Catalog = "NGC"

	zero := mObj(0, 4.0)

	eph := &fakeEphemeris{alts: flatAlts(60, lower, ngc, zero)}
	engine := NewEngine(eph, fixedZone{time.UTC})

	res, err := engine.Assess(AssessParams{
		Catalog: []CatalogObject{lower, ngc, zero},
		Lat:     40, Lon: -74,
	})

	require.NoError(t, err)
	assert.Equal(t, 1, res.PoolSize)
	require.Len(t, res.Outcomes, 1)
	assert.Equal(t, 13, res.Outcomes[0].Number)
}

func TestScoreTarget(t *testing.T) {
	assert.InDelta(t, 0.42, ScoreTarget(45, fptr(4.0)), 1e-9)
	assert.InDelta(t, 1.0-0.02*1.6, ScoreTarget(90, fptr(1.6)), 1e-9)

	// Negative altitude clamps to zero rather than going further negative.
	assert.InDelta(t, -0.08, ScoreTarget(-10, fptr(4.0)), 1e-9)

	// Unknown magnitude scores as a dim 12.0.
	assert.InDelta(t, 0.5-0.24, ScoreTarget(45, nil), 1e-9)
}

func TestMoonPenalty(t *testing.T) {
	assert.Equal(t, 0.0, MoonPenalty(10, 1.0, false))
	assert.InDelta(t, 1.0, MoonPenalty(0, 1.0, true), 1e-9)
	assert.InDelta(t, 0.25, MoonPenalty(22.5, 0.5, true), 1e-9)
	assert.Equal(t, 0.0, MoonPenalty(45, 1.0, true))
	assert.Equal(t, 0.0, MoonPenalty(60, 1.0, true))
}
