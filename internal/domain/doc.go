// Package domain models the Messier observing catalog and the nightly
// target assessment that ranks deep-sky objects for a given site.
//
// # Data Source
//
// Catalog entries originate from the public Messier API
// (https://osricdienda.com/messier-api/messier.json), converted offline by
// cmd/gencatalog into the JSON schema consumed here. Assessment requests
// arrive as JSON on the Kafka source topic, one message per site and night;
// ranked results are published to the sink topic.
//
// # Sky Conventions
//
// Coordinates:
//
//	Right ascension and declination are J2000 degrees (ra_deg 0–360,
//	dec_deg −90–+90). Altitude is degrees above the horizon; azimuth is
//	degrees east of true north (0=N, 90=E, 180=S, 270=W).
//
// Magnitude:
//
//	Visual magnitude, lower is brighter. A nil magnitude means the source
//	catalog has no value; faintness filters treat nil as 99.0 (never passes)
//	while scoring treats it as 12.0 (a dim but plausible default).
//
// Sky darkness:
//
//	Bortle class 1 (pristine) through 9 (inner city) maps to naked-eye
//	limiting magnitude (NELM) via a fixed table; class 0 or an unknown class
//	falls back to suburban defaults. Telescopic reach is NELM + 1.8.
//
// Cloud cover:
//
//	Percentage 0–100. The faintness cutoff under clouds is 8.8 − 0.02×cloud,
//	a two-magnitude penalty at full overcast.
//
// # Assessment Stages
//
// Each object receives exactly one disposition, assigned in a fixed order:
// seen (observer's log), weather (too faint for cloud cover), bortle (too
// faint for the site's sky), altitude (never clears the minimum altitude
// during the evening window), moon (clears altitude but sits too close to a
// bright Moon every usable hour), or survivor. Survivors are scored at their
// best evening hour and ranked. The stage order is part of the contract:
// counts reported per stage only add up because each object is counted once,
// at the first gate it fails.
//
// # Time Basis
//
// All assessments are anchored at 21:00 local time at the site, resolved
// through a ZoneLocator. The evening scan covers 20:00 through 23:00 local.
// Hours still in twilight (Sun above −12°) are skipped when a Sun ephemeris
// is available.
package domain
