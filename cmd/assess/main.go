// Command assess runs one target assessment from the terminal and prints the
// filtering narrative plus tonight's ranked Messier targets. It builds the
// same engine and providers as the worker, minus Kafka.
//
// Usage:
//
//	go run ./cmd/assess -lat 44.26 -lon -71.68 -bortle 4 -seen "27,31,42"
//	go run ./cmd/assess -lat 34.05 -lon -118.24 -live-weather -json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/night-sky-guidance-service/internal/adapter/meeus"
	"github.com/couchcryptid/night-sky-guidance-service/internal/adapter/openmeteo"
	tzfadapter "github.com/couchcryptid/night-sky-guidance-service/internal/adapter/tzf"
	"github.com/couchcryptid/night-sky-guidance-service/internal/catalog"
	"github.com/couchcryptid/night-sky-guidance-service/internal/domain"
	"github.com/couchcryptid/night-sky-guidance-service/internal/observability"
)

var (
	ansiBold  = "\033[1m"
	ansiDim   = "\033[2m"
	ansiRed   = "\033[31m"
	ansiReset = "\033[0m"
)

const weatherTimeout = 8 * time.Second

type options struct {
	lat, lon    float64
	bortle      int
	cloud       float64
	seen        string
	topN        int
	minAlt      float64
	date        string
	catalogPath string
	liveWeather bool
	jsonOut     bool
}

func main() {
	if os.Getenv("NO_COLOR") != "" {
		ansiBold, ansiDim, ansiRed, ansiReset = "", "", "", ""
	}

	var opts options
	flag.Float64Var(&opts.lat, "lat", math.NaN(), "site latitude in degrees (required)")
	flag.Float64Var(&opts.lon, "lon", math.NaN(), "site longitude in degrees (required)")
	flag.IntVar(&opts.bortle, "bortle", 0, "Bortle sky class 1-9 (0 = unknown)")
	flag.Float64Var(&opts.cloud, "cloud", -1, "cloud cover percent override 0-100")
	flag.StringVar(&opts.seen, "seen", "", "already-seen Messier numbers, e.g. \"27,31,42\"")
	flag.IntVar(&opts.topN, "top", 5, "number of targets to recommend")
	flag.Float64Var(&opts.minAlt, "min-alt", 25, "minimum altitude in degrees")
	flag.StringVar(&opts.date, "date", "", "observation date YYYY-MM-DD (default tonight)")
	flag.StringVar(&opts.catalogPath, "catalog", "data/catalog/messier.json", "path to catalog JSON")
	flag.BoolVar(&opts.liveWeather, "live-weather", false, "fetch tonight's forecast from Open-Meteo")
	flag.BoolVar(&opts.jsonOut, "json", false, "print the raw assessment JSON")
	flag.Parse()

	if math.IsNaN(opts.lat) || math.IsNaN(opts.lon) {
		flag.Usage()
		fmt.Fprintln(os.Stderr, "missing required flags: -lat, -lon")
		os.Exit(1)
	}

	if code := run(opts); code != 0 {
		os.Exit(code)
	}
}

func run(opts options) int {
	objects, err := catalog.Load(opts.catalogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	zones, err := tzfadapter.NewLocator()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: timezone locator: %v\n", err)
		return 1
	}
	engine := domain.NewEngine(meeus.New(), zones)

	var obsDate time.Time
	if opts.date != "" {
		obsDate, err = time.Parse("2006-01-02", opts.date)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: -date %q is not YYYY-MM-DD\n", opts.date)
			return 1
		}
	}

	params := domain.AssessParams{
		Catalog:     objects,
		Lat:         opts.lat,
		Lon:         opts.lon,
		BortleClass: opts.bortle,
		Seen:        opts.seen,
		TopN:        opts.topN,
		MinAlt:      opts.minAlt,
		ObsDate:     obsDate,
	}
	if opts.cloud >= 0 {
		params.CloudPct = opts.cloud
	}

	var weather *domain.WeatherSnapshot
	if opts.liveWeather {
		snap, err := fetchWeather(engine, opts, obsDate)
		if err != nil {
			fmt.Fprintf(os.Stderr, "WARN: weather lookup failed, assessing without conditions: %v\n", err)
		} else {
			weather = &snap
			params.Weather = weather
			if opts.cloud < 0 {
				params.CloudPct = snap.CloudPct
			}
		}
	}

	res, err := engine.Assess(params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	if opts.jsonOut {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
		return 0
	}

	render(res, opts, weather)
	return 0
}

func fetchWeather(engine *domain.Engine, opts options, obsDate time.Time) (domain.WeatherSnapshot, error) {
	logger := observability.NewLogger("warn", "text")
	client := openmeteo.NewClient("", weatherTimeout, observability.NewMetrics(), logger)

	ctx, cancel := context.WithTimeout(context.Background(), 2*weatherTimeout)
	defer cancel()

	when := engine.ReferenceEvening(opts.lat, opts.lon, obsDate)
	return client.NightWeather(ctx, opts.lat, opts.lon, when)
}

func render(res domain.AssessmentResult, opts options, weather *domain.WeatherSnapshot) {
	fmt.Printf("%s=== Night Sky Target Assessment ===%s\n\n", ansiBold, ansiReset)
	fmt.Printf("Site:      %.4f, %.4f\n", opts.lat, opts.lon)
	fmt.Printf("Sky:       Bortle class %s\n", bortleLabel(opts.bortle))
	fmt.Printf("Reference: %s local (%s)\n", res.ReferenceTime.Format("2006-01-02 15:04"), res.Timezone)

	if weather != nil {
		fmt.Printf("Weather:   %s\n", weather.ConditionsLead())
		fmt.Printf("           %s\n", weather.Summary())
	} else if opts.cloud >= 0 {
		fmt.Printf("Weather:   %s skies assumed (%.0f%% cloud override)\n", domain.WeatherLabel(opts.cloud), opts.cloud)
	}

	fmt.Printf("Moon:      %s, %s\n", res.Moon.PhaseName(), indent(domain.MoonNarrative(&res.Moon), "           "))

	if res.WeatherUnsafe {
		detail := "unsafe conditions"
		if len(res.Stages) > 0 {
			detail = res.Stages[0].Detail
		}
		fmt.Printf("\n%sWeather unsafe: %s%s\n", ansiRed, detail, ansiReset)
		fmt.Println("No targets recommended.")
		return
	}

	fmt.Printf("\n%sFiltering narrative%s (%d Messier objects in pool)\n", ansiBold, ansiReset, res.PoolSize)
	for _, s := range res.Stages {
		fmt.Printf("  %-13s -%-3d %3d remain   %s\n", stageLabel(s.Stage), s.Removed, s.Remaining, s.Detail)
	}

	fmt.Printf("\n%sTop targets%s\n", ansiBold, ansiReset)
	if len(res.RankedTargets) == 0 {
		fmt.Println("  none: nothing clears altitude, darkness, and Moon separation tonight")
		return
	}
	for i, t := range res.RankedTargets {
		fmt.Printf("%2d. %sM%d%s %s\n", i+1, ansiBold, t.Number, ansiReset, t.Name)
		fmt.Printf("    %s • %s • best ~%s • mag %s • %.0f° alt • az %.0f° (%s) • %s\n",
			t.Type, t.Constellation, t.When.Format("15:04"), magLabel(t.Magnitude),
			t.AltDeg, t.AzDeg, domain.Compass16(t.AzDeg), moonLabel(t))
		fmt.Printf("    %shttps://stellarium-web.org/skysource/M%d%s\n", ansiDim, t.Number, ansiReset)
	}
}

func bortleLabel(class int) string {
	if class < 1 || class > 9 {
		return "unknown"
	}
	return fmt.Sprintf("%d", class)
}

func stageLabel(stage string) string {
	return strings.ReplaceAll(stage, "_", " ")
}

func magLabel(mag *float64) string {
	if mag == nil {
		return "—"
	}
	return fmt.Sprintf("%.1f", *mag)
}

func moonLabel(t domain.ScoredTarget) string {
	if t.MoonUp {
		return fmt.Sprintf("%.0f° from Moon", t.MoonSepDeg)
	}
	return fmt.Sprintf("Moon set (%.0f°)", t.MoonAltDeg)
}

func indent(s, pad string) string {
	return strings.ReplaceAll(s, "\n", "\n"+pad)
}
