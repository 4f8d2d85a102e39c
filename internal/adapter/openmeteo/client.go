// Package openmeteo fetches hourly forecasts from the Open-Meteo API and
// condenses them into the single-hour snapshot the assessment engine consumes.
package openmeteo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/couchcryptid/night-sky-guidance-service/internal/domain"
	"github.com/couchcryptid/night-sky-guidance-service/internal/observability"
)

const (
	// DefaultBaseURL is the public Open-Meteo forecast endpoint.
	DefaultBaseURL = "https://api.open-meteo.com/v1/forecast"

	// hourlyFields is the full series list requested per forecast. Rain is
	// included for parity with the raw API payload even though the snapshot
	// folds it into total precipitation.
	hourlyFields = "cloudcover,visibility,temperature_2m,precipitation,rain,snowfall,precipitation_probability,windspeed_10m,windgusts_10m,weathercode"

	maxAttempts   = 3
	retryInterval = 500 * time.Millisecond
)

// ErrCircuitOpen is returned while the breaker is rejecting calls after
// repeated upstream failures. Callers should degrade instead of retrying.
var ErrCircuitOpen = errors.New("open-meteo circuit open")

var (
	errRateLimited = errors.New("open-meteo rate limited")
	errServerError = errors.New("open-meteo server error")
	errClientError = errors.New("open-meteo client error")
)

// Client queries the Open-Meteo forecast API. It retries transient failures
// with linear backoff and trips a circuit breaker when the upstream is down.
type Client struct {
	httpClient *http.Client
	baseURL    string
	breaker    *gobreaker.CircuitBreaker
	retryDelay time.Duration
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient builds an Open-Meteo client. An empty baseURL selects the public
// API endpoint.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "openmeteo",
			MaxRequests: 5,
			Interval:    1 * time.Minute,
			Timeout:     2 * time.Minute,
		}),
		retryDelay: retryInterval,
		metrics:    metrics,
		logger:     logger,
	}
}

// forecastResponse mirrors the hourly block of the Open-Meteo payload.
// Element pointers survive the nulls the API emits for gaps in a series.
type forecastResponse struct {
	Hourly struct {
		Time          []string   `json:"time"`
		CloudCover    []*float64 `json:"cloudcover"`
		Visibility    []*float64 `json:"visibility"`
		Temperature   []*float64 `json:"temperature_2m"`
		Precipitation []*float64 `json:"precipitation"`
		Snowfall      []*float64 `json:"snowfall"`
		PrecipProb    []*float64 `json:"precipitation_probability"`
		WindSpeed     []*float64 `json:"windspeed_10m"`
		WindGusts     []*float64 `json:"windgusts_10m"`
		WeatherCode   []*int     `json:"weathercode"`
	} `json:"hourly"`
}

// NightWeather fetches the forecast covering the local date of when and
// returns the snapshot for its hour, normalized to the units the assessment
// thresholds use.
func (c *Client) NightWeather(ctx context.Context, lat, lon float64, when time.Time) (domain.WeatherSnapshot, error) {
	start := time.Now()
	snap, err := c.fetchSnapshot(ctx, lat, lon, when)
	c.metrics.WeatherRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.WeatherRequests.WithLabelValues("error").Inc()
		return domain.WeatherSnapshot{}, err
	}
	c.metrics.WeatherRequests.WithLabelValues("ok").Inc()
	return snap, nil
}

func (c *Client) fetchSnapshot(ctx context.Context, lat, lon float64, when time.Time) (domain.WeatherSnapshot, error) {
	date := when.Format("2006-01-02")
	params := url.Values{
		"latitude":       {strconv.FormatFloat(lat, 'f', -1, 64)},
		"longitude":      {strconv.FormatFloat(lon, 'f', -1, 64)},
		"timezone":       {"auto"},
		"timeformat":     {"iso8601"},
		"windspeed_unit": {"kmh"},
		"start_date":     {date},
		"end_date":       {date},
		"hourly":         {hourlyFields},
	}

	resp, err := c.doRequest(ctx, c.baseURL+"?"+params.Encode())
	if err != nil {
		return domain.WeatherSnapshot{}, err
	}
	defer resp.Body.Close() //nolint:errcheck

	var payload forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.WeatherSnapshot{}, fmt.Errorf("decode forecast: %w", err)
	}

	idx, err := selectHour(payload.Hourly.Time, when)
	if err != nil {
		return domain.WeatherSnapshot{}, err
	}
	return normalizeHour(payload, idx), nil
}

// doRequest issues the GET through the circuit breaker, retrying rate limits,
// 5xx responses, and transport errors. 4xx responses fail immediately since
// the request itself is wrong.
func (c *Client) doRequest(ctx context.Context, fullURL string) (*http.Response, error) {
	var attempt int
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}

		result, err := c.breaker.Execute(func() (any, error) {
			resp, doErr := c.httpClient.Do(req)
			if doErr != nil {
				return nil, doErr
			}
			switch {
			case resp.StatusCode == http.StatusOK:
				return resp, nil
			case resp.StatusCode == http.StatusTooManyRequests:
				resp.Body.Close() //nolint:errcheck
				return nil, errRateLimited
			case resp.StatusCode >= 500:
				resp.Body.Close() //nolint:errcheck
				return nil, fmt.Errorf("%w: status %d", errServerError, resp.StatusCode)
			default:
				body, _ := io.ReadAll(resp.Body)
				resp.Body.Close() //nolint:errcheck
				return nil, fmt.Errorf("%w: status %d: %s", errClientError, resp.StatusCode, body)
			}
		})
		if err == nil {
			resp, ok := result.(*http.Response)
			if !ok {
				return nil, errors.New("unexpected breaker result type")
			}
			return resp, nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			// The trip itself was already logged by the failing attempts.
			c.logger.Debug("open-meteo circuit open, failing fast", "error", err)
			return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		if errors.Is(err, errClientError) {
			return nil, err
		}

		attempt++
		if attempt >= maxAttempts {
			return nil, err
		}

		c.logger.Warn("open-meteo request failed, retrying",
			"attempt", attempt,
			"error", err)

		timer := time.NewTimer(c.retryDelay * time.Duration(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// selectHour finds the series index for when's local hour, falling back to
// 21:00 that date, then to the timestamp nearest the target.
func selectHour(times []string, when time.Time) (int, error) {
	if len(times) == 0 {
		return 0, errors.New("forecast has no hourly timestamps")
	}

	target := when.Format("2006-01-02T15:00")
	for i, ts := range times {
		if ts == target {
			return i, nil
		}
	}

	fallback := when.Format("2006-01-02") + "T21:00"
	for i, ts := range times {
		if ts == fallback {
			return i, nil
		}
	}

	targetT, err := time.Parse("2006-01-02T15:04", target)
	if err != nil {
		return 0, fmt.Errorf("parse target hour: %w", err)
	}
	bestIdx := -1
	bestDelta := time.Duration(math.MaxInt64)
	for i, ts := range times {
		parsed, err := time.Parse("2006-01-02T15:04", ts)
		if err != nil {
			continue
		}
		delta := targetT.Sub(parsed)
		if delta < 0 {
			delta = -delta
		}
		if delta < bestDelta {
			bestIdx, bestDelta = i, delta
		}
	}
	if bestIdx < 0 {
		return 0, errors.New("forecast timestamps are unparseable")
	}
	return bestIdx, nil
}

// normalizeHour flattens one hourly column into a snapshot. Missing or null
// elements fall back to defaults rather than failing the whole forecast.
func normalizeHour(payload forecastResponse, idx int) domain.WeatherSnapshot {
	h := payload.Hourly

	wind := pick(h.WindSpeed, idx, 0)
	snap := domain.WeatherSnapshot{
		CloudPct:      pick(h.CloudCover, idx, 0),
		TempC:         pick(h.Temperature, idx, 0),
		PrecipMMPerHr: pick(h.Precipitation, idx, 0),
		// Open-Meteo reports snowfall in cm/h; thresholds use mm/h of water
		// equivalent at the usual 10:1 ratio.
		SnowMMPerHr: pick(h.Snowfall, idx, 0) * 10.0,
		WindKph:     wind,
		GustKph:     pick(h.WindGusts, idx, wind),
		HourISO:     h.Time[idx],
	}

	if v := at(h.Visibility, idx); v != nil {
		km := *v / 1000.0
		snap.VisibilityKm = &km
	}
	if p := at(h.PrecipProb, idx); p != nil {
		prob := *p
		snap.PrecipProbPct = &prob
	}

	if idx < len(h.WeatherCode) && h.WeatherCode[idx] != nil {
		switch *h.WeatherCode[idx] {
		case 95, 96, 99: // thunderstorm codes
			snap.ThunderProb = 1.0
		}
	}
	return snap
}

func pick(series []*float64, idx int, def float64) float64 {
	if idx >= len(series) || series[idx] == nil {
		return def
	}
	return *series[idx]
}

func at(series []*float64, idx int) *float64 {
	if idx >= len(series) {
		return nil
	}
	return series[idx]
}
