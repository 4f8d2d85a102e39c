//go:build openmeteo

package openmeteo

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/night-sky-guidance-service/internal/observability"
)

// These tests hit the real Open-Meteo API, which needs no credentials.
// Run with: go test -tags=openmeteo ./internal/adapter/openmeteo/ -v -count=1

func smokeClient() *Client {
	return NewClient("", 10*time.Second, observability.NewMetricsForTesting(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSmoke_NightWeather(t *testing.T) {
	c := smokeClient()

	// Tonight over lower Manhattan.
	when := time.Now().UTC().Truncate(time.Hour)
	snap, err := c.NightWeather(context.Background(), 40.7128, -74.006, when)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, snap.CloudPct, 0.0)
	assert.LessOrEqual(t, snap.CloudPct, 100.0)
	assert.GreaterOrEqual(t, snap.WindKph, 0.0)
	assert.GreaterOrEqual(t, snap.GustKph, snap.WindKph, "gusts are at least the sustained wind")
	assert.NotEmpty(t, snap.HourISO)
}

func TestSmoke_CachedProvider(t *testing.T) {
	c := smokeClient()
	cached := NewCachedProvider(c, 10, observability.NewMetricsForTesting())

	when := time.Now().UTC().Truncate(time.Hour)

	// First call: cache miss → real API call.
	s1, err := cached.NightWeather(context.Background(), 34.0522, -118.2437, when)
	require.NoError(t, err)

	// Second call: cache hit → no API call.
	s2, err := cached.NightWeather(context.Background(), 34.0522, -118.2437, when)
	require.NoError(t, err)
	assert.Equal(t, s1, s2)
}
