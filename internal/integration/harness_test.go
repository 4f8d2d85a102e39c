//go:build integration

package integration_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/night-sky-guidance-service/internal/adapter/meeus"
	tzfadapter "github.com/couchcryptid/night-sky-guidance-service/internal/adapter/tzf"
	"github.com/couchcryptid/night-sky-guidance-service/internal/catalog"
	"github.com/couchcryptid/night-sky-guidance-service/internal/domain"
)

// startKafka runs a single-node Kafka container and returns its broker address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("night-sky-test"),
	)
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err, "resolve kafka brokers")
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a topic via the cluster controller so tests don't rely
// on auto-creation.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer controllerConn.Close()

	require.NoError(t, controllerConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func loadSampleCatalog(t *testing.T) []domain.CatalogObject {
	t.Helper()
	objects, err := catalog.Load(filepath.Join("..", "..", "data", "catalog", "messier_sample.json"))
	require.NoError(t, err)
	return objects
}

// newAstroEngine builds an engine on the real ephemeris and timezone locator.
func newAstroEngine(t *testing.T) *domain.Engine {
	t.Helper()
	zones, err := tzfadapter.NewLocator()
	require.NoError(t, err)
	return domain.NewEngine(meeus.New(), zones)
}

// clearWeather is a deterministic WeatherProvider so integration runs never
// depend on a live forecast.
type clearWeather struct{}

func (clearWeather) NightWeather(context.Context, float64, float64, time.Time) (domain.WeatherSnapshot, error) {
	return domain.WeatherSnapshot{CloudPct: 10, WindKph: 8, TempC: 9.5}, nil
}
