package kafka

import (
	"context"
	"log/slog"
	"sort"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/night-sky-guidance-service/internal/config"
	"github.com/couchcryptid/night-sky-guidance-service/internal/domain"
)

// Writer produces messages to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch publishes multiple assessment results to the sink Kafka topic in
// a single WriteMessages call for efficiency.
func (w *Writer) LoadBatch(ctx context.Context, results []domain.ResultMessage) error {
	if len(results) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(results))
	for i := range results {
		msgs[i] = mapResultToMessage(results[i])
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// mapResultToMessage converts an assembled result into a Kafka message.
// Headers are laid out in sorted key order so the wire format is stable.
func mapResultToMessage(res domain.ResultMessage) kafkago.Message {
	keys := make([]string, 0, len(res.Headers))
	for k := range res.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	headers := make([]kafkago.Header, len(keys))
	for i, k := range keys {
		headers[i] = kafkago.Header{Key: k, Value: []byte(res.Headers[k])}
	}
	return kafkago.Message{
		Key:     res.Key,
		Value:   res.Value,
		Headers: headers,
	}
}
