package kafka

import (
	"context"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/night-sky-guidance-service/internal/config"
	"github.com/couchcryptid/night-sky-guidance-service/internal/domain"
)

// Reader consumes assessment requests from the source Kafka topic as part of
// a consumer group. It implements pipeline.BatchExtractor. Offsets are not
// auto-committed; each extracted request carries a Commit callback the
// pipeline invokes after the result has been durably published.
type Reader struct {
	reader        *kafkago.Reader
	flushInterval time.Duration
	logger        *slog.Logger
}

// NewReader creates a Kafka consumer for the configured source topic.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		GroupID:  cfg.KafkaGroupID,
		Topic:    cfg.KafkaSourceTopic,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  time.Second,
	})
	return &Reader{
		reader:        r,
		flushInterval: cfg.BatchFlushInterval,
		logger:        logger,
	}
}

// ExtractBatch blocks until at least one request arrives, then keeps reading
// until the batch is full or the flush interval elapses. A partial batch is
// returned rather than held back so quiet topics still make progress.
func (r *Reader) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawRequest, error) {
	first, err := r.reader.FetchMessage(ctx)
	if err != nil {
		return nil, err
	}
	raws := make([]domain.RawRequest, 0, batchSize)
	raws = append(raws, r.mapMessage(first))

	flushCtx, cancel := context.WithTimeout(ctx, r.flushInterval)
	defer cancel()

	for len(raws) < batchSize {
		msg, err := r.reader.FetchMessage(flushCtx)
		if err != nil {
			// Window closed or shutdown under way; flush what we have.
			// A real broker error resurfaces on the next call.
			break
		}
		raws = append(raws, r.mapMessage(msg))
	}
	return raws, nil
}

func (r *Reader) Close() error {
	return r.reader.Close()
}

func (r *Reader) mapMessage(msg kafkago.Message) domain.RawRequest {
	raw := mapMessageToRawRequest(msg)
	raw.Commit = func(ctx context.Context) error {
		return r.reader.CommitMessages(ctx, msg)
	}
	return raw
}

// mapMessageToRawRequest copies the transport fields of a Kafka message into
// the domain's raw request form.
func mapMessageToRawRequest(msg kafkago.Message) domain.RawRequest {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return domain.RawRequest{
		Key:       msg.Key,
		Value:     msg.Value,
		Headers:   headers,
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
	}
}
