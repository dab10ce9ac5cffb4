// Package kafka publishes harmonized per-site forcing records to the
// optional sink topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/pepaaran/ingestr/internal/config"
	"github.com/pepaaran/ingestr/internal/domain"
)

// Writer produces forcing messages to a Kafka topic, one message per site.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishForcing serializes and publishes the records in a single
// WriteMessages call. Messages are keyed by site ID, so re-runs for the same
// site land on the same partition.
func (w *Writer) PublishForcing(ctx context.Context, records []domain.ForcingRecord) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(records[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return err
	}
	w.logger.Debug("published forcing records", "count", len(records))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a forcing record into a Kafka message.
func serializeToMessage(rec domain.ForcingRecord) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize forcing record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(rec.SiteID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "content-type", Value: []byte("application/json")},
			{Key: "ingested_at", Value: []byte(rec.IngestedAt.Format(time.RFC3339))},
		},
	}, nil
}
