package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/occultation-etl/internal/config"
	"github.com/couchcryptid/occultation-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes observation records to a Kafka topic, one message per
// record keyed by record ID.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
	now    func() time.Time
}

// NewWriter creates a Kafka producer for the configured topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger, now: domain.Now}
}

// Name identifies the sink in logs and metrics.
func (w *Writer) Name() string { return "kafka" }

// Write serializes and publishes the records in a single WriteMessages call.
func (w *Writer) Write(ctx context.Context, records []domain.ObservationRecord) error {
	if len(records) == 0 {
		return nil
	}
	extractedAt := w.now().UTC()
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(&records[i], extractedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d records: %w", len(msgs), err)
	}
	w.logger.Debug("records published", "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an ObservationRecord into a Kafka message.
func serializeToMessage(rec *domain.ObservationRecord, extractedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize observation record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(rec.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "source_file", Value: []byte(rec.SourceFile)},
			{Key: "event_date", Value: []byte(rec.EventDate)},
			{Key: "extracted_at", Value: []byte(extractedAt.Format(time.RFC3339))},
		},
	}, nil
}
