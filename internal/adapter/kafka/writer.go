package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/clock-sync-engine/internal/config"
	"github.com/couchcryptid/clock-sync-engine/internal/domain"
)

// EventDisplay is the event_type header value of published display snapshots.
const EventDisplay = "display"

// Writer produces display snapshots to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer     *kafkago.Writer
	instanceID string
	logger     *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic. Every
// message is keyed by a per-process instance ID so one engine's snapshots
// stay ordered on a single partition.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, instanceID: uuid.NewString(), logger: logger}
}

// LoadBatch serializes and publishes display snapshots in a single
// WriteMessages call.
func (w *Writer) LoadBatch(ctx context.Context, states []domain.DisplayState) error {
	if len(states) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(states))
	for i := range states {
		msg, err := serializeToMessage(w.instanceID, states[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write display snapshots: %w", err)
	}
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a DisplayState into a Kafka message.
func serializeToMessage(key string, state domain.DisplayState) (kafkago.Message, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize display state: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Time:  state.UpdatedAt,
		Headers: []kafkago.Header{
			{Key: domain.HeaderEventType, Value: []byte(EventDisplay)},
			{Key: "published_at", Value: []byte(state.UpdatedAt.UTC().Format(time.RFC3339Nano))},
			{Key: "seq", Value: []byte(fmt.Sprint(state.Seq))},
		},
	}, nil
}
