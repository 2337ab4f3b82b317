package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/s4584690/Pixel-Weather/internal/alert"
)

// KafkaDispatcher publishes matches to a Kafka topic consumed by the push
// delivery service. Messages are keyed by user id so per-user ordering is
// preserved across partitions.
type KafkaDispatcher struct {
	writer *kafkago.Writer
	logger *zap.Logger
}

// NewKafkaDispatcher creates a producer for the given brokers and topic.
func NewKafkaDispatcher(brokers []string, topic string, logger *zap.Logger) *KafkaDispatcher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &KafkaDispatcher{writer: w, logger: logger}
}

func (d *KafkaDispatcher) Dispatch(ctx context.Context, m alert.Match) error {
	msg, err := serializeToMessage(m)
	if err != nil {
		return err
	}
	return d.writer.WriteMessages(ctx, msg)
}

func (d *KafkaDispatcher) Close() error {
	return d.writer.Close()
}

// serializeToMessage marshals a Match into a Kafka message.
func serializeToMessage(m alert.Match) (kafkago.Message, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize match: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(m.UserID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "weather", Value: []byte(m.Category)},
			{Key: "suburb_id", Value: []byte(m.Suburb.ID)},
			{Key: "matched_at", Value: []byte(m.Timestamp.Format(time.RFC3339))},
		},
	}, nil
}
