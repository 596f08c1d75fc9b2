package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// PostProcessEvent is the message consumed by the post-processing worker.
type PostProcessEvent struct {
	FileID     uuid.UUID `json:"file_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// KafkaQueue publishes post-process events to a Kafka topic, keyed by
// file id so retries for one file stay on one partition.
type KafkaQueue struct {
	writer *kafka.Writer
}

func NewKafkaQueue(brokers []string, topic string) *KafkaQueue {
	return &KafkaQueue{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			WriteTimeout: 10 * time.Second,
			ReadTimeout:  10 * time.Second,
		},
	}
}

func (q *KafkaQueue) EnqueuePostProcess(ctx context.Context, fileID uuid.UUID) error {
	event := PostProcessEvent{FileID: fileID, EnqueuedAt: time.Now().UTC()}
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal post-process event: %w", err)
	}

	err = q.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(fileID.String()),
		Value: value,
		Time:  event.EnqueuedAt,
	})
	if err != nil {
		return fmt.Errorf("write post-process event: %w", err)
	}
	return nil
}

func (q *KafkaQueue) Close() error {
	return q.writer.Close()
}
