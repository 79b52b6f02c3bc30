package notifications

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaSink forwards post events to a Kafka topic for downstream consumers.
// Writes are asynchronous; a slow or absent broker never blocks a request.
type KafkaSink struct {
	writer *kafka.Writer
}

// NewKafkaSink creates a writer for topic on brokers. No connection is made
// until the first event.
func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           50 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		Async:                  true,
		AllowAutoTopicCreation: true,
	}}
}

func (k *KafkaSink) Name() string { return "kafka" }

func (k *KafkaSink) Broadcast(ctx context.Context, ev Event) error {
	msg, err := kafkaMessage(ev)
	if err != nil {
		return err
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (k *KafkaSink) Close() error {
	return k.writer.Close()
}

// kafkaMessage keys by post id so one post's events stay in one partition.
func kafkaMessage(ev Event) (kafka.Message, error) {
	data, err := ev.Encode()
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(ev.PostID), 10)),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(EventType)},
			{Key: "action", Value: []byte(ev.Action)},
		},
		Time: time.Now().UTC(),
	}, nil
}
