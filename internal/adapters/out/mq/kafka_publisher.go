package mq

import (
	"context"

	"github.com/segmentio/kafka-go"

	"github.com/caixinha/realtime/internal/ports/out"
)

// KafkaPublisher 使用 segmentio/kafka-go 实现 EventPublisher
type KafkaPublisher struct {
	Writer *kafka.Writer
}

// NewKafkaPublisher 创建一个 KafkaPublisher
func NewKafkaPublisher(w *kafka.Writer) out.EventPublisher {
	return &KafkaPublisher{Writer: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic, key string, value []byte) error {
	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	}
	return p.Writer.WriteMessages(ctx, msg)
}
