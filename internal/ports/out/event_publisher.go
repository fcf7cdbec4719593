package out

import "context"

// EventPublisher 领域事件发布协作方
type EventPublisher interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
}
