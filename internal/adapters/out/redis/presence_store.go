package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/caixinha/realtime/internal/domain/entity"
	"github.com/caixinha/realtime/internal/ports/out"
)

const (
	// 状态Key前缀
	presenceKeyPrefix = "rt:presence:user:"
	// 状态快照过期时间
	presenceTTL = 24 * time.Hour
)

// PresenceStoreRedis Redis在线状态存储实现
type PresenceStoreRedis struct {
	client *redis.Client
}

func NewPresenceStoreRedis(client *redis.Client) out.PresenceStore {
	return &PresenceStoreRedis{client: client}
}

func (r *PresenceStoreRedis) getKey(userID string) string {
	return fmt.Sprintf("%s%s", presenceKeyPrefix, userID)
}

// SavePresence 保存状态快照
func (r *PresenceStoreRedis) SavePresence(ctx context.Context, record *entity.PresenceRecord) error {
	key := r.getKey(record.UserID)
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if err := r.client.HSet(ctx, key, "snapshot", string(data)).Err(); err != nil {
		return err
	}
	return r.client.Expire(ctx, key, presenceTTL).Err()
}

// SaveLastSeen 用户完全离线时写入最后在线时间
func (r *PresenceStoreRedis) SaveLastSeen(ctx context.Context, userID string, at time.Time) error {
	key := r.getKey(userID)
	if err := r.client.HSet(ctx, key, "last_seen", at.Format(time.RFC3339)).Err(); err != nil {
		return err
	}
	return r.client.Expire(ctx, key, presenceTTL).Err()
}
