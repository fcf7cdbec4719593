package out

import (
	"context"
	"time"

	"github.com/caixinha/realtime/internal/domain/entity"
)

// PresenceStore 在线状态持久化协作方，写入都是尽力而为
type PresenceStore interface {
	// SavePresence 保存状态快照
	SavePresence(ctx context.Context, record *entity.PresenceRecord) error
	// SaveLastSeen 用户完全离线时写入最后在线时间
	SaveLastSeen(ctx context.Context, userID string, at time.Time) error
}
