package in

import (
	"context"

	"github.com/caixinha/realtime/internal/domain/entity"
)

// PresenceUseCase 在线状态用例
type PresenceUseCase interface {
	// HandleConnect 用户新连接接入，首条连接会向好友广播上线
	HandleConnect(ctx context.Context, userID string, device *entity.DeviceInfo)
	// UpdateStatus 客户端主动切换状态，未知值回落到 online
	UpdateStatus(ctx context.Context, userID, status string)
	// Heartbeat 心跳刷新活跃时间，不产生任何广播
	Heartbeat(userID string)
	// HandleDisconnect 用户最后一条连接断开，强制转为 offline
	HandleDisconnect(ctx context.Context, userID string)
	// GetOnlineUsers 查询在线用户，candidates 为空时回落到社交关系
	GetOnlineUsers(ctx context.Context, requesterID string, candidates []string) ([]string, error)
}
