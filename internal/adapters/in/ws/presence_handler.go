package ws

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/caixinha/realtime/internal/events"
	"github.com/caixinha/realtime/internal/ports/in"
)

// PresenceHandler 在线状态事件处理器
type PresenceHandler struct {
	presence in.PresenceUseCase
}

// NewPresenceHandler 创建在线状态处理器
func NewPresenceHandler(presence in.PresenceUseCase) *PresenceHandler {
	return &PresenceHandler{presence: presence}
}

type statusChangePayload struct {
	Status string `json:"status"`
}

// HandleStatusChange 客户端切换状态，未知值由用例层回落到online
func (h *PresenceHandler) HandleStatusChange(ctx context.Context, conn *Conn, data json.RawMessage) {
	var p statusChangePayload
	if err := json.Unmarshal(data, &p); err != nil {
		zap.L().Debug("status change dropped", zap.String("user_id", conn.UserID()))
		return
	}
	h.presence.UpdateStatus(ctx, conn.UserID(), p.Status)
}

type onlineUsersPayload struct {
	UserIDs []string `json:"user_ids"`
}

// HandleGetOnlineUsers 查询在线用户，候选列表为空时回落到社交关系
func (h *PresenceHandler) HandleGetOnlineUsers(ctx context.Context, conn *Conn, data json.RawMessage) {
	var p onlineUsersPayload
	if len(data) > 0 {
		_ = json.Unmarshal(data, &p)
	}

	users, err := h.presence.GetOnlineUsers(ctx, conn.UserID(), p.UserIDs)
	if err != nil {
		zap.L().Error("get online users failed",
			zap.String("user_id", conn.UserID()),
			zap.Error(err))
		conn.SendEvent(events.ServerError, map[string]any{
			"action": events.GetOnlineUsers,
			"error":  "failed to resolve online users",
		})
		return
	}

	conn.SendEvent(events.OnlineUsersList, map[string]any{
		"users":     users,
		"timestamp": time.Now().UnixMilli(),
	})
}
