package ws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/caixinha/realtime/internal/application"
	"github.com/caixinha/realtime/internal/events"
	"github.com/caixinha/realtime/internal/ports/in"
)

// NotificationHandler 通知事件处理器
// 成功时回请求方并同步到该用户的其他设备，失败只回请求方
type NotificationHandler struct {
	registry      *Registry
	notifications in.NotificationUseCase
}

// NewNotificationHandler 创建通知处理器
func NewNotificationHandler(registry *Registry, notifications in.NotificationUseCase) *NotificationHandler {
	return &NotificationHandler{registry: registry, notifications: notifications}
}

type markReadPayload struct {
	NotificationID string `json:"notification_id"`
}

// HandleMarkRead 标记单条通知已读
func (h *NotificationHandler) HandleMarkRead(ctx context.Context, conn *Conn, data json.RawMessage) {
	var p markReadPayload
	if err := json.Unmarshal(data, &p); err != nil {
		conn.SendEvent(events.ValidationError, map[string]any{
			"action": events.NotificationRead,
			"error":  "invalid payload",
		})
		return
	}

	if err := h.notifications.MarkRead(ctx, conn.UserID(), p.NotificationID); err != nil {
		if errors.Is(err, application.ErrValidation) {
			conn.SendEvent(events.ValidationError, map[string]any{
				"action": events.NotificationRead,
				"error":  err.Error(),
			})
			return
		}
		zap.L().Error("mark notification read failed",
			zap.String("notification_id", p.NotificationID),
			zap.String("user_id", conn.UserID()),
			zap.Error(err))
		conn.SendEvent(events.NotificationRead, map[string]any{
			"success":         false,
			"notification_id": p.NotificationID,
			"error":           "failed to mark notification read",
		})
		return
	}

	payload := map[string]any{
		"success":         true,
		"notification_id": p.NotificationID,
		"timestamp":       time.Now().UnixMilli(),
	}
	conn.SendEvent(events.NotificationRead, payload)
	// 失败时不做多端同步
	h.registry.EmitToUserExcept(conn.UserID(), conn.ID(), events.NotificationRead, payload)
}

// HandleClearAll 清空全部通知
func (h *NotificationHandler) HandleClearAll(ctx context.Context, conn *Conn, data json.RawMessage) {
	if err := h.notifications.ClearAll(ctx, conn.UserID()); err != nil {
		zap.L().Error("clear notifications failed",
			zap.String("user_id", conn.UserID()),
			zap.Error(err))
		conn.SendEvent(events.ClearNotifications, map[string]any{
			"success": false,
			"error":   "failed to clear notifications",
		})
		return
	}

	payload := map[string]any{
		"success":   true,
		"timestamp": time.Now().UnixMilli(),
	}
	conn.SendEvent(events.ClearNotifications, payload)
	h.registry.EmitToUserExcept(conn.UserID(), conn.ID(), events.ClearNotifications, payload)
}
