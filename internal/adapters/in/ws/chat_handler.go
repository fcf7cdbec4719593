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

// ChatHandler 聊天事件处理器
// 错误上报策略统一：校验失败和协作方失败都只回给请求方，
// 绝不把错误形态的载荷广播到房间
type ChatHandler struct {
	registry *Registry
	chat     in.ChatUseCase
}

// NewChatHandler 创建聊天处理器
func NewChatHandler(registry *Registry, chat in.ChatUseCase) *ChatHandler {
	return &ChatHandler{registry: registry, chat: chat}
}

type roomPayload struct {
	ConversationID string `json:"conversation_id"`
}

// HandleJoin 加入会话房间
// 已读标记是尽力而为，失败不阻塞成功响应
func (h *ChatHandler) HandleJoin(ctx context.Context, conn *Conn, data json.RawMessage) {
	var p roomPayload
	if err := json.Unmarshal(data, &p); err != nil || p.ConversationID == "" {
		conn.SendEvent(events.JoinError, map[string]any{
			"error": "conversation_id required",
		})
		return
	}

	h.registry.JoinRoom(conn, p.ConversationID)

	if err := h.chat.MarkConversationRead(ctx, p.ConversationID, conn.UserID()); err != nil {
		zap.L().Warn("mark conversation read failed",
			zap.String("conversation_id", p.ConversationID),
			zap.String("user_id", conn.UserID()),
			zap.Error(err))
	}

	conn.SendEvent(events.JoinSuccess, map[string]any{
		"conversation_id": p.ConversationID,
	})
	h.registry.EmitToRoomExcept(p.ConversationID, conn.ID(), events.UserJoined, map[string]any{
		"conversation_id": p.ConversationID,
		"user_id":         conn.UserID(),
	})
}

// HandleLeave 离开会话房间，空ID是空操作
func (h *ChatHandler) HandleLeave(ctx context.Context, conn *Conn, data json.RawMessage) {
	var p roomPayload
	if err := json.Unmarshal(data, &p); err != nil || p.ConversationID == "" {
		return
	}

	h.registry.LeaveRoom(conn, p.ConversationID)
	h.registry.EmitToRoomExcept(p.ConversationID, conn.ID(), events.UserLeft, map[string]any{
		"conversation_id": p.ConversationID,
		"user_id":         conn.UserID(),
	})
}

// HandleSend 发送消息
// 成功路径：先给发送方回对账事件，再向整个房间（含发送方其他设备）扇出
func (h *ChatHandler) HandleSend(ctx context.Context, conn *Conn, data json.RawMessage) {
	var input in.SendMessageInput
	if err := json.Unmarshal(data, &input); err != nil {
		conn.SendEvent(events.MessageSendFailed, map[string]any{
			"error": "invalid message payload",
		})
		return
	}

	msg, err := h.chat.SendMessage(ctx, conn.UserID(), &input)
	if err != nil {
		if !errors.Is(err, application.ErrValidation) {
			zap.L().Error("send message failed",
				zap.String("user_id", conn.UserID()),
				zap.Error(err))
		}
		// 失败事件带上客户端临时ID，方便客户端对账；不自动重试
		conn.SendEvent(events.MessageSendFailed, map[string]any{
			"temporary_id": input.TemporaryID,
			"error":        err.Error(),
		})
		return
	}

	if input.TemporaryID != "" {
		conn.SendEvent(events.ReconcileMessage, map[string]any{
			"temporary_id":      input.TemporaryID,
			"permanent_message": msg,
		})
	}
	h.registry.EmitToRoom(msg.ConversationID, events.NewMessage, msg)
}

// HandleStatusUpdate 更新消息状态并把结果广播给整个房间
func (h *ChatHandler) HandleStatusUpdate(ctx context.Context, conn *Conn, data json.RawMessage) {
	var input in.UpdateStatusInput
	if err := json.Unmarshal(data, &input); err != nil {
		conn.SendEvent(events.ValidationError, map[string]any{
			"action": events.MessageStatusUpdate,
			"error":  "invalid payload",
		})
		return
	}

	if err := h.chat.UpdateMessageStatus(ctx, conn.UserID(), &input); err != nil {
		if errors.Is(err, application.ErrValidation) {
			conn.SendEvent(events.ValidationError, map[string]any{
				"action": events.MessageStatusUpdate,
				"error":  err.Error(),
			})
			return
		}
		zap.L().Error("update message status failed",
			zap.String("message_id", input.MessageID),
			zap.Error(err))
		conn.SendEvent(events.ServerError, map[string]any{
			"action": events.MessageStatusUpdate,
			"error":  "failed to update message status",
		})
		return
	}

	h.registry.EmitToRoom(input.ConversationID, events.MessageStatusUpdate, map[string]any{
		"conversation_id": input.ConversationID,
		"message_id":      input.MessageID,
		"status":          input.Status,
		"updated_by":      conn.UserID(),
	})
}

type deletePayload struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
}

// HandleDelete 删除消息，成功才通知房间
func (h *ChatHandler) HandleDelete(ctx context.Context, conn *Conn, data json.RawMessage) {
	var p deletePayload
	if err := json.Unmarshal(data, &p); err != nil {
		conn.SendEvent(events.ValidationError, map[string]any{
			"action": events.DeleteMessage,
			"error":  "invalid payload",
		})
		return
	}

	if err := h.chat.DeleteMessage(ctx, conn.UserID(), p.ConversationID, p.MessageID); err != nil {
		if errors.Is(err, application.ErrValidation) {
			conn.SendEvent(events.ValidationError, map[string]any{
				"action": events.DeleteMessage,
				"error":  err.Error(),
			})
			return
		}
		zap.L().Error("delete message failed",
			zap.String("message_id", p.MessageID),
			zap.Error(err))
		conn.SendEvent(events.ServerError, map[string]any{
			"action": events.DeleteMessage,
			"error":  "failed to delete message",
		})
		return
	}

	h.registry.EmitToRoom(p.ConversationID, events.MessageDeleted, map[string]any{
		"conversation_id": p.ConversationID,
		"message_id":      p.MessageID,
		"deleted_by":      conn.UserID(),
	})
}

type typingPayload struct {
	ConversationID string `json:"conversation_id"`
	IsTyping       bool   `json:"is_typing"`
}

// HandleTyping 输入状态，只发给房间里其他人，频率高，最低日志级别
func (h *ChatHandler) HandleTyping(ctx context.Context, conn *Conn, data json.RawMessage) {
	var p typingPayload
	if err := json.Unmarshal(data, &p); err != nil || p.ConversationID == "" {
		zap.L().Debug("typing event dropped", zap.String("user_id", conn.UserID()))
		return
	}

	event := events.UserStoppedTyping
	if p.IsTyping {
		event = events.UserTyping
	}
	h.registry.EmitToRoomExcept(p.ConversationID, conn.ID(), event, map[string]any{
		"conversation_id": p.ConversationID,
		"user_id":         conn.UserID(),
		"is_typing":       p.IsTyping,
		"timestamp":       time.Now().UnixMilli(),
	})
}
