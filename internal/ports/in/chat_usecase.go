package in

import (
	"context"

	"github.com/caixinha/realtime/internal/domain/entity"
)

// SendMessageInput 发送消息的入参
type SendMessageInput struct {
	Content     string `json:"content"`
	Recipient   string `json:"recipient"`
	TemporaryID string `json:"temporary_id,omitempty"`
}

// UpdateStatusInput 更新消息状态的入参
type UpdateStatusInput struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
	Status         string `json:"status"`
}

// ChatUseCase 聊天消息用例
type ChatUseCase interface {
	// SendMessage 校验、落库并返回完整消息实体
	SendMessage(ctx context.Context, senderID string, input *SendMessageInput) (*entity.ChatMessage, error)
	// MarkConversationRead 进入会话时的尽力而为已读标记
	MarkConversationRead(ctx context.Context, conversationID, userID string) error
	// UpdateMessageStatus 更新单条消息状态
	UpdateMessageStatus(ctx context.Context, userID string, input *UpdateStatusInput) error
	// DeleteMessage 删除单条消息
	DeleteMessage(ctx context.Context, userID, conversationID, messageID string) error
}
