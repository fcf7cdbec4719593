package out

import (
	"context"

	"github.com/caixinha/realtime/internal/domain/entity"
)

// MessageRepository 消息持久化协作方
type MessageRepository interface {
	// Create 持久化一条新消息，成功后回填ID
	Create(ctx context.Context, msg *entity.ChatMessage) error
	// MarkConversationRead 把会话里发给该用户的消息全部标记为已读
	MarkConversationRead(ctx context.Context, conversationID, userID string) error
	// UpdateStatus 更新单条消息的状态
	UpdateStatus(ctx context.Context, conversationID, messageID, status string) error
	// Delete 删除单条消息
	Delete(ctx context.Context, conversationID, messageID string) error
}
