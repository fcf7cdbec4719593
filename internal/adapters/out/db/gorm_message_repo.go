package db

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/caixinha/realtime/internal/domain/entity"
	"github.com/caixinha/realtime/internal/ports/out"
)

// MessageModel GORM模型
type MessageModel struct {
	ID             string    `gorm:"column:id;type:varchar(36);primaryKey"`
	ConversationID string    `gorm:"column:conversation_id;type:varchar(128);not null;index"`
	SenderID       string    `gorm:"column:sender_id;type:varchar(64);not null;index"`
	RecipientID    string    `gorm:"column:recipient_id;type:varchar(64);not null;index"`
	Content        string    `gorm:"column:content;type:text;not null"`
	Delivered      bool      `gorm:"column:delivered;not null;default:true"`
	Read           bool      `gorm:"column:read;not null;default:false"`
	Status         string    `gorm:"column:status;type:varchar(16);default:'sent'"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (MessageModel) TableName() string {
	return "messages"
}

func messageModelFromEntity(e *entity.ChatMessage) *MessageModel {
	return &MessageModel{
		ID:             e.ID,
		ConversationID: e.ConversationID,
		SenderID:       e.Sender,
		RecipientID:    e.Recipient,
		Content:        e.Content,
		Delivered:      e.Status.Delivered,
		Read:           e.Status.Read,
		Status:         "sent",
		CreatedAt:      e.Timestamp,
	}
}

// MessageRepositoryMySQL MySQL消息仓储实现
type MessageRepositoryMySQL struct {
	db *gorm.DB
}

func NewMessageRepositoryMySQL(db *gorm.DB) out.MessageRepository {
	return &MessageRepositoryMySQL{db: db}
}

func (r *MessageRepositoryMySQL) Create(ctx context.Context, msg *entity.ChatMessage) error {
	model := messageModelFromEntity(msg)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	msg.ID = model.ID
	return nil
}

// MarkConversationRead 把会话里发给该用户的消息全部标记为已读
func (r *MessageRepositoryMySQL) MarkConversationRead(ctx context.Context, conversationID, userID string) error {
	return r.db.WithContext(ctx).
		Model(&MessageModel{}).
		Where("conversation_id = ? AND recipient_id = ? AND `read` = ?", conversationID, userID, false).
		Updates(map[string]any{"read": true, "status": "read"}).Error
}

func (r *MessageRepositoryMySQL) UpdateStatus(ctx context.Context, conversationID, messageID, status string) error {
	result := r.db.WithContext(ctx).
		Model(&MessageModel{}).
		Where("id = ? AND conversation_id = ?", messageID, conversationID).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("message not found: %s", messageID)
	}
	return nil
}

func (r *MessageRepositoryMySQL) Delete(ctx context.Context, conversationID, messageID string) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND conversation_id = ?", messageID, conversationID).
		Delete(&MessageModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("message not found: %s", messageID)
	}
	return nil
}
