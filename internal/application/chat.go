package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/caixinha/realtime/internal/domain/entity"
	"github.com/caixinha/realtime/internal/ports/in"
	"github.com/caixinha/realtime/internal/ports/out"
)

// ErrValidation 载荷校验失败，处理器据此区分校验错误和协作方错误
var ErrValidation = errors.New("validation failed")

// ChatUseCaseImpl 聊天消息用例实现
type ChatUseCaseImpl struct {
	messages out.MessageRepository
}

// NewChatUseCase 创建聊天用例
func NewChatUseCase(messages out.MessageRepository) in.ChatUseCase {
	return &ChatUseCaseImpl{messages: messages}
}

// SendMessage 校验、补齐字段、落库
// 校验不通过时绝不触碰持久化协作方
func (uc *ChatUseCaseImpl) SendMessage(ctx context.Context, senderID string, input *in.SendMessageInput) (*entity.ChatMessage, error) {
	if input == nil || input.Content == "" {
		return nil, fmt.Errorf("%w: content required", ErrValidation)
	}
	if input.Recipient == "" {
		return nil, fmt.Errorf("%w: recipient required", ErrValidation)
	}

	msg := &entity.ChatMessage{
		ID:             uuid.NewString(),
		ConversationID: entity.ConversationRoomID(senderID, input.Recipient),
		Sender:         senderID,
		Recipient:      input.Recipient,
		Content:        input.Content,
		Timestamp:      time.Now(),
		Status:         entity.MessageStatus{Delivered: true, Read: false},
	}

	if err := uc.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	return msg, nil
}

// MarkConversationRead 进入会话时的已读标记，调用方决定是否尽力而为
func (uc *ChatUseCaseImpl) MarkConversationRead(ctx context.Context, conversationID, userID string) error {
	return uc.messages.MarkConversationRead(ctx, conversationID, userID)
}

// UpdateMessageStatus 更新单条消息状态
func (uc *ChatUseCaseImpl) UpdateMessageStatus(ctx context.Context, userID string, input *in.UpdateStatusInput) error {
	if input == nil || input.ConversationID == "" || input.MessageID == "" || input.Status == "" {
		return fmt.Errorf("%w: conversation_id, message_id and status required", ErrValidation)
	}
	if err := uc.messages.UpdateStatus(ctx, input.ConversationID, input.MessageID, input.Status); err != nil {
		return fmt.Errorf("update message status: %w", err)
	}
	return nil
}

// DeleteMessage 删除单条消息
func (uc *ChatUseCaseImpl) DeleteMessage(ctx context.Context, userID, conversationID, messageID string) error {
	if conversationID == "" || messageID == "" {
		return fmt.Errorf("%w: conversation_id and message_id required", ErrValidation)
	}
	if err := uc.messages.Delete(ctx, conversationID, messageID); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}
