package application

import (
	"context"
	"fmt"

	"github.com/caixinha/realtime/internal/events"
	"github.com/caixinha/realtime/internal/ports/in"
	"github.com/caixinha/realtime/internal/ports/out"
)

// NotificationUseCaseImpl 通知用例实现
type NotificationUseCaseImpl struct {
	notifications out.NotificationRepository
	connMgr       out.ConnectionManager
}

// NewNotificationUseCase 创建通知用例
func NewNotificationUseCase(
	notifications out.NotificationRepository,
	connMgr out.ConnectionManager,
) in.NotificationUseCase {
	return &NotificationUseCaseImpl{
		notifications: notifications,
		connMgr:       connMgr,
	}
}

// MarkRead 标记单条通知已读
func (uc *NotificationUseCaseImpl) MarkRead(ctx context.Context, userID, notificationID string) error {
	if notificationID == "" {
		return fmt.Errorf("%w: notification_id required", ErrValidation)
	}
	if err := uc.notifications.MarkRead(ctx, userID, notificationID); err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

// ClearAll 清空用户的全部通知
func (uc *NotificationUseCaseImpl) ClearAll(ctx context.Context, userID string) error {
	if err := uc.notifications.ClearAll(ctx, userID); err != nil {
		return fmt.Errorf("clear notifications: %w", err)
	}
	return nil
}

// SendRealTime 立即推送，没有任何排队兜底
// 返回 false 表示用户不在线，未读落库是调用方的责任
func (uc *NotificationUseCaseImpl) SendRealTime(userID string, notification any) bool {
	return uc.connMgr.EmitToUser(userID, events.NewNotification, notification)
}
