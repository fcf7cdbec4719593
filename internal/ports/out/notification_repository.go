package out

import "context"

// NotificationRepository 通知持久化协作方
type NotificationRepository interface {
	// MarkRead 把单条通知标记为已读
	MarkRead(ctx context.Context, userID, notificationID string) error
	// ClearAll 清空该用户的全部通知
	ClearAll(ctx context.Context, userID string) error
}
