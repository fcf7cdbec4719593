package in

import "context"

// NotificationUseCase 通知用例
type NotificationUseCase interface {
	// MarkRead 把单条通知标记为已读
	MarkRead(ctx context.Context, userID, notificationID string) error
	// ClearAll 清空用户的全部通知
	ClearAll(ctx context.Context, userID string) error
	// SendRealTime 立即推送一条通知，返回是否至少有一条在线连接收到
	// 返回 false 时未读持久化由调用方自行处理
	SendRealTime(userID string, notification any) bool
}
