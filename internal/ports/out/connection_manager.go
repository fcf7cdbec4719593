package out

// ConnectionManager 连接注册表对用例层暴露的扇出能力
// 实现方持有所有在线连接，这里只描述用例层需要的最小接口
type ConnectionManager interface {
	// IsOnline 用户是否至少有一条在线连接
	IsOnline(userID string) bool
	// EmitToUser 把事件发给该用户的所有在线连接，无连接时返回 false
	EmitToUser(userID, event string, payload any) bool
	// EmitToRoom 把事件发给房间里的所有连接
	EmitToRoom(room, event string, payload any)
	// BroadcastExcept 发给除指定用户以外的所有连接
	BroadcastExcept(senderUserID, event string, payload any)
}
