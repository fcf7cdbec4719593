package events

// 实时层的事件词汇表，所有组件共享
// 这些常量就是线上协议里的事件名，改动会破坏客户端兼容性

// 连接相关
const (
	Connect          = "connect"
	Disconnect       = "disconnect"
	Error            = "error"
	Reconnect        = "reconnect"
	ReconnectAttempt = "reconnect_attempt"
)

// 聊天室相关
const (
	JoinChat    = "join_chat"
	LeaveChat   = "leave_chat"
	JoinSuccess = "join_success"
	JoinError   = "join_error"
	UserJoined  = "user_joined"
	UserLeft    = "user_left"
)

// 消息相关
const (
	SendMessage         = "send_message"
	DeleteMessage       = "delete_message"
	NewMessage          = "new_message"
	MessageDeleted      = "message_deleted"
	MessageStatusUpdate = "message_status_update"
	MessageDelivered    = "message_delivered"
	MessageRead         = "message_read"
	ReconcileMessage    = "reconcile_message"
	MessageSendFailed   = "message_send_failed"
)

// 输入状态相关
const (
	TypingStatus      = "typing_status"
	UserTyping        = "user_typing"
	UserStoppedTyping = "user_stopped_typing"
)

// 通知相关
const (
	NewNotification    = "new_notification"
	NotificationRead   = "notification_read"
	ClearNotifications = "clear_notifications"
)

// 在线状态相关
const (
	UserStatusChange = "user_status_change"
	UserOnline       = "user_online"
	UserOffline      = "user_offline"
	UserInactive     = "user_inactive"
	GetOnlineUsers   = "get_online_users"
	OnlineUsersList  = "online_users_list"
)

// 系统相关
const (
	AuthenticationError = "authentication_error"
	PermissionError     = "permission_error"
	ValidationError     = "validation_error"
	ServerError         = "server_error"
	Maintenance         = "maintenance"
)
