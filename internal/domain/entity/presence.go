package entity

import "time"

// PresenceStatus 状态枚举
type PresenceStatus string

const (
	PresenceStatusOnline    PresenceStatus = "online"
	PresenceStatusAway      PresenceStatus = "away"
	PresenceStatusBusy      PresenceStatus = "busy"
	PresenceStatusInvisible PresenceStatus = "invisible"
	PresenceStatusOffline   PresenceStatus = "offline"
)

// NormalizeStatus 客户端提交的状态只允许五个已知值，未知值一律回落到 online
func NormalizeStatus(s string) PresenceStatus {
	switch PresenceStatus(s) {
	case PresenceStatusOnline, PresenceStatusAway, PresenceStatusBusy,
		PresenceStatusInvisible, PresenceStatusOffline:
		return PresenceStatus(s)
	default:
		return PresenceStatusOnline
	}
}

// DeviceType 设备类型，从 User-Agent 推断，仅作展示用途
type DeviceType string

const (
	DeviceTypeMobile  DeviceType = "mobile"
	DeviceTypeTablet  DeviceType = "tablet"
	DeviceTypeDesktop DeviceType = "desktop"
)

// DeviceInfo 连接的设备元信息
type DeviceInfo struct {
	Type    DeviceType `json:"type"`
	Browser string     `json:"browser,omitempty"`
	IP      string     `json:"ip,omitempty"`
}

// PresenceRecord 用户在线状态记录，每个用户一条
type PresenceRecord struct {
	UserID       string         `json:"user_id"`
	Online       bool           `json:"online"`
	Status       PresenceStatus `json:"status"`
	LastActivity time.Time      `json:"last_activity"`
	LastSeen     string         `json:"last_seen,omitempty"` // ISO8601，仅在完全离线时写入
	Device       *DeviceInfo    `json:"device,omitempty"`
	LastUpdated  time.Time      `json:"last_updated"`
}

// PresenceEvent 状态变更事件，发布给下游服务
type PresenceEvent struct {
	UserID    string         `json:"user_id"`
	OldStatus PresenceStatus `json:"old_status"`
	NewStatus PresenceStatus `json:"new_status"`
	Timestamp time.Time      `json:"timestamp"`
}
