package entity

import (
	"sort"
	"strings"
	"time"
)

// MessageStatus 消息投递状态对，创建时 delivered=true、read=false
type MessageStatus struct {
	Delivered bool `json:"delivered"`
	Read      bool `json:"read"`
}

// ChatMessage 聊天消息
type ChatMessage struct {
	ID             string        `json:"id"`
	ConversationID string        `json:"conversation_id"`
	Sender         string        `json:"sender"`
	Recipient      string        `json:"recipient"`
	Content        string        `json:"content"`
	Timestamp      time.Time     `json:"timestamp"`
	Status         MessageStatus `json:"status"`
}

// ConversationRoomID 计算双人会话的房间ID
// 参与者排序后拼接，保证双方各自计算得到同一个ID
func ConversationRoomID(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, "_")
}
