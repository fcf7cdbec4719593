package events

import (
	"encoding/json"
	"time"
)

// Envelope WebSocket消息信封
type Envelope struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"` // 客户端请求ID，用于关联响应
	Data json.RawMessage `json:"data,omitempty"`
	Ts   int64           `json:"ts,omitempty"` // 服务端时间戳（毫秒）
}

// Encode 把事件和载荷编码成一条完整的信封消息
func Encode(event string, payload any) ([]byte, error) {
	var data json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		data = b
	}
	return json.Marshal(Envelope{
		Type: event,
		Data: data,
		Ts:   time.Now().UnixMilli(),
	})
}
