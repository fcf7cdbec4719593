package ws

import "time"

const (
	// 写超时
	defaultWriteWait = 10 * time.Second
	// Pong等待时间
	defaultPongWait = 60 * time.Second
	// Ping周期（必须小于pongWait）
	defaultPingPeriod = 30 * time.Second
	// 最大消息大小
	defaultMaxMessageSize = 64 * 1024
)

// Config WebSocket服务配置
type Config struct {
	WriteWait      time.Duration // 单次写超时
	PongWait       time.Duration // 读超时，收到Pong后刷新
	PingPeriod     time.Duration // 心跳探测周期，必须小于PongWait
	MaxMessageSize int64         // 单条消息大小上限

	LatencyWarn     time.Duration // 心跳往返超过该阈值才记日志
	MetricsInterval time.Duration // 系统级指标快照周期
	AuthGrace       time.Duration // 拒绝连接前留给错误事件的冲刷时间
	ShutdownGrace   time.Duration // 停机广播后的等待时间

	AllowedOrigins []string // CORS白名单，空表示放行
	SendBuffer     int      // 每连接的发送缓冲条数
}

// DefaultConfig 返回缺省配置
func DefaultConfig() *Config {
	return &Config{
		WriteWait:       defaultWriteWait,
		PongWait:        defaultPongWait,
		PingPeriod:      defaultPingPeriod,
		MaxMessageSize:  defaultMaxMessageSize,
		LatencyWarn:     500 * time.Millisecond,
		MetricsInterval: 60 * time.Second,
		AuthGrace:       250 * time.Millisecond,
		ShutdownGrace:   2 * time.Second,
		SendBuffer:      256,
	}
}
