package ws

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/caixinha/realtime/internal/domain/entity"
	"github.com/caixinha/realtime/internal/events"
	"github.com/caixinha/realtime/internal/ports/out"
)

// Conn 一条在线的WebSocket连接
// 传输层是连接的唯一属主，注册表只按ID弱引用它
type Conn struct {
	id  string
	ws  *websocket.Conn
	cfg *Config

	userID        string
	authenticated bool
	identity      *out.Identity
	device        *entity.DeviceInfo

	metrics *ConnMetrics
	sender  Sender
	send    chan []byte
	done    chan struct{}
	closed  int32

	lastPingAt atomic.Int64 // unix纳秒
	onPong     func(rtt time.Duration)
	onClose    func()
	closeOnce  sync.Once
}

// NewConn 包装一条刚完成握手的传输连接
func NewConn(ws *websocket.Conn, cfg *Config) *Conn {
	c := &Conn{
		id:      uuid.NewString(),
		ws:      ws,
		cfg:     cfg,
		metrics: &ConnMetrics{},
		send:    make(chan []byte, cfg.SendBuffer),
		done:    make(chan struct{}),
	}
	c.sender = NewMeasuredSender(senderFunc(c.enqueue), c.metrics)
	return c
}

// ID 连接ID
func (c *Conn) ID() string { return c.id }

// UserID 属主用户，认证前为空
func (c *Conn) UserID() string { return c.userID }

// Authenticated 是否已通过准入
func (c *Conn) Authenticated() bool { return c.authenticated }

// Device 设备元信息
func (c *Conn) Device() *entity.DeviceInfo { return c.device }

// Metrics 本连接的流量统计
func (c *Conn) Metrics() *ConnMetrics { return c.metrics }

// attachIdentity 准入通过后附着身份与设备信息
func (c *Conn) attachIdentity(identity *out.Identity, device *entity.DeviceInfo) {
	c.identity = identity
	c.userID = identity.UserID
	c.device = device
	c.authenticated = true
}

// enqueue 原始发送路径：推进发送缓冲，满则报错不阻塞
func (c *Conn) enqueue(message []byte) error {
	if atomic.LoadInt32(&c.closed) == 1 {
		return fmt.Errorf("connection closed")
	}
	select {
	case c.send <- message:
		return nil
	default:
		return fmt.Errorf("send buffer full")
	}
}

// Send 经过计数装饰器的发送
func (c *Conn) Send(message []byte) error {
	return c.sender.Send(message)
}

// SendEvent 编码并发送一个事件
func (c *Conn) SendEvent(event string, payload any) error {
	data, err := events.Encode(event, payload)
	if err != nil {
		return err
	}
	return c.Send(data)
}

// Close 幂等关闭
// 发送缓冲永远不close：并发的Send可能正在入队，改用done通知写循环退出，
// 缓冲里残留的消息直接丢弃
func (c *Conn) Close() error {
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return nil
	}
	close(c.done)
	if c.ws != nil {
		return c.ws.Close()
	}
	return nil
}

// IsClosed 是否已关闭
func (c *Conn) IsClosed() bool {
	return atomic.LoadInt32(&c.closed) == 1
}

// ReadPump 读取循环，连接断开时触发清理回调
func (c *Conn) ReadPump(handle func(*Conn, []byte)) {
	defer c.cleanup()

	c.ws.SetReadLimit(c.cfg.MaxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		if sent := c.lastPingAt.Load(); sent > 0 {
			rtt := time.Since(time.Unix(0, sent))
			c.metrics.ObserveLatency(rtt)
			if c.onPong != nil {
				c.onPong(rtt)
			}
		}
		return nil
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				zap.L().Warn("websocket read error",
					zap.String("conn_id", c.id),
					zap.String("user_id", c.userID),
					zap.Error(err))
			}
			break
		}
		c.metrics.CountIn(len(message))
		handle(c, message)
	}
}

// WritePump 写入循环，心跳探测也在这里发出
func (c *Conn) WritePump() {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				zap.L().Warn("websocket write error",
					zap.String("conn_id", c.id),
					zap.String("user_id", c.userID),
					zap.Error(err))
				return
			}

		case <-c.done:
			c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			c.lastPingAt.Store(time.Now().UnixNano())
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// cleanup 只执行一次的断连清理
func (c *Conn) cleanup() {
	c.closeOnce.Do(func() {
		c.Close()
		if c.onClose != nil {
			c.onClose()
		}
	})
}
