package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/caixinha/realtime/internal/events"
	"github.com/caixinha/realtime/internal/ports/in"
)

// Server 连接编排器
// 每条接入连接依次经过：升级 → 计数装饰 → 准入 → 登记 → 处理器分发
type Server struct {
	cfg      *Config
	registry *Registry
	gate     *AuthGate
	presence in.PresenceUseCase

	chatHandler  *ChatHandler
	notifHandler *NotificationHandler
	presHandler  *PresenceHandler

	upgrader    websocket.Upgrader
	stopMonitor chan struct{}
}

// NewServer 组装编排器
func NewServer(
	cfg *Config,
	registry *Registry,
	gate *AuthGate,
	presence in.PresenceUseCase,
	chat in.ChatUseCase,
	notifications in.NotificationUseCase,
) *Server {
	s := &Server{
		cfg:          cfg,
		registry:     registry,
		gate:         gate,
		presence:     presence,
		chatHandler:  NewChatHandler(registry, chat),
		notifHandler: NewNotificationHandler(registry, notifications),
		presHandler:  NewPresenceHandler(presence),
		stopMonitor:  make(chan struct{}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// checkOrigin CORS白名单，未配置时放行
func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

// HandleConnection 处理一条接入连接，认证失败的连接绝不会走到处理器注册
func (s *Server) HandleConnection(w http.ResponseWriter, r *http.Request) {
	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	identity, device, err := s.gate.Admit(r.Context(), r)
	if err != nil {
		s.reject(wsConn, err)
		return
	}

	conn := NewConn(wsConn, s.cfg)
	conn.attachIdentity(identity, device)
	conn.onClose = func() { s.handleDisconnect(conn) }
	conn.onPong = func(rtt time.Duration) {
		if rtt > s.cfg.LatencyWarn {
			zap.L().Warn("high connection latency",
				zap.String("conn_id", conn.ID()),
				zap.String("user_id", conn.UserID()),
				zap.Duration("rtt", rtt))
		}
		// 心跳只刷新活跃时间，不触发任何广播
		s.presence.Heartbeat(conn.UserID())
	}

	s.registry.Register(conn)
	connectionsActive.Inc()

	go conn.WritePump()

	conn.SendEvent(events.Connect, map[string]any{
		"connection_id": conn.ID(),
		"user_id":       conn.UserID(),
		"server_time":   time.Now().UnixMilli(),
	})

	s.presence.HandleConnect(context.Background(), conn.UserID(), device)

	conn.ReadPump(s.dispatch)
}

// reject 认证失败：尽力把错误事件写出去，留出冲刷时间再断开
func (s *Server) reject(wsConn *websocket.Conn, cause error) {
	authFailures.Inc()
	zap.L().Warn("connection rejected", zap.Error(cause))

	if data, err := events.Encode(events.AuthenticationError, map[string]any{
		"error": cause.Error(),
	}); err == nil {
		wsConn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
		wsConn.WriteMessage(websocket.TextMessage, data)
	}
	time.Sleep(s.cfg.AuthGrace)
	wsConn.Close()
}

// dispatch 按事件类型分发到处理器
func (s *Server) dispatch(conn *Conn, raw []byte) {
	var env events.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		conn.SendEvent(events.ValidationError, map[string]any{
			"error": "invalid message format",
		})
		return
	}

	ctx := context.Background()

	switch env.Type {
	case events.JoinChat:
		s.chatHandler.HandleJoin(ctx, conn, env.Data)
	case events.LeaveChat:
		s.chatHandler.HandleLeave(ctx, conn, env.Data)
	case events.SendMessage:
		s.chatHandler.HandleSend(ctx, conn, env.Data)
	case events.MessageStatusUpdate:
		s.chatHandler.HandleStatusUpdate(ctx, conn, env.Data)
	case events.DeleteMessage:
		s.chatHandler.HandleDelete(ctx, conn, env.Data)
	case events.TypingStatus:
		s.chatHandler.HandleTyping(ctx, conn, env.Data)
	case events.NotificationRead:
		s.notifHandler.HandleMarkRead(ctx, conn, env.Data)
	case events.ClearNotifications:
		s.notifHandler.HandleClearAll(ctx, conn, env.Data)
	case events.UserStatusChange:
		s.presHandler.HandleStatusChange(ctx, conn, env.Data)
	case events.GetOnlineUsers:
		s.presHandler.HandleGetOnlineUsers(ctx, conn, env.Data)
	default:
		conn.SendEvent(events.ValidationError, map[string]any{
			"error": "unknown event type",
			"type":  env.Type,
		})
	}
}

// handleDisconnect 断连级联：摘除注册、必要时触发离线转变
func (s *Server) handleDisconnect(conn *Conn) {
	userID, wentOffline := s.registry.Remove(conn.ID())
	connectionsActive.Dec()

	m := conn.Metrics()
	zap.L().Info("connection closed",
		zap.String("conn_id", conn.ID()),
		zap.String("user_id", userID),
		zap.Int64("events_in", m.EventsIn.Load()),
		zap.Int64("events_out", m.EventsOut.Load()),
		zap.Int64("bytes_in", m.BytesIn.Load()),
		zap.Int64("bytes_out", m.BytesOut.Load()),
		zap.Duration("latency", m.Latency()))

	if wentOffline && userID != "" {
		s.presence.HandleDisconnect(context.Background(), userID)
	}
}

// StartMonitor 周期性输出系统级指标快照
func (s *Server) StartMonitor() {
	go func() {
		ticker := time.NewTicker(s.cfg.MetricsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.snapshot()
			case <-s.stopMonitor:
				return
			}
		}
	}()
}

func (s *Server) snapshot() {
	stats := s.registry.Stats()
	onlineUsersGauge.Set(float64(stats.OnlineUsers))
	roomsGauge.Set(float64(stats.Rooms))

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	zap.L().Info("system metrics",
		zap.Int("connections", stats.Connections),
		zap.Int("online_users", stats.OnlineUsers),
		zap.Int("rooms", stats.Rooms),
		zap.Uint64("heap_alloc_mb", mem.HeapAlloc/1024/1024),
		zap.Int("goroutines", runtime.NumGoroutine()))
}

// Stats 注册表快照，给 /stats 端点用
func (s *Server) Stats() RegistryStats {
	return s.registry.Stats()
}

// Shutdown 停机序列：停监控 → 广播维护通告 → 等待冲刷 → 清空注册表
func (s *Server) Shutdown(ctx context.Context) {
	close(s.stopMonitor)

	s.registry.BroadcastAll(events.Maintenance, map[string]any{
		"message": "server is going down for maintenance",
	})

	select {
	case <-time.After(s.cfg.ShutdownGrace):
	case <-ctx.Done():
	}

	s.registry.Shutdown()
	zap.L().Info("websocket server shut down")
}
