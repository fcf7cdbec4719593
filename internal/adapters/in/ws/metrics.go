package ws

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	connectionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ws_connections_active",
		Help: "Number of live websocket connections.",
	})
	onlineUsersGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ws_online_users",
		Help: "Number of users with at least one live connection.",
	})
	roomsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ws_rooms",
		Help: "Number of rooms with at least one member.",
	})
	eventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_events_total",
		Help: "Number of websocket events by direction.",
	}, []string{"direction"})
	bytesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_bytes_total",
		Help: "Websocket payload bytes by direction.",
	}, []string{"direction"})
	authFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ws_auth_failures_total",
		Help: "Number of rejected connection attempts.",
	})
)

// RegisterMetrics 在外层 main 包里注册到 prometheus
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(connectionsActive, onlineUsersGauge, roomsGauge,
		eventsTotal, bytesTotal, authFailures)
}

// ConnMetrics 单连接的进出流量统计
type ConnMetrics struct {
	EventsIn     atomic.Int64
	EventsOut    atomic.Int64
	BytesIn      atomic.Int64
	BytesOut     atomic.Int64
	lastActivity atomic.Int64 // unix纳秒
	latency      atomic.Int64 // 最近一次心跳往返，纳秒
}

// CountIn 记录一条入站事件
func (m *ConnMetrics) CountIn(size int) {
	m.EventsIn.Add(1)
	m.BytesIn.Add(int64(size))
	m.lastActivity.Store(time.Now().UnixNano())
	eventsTotal.WithLabelValues("in").Inc()
	bytesTotal.WithLabelValues("in").Add(float64(size))
}

// CountOut 记录一条出站事件
func (m *ConnMetrics) CountOut(size int) {
	m.EventsOut.Add(1)
	m.BytesOut.Add(int64(size))
	m.lastActivity.Store(time.Now().UnixNano())
	eventsTotal.WithLabelValues("out").Inc()
	bytesTotal.WithLabelValues("out").Add(float64(size))
}

// ObserveLatency 记录心跳往返耗时
func (m *ConnMetrics) ObserveLatency(d time.Duration) {
	m.latency.Store(int64(d))
	m.lastActivity.Store(time.Now().UnixNano())
}

// Latency 最近一次测得的往返耗时
func (m *ConnMetrics) Latency() time.Duration {
	return time.Duration(m.latency.Load())
}

// LastActivity 最近一次收发的时间
func (m *ConnMetrics) LastActivity() time.Time {
	return time.Unix(0, m.lastActivity.Load())
}

// Sender 发送能力抽象
type Sender interface {
	Send(message []byte) error
}

type senderFunc func([]byte) error

func (f senderFunc) Send(message []byte) error { return f(message) }

// MeasuredSender 显式的计数装饰器，包在真实发送路径外面
// 取代对传输对象方法的运行时替换
type MeasuredSender struct {
	next    Sender
	metrics *ConnMetrics
}

// NewMeasuredSender 用统计装饰一个发送器
func NewMeasuredSender(next Sender, metrics *ConnMetrics) *MeasuredSender {
	return &MeasuredSender{next: next, metrics: metrics}
}

func (s *MeasuredSender) Send(message []byte) error {
	if err := s.next.Send(message); err != nil {
		return err
	}
	s.metrics.CountOut(len(message))
	return nil
}
