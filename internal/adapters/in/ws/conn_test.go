package ws

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestMeasuredSender_CountsOnlySuccessfulSends(t *testing.T) {
	metrics := &ConnMetrics{}
	calls := 0
	sender := NewMeasuredSender(senderFunc(func(msg []byte) error {
		calls++
		if calls > 1 {
			return errors.New("buffer full")
		}
		return nil
	}), metrics)

	if err := sender.Send([]byte("hello")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := sender.Send([]byte("world")); err == nil {
		t.Fatalf("expected error from wrapped sender")
	}

	if got := metrics.EventsOut.Load(); got != 1 {
		t.Fatalf("failed send must not be counted, got %d events", got)
	}
	if got := metrics.BytesOut.Load(); got != 5 {
		t.Fatalf("expected 5 bytes counted, got %d", got)
	}
}

func TestConn_SendFillsBufferWithoutBlocking(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SendBuffer = 2
	conn := NewConn(nil, cfg)

	if err := conn.Send([]byte("a")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := conn.Send([]byte("b")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 缓冲满后立刻报错，不阻塞调用方
	if err := conn.Send([]byte("c")); err == nil {
		t.Fatalf("expected error on full send buffer")
	}

	if got := conn.Metrics().EventsOut.Load(); got != 2 {
		t.Fatalf("expected 2 counted sends, got %d", got)
	}
}

func TestConn_CloseIsIdempotent(t *testing.T) {
	conn := NewConn(nil, DefaultConfig())

	if conn.IsClosed() {
		t.Fatalf("new connection must not be closed")
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("second close must be a no-op, got %v", err)
	}
	if !conn.IsClosed() {
		t.Fatalf("connection must report closed")
	}

	if err := conn.Send([]byte("late")); err == nil {
		t.Fatalf("send after close must fail")
	}
}

func TestConn_ConcurrentSendAndClose(t *testing.T) {
	// 其他用户的处理器协程会在本连接关闭的同时向它扇出，
	// 入队和关闭并发交错时不允许崩溃
	for i := 0; i < 100; i++ {
		conn := NewConn(nil, DefaultConfig())

		var wg sync.WaitGroup
		for g := 0; g < 4; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 20; j++ {
					conn.Send([]byte("payload"))
				}
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn.Close()
		}()
		wg.Wait()

		if !conn.IsClosed() {
			t.Fatalf("connection must report closed")
		}
		if err := conn.Send([]byte("late")); err == nil {
			t.Fatalf("send after close must fail")
		}
	}
}

func TestConnMetrics_LatencyRoundTrip(t *testing.T) {
	metrics := &ConnMetrics{}
	metrics.ObserveLatency(42 * time.Millisecond)
	if got := metrics.Latency(); got != 42*time.Millisecond {
		t.Fatalf("expected 42ms, got %v", got)
	}
	if metrics.LastActivity().IsZero() {
		t.Fatalf("expected last activity to be stamped")
	}
}
