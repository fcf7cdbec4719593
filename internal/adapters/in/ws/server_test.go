package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/caixinha/realtime/internal/domain/entity"
	"github.com/caixinha/realtime/internal/events"
	"github.com/caixinha/realtime/internal/ports/out"
)

type fakePresenceUseCase struct {
	connects    atomic.Int32
	disconnects atomic.Int32
}

func (f *fakePresenceUseCase) HandleConnect(_ context.Context, _ string, _ *entity.DeviceInfo) {
	f.connects.Add(1)
}

func (f *fakePresenceUseCase) UpdateStatus(_ context.Context, _, _ string) {}

func (f *fakePresenceUseCase) Heartbeat(_ string) {}

func (f *fakePresenceUseCase) HandleDisconnect(_ context.Context, _ string) {
	f.disconnects.Add(1)
}

func (f *fakePresenceUseCase) GetOnlineUsers(_ context.Context, _ string, _ []string) ([]string, error) {
	return nil, nil
}

func newTestServer(t *testing.T, cfg *Config, verifier *fakeVerifier) (*Server, *Registry, *fakePresenceUseCase, string) {
	t.Helper()
	registry := NewRegistry()
	presence := &fakePresenceUseCase{}
	server := NewServer(cfg, registry, NewAuthGate(verifier), presence, &fakeChatUseCase{}, &fakeNotificationUseCase{})

	ts := httptest.NewServer(http.HandlerFunc(server.HandleConnection))
	t.Cleanup(ts.Close)

	return server, registry, presence, "ws" + strings.TrimPrefix(ts.URL, "http")
}

func TestHandleConnection_RejectsUnauthenticated(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AuthGrace = 50 * time.Millisecond
	_, registry, presence, url := newTestServer(t, cfg, &fakeVerifier{})

	// 无凭证接入：先收到认证错误事件，随后在宽限窗口内被强制断开
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := client.ReadMessage()
	if err != nil {
		t.Fatalf("expected authentication error event, got read error: %v", err)
	}
	var env events.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("bad envelope: %v", err)
	}
	if env.Type != events.AuthenticationError {
		t.Fatalf("expected authentication_error, got %q", env.Type)
	}

	start := time.Now()
	if _, _, err := client.ReadMessage(); err == nil {
		t.Fatalf("expected the socket to be closed after rejection")
	}
	if elapsed := time.Since(start); elapsed > cfg.AuthGrace+time.Second {
		t.Fatalf("socket must close within the grace window, took %v", elapsed)
	}

	// 被拒绝的连接绝不进入注册表，也不触发上线
	if stats := registry.Stats(); stats.Connections != 0 {
		t.Fatalf("rejected connection must never be registered, got %+v", stats)
	}
	if got := presence.connects.Load(); got != 0 {
		t.Fatalf("rejected connection must not trigger presence, got %d connects", got)
	}
}

func TestHandleConnection_RejectsBadToken(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AuthGrace = 50 * time.Millisecond
	_, registry, _, url := newTestServer(t, cfg, &fakeVerifier{err: errors.New("token expired")})

	client, _, err := websocket.DefaultDialer.Dial(url+"?token=stale", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := client.ReadMessage()
	if err != nil {
		t.Fatalf("expected authentication error event, got read error: %v", err)
	}
	var env events.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("bad envelope: %v", err)
	}
	if env.Type != events.AuthenticationError {
		t.Fatalf("expected authentication_error, got %q", env.Type)
	}
	if stats := registry.Stats(); stats.Connections != 0 {
		t.Fatalf("rejected connection must never be registered, got %+v", stats)
	}
}

func TestHandleConnection_WelcomeAndRegistration(t *testing.T) {
	cfg := DefaultConfig()
	_, registry, presence, url := newTestServer(t, cfg, &fakeVerifier{
		identity: &out.Identity{UserID: "u1"},
	})

	client, _, err := websocket.DefaultDialer.Dial(url+"?token=good", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := client.ReadMessage()
	if err != nil {
		t.Fatalf("expected welcome event, got read error: %v", err)
	}
	var env events.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("bad envelope: %v", err)
	}
	if env.Type != events.Connect {
		t.Fatalf("expected connect welcome, got %q", env.Type)
	}

	deadline := time.Now().Add(2 * time.Second)
	for registry.Stats().Connections != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if stats := registry.Stats(); stats.Connections != 1 || stats.OnlineUsers != 1 {
		t.Fatalf("expected registered connection, got %+v", stats)
	}
	if got := presence.connects.Load(); got != 1 {
		t.Fatalf("expected one presence connect, got %d", got)
	}
}
