package application

import (
	"context"
	"testing"

	"github.com/caixinha/realtime/internal/domain/entity"
	"github.com/caixinha/realtime/internal/events"
)

type emitRecord struct {
	UserID string
	Event  string
}

type fakeConnManager struct {
	online map[string]bool
	emits  []emitRecord
}

func newFakeConnManager() *fakeConnManager {
	return &fakeConnManager{online: make(map[string]bool)}
}

func (f *fakeConnManager) IsOnline(userID string) bool { return f.online[userID] }

func (f *fakeConnManager) EmitToUser(userID, event string, _ any) bool {
	f.emits = append(f.emits, emitRecord{UserID: userID, Event: event})
	return f.online[userID]
}

func (f *fakeConnManager) EmitToRoom(_, _ string, _ any) {}

func (f *fakeConnManager) BroadcastExcept(_, _ string, _ any) {}

func (f *fakeConnManager) countEmits(event string) int {
	n := 0
	for _, e := range f.emits {
		if e.Event == event {
			n++
		}
	}
	return n
}

type fakeGraph struct {
	contacts map[string][]string
}

func (f *fakeGraph) GetContactIDs(_ context.Context, userID string) ([]string, error) {
	return f.contacts[userID], nil
}

func newPresenceForTest(cm *fakeConnManager, graph *fakeGraph) *PresenceUseCaseImpl {
	uc := NewPresenceUseCase(cm, nil, graph, nil, nil, "")
	return uc.(*PresenceUseCaseImpl)
}

func TestHandleConnect_BroadcastsOnlineToContactsOnce(t *testing.T) {
	cm := newFakeConnManager()
	graph := &fakeGraph{contacts: map[string][]string{"u1": {"u2", "u3"}}}
	uc := newPresenceForTest(cm, graph)

	uc.HandleConnect(context.Background(), "u1", &entity.DeviceInfo{Type: entity.DeviceTypeMobile})

	if got := cm.countEmits(events.UserOnline); got != 2 {
		t.Fatalf("expected user_online to both contacts, got %d emits", got)
	}

	// 第二台设备接入，用户已在线，不再广播
	uc.HandleConnect(context.Background(), "u1", nil)
	if got := cm.countEmits(events.UserOnline); got != 2 {
		t.Fatalf("expected no extra broadcast for second device, got %d emits", got)
	}
}

func TestUpdateStatus_InvisibleSuppressesBroadcast(t *testing.T) {
	cm := newFakeConnManager()
	cm.online["u1"] = true
	graph := &fakeGraph{contacts: map[string][]string{"u1": {"u2"}}}
	uc := newPresenceForTest(cm, graph)

	uc.HandleConnect(context.Background(), "u1", nil)
	before := len(cm.emits)

	uc.UpdateStatus(context.Background(), "u1", "invisible")

	if len(cm.emits) != before {
		t.Fatalf("invisible must not produce any presence broadcast, got %d new emits", len(cm.emits)-before)
	}

	// 记录仍然更新，内部在线标记不变
	online, err := uc.GetOnlineUsers(context.Background(), "u2", []string{"u1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(online) != 0 {
		t.Fatalf("invisible user must be absent from online list, got %v", online)
	}
}

func TestUpdateStatus_UnknownFallsBackToOnline(t *testing.T) {
	cm := newFakeConnManager()
	cm.online["u1"] = true
	graph := &fakeGraph{contacts: map[string][]string{}}
	uc := newPresenceForTest(cm, graph)

	uc.HandleConnect(context.Background(), "u1", nil)
	uc.UpdateStatus(context.Background(), "u1", "definitely-not-a-status")

	online, err := uc.GetOnlineUsers(context.Background(), "u2", []string{"u1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(online) != 1 || online[0] != "u1" {
		t.Fatalf("expected u1 online after fallback, got %v", online)
	}
}

func TestHandleDisconnect_SingleOfflineBroadcast(t *testing.T) {
	cm := newFakeConnManager()
	graph := &fakeGraph{contacts: map[string][]string{"u1": {"u2"}}}
	uc := newPresenceForTest(cm, graph)

	uc.HandleConnect(context.Background(), "u1", nil)
	uc.HandleDisconnect(context.Background(), "u1")

	if got := cm.countEmits(events.UserOffline); got != 1 {
		t.Fatalf("expected exactly one offline broadcast, got %d", got)
	}

	uc.mu.RLock()
	rec := uc.records["u1"]
	uc.mu.RUnlock()
	if rec == nil || rec.Online || rec.Status != entity.PresenceStatusOffline {
		t.Fatalf("expected offline record, got %+v", rec)
	}
	if rec.LastSeen == "" {
		t.Fatalf("expected last_seen to be stamped on offline transition")
	}
}

func TestGetOnlineUsers_AbsentFromMapMeansOffline(t *testing.T) {
	cm := newFakeConnManager()
	// 注册表认为在线，但状态表没有记录：以状态表为准
	cm.online["ghost"] = true
	graph := &fakeGraph{contacts: map[string][]string{}}
	uc := newPresenceForTest(cm, graph)

	online, err := uc.GetOnlineUsers(context.Background(), "u2", []string{"ghost"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(online) != 0 {
		t.Fatalf("expected ghost to be treated as offline, got %v", online)
	}
}

func TestGetOnlineUsers_FallsBackToSocialGraph(t *testing.T) {
	cm := newFakeConnManager()
	cm.online["u2"] = true
	graph := &fakeGraph{contacts: map[string][]string{"u1": {"u2", "u3"}}}
	uc := newPresenceForTest(cm, graph)

	uc.HandleConnect(context.Background(), "u2", nil)

	online, err := uc.GetOnlineUsers(context.Background(), "u1", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(online) != 1 || online[0] != "u2" {
		t.Fatalf("expected only u2 online via social graph, got %v", online)
	}
}
