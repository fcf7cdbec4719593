package entity

import "testing"

func TestConversationRoomID_OrderIndependent(t *testing.T) {
	a := ConversationRoomID("alice", "bob")
	b := ConversationRoomID("bob", "alice")
	if a != b {
		t.Fatalf("expected same room id, got %q and %q", a, b)
	}
	if a != "alice_bob" {
		t.Fatalf("expected alice_bob, got %q", a)
	}
}

func TestNormalizeStatus(t *testing.T) {
	if got := NormalizeStatus("away"); got != PresenceStatusAway {
		t.Fatalf("expected away, got %q", got)
	}
	if got := NormalizeStatus("invisible"); got != PresenceStatusInvisible {
		t.Fatalf("expected invisible, got %q", got)
	}
	// 未知值回落到 online
	if got := NormalizeStatus("sleeping"); got != PresenceStatusOnline {
		t.Fatalf("expected online fallback, got %q", got)
	}
	if got := NormalizeStatus(""); got != PresenceStatusOnline {
		t.Fatalf("expected online fallback for empty, got %q", got)
	}
}
