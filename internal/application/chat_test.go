package application

import (
	"context"
	"errors"
	"testing"

	"github.com/caixinha/realtime/internal/domain/entity"
	"github.com/caixinha/realtime/internal/ports/in"
)

type fakeMessageRepo struct {
	createCalls int
	failCreate  error
	lastCreated *entity.ChatMessage

	updateCalls int
	failUpdate  error

	deleteCalls int
	failDelete  error

	markReadCalls int
}

func (f *fakeMessageRepo) Create(_ context.Context, msg *entity.ChatMessage) error {
	f.createCalls++
	if f.failCreate != nil {
		return f.failCreate
	}
	f.lastCreated = msg
	return nil
}

func (f *fakeMessageRepo) MarkConversationRead(_ context.Context, _, _ string) error {
	f.markReadCalls++
	return nil
}

func (f *fakeMessageRepo) UpdateStatus(_ context.Context, _, _, _ string) error {
	f.updateCalls++
	return f.failUpdate
}

func (f *fakeMessageRepo) Delete(_ context.Context, _, _ string) error {
	f.deleteCalls++
	return f.failDelete
}

func TestSendMessage_ValidationNeverTouchesRepo(t *testing.T) {
	repo := &fakeMessageRepo{}
	uc := NewChatUseCase(repo)

	_, err := uc.SendMessage(context.Background(), "u1", &in.SendMessageInput{
		Recipient: "u2",
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for missing content, got %v", err)
	}

	_, err = uc.SendMessage(context.Background(), "u1", &in.SendMessageInput{
		Content: "hi",
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for missing recipient, got %v", err)
	}

	if repo.createCalls != 0 {
		t.Fatalf("repo must not be called on validation failure, got %d calls", repo.createCalls)
	}
}

func TestSendMessage_Success(t *testing.T) {
	repo := &fakeMessageRepo{}
	uc := NewChatUseCase(repo)

	msg, err := uc.SendMessage(context.Background(), "u2", &in.SendMessageInput{
		Content:   "hello",
		Recipient: "u1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.ID == "" {
		t.Fatalf("expected message id to be assigned")
	}
	// 房间ID与发送方向无关
	if msg.ConversationID != "u1_u2" {
		t.Fatalf("expected canonical room id u1_u2, got %q", msg.ConversationID)
	}
	if !msg.Status.Delivered || msg.Status.Read {
		t.Fatalf("expected delivered=true read=false at creation, got %+v", msg.Status)
	}
	if msg.Sender != "u2" || msg.Recipient != "u1" {
		t.Fatalf("unexpected participants: %+v", msg)
	}
}

func TestSendMessage_PersistenceFailure(t *testing.T) {
	repo := &fakeMessageRepo{failCreate: errors.New("db down")}
	uc := NewChatUseCase(repo)

	_, err := uc.SendMessage(context.Background(), "u1", &in.SendMessageInput{
		Content:   "hi",
		Recipient: "u2",
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if errors.Is(err, ErrValidation) {
		t.Fatalf("persistence failure must not be a validation error")
	}
}

func TestUpdateMessageStatus_Validation(t *testing.T) {
	repo := &fakeMessageRepo{}
	uc := NewChatUseCase(repo)

	err := uc.UpdateMessageStatus(context.Background(), "u1", &in.UpdateStatusInput{
		ConversationID: "c1",
		MessageID:      "",
		Status:         "read",
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if repo.updateCalls != 0 {
		t.Fatalf("repo must not be called on validation failure")
	}
}

func TestDeleteMessage_Validation(t *testing.T) {
	repo := &fakeMessageRepo{}
	uc := NewChatUseCase(repo)

	if err := uc.DeleteMessage(context.Background(), "u1", "", "m1"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if repo.deleteCalls != 0 {
		t.Fatalf("repo must not be called on validation failure")
	}
}
