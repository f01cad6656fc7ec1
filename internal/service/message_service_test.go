package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/go-demo/chatcore/internal/model"
	apperrors "github.com/go-demo/chatcore/internal/pkg/errors"
)

func TestMessageService_Send(t *testing.T) {
	env := newTestEnv(t)
	svc := env.messageService()
	ctx := context.Background()

	env.store.SeedRoom(1, 100, "room")
	env.store.SeedMember(1, 200, "b")
	env.store.SeedMember(1, 300, "c")
	_ = env.store.Members().UpdateNotify(ctx, 1, 300, false)

	msg, err := svc.Send(ctx, &SendMessageInput{RoomID: 1, SenderID: 100, Content: "hello"})
	if err != nil {
		t.Fatalf("Failed to send: %v", err)
	}
	svc.Wait()

	if msg.ID <= 0 || msg.ContentType != model.ContentTypeText {
		t.Errorf("Unexpected message: %+v", msg)
	}

	recent, _ := env.messages.RecentMessages(ctx, 1, 1)
	if len(recent) != 1 || recent[0].ID != msg.ID {
		t.Error("Expected message in the room log")
	}

	types := env.publisher.types()
	if len(types) != 1 || types[0] != model.RoomEventMessage {
		t.Errorf("Expected one message event, got %v", types)
	}

	if len(env.notifier.notifications) != 1 {
		t.Fatalf("Expected one notification, got %d", len(env.notifier.notifications))
	}
	n := env.notifier.notifications[0]
	if len(n.Recipients) != 1 || n.Recipients[0] != 200 {
		t.Errorf("Expected recipient 200 only, got %v", n.Recipients)
	}
	if n.Title != "admin" || n.Body != "hello" {
		t.Errorf("Unexpected notification: %+v", n)
	}
}

func TestMessageService_SendOrdering(t *testing.T) {
	env := newTestEnv(t)
	svc := env.messageService()
	ctx := context.Background()

	env.store.SeedRoom(1, 100, "room")

	var prev int64
	for i := 0; i < 50; i++ {
		msg, err := svc.Send(ctx, &SendMessageInput{RoomID: 1, SenderID: 100, Content: "x"})
		if err != nil {
			t.Fatalf("Failed to send: %v", err)
		}
		if msg.ID <= prev {
			t.Fatalf("Expected increasing ids, got %d after %d", msg.ID, prev)
		}
		prev = msg.ID
	}
	svc.Wait()
}

func TestMessageService_ContentLengthBoundary(t *testing.T) {
	env := newTestEnv(t)
	svc := env.messageService()
	ctx := context.Background()

	env.store.SeedRoom(1, 100, "room")

	if _, err := svc.Send(ctx, &SendMessageInput{RoomID: 1, SenderID: 100, Content: strings.Repeat("字", 5000)}); err != nil {
		t.Errorf("Expected 5000 characters accepted, got %v", err)
	}

	_, err := svc.Send(ctx, &SendMessageInput{RoomID: 1, SenderID: 100, Content: strings.Repeat("字", 5001)})
	if !errors.Is(err, apperrors.ErrMessageTooLong) || apperrors.KindOf(err) != apperrors.KindValidation {
		t.Errorf("Expected ErrMessageTooLong, got %v", err)
	}
	svc.Wait()

	recent, _ := env.messages.RecentMessages(ctx, 1, 10)
	if len(recent) != 1 {
		t.Errorf("Expected only the valid message stored, got %d", len(recent))
	}
}

func TestMessageService_SendRejections(t *testing.T) {
	env := newTestEnv(t)
	svc := env.messageService()
	ctx := context.Background()

	env.store.SeedRoom(1, 100, "room")

	tests := []struct {
		name  string
		input *SendMessageInput
		want  error
	}{
		{"empty", &SendMessageInput{RoomID: 1, SenderID: 100, Content: "  "}, apperrors.ErrValidation},
		{"content type", &SendMessageInput{RoomID: 1, SenderID: 100, Content: "x", ContentType: "VIDEO"}, apperrors.ErrValidation},
		{"not member", &SendMessageInput{RoomID: 1, SenderID: 999, Content: "x"}, apperrors.ErrNotMember},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Send(ctx, tt.input); !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestMessageService_ImageNotificationBody(t *testing.T) {
	env := newTestEnv(t)
	svc := env.messageService()
	ctx := context.Background()

	env.store.SeedRoom(1, 100, "room")
	env.store.SeedMember(1, 200, "b")

	if _, err := svc.Send(ctx, &SendMessageInput{RoomID: 1, SenderID: 200, Content: "https://img.example.com/x.png", ContentType: "image"}); err != nil {
		t.Fatalf("Failed to send: %v", err)
	}
	svc.Wait()

	if len(env.notifier.notifications) != 1 || env.notifier.notifications[0].Body != "[圖片]" {
		t.Errorf("Expected image placeholder body, got %+v", env.notifier.notifications)
	}
}

func TestMessageService_NotifierFailureIsSwallowed(t *testing.T) {
	env := newTestEnv(t)
	env.notifier.err = errors.New("push down")
	svc := env.messageService()
	ctx := context.Background()

	env.store.SeedRoom(1, 100, "room")
	env.store.SeedMember(1, 200, "b")

	if _, err := svc.Send(ctx, &SendMessageInput{RoomID: 1, SenderID: 100, Content: "hi"}); err != nil {
		t.Errorf("Expected send to succeed despite push failure, got %v", err)
	}
	svc.Wait()
}

func TestMessageService_ListBefore(t *testing.T) {
	env := newTestEnv(t)
	svc := env.messageService()
	ctx := context.Background()

	env.store.SeedRoom(1, 100, "room")
	for i := 0; i < 40; i++ {
		env.send(t, 1, 100, "m")
	}

	page, err := svc.ListBefore(ctx, 1, 100, 0, 0)
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(page.Messages) != 30 || !page.HasMore {
		t.Errorf("Expected default page of 30 with more, got %d (%v)", len(page.Messages), page.HasMore)
	}

	next, _ := svc.ListBefore(ctx, 1, 100, page.NextCursor(), 500)
	if len(next.Messages) != 10 || next.HasMore {
		t.Errorf("Expected remaining 10, got %d (%v)", len(next.Messages), next.HasMore)
	}

	if _, err := svc.ListBefore(ctx, 1, 999, 0, 10); !errors.Is(err, apperrors.ErrNotMember) {
		t.Errorf("Expected ErrNotMember, got %v", err)
	}
}

func TestMessageService_MarkReadAndUnread(t *testing.T) {
	env := newTestEnv(t)
	svc := env.messageService()
	ctx := context.Background()

	env.store.SeedRoom(1, 100, "room")
	env.store.SeedMember(1, 200, "b")

	var ids []int64
	for i := 0; i < 5; i++ {
		ids = append(ids, env.send(t, 1, 100, "m").ID)
	}

	state, err := svc.UnreadCount(ctx, 1, 200)
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	if state.Count != 5 || state.LastReadMessageID != 0 || state.LatestMessageID != ids[4] {
		t.Errorf("Unexpected unread state: %+v", state)
	}

	if err := svc.MarkRead(ctx, 1, 200, ids[2]); err != nil {
		t.Fatalf("Failed to mark read: %v", err)
	}
	state, _ = svc.UnreadCount(ctx, 1, 200)
	if state.Count != 2 || state.LastReadMessageID != ids[2] {
		t.Errorf("Expected 2 unread after marking, got %+v", state)
	}

	if err := svc.MarkRead(ctx, 1, 999, ids[2]); !errors.Is(err, apperrors.ErrNotMember) {
		t.Errorf("Expected ErrNotMember, got %v", err)
	}
}
