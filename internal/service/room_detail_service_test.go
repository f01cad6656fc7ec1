package service

import (
	"context"
	"errors"
	"testing"

	"github.com/go-demo/chatcore/internal/model"
	apperrors "github.com/go-demo/chatcore/internal/pkg/errors"
)

// seedTenMemberRoom creates room 1 with admin user 1 and members 2..10.
func seedTenMemberRoom(env *testEnv) {
	env.store.SeedRoom(1, 1, "ten")
	for uid := int64(2); uid <= 10; uid++ {
		env.store.SeedMember(1, uid, "user")
	}
}

func userIDs(members []*model.Member) map[int64]bool {
	ids := make(map[int64]bool, len(members))
	for _, m := range members {
		ids[m.UserID] = true
	}
	return ids
}

func TestRoomDetailService_TenMemberScenario(t *testing.T) {
	env := newTestEnv(t)
	svc := env.roomDetailService()

	seedTenMemberRoom(env)
	env.send(t, 1, 1, "owner says hi")
	env.send(t, 1, 2, "hello")
	env.send(t, 1, 3, "hey")

	detail, err := svc.Execute(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("Failed to execute: %v", err)
	}

	if detail.Viewer.UserID != 1 {
		t.Errorf("Expected viewer 1, got %d", detail.Viewer.UserID)
	}
	if len(detail.RecentParticipants) != 2 {
		t.Fatalf("Expected 2 recent participants, got %d", len(detail.RecentParticipants))
	}
	ids := userIDs(detail.RecentParticipants)
	if !ids[2] || !ids[3] {
		t.Errorf("Expected senders 2 and 3, got %v", ids)
	}
	if len(detail.OtherParticipants) != 7 {
		t.Errorf("Expected 7 other participants, got %d", len(detail.OtherParticipants))
	}
	for _, o := range detail.OtherParticipants {
		if o.UserID == 1 || o.UserID == 2 || o.UserID == 3 {
			t.Errorf("Unexpected user %d among others", o.UserID)
		}
	}
	if len(detail.RecentMessages) != 3 {
		t.Errorf("Expected 3 recent messages, got %d", len(detail.RecentMessages))
	}
}

func TestRoomDetailService_AdminAddedForNonAdminViewer(t *testing.T) {
	env := newTestEnv(t)
	svc := env.roomDetailService()

	seedTenMemberRoom(env)
	env.send(t, 1, 4, "only member 4 talks")

	detail, err := svc.Execute(context.Background(), 5, 1)
	if err != nil {
		t.Fatalf("Failed to execute: %v", err)
	}

	ids := userIDs(detail.RecentParticipants)
	if len(ids) != 2 || !ids[4] || !ids[1] {
		t.Errorf("Expected sender 4 and admin 1, got %v", ids)
	}
	// 10 - viewer - sender - admin
	if len(detail.OtherParticipants) != 7 {
		t.Errorf("Expected 7 other participants, got %d", len(detail.OtherParticipants))
	}
}

func TestRoomDetailService_AdminAlreadyRecent(t *testing.T) {
	env := newTestEnv(t)
	svc := env.roomDetailService()

	seedTenMemberRoom(env)
	env.send(t, 1, 1, "admin talks")

	detail, err := svc.Execute(context.Background(), 5, 1)
	if err != nil {
		t.Fatalf("Failed to execute: %v", err)
	}
	if len(detail.RecentParticipants) != 1 || detail.RecentParticipants[0].UserID != 1 {
		t.Errorf("Expected only the admin, got %v", userIDs(detail.RecentParticipants))
	}
	if len(detail.OtherParticipants) != 8 {
		t.Errorf("Expected 8 other participants, got %d", len(detail.OtherParticipants))
	}
}

func TestRoomDetailService_EmptyRoomLog(t *testing.T) {
	env := newTestEnv(t)
	svc := env.roomDetailService()

	seedTenMemberRoom(env)

	detail, err := svc.Execute(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("Failed to execute: %v", err)
	}
	if len(detail.RecentParticipants) != 0 || len(detail.RecentMessages) != 0 {
		t.Errorf("Expected no recent data, got %+v", detail)
	}
	if len(detail.OtherParticipants) != 9 {
		t.Errorf("Expected 9 other participants, got %d", len(detail.OtherParticipants))
	}
}

func TestRoomDetailService_DepartedSenderDropped(t *testing.T) {
	env := newTestEnv(t)
	svc := env.roomDetailService()
	ctx := context.Background()

	seedTenMemberRoom(env)
	env.send(t, 1, 2, "bye")
	env.send(t, 1, 3, "still here")

	leaver, _ := env.store.Members().FindActive(ctx, 1, 2)
	_, _ = env.store.Members().Leave(ctx, leaver)

	detail, err := svc.Execute(ctx, 1, 1)
	if err != nil {
		t.Fatalf("Failed to execute: %v", err)
	}
	ids := userIDs(detail.RecentParticipants)
	if len(ids) != 1 || !ids[3] {
		t.Errorf("Expected only sender 3, got %v", ids)
	}
	if len(detail.OtherParticipants) != 7 {
		t.Errorf("Expected 7 other participants, got %d", len(detail.OtherParticipants))
	}
}

func TestRoomDetailService_ViewerNotMember(t *testing.T) {
	env := newTestEnv(t)
	svc := env.roomDetailService()

	seedTenMemberRoom(env)

	_, err := svc.Execute(context.Background(), 99, 1)
	if !errors.Is(err, apperrors.ErrMemberNotFound) {
		t.Errorf("Expected ErrMemberNotFound, got %v", err)
	}
}

func TestRoomDetailService_WindowLimit(t *testing.T) {
	env := newTestEnv(t)
	svc := NewRoomDetailService(env.store.Members(), env.messages, 2, env.logger)

	seedTenMemberRoom(env)
	env.send(t, 1, 2, "old")
	env.send(t, 1, 3, "newer")
	env.send(t, 1, 4, "newest")

	detail, err := svc.Execute(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("Failed to execute: %v", err)
	}
	ids := userIDs(detail.RecentParticipants)
	if len(ids) != 2 || !ids[3] || !ids[4] {
		t.Errorf("Expected senders 3 and 4 within window, got %v", ids)
	}
}
