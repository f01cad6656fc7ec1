package repository

import (
	"context"
	"testing"
	"time"

	"github.com/go-demo/chatcore/internal/model"
)

func TestMemberRepository_CreateDuplicateActive(t *testing.T) {
	db := SetupIsolatedTestDB(t)
	defer db.Close()

	room, _ := CreateIsolatedTestRoom(t, db, 1001)
	AddTestMember(t, db, room.ID, 1002, "guest")

	dup := model.NewMember(room.ID, 1002, "guest again", model.MemberRoleMember)
	if err := NewMemberRepository(db).Create(context.Background(), dup); err != ErrAlreadyRoomMember {
		t.Errorf("Expected ErrAlreadyRoomMember, got %v", err)
	}
}

func TestMemberRepository_FindLatestAfterLeave(t *testing.T) {
	db := SetupIsolatedTestDB(t)
	defer db.Close()

	repo := NewMemberRepository(db)
	ctx := context.Background()
	room, _ := CreateIsolatedTestRoom(t, db, 1001)
	guest := AddTestMember(t, db, room.ID, 1002, "guest")

	remaining, err := repo.Leave(ctx, guest)
	if err != nil {
		t.Fatalf("Failed to leave: %v", err)
	}
	if remaining != 1 {
		t.Errorf("Expected 1 remaining, got %d", remaining)
	}

	if _, err := repo.FindActive(ctx, room.ID, 1002); err != ErrMemberNotFound {
		t.Errorf("Expected no active record, got %v", err)
	}
	latest, err := repo.FindLatest(ctx, room.ID, 1002)
	if err != nil {
		t.Fatalf("Failed to find latest: %v", err)
	}
	if latest.Status() != model.MemberStatusLeft {
		t.Errorf("Expected LEFT, got %s", latest.Status())
	}

	// rejoining creates a new record
	again := AddTestMember(t, db, room.ID, 1002, "guest")
	if again.ID == guest.ID {
		t.Error("Expected a new membership record")
	}
}

func TestMemberRepository_LastLeaveDeletesRoom(t *testing.T) {
	db := SetupIsolatedTestDB(t)
	defer db.Close()

	repo := NewMemberRepository(db)
	ctx := context.Background()
	room, admin := CreateIsolatedTestRoom(t, db, 1001)

	remaining, err := repo.Leave(ctx, admin)
	if err != nil {
		t.Fatalf("Failed to leave: %v", err)
	}
	if remaining != 0 {
		t.Errorf("Expected 0 remaining, got %d", remaining)
	}
	if _, err := NewRoomRepository(db).GetByID(ctx, room.ID); err != ErrRoomNotFound {
		t.Errorf("Expected room soft deleted, got %v", err)
	}
}

func TestMemberRepository_LeaveRechecksRole(t *testing.T) {
	db := SetupIsolatedTestDB(t)
	defer db.Close()

	repo := NewMemberRepository(db)
	ctx := context.Background()
	room, admin := CreateIsolatedTestRoom(t, db, 1001)
	guest := AddTestMember(t, db, room.ID, 1002, "guest")

	// guest was loaded as MEMBER, then became ADMIN
	err := repo.MutatePair(ctx, room.ID, admin.ID, guest.ID, func(first, second *model.Member) error {
		return model.DelegateAdmin(first, second)
	})
	if err != nil {
		t.Fatalf("Failed to delegate: %v", err)
	}

	if _, err := repo.Leave(ctx, guest); err != model.ErrAdminMustStay {
		t.Errorf("Expected ErrAdminMustStay, got %v", err)
	}
	current, err := repo.FindAdmin(ctx, room.ID)
	if err != nil || current.UserID != 1002 {
		t.Errorf("Expected user 1002 to stay admin, got %v (%v)", current, err)
	}
}

func TestMemberRepository_CreateInDeletedRoom(t *testing.T) {
	db := SetupIsolatedTestDB(t)
	defer db.Close()

	repo := NewMemberRepository(db)
	ctx := context.Background()
	room, admin := CreateIsolatedTestRoom(t, db, 1001)
	if _, err := repo.Leave(ctx, admin); err != nil {
		t.Fatalf("Failed to leave: %v", err)
	}

	late := model.NewMember(room.ID, 1003, "late", model.MemberRoleMember)
	if err := repo.Create(ctx, late); err != ErrRoomNotFound {
		t.Errorf("Expected ErrRoomNotFound, got %v", err)
	}
}

func TestMemberRepository_MutatePairDelegates(t *testing.T) {
	db := SetupIsolatedTestDB(t)
	defer db.Close()

	repo := NewMemberRepository(db)
	ctx := context.Background()
	room, admin := CreateIsolatedTestRoom(t, db, 1001)
	guest := AddTestMember(t, db, room.ID, 1002, "guest")

	if err := repo.MutatePair(ctx, room.ID, admin.ID, guest.ID, model.DelegateAdmin); err != nil {
		t.Fatalf("Failed to delegate: %v", err)
	}

	newAdmin, err := repo.FindAdmin(ctx, room.ID)
	if err != nil || newAdmin.ID != guest.ID {
		t.Fatalf("Expected guest to be admin, got %+v (%v)", newAdmin, err)
	}

	if err := repo.MutatePair(ctx, room.ID, admin.ID, guest.ID, model.DelegateAdmin); err != model.ErrNotAdmin {
		t.Errorf("Expected ErrNotAdmin from former admin, got %v", err)
	}
}

func TestMemberRepository_MutatePairBan(t *testing.T) {
	db := SetupIsolatedTestDB(t)
	defer db.Close()

	repo := NewMemberRepository(db)
	ctx := context.Background()
	room, admin := CreateIsolatedTestRoom(t, db, 1001)
	guest := AddTestMember(t, db, room.ID, 1002, "guest")

	err := repo.MutatePair(ctx, room.ID, admin.ID, guest.ID, func(a, g *model.Member) error {
		return model.Ban(a, g, time.Now())
	})
	if err != nil {
		t.Fatalf("Failed to ban: %v", err)
	}

	latest, _ := repo.FindLatest(ctx, room.ID, 1002)
	if latest.Status() != model.MemberStatusBanned {
		t.Errorf("Expected BANNED, got %s", latest.Status())
	}
	if n, _ := repo.CountActive(ctx, room.ID); n != 1 {
		t.Errorf("Expected 1 active member, got %d", n)
	}
}

func TestMemberRepository_MutatePairMissing(t *testing.T) {
	db := SetupIsolatedTestDB(t)
	defer db.Close()

	room, admin := CreateIsolatedTestRoom(t, db, 1001)
	err := NewMemberRepository(db).MutatePair(context.Background(), room.ID, admin.ID, NextTestID(), model.DelegateAdmin)
	if err != ErrMemberNotFound {
		t.Errorf("Expected ErrMemberNotFound, got %v", err)
	}
}

func TestMemberRepository_Listings(t *testing.T) {
	db := SetupIsolatedTestDB(t)
	defer db.Close()

	repo := NewMemberRepository(db)
	ctx := context.Background()
	room, _ := CreateIsolatedTestRoom(t, db, 1001)
	AddTestMember(t, db, room.ID, 1002, "b")
	AddTestMember(t, db, room.ID, 1003, "c")
	AddTestMember(t, db, room.ID, 1004, "d")

	byUsers, err := repo.ListActiveByUserIDs(ctx, room.ID, []int64{1002, 1004, 9999})
	if err != nil || len(byUsers) != 2 {
		t.Fatalf("Expected 2 members, got %d (%v)", len(byUsers), err)
	}

	others, err := repo.ListActiveSummariesExcluding(ctx, room.ID, []int64{1001, 1002})
	if err != nil || len(others) != 2 {
		t.Fatalf("Expected 2 summaries, got %d (%v)", len(others), err)
	}

	all, _ := repo.ListActiveSummariesExcluding(ctx, room.ID, nil)
	if len(all) != 4 {
		t.Errorf("Expected 4 summaries with no exclusions, got %d", len(all))
	}

	if err := repo.UpdateNotify(ctx, room.ID, 1003, false); err != nil {
		t.Fatalf("Failed to update notify: %v", err)
	}
	recipients, _ := repo.ListNotifiable(ctx, room.ID, 1001)
	if len(recipients) != 2 {
		t.Errorf("Expected 2 notifiable members, got %v", recipients)
	}
}

func TestReadPositionRepository_UpsertNeverMovesBack(t *testing.T) {
	db := SetupIsolatedTestDB(t)
	defer db.Close()

	repo := NewReadPositionRepository(db)
	ctx := context.Background()
	roomID := NextTestID()
	defer CleanupTestRooms(t, db, roomID)

	if _, ok, err := repo.Get(ctx, roomID, 1); ok || err != nil {
		t.Fatalf("Expected no position, got ok=%v err=%v", ok, err)
	}

	_ = repo.Upsert(ctx, []*model.ReadPosition{{RoomID: roomID, UserID: 1, LastReadMessageID: 500}})
	_ = repo.Upsert(ctx, []*model.ReadPosition{{RoomID: roomID, UserID: 1, LastReadMessageID: 300}})

	id, ok, err := repo.Get(ctx, roomID, 1)
	if err != nil || !ok || id != 500 {
		t.Errorf("Expected 500, got %d ok=%v err=%v", id, ok, err)
	}
}

func TestMemberRepository_ListRoomsByUserID(t *testing.T) {
	db := SetupIsolatedTestDB(t)
	defer db.Close()

	repo := NewMemberRepository(db)
	ctx := context.Background()
	own, _ := CreateIsolatedTestRoom(t, db, 1001)
	other, _ := CreateIsolatedTestRoom(t, db, 1002)
	AddTestMember(t, db, other.ID, 1001, "guest")
	gone, _ := CreateIsolatedTestRoom(t, db, 1003)
	left := AddTestMember(t, db, gone.ID, 1001, "guest")
	if _, err := repo.Leave(ctx, left); err != nil {
		t.Fatalf("Failed to leave: %v", err)
	}

	rooms, err := repo.ListRoomsByUserID(ctx, 1001, 10, 0)
	if err != nil {
		t.Fatalf("Failed to list rooms: %v", err)
	}
	if len(rooms) != 2 {
		t.Fatalf("Expected 2 rooms, got %d", len(rooms))
	}
	if rooms[0].ID != other.ID || rooms[0].Role != model.MemberRoleMember || rooms[0].MemberCount != 2 {
		t.Errorf("Unexpected first room: %+v", rooms[0])
	}
	if rooms[1].ID != own.ID || rooms[1].Role != model.MemberRoleAdmin {
		t.Errorf("Unexpected second room: %+v", rooms[1])
	}
}
