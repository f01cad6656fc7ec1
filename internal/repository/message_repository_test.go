package repository

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/go-demo/chatcore/internal/model"
	"github.com/go-demo/chatcore/internal/pkg/idgen"
)

func setupMessageRepository(t *testing.T) *MessageRepository {
	t.Helper()
	client, _ := SetupTestRedis(t)
	return NewMessageRepository(client)
}

// appendN stores n messages in roomID with ids base+step, base+2*step, ...
func appendN(t *testing.T, repo *MessageRepository, roomID int64, n int, base, step int64) []int64 {
	t.Helper()

	ids := make([]int64, 0, n)
	for i := 1; i <= n; i++ {
		msg, err := model.NewMessage(roomID, 7, "message", model.ContentTypeText, model.CategoryNormal)
		if err != nil {
			t.Fatalf("Failed to build message: %v", err)
		}
		msg.ID = base + int64(i)*step
		if _, err := repo.Append(context.Background(), msg); err != nil {
			t.Fatalf("Failed to append message: %v", err)
		}
		ids = append(ids, msg.ID)
	}
	return ids
}

func TestMessageRepository_AppendAndRecent(t *testing.T) {
	repo := setupMessageRepository(t)
	ctx := context.Background()

	base := idgen.FromParts(1_000_000, 0)
	appendN(t, repo, 1, 20, base, 1)

	recent, err := repo.RecentMessages(ctx, 1, 15)
	if err != nil {
		t.Fatalf("Failed to read recent messages: %v", err)
	}
	if len(recent) != 15 {
		t.Fatalf("Expected 15 messages, got %d", len(recent))
	}
	if recent[0].ID != base+20 {
		t.Errorf("Expected newest id %d first, got %d", base+20, recent[0].ID)
	}
	for i := 1; i < len(recent); i++ {
		if recent[i].ID >= recent[i-1].ID {
			t.Fatalf("Expected descending order at %d: %d >= %d", i, recent[i].ID, recent[i-1].ID)
		}
	}
}

func TestMessageRepository_PayloadRoundTrip(t *testing.T) {
	repo := setupMessageRepository(t)
	ctx := context.Background()

	msg, _ := model.NewMessage(3, 9, "이미지 https://example.com/a.png", model.ContentTypeImage, model.CategoryNormal)
	msg.ID = idgen.New().Generate()
	if _, err := repo.Append(ctx, msg); err != nil {
		t.Fatalf("Failed to append: %v", err)
	}

	got, err := repo.RecentMessages(ctx, 3, 1)
	if err != nil || len(got) != 1 {
		t.Fatalf("Expected one message, got %d (%v)", len(got), err)
	}
	if got[0].ID != msg.ID || got[0].SenderID != 9 || got[0].Content != msg.Content || got[0].ContentType != model.ContentTypeImage {
		t.Errorf("Payload mismatch: %+v", got[0])
	}
}

func TestMessageRepository_MessagesBefore(t *testing.T) {
	repo := setupMessageRepository(t)
	ctx := context.Background()

	base := idgen.FromParts(2_000_000, 0)
	ids := appendN(t, repo, 1, 10, base, 1)

	// cursor at the 8th message: expect 7th..5th
	page, err := repo.MessagesBefore(ctx, 1, ids[7], 3)
	if err != nil {
		t.Fatalf("Failed to page: %v", err)
	}
	if len(page.Messages) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(page.Messages))
	}
	for i, want := range []int64{ids[6], ids[5], ids[4]} {
		if page.Messages[i].ID != want {
			t.Errorf("Expected id %d at %d, got %d", want, i, page.Messages[i].ID)
		}
	}
	if !page.HasMore {
		t.Error("Expected has_more to be true")
	}
}

func TestMessageRepository_FirstPageEqualsRecent(t *testing.T) {
	repo := setupMessageRepository(t)
	ctx := context.Background()

	appendN(t, repo, 1, 12, idgen.FromParts(3_000_000, 0), 1)

	page, err := repo.MessagesBefore(ctx, 1, math.MaxInt64, 5)
	if err != nil {
		t.Fatalf("Failed to page: %v", err)
	}
	recent, err := repo.RecentMessages(ctx, 1, 5)
	if err != nil {
		t.Fatalf("Failed to read recent: %v", err)
	}

	if len(page.Messages) != len(recent) {
		t.Fatalf("Expected %d messages, got %d", len(recent), len(page.Messages))
	}
	for i := range recent {
		if page.Messages[i].ID != recent[i].ID {
			t.Errorf("Mismatch at %d: %d != %d", i, page.Messages[i].ID, recent[i].ID)
		}
	}
	if !page.HasMore {
		t.Error("Expected has_more with 12 messages and page size 5")
	}
}

func TestMessageRepository_LastPage(t *testing.T) {
	repo := setupMessageRepository(t)
	ctx := context.Background()

	ids := appendN(t, repo, 1, 5, idgen.FromParts(4_000_000, 0), 1)

	page, err := repo.MessagesBefore(ctx, 1, ids[2], 10)
	if err != nil {
		t.Fatalf("Failed to page: %v", err)
	}
	if len(page.Messages) != 2 {
		t.Errorf("Expected 2 messages, got %d", len(page.Messages))
	}
	if page.HasMore {
		t.Error("Expected has_more to be false on last page")
	}
}

func TestMessageRepository_ExactPageHasNoMore(t *testing.T) {
	repo := setupMessageRepository(t)
	ctx := context.Background()

	appendN(t, repo, 1, 5, idgen.FromParts(4_100_000, 0), 1)

	page, err := repo.MessagesBefore(ctx, 1, math.MaxInt64, 5)
	if err != nil {
		t.Fatalf("Failed to page: %v", err)
	}
	if len(page.Messages) != 5 || page.HasMore {
		t.Errorf("Expected 5 messages without more, got %d (has_more=%v)", len(page.Messages), page.HasMore)
	}
}

func TestMessageRepository_FullBackwardScan(t *testing.T) {
	repo := setupMessageRepository(t)
	ctx := context.Background()

	ids := appendN(t, repo, 1, 23, idgen.FromParts(5_000_000, 0), 3)

	var seen []int64
	cursor := int64(math.MaxInt64)
	for {
		page, err := repo.MessagesBefore(ctx, 1, cursor, 4)
		if err != nil {
			t.Fatalf("Failed to page: %v", err)
		}
		for _, m := range page.Messages {
			seen = append(seen, m.ID)
		}
		if !page.HasMore {
			break
		}
		cursor = page.NextCursor()
	}

	if len(seen) != len(ids) {
		t.Fatalf("Expected %d messages, got %d", len(ids), len(seen))
	}
	for i := range seen {
		if seen[i] != ids[len(ids)-1-i] {
			t.Fatalf("Expected %d at %d, got %d", ids[len(ids)-1-i], i, seen[i])
		}
	}
}

func TestMessageRepository_RoomIsolation(t *testing.T) {
	repo := setupMessageRepository(t)
	ctx := context.Background()

	appendN(t, repo, 1, 5, idgen.FromParts(6_000_000, 0), 1)
	appendN(t, repo, 2, 3, idgen.FromParts(6_000_000, 100), 1)

	room1, _ := repo.RecentMessages(ctx, 1, 100)
	room2, _ := repo.RecentMessages(ctx, 2, 100)

	if len(room1) != 5 || len(room2) != 3 {
		t.Fatalf("Expected 5 and 3 messages, got %d and %d", len(room1), len(room2))
	}
	for _, m := range room2 {
		if m.RoomID != 2 {
			t.Errorf("Expected room 2, got %d", m.RoomID)
		}
	}
}

func TestMessageRepository_EmptyRoom(t *testing.T) {
	repo := setupMessageRepository(t)
	ctx := context.Background()

	recent, err := repo.RecentMessages(ctx, 404, 15)
	if err != nil || len(recent) != 0 {
		t.Errorf("Expected empty result, got %d (%v)", len(recent), err)
	}

	page, err := repo.MessagesBefore(ctx, 404, math.MaxInt64, 10)
	if err != nil || len(page.Messages) != 0 || page.HasMore {
		t.Errorf("Expected empty page, got %+v (%v)", page, err)
	}

	latest, err := repo.LatestMessageID(ctx, 404)
	if err != nil || latest != 0 {
		t.Errorf("Expected latest 0, got %d (%v)", latest, err)
	}
}

func TestMessageRepository_NonexistentCursor(t *testing.T) {
	repo := setupMessageRepository(t)
	ctx := context.Background()

	ids := appendN(t, repo, 1, 5, idgen.FromParts(7_000_000, 0), 10)

	// falls between the 3rd and 4th message
	page, err := repo.MessagesBefore(ctx, 1, ids[2]+5, 10)
	if err != nil {
		t.Fatalf("Failed to page: %v", err)
	}
	if len(page.Messages) != 3 || page.Messages[0].ID != ids[2] {
		t.Errorf("Expected 3 messages starting at %d, got %d", ids[2], len(page.Messages))
	}
}

func TestMessageRepository_CountUnreadWithGaps(t *testing.T) {
	repo := setupMessageRepository(t)
	ctx := context.Background()

	// ids spaced by 5 so positional arithmetic would give the wrong answer
	ids := appendN(t, repo, 1, 10, idgen.FromParts(8_000_000, 0), 5)

	n, err := repo.CountUnread(ctx, 1, ids[4])
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	if n != 5 {
		t.Errorf("Expected 5 unread, got %d", n)
	}

	all, _ := repo.CountUnread(ctx, 1, 0)
	if all != 10 {
		t.Errorf("Expected 10 unread with no position, got %d", all)
	}

	none, _ := repo.CountUnread(ctx, 1, ids[9])
	if none != 0 {
		t.Errorf("Expected 0 unread at the head, got %d", none)
	}
}

func TestMessageRepository_IDsAcrossDigitBoundary(t *testing.T) {
	repo := setupMessageRepository(t)
	ctx := context.Background()

	small := &model.Message{ID: 9, RoomID: 1, Content: "a", ContentType: model.ContentTypeText}
	large := &model.Message{ID: 10, RoomID: 1, Content: "b", ContentType: model.ContentTypeText}
	huge := &model.Message{ID: math.MaxInt64 - 1, RoomID: 1, Content: "c", ContentType: model.ContentTypeText}
	for _, m := range []*model.Message{large, huge, small} {
		if _, err := repo.Append(ctx, m); err != nil {
			t.Fatalf("Failed to append: %v", err)
		}
	}

	recent, _ := repo.RecentMessages(ctx, 1, 3)
	if recent[0].ID != huge.ID || recent[1].ID != 10 || recent[2].ID != 9 {
		t.Errorf("Expected numeric ordering, got %d,%d,%d", recent[0].ID, recent[1].ID, recent[2].ID)
	}

	latest, _ := repo.LatestMessageID(ctx, 1)
	if latest != huge.ID {
		t.Errorf("Expected latest %d, got %d", huge.ID, latest)
	}
}

func TestMessageRepository_RejectsUnassignedID(t *testing.T) {
	repo := setupMessageRepository(t)

	msg, _ := model.NewMessage(1, 1, "hi", model.ContentTypeText, model.CategoryNormal)
	if _, err := repo.Append(context.Background(), msg); err != ErrInvalidMessageID {
		t.Errorf("Expected ErrInvalidMessageID, got %v", err)
	}
}

func TestMessageRepository_ContentLengthBoundary(t *testing.T) {
	repo := setupMessageRepository(t)
	ctx := context.Background()

	ok := &model.Message{ID: 1, RoomID: 3, Content: strings.Repeat("字", model.MaxContentLength), ContentType: model.ContentTypeText}
	if _, err := repo.Append(ctx, ok); err != nil {
		t.Fatalf("Expected 5000 characters accepted, got %v", err)
	}

	tooLong := &model.Message{ID: 2, RoomID: 3, Content: strings.Repeat("a", model.MaxContentLength+1), ContentType: model.ContentTypeText}
	if _, err := repo.Append(ctx, tooLong); !errors.Is(err, model.ErrContentTooLong) {
		t.Errorf("Expected ErrContentTooLong, got %v", err)
	}

	recent, _ := repo.RecentMessages(ctx, 3, 10)
	if len(recent) != 1 || recent[0].ID != 1 {
		t.Errorf("Expected only the valid message stored, got %d", len(recent))
	}
}
