package service

import (
	"context"
	"time"

	"github.com/go-demo/chatcore/internal/model"
)

// The stores below are satisfied by the repository package. Services depend
// on these narrow views so they can run against fakes in tests.

type MessageStore interface {
	Append(ctx context.Context, msg *model.Message) (*model.Message, error)
	RecentMessages(ctx context.Context, roomID int64, count int) ([]*model.Message, error)
	MessagesBefore(ctx context.Context, roomID, cursorID int64, pageSize int) (*model.MessageSlice, error)
	CountUnread(ctx context.Context, roomID, lastReadID int64) (int64, error)
	LatestMessageID(ctx context.Context, roomID int64) (int64, error)
}

// ReadPositionCache is the fast tier of the read-position tracker.
type ReadPositionCache interface {
	Get(ctx context.Context, roomID, userID int64) (int64, bool, error)
	Set(ctx context.Context, roomID, userID, messageID int64) error
}

// ReadPositionStore is the durable tier.
type ReadPositionStore interface {
	Get(ctx context.Context, roomID, userID int64) (int64, bool, error)
}

type PendingRoomStore interface {
	Save(ctx context.Context, pending *model.PendingRoom, ttl time.Duration) error
	Owner(ctx context.Context, roomID int64) (int64, error)
	Take(ctx context.Context, creatorID int64) (*model.PendingRoom, error)
	Restore(ctx context.Context, pending *model.PendingRoom, ttl time.Duration) error
}

type RoomStore interface {
	CreateWithAdmin(ctx context.Context, room *model.Room, admin *model.Member) error
	GetByID(ctx context.Context, id int64) (*model.Room, error)
	Update(ctx context.Context, room *model.Room) error
	SoftDelete(ctx context.Context, id int64) error
}

type MemberStore interface {
	Create(ctx context.Context, member *model.Member) error
	FindActive(ctx context.Context, roomID, userID int64) (*model.Member, error)
	FindLatest(ctx context.Context, roomID, userID int64) (*model.Member, error)
	FindAdmin(ctx context.Context, roomID int64) (*model.Member, error)
	CountActive(ctx context.Context, roomID int64) (int, error)
	ListActiveByUserIDs(ctx context.Context, roomID int64, userIDs []int64) ([]*model.Member, error)
	ListActiveSummariesExcluding(ctx context.Context, roomID int64, excluded []int64) ([]*model.MemberSummary, error)
	ListNotifiable(ctx context.Context, roomID, excludeUserID int64) ([]int64, error)
	ListRoomsByUserID(ctx context.Context, userID int64, limit, offset int) ([]*model.UserRoom, error)
	UpdateNotify(ctx context.Context, roomID, userID int64, enabled bool) error
	Leave(ctx context.Context, member *model.Member) (int, error)
	MutatePair(ctx context.Context, roomID, firstID, secondID int64, fn func(first, second *model.Member) error) error
}

// IDGenerator hands out time ordered identifiers.
type IDGenerator interface {
	Generate() int64
}

// Publisher fans a room event out to every connected client of the room.
type Publisher interface {
	Publish(ctx context.Context, event *model.RoomEvent) error
}

// Notifier hands a push notification to the delivery service.
type Notifier interface {
	Notify(ctx context.Context, n *model.Notification) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, *model.RoomEvent) error { return nil }

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, *model.Notification) error { return nil }
