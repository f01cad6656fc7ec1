package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-demo/chatcore/internal/config"
	"github.com/go-demo/chatcore/internal/model"
	"github.com/go-demo/chatcore/internal/pkg/idgen"
	"github.com/go-demo/chatcore/internal/pkg/lock"
	"github.com/go-demo/chatcore/internal/repository"
	"github.com/go-demo/chatcore/internal/service/servicetest"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*model.RoomEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event *model.RoomEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []model.RoomEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.RoomEventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type recordingNotifier struct {
	mu            sync.Mutex
	notifications []*model.Notification
	err           error
}

func (n *recordingNotifier) Notify(_ context.Context, notification *model.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = append(n.notifications, notification)
	return n.err
}

type testEnv struct {
	store     *servicetest.Store
	client    *redis.Client
	mr        *miniredis.Miniredis
	messages  *repository.MessageRepository
	cache     *repository.ReadPositionCache
	pending   *repository.PendingRoomRepository
	publisher *recordingPublisher
	notifier  *recordingNotifier
	ids       *idgen.Generator
	logger    *zap.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	client, mr := repository.SetupTestRedis(t)
	return &testEnv{
		store:     servicetest.NewStore(),
		client:    client,
		mr:        mr,
		messages:  repository.NewMessageRepository(client),
		cache:     repository.NewReadPositionCache(client),
		pending:   repository.NewPendingRoomRepository(client),
		publisher: &recordingPublisher{},
		notifier:  &recordingNotifier{},
		ids:       idgen.New(),
		logger:    zap.NewNop(),
	}
}

func (e *testEnv) roomService() *RoomService {
	return NewRoomService(e.store.Rooms(), e.store.Members(), e.pending, e.readPositionService(), e.ids, e.publisher, time.Hour, e.logger)
}

func (e *testEnv) memberService(wait time.Duration) *MemberService {
	locker := lock.NewRedisLocker(e.client, wait, time.Second, e.logger)
	return NewMemberService(e.store.Rooms(), e.store.Members(), locker, e.publisher, e.logger)
}

func (e *testEnv) readPositionService() *ReadPositionService {
	return NewReadPositionService(e.cache, e.store.ReadPositions(), e.messages, e.logger)
}

func (e *testEnv) messageService() *MessageService {
	cfg := config.ChatConfig{RecentMessageWindow: 15, PageSizeDefault: 30, PageSizeMax: 100}
	return NewMessageService(e.messages, e.store.Members(), e.readPositionService(), e.ids, e.publisher, e.notifier, cfg, e.logger)
}

func (e *testEnv) roomDetailService() *RoomDetailService {
	return NewRoomDetailService(e.store.Members(), e.messages, 15, e.logger)
}

// send appends a message directly to the log.
func (e *testEnv) send(t *testing.T, roomID, senderID int64, content string) *model.Message {
	t.Helper()
	msg, err := model.NewMessage(roomID, senderID, content, model.ContentTypeText, model.CategoryNormal)
	if err != nil {
		t.Fatalf("Failed to build message: %v", err)
	}
	msg.ID = e.ids.Generate()
	if _, err := e.messages.Append(context.Background(), msg); err != nil {
		t.Fatalf("Failed to append message: %v", err)
	}
	return msg
}
