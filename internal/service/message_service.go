package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/go-demo/chatcore/internal/config"
	"github.com/go-demo/chatcore/internal/model"
	apperrors "github.com/go-demo/chatcore/internal/pkg/errors"
	"github.com/go-demo/chatcore/internal/pkg/metrics"
	"go.uber.org/zap"
)

const (
	notifyTimeout  = 5 * time.Second
	pushBodyLength = 50
)

type MessageService struct {
	messageRepo MessageStore
	memberRepo  MemberStore
	positions   *ReadPositionService
	ids         IDGenerator
	publisher   Publisher
	notifier    Notifier
	cfg         config.ChatConfig
	logger      *zap.Logger

	wg sync.WaitGroup
}

func NewMessageService(
	messageRepo MessageStore,
	memberRepo MemberStore,
	positions *ReadPositionService,
	ids IDGenerator,
	publisher Publisher,
	notifier Notifier,
	cfg config.ChatConfig,
	logger *zap.Logger,
) *MessageService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if cfg.RecentMessageWindow <= 0 {
		cfg.RecentMessageWindow = defaultRecentMessageWindow
	}
	if cfg.PageSizeDefault <= 0 {
		cfg.PageSizeDefault = 30
	}
	if cfg.PageSizeMax < cfg.PageSizeDefault {
		cfg.PageSizeMax = cfg.PageSizeDefault
	}
	return &MessageService{
		messageRepo: messageRepo,
		memberRepo:  memberRepo,
		positions:   positions,
		ids:         ids,
		publisher:   publisher,
		notifier:    notifier,
		cfg:         cfg,
		logger:      logger,
	}
}

// SendMessageInput represents message sending input
type SendMessageInput struct {
	RoomID      int64
	SenderID    int64
	Content     string
	ContentType string
}

// Send appends a message to the room log, fans it out to connected clients
// and pushes a notification to the other members in the background.
func (s *MessageService) Send(ctx context.Context, input *SendMessageInput) (*model.Message, error) {
	contentType, err := model.ParseContentType(input.ContentType)
	if err != nil {
		return nil, apperrors.ErrValidation.Wrap(err)
	}

	msg, err := model.NewMessage(input.RoomID, input.SenderID, input.Content, contentType, model.CategoryNormal)
	if err != nil {
		if errors.Is(err, model.ErrContentTooLong) {
			return nil, apperrors.ErrMessageTooLong
		}
		return nil, apperrors.ErrValidation.Wrap(err)
	}

	sender, err := requireMember(ctx, s.memberRepo, input.RoomID, input.SenderID)
	if err != nil {
		return nil, err
	}

	msg.ID = s.ids.Generate()
	if _, err := s.messageRepo.Append(ctx, msg); err != nil {
		if errors.Is(err, model.ErrContentTooLong) {
			return nil, apperrors.ErrMessageTooLong
		}
		s.logger.Error("Failed to append message",
			zap.Int64("room_id", msg.RoomID),
			zap.Error(err),
		)
		return nil, apperrors.ErrInternal.Wrap(err)
	}
	metrics.MessagesAppended.WithLabelValues(string(msg.ContentType)).Inc()

	publish(ctx, s.publisher, s.logger, &model.RoomEvent{
		Type:       model.RoomEventMessage,
		RoomID:     msg.RoomID,
		Message:    msg,
		SenderName: sender.Name,
		OccurredAt: msg.CreatedAt,
	})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.notify(sender, msg)
	}()

	return msg, nil
}

func (s *MessageService) notify(sender *model.Member, msg *model.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	recipients, err := s.memberRepo.ListNotifiable(ctx, msg.RoomID, sender.UserID)
	if err != nil {
		s.logger.Warn("Failed to list push recipients", zap.Int64("room_id", msg.RoomID), zap.Error(err))
		return
	}
	if len(recipients) == 0 {
		return
	}

	n := &model.Notification{
		Recipients: recipients,
		Title:      sender.Name,
		Body:       pushBody(msg),
		RoomID:     msg.RoomID,
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.Warn("Failed to push notification",
			zap.Int64("room_id", msg.RoomID),
			zap.Int("recipients", len(recipients)),
			zap.Error(err),
		)
	}
}

func pushBody(msg *model.Message) string {
	switch msg.ContentType {
	case model.ContentTypeImage:
		return "[圖片]"
	case model.ContentTypeFile:
		return "[檔案]"
	}
	runes := []rune(msg.Content)
	if len(runes) > pushBodyLength {
		return string(runes[:pushBodyLength]) + "…"
	}
	return msg.Content
}

// Wait blocks until background notifications have finished.
func (s *MessageService) Wait() {
	s.wg.Wait()
}

// ListBefore pages backwards from cursorID. A cursor of 0 starts at the newest message.
func (s *MessageService) ListBefore(ctx context.Context, roomID, userID, cursorID int64, pageSize int) (*model.MessageSlice, error) {
	if _, err := requireMember(ctx, s.memberRepo, roomID, userID); err != nil {
		return nil, err
	}

	if cursorID <= 0 {
		cursorID = math.MaxInt64
	}
	switch {
	case pageSize <= 0:
		pageSize = s.cfg.PageSizeDefault
	case pageSize > s.cfg.PageSizeMax:
		pageSize = s.cfg.PageSizeMax
	}

	slice, err := s.messageRepo.MessagesBefore(ctx, roomID, cursorID, pageSize)
	if err != nil {
		return nil, apperrors.ErrInternal.Wrap(err)
	}
	return slice, nil
}

// Recent returns the newest messages of the room, newest first
func (s *MessageService) Recent(ctx context.Context, roomID, userID int64) ([]*model.Message, error) {
	if _, err := requireMember(ctx, s.memberRepo, roomID, userID); err != nil {
		return nil, err
	}

	messages, err := s.messageRepo.RecentMessages(ctx, roomID, s.cfg.RecentMessageWindow)
	if err != nil {
		return nil, apperrors.ErrInternal.Wrap(err)
	}
	return messages, nil
}

// MarkRead records messageID as the user's read position in the room
func (s *MessageService) MarkRead(ctx context.Context, roomID, userID, messageID int64) error {
	if _, err := requireMember(ctx, s.memberRepo, roomID, userID); err != nil {
		return err
	}
	if err := s.positions.SaveLastRead(ctx, userID, roomID, messageID); err != nil {
		return apperrors.ErrInternal.Wrap(err)
	}
	return nil
}

// UnreadState is what a member has not seen yet in a room.
type UnreadState struct {
	LastReadMessageID int64
	LatestMessageID   int64
	Count             int64
}

// UnreadCount reports the user's read position and how many messages follow it
func (s *MessageService) UnreadCount(ctx context.Context, roomID, userID int64) (*UnreadState, error) {
	if _, err := requireMember(ctx, s.memberRepo, roomID, userID); err != nil {
		return nil, err
	}

	lastRead, err := s.positions.ReadLastRead(ctx, userID, roomID)
	if err != nil {
		return nil, apperrors.ErrInternal.Wrap(err)
	}
	count, err := s.messageRepo.CountUnread(ctx, roomID, lastRead)
	if err != nil {
		return nil, apperrors.ErrInternal.Wrap(err)
	}
	latest, err := s.messageRepo.LatestMessageID(ctx, roomID)
	if err != nil {
		return nil, apperrors.ErrInternal.Wrap(err)
	}

	return &UnreadState{
		LastReadMessageID: lastRead,
		LatestMessageID:   latest,
		Count:             count,
	}, nil
}
