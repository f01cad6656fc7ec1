package service

import (
	"context"
	"fmt"

	"github.com/go-demo/chatcore/internal/pkg/metrics"
	"go.uber.org/zap"
)

// ReadPositionService tracks the newest message each user has seen per room.
// Writes land in the cache only; the sync worker flushes them to the durable store.
type ReadPositionService struct {
	cache    ReadPositionCache
	durable  ReadPositionStore
	messages MessageStore
	logger   *zap.Logger
}

func NewReadPositionService(cache ReadPositionCache, durable ReadPositionStore, messages MessageStore, logger *zap.Logger) *ReadPositionService {
	return &ReadPositionService{
		cache:    cache,
		durable:  durable,
		messages: messages,
		logger:   logger,
	}
}

// ReadLastRead returns the user's read position in the room, 0 when none exists.
func (s *ReadPositionService) ReadLastRead(ctx context.Context, userID, roomID int64) (int64, error) {
	id, ok, err := s.cache.Get(ctx, roomID, userID)
	if err != nil {
		return 0, fmt.Errorf("read position cache: %w", err)
	}
	if ok {
		metrics.ReadPositionLookups.WithLabelValues("cache").Inc()
		return id, nil
	}

	id, ok, err = s.durable.Get(ctx, roomID, userID)
	if err != nil {
		return 0, fmt.Errorf("read position store: %w", err)
	}
	if !ok {
		metrics.ReadPositionLookups.WithLabelValues("absent").Inc()
		return 0, nil
	}

	metrics.ReadPositionLookups.WithLabelValues("durable").Inc()
	if err := s.cache.Set(ctx, roomID, userID, id); err != nil {
		return 0, fmt.Errorf("read position cache: %w", err)
	}
	return id, nil
}

// SaveLastRead records messageID as the user's position. Non-positive ids are ignored.
func (s *ReadPositionService) SaveLastRead(ctx context.Context, userID, roomID, messageID int64) error {
	if messageID <= 0 {
		s.logger.Debug("Ignoring invalid read position",
			zap.Int64("room_id", roomID),
			zap.Int64("user_id", userID),
			zap.Int64("message_id", messageID),
		)
		return nil
	}

	if err := s.cache.Set(ctx, roomID, userID, messageID); err != nil {
		return fmt.Errorf("read position cache: %w", err)
	}
	return nil
}

// UnreadCount counts messages newer than the user's read position.
func (s *ReadPositionService) UnreadCount(ctx context.Context, userID, roomID int64) (int64, error) {
	lastRead, err := s.ReadLastRead(ctx, userID, roomID)
	if err != nil {
		return 0, err
	}
	return s.messages.CountUnread(ctx, roomID, lastRead)
}
