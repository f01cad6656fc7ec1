package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/go-demo/chatcore/internal/model"
	"github.com/go-demo/chatcore/internal/pkg/cache"
	"github.com/go-demo/chatcore/internal/pkg/metrics"
	"go.uber.org/zap"
)

const (
	defaultSyncInterval = time.Minute
	defaultScanBatch    = 500
)

type PositionCache interface {
	Scan(ctx context.Context, batch int64, fn func(keys []string) error) error
	MGet(ctx context.Context, keys []string) ([]int64, error)
}

type PositionStore interface {
	Upsert(ctx context.Context, positions []*model.ReadPosition) error
}

// ReadPositionSyncer copies read positions from the cache into the durable
// store so they survive cache eviction.
type ReadPositionSyncer struct {
	cache    PositionCache
	store    PositionStore
	interval time.Duration
	batch    int64
	logger   *zap.Logger
}

func NewReadPositionSyncer(cache PositionCache, store PositionStore, interval time.Duration, logger *zap.Logger) *ReadPositionSyncer {
	if interval <= 0 {
		interval = defaultSyncInterval
	}
	return &ReadPositionSyncer{
		cache:    cache,
		store:    store,
		interval: interval,
		batch:    defaultScanBatch,
		logger:   logger,
	}
}

// Run syncs on every tick until ctx is cancelled.
func (s *ReadPositionSyncer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("Read position sync started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Read position sync stopped")
			return
		case <-ticker.C:
			start := time.Now()
			n, err := s.SyncOnce(ctx)
			if err != nil {
				s.logger.Error("Read position sync failed", zap.Error(err))
				continue
			}
			s.logger.Debug("Read positions synced",
				zap.Int("count", n),
				zap.Duration("took", time.Since(start)),
			)
		}
	}
}

// SyncOnce flushes every cached position and returns how many were written.
func (s *ReadPositionSyncer) SyncOnce(ctx context.Context) (int, error) {
	total := 0
	err := s.cache.Scan(ctx, s.batch, func(keys []string) error {
		values, err := s.cache.MGet(ctx, keys)
		if err != nil {
			return err
		}

		positions := make([]*model.ReadPosition, 0, len(keys))
		for i, key := range keys {
			if values[i] < 0 {
				continue // deleted between SCAN and MGET
			}
			roomID, userID, err := cache.ParseLastReadKey(key)
			if err != nil {
				s.logger.Warn("Skipping malformed read position key", zap.String("key", key), zap.Error(err))
				continue
			}
			positions = append(positions, &model.ReadPosition{
				RoomID:            roomID,
				UserID:            userID,
				LastReadMessageID: values[i],
			})
		}

		if err := s.store.Upsert(ctx, positions); err != nil {
			return err
		}
		total += len(positions)
		metrics.ReadPositionsSynced.Add(float64(len(positions)))
		return nil
	})
	if err != nil {
		return total, fmt.Errorf("sync read positions: %w", err)
	}
	return total, nil
}
