package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-demo/chatcore/internal/model"
	"github.com/go-demo/chatcore/internal/pkg/cache"
	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

var ErrPendingRoomNotFound = errors.New("pending room not found")

// PendingRoomRepository holds one room reservation per creator until it is
// confirmed or expires.
type PendingRoomRepository struct {
	client *redis.Client
}

func NewPendingRoomRepository(client *redis.Client) *PendingRoomRepository {
	return &PendingRoomRepository{client: client}
}

// Save stores pending, replacing any earlier reservation by the same creator.
// The reserved room id is indexed to its creator for the same ttl.
func (r *PendingRoomRepository) Save(ctx context.Context, pending *model.PendingRoom, ttl time.Duration) error {
	data, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("failed to encode pending room: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, cache.PendingRoomKey(pending.CreatorID), data, ttl)
		pipe.Set(ctx, cache.PendingRoomOwnerKey(pending.RoomID), pending.CreatorID, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save pending room: %w", err)
	}
	return nil
}

// Owner returns the creator that reserved roomID.
func (r *PendingRoomRepository) Owner(ctx context.Context, roomID int64) (int64, error) {
	owner, err := r.client.Get(ctx, cache.PendingRoomOwnerKey(roomID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrPendingRoomNotFound
		}
		return 0, fmt.Errorf("failed to get pending room owner: %w", err)
	}
	return owner, nil
}

// Take removes and returns the creator's reservation. A reservation can be taken once.
func (r *PendingRoomRepository) Take(ctx context.Context, creatorID int64) (*model.PendingRoom, error) {
	raw, err := r.client.GetDel(ctx, cache.PendingRoomKey(creatorID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrPendingRoomNotFound
		}
		return nil, fmt.Errorf("failed to take pending room: %w", err)
	}

	var pending model.PendingRoom
	if err := json.Unmarshal(raw, &pending); err != nil {
		return nil, fmt.Errorf("failed to decode pending room: %w", err)
	}

	if err := r.client.Del(ctx, cache.PendingRoomOwnerKey(pending.RoomID)).Err(); err != nil {
		return nil, fmt.Errorf("failed to clear pending room owner: %w", err)
	}
	return &pending, nil
}

// Restore puts a taken reservation back, e.g. when confirmation failed downstream.
func (r *PendingRoomRepository) Restore(ctx context.Context, pending *model.PendingRoom, ttl time.Duration) error {
	data, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("failed to encode pending room: %w", err)
	}

	// never clobber a newer reservation made in the meantime
	ok, err := r.client.SetNX(ctx, cache.PendingRoomKey(pending.CreatorID), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to restore pending room: %w", err)
	}
	if !ok {
		return nil
	}

	if err := r.client.Set(ctx, cache.PendingRoomOwnerKey(pending.RoomID), pending.CreatorID, ttl).Err(); err != nil {
		return fmt.Errorf("failed to restore pending room owner: %w", err)
	}
	return nil
}
