package cache

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-demo/chatcore/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func NewRedis(cfg *config.RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Connected to Redis",
		zap.String("addr", cfg.GetAddr()),
		zap.Int("db", cfg.DB),
	)

	return client, nil
}

// Close closes the Redis connection
func Close(client *redis.Client, logger *zap.Logger) {
	if err := client.Close(); err != nil {
		logger.Error("Error closing Redis connection", zap.Error(err))
	} else {
		logger.Info("Redis connection closed")
	}
}

// Keys for chat system
const (
	KeyRoomMessages       = "chat:room:%d:message"         // chat:room:{roomID}:message
	KeyRoomMessagePayload = "chat:room:%d:message:payload" // chat:room:{roomID}:message:payload
	KeyLastRead           = "chat:last_read:%d:%d"         // chat:last_read:{roomID}:{userID}
	KeyPendingRoom        = "chat:pending_room:%d"         // chat:pending_room:{creatorID}
	KeyPendingRoomOwner   = "chat:pending_room_owner:%d"   // chat:pending_room_owner:{roomID}
	KeyRoomAdminLock      = "chat:lock:room:%d:admin"      // chat:lock:room:{roomID}:admin
	KeyRoomEvents         = "chat:room:%d"                 // pub/sub channel per room

	PatternLastRead   = "chat:last_read:*"
	PatternRoomEvents = "chat:room:*"
)

func RoomMessagesKey(roomID int64) string       { return fmt.Sprintf(KeyRoomMessages, roomID) }
func RoomMessagePayloadKey(roomID int64) string { return fmt.Sprintf(KeyRoomMessagePayload, roomID) }
func LastReadKey(roomID, userID int64) string   { return fmt.Sprintf(KeyLastRead, roomID, userID) }
func PendingRoomKey(creatorID int64) string     { return fmt.Sprintf(KeyPendingRoom, creatorID) }
func PendingRoomOwnerKey(roomID int64) string   { return fmt.Sprintf(KeyPendingRoomOwner, roomID) }
func RoomAdminLockKey(roomID int64) string      { return fmt.Sprintf(KeyRoomAdminLock, roomID) }
func RoomEventsChannel(roomID int64) string     { return fmt.Sprintf(KeyRoomEvents, roomID) }

// ParseLastReadKey extracts room and user ids from a last-read key.
func ParseLastReadKey(key string) (roomID, userID int64, err error) {
	parts := strings.Split(key, ":")
	if len(parts) != 4 || parts[0] != "chat" || parts[1] != "last_read" {
		return 0, 0, fmt.Errorf("malformed last-read key %q", key)
	}
	if roomID, err = strconv.ParseInt(parts[2], 10, 64); err != nil {
		return 0, 0, fmt.Errorf("malformed room id in %q: %w", key, err)
	}
	if userID, err = strconv.ParseInt(parts[3], 10, 64); err != nil {
		return 0, 0, fmt.Errorf("malformed user id in %q: %w", key, err)
	}
	return roomID, userID, nil
}

// ParseRoomEventsChannel extracts the room id from a room event channel.
func ParseRoomEventsChannel(channel string) (int64, bool) {
	rest, ok := strings.CutPrefix(channel, "chat:room:")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
