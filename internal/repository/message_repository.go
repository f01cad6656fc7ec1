package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/go-demo/chatcore/internal/model"
	"github.com/go-demo/chatcore/internal/pkg/cache"
	"github.com/go-demo/chatcore/internal/pkg/metrics"
	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

var ErrInvalidMessageID = errors.New("message id must be positive")

// MessageRepository keeps each room's log in Redis.
//
// The index is a sorted set whose members are ids rendered as 19-digit,
// zero-padded decimals, all with score 0. Lexicographic order over those
// members equals numeric order over the ids, and lex ranges compare them
// exactly (a float score would round ids above 2^53). Payloads live in a
// hash keyed by the same padded id.
type MessageRepository struct {
	client *redis.Client
}

func NewMessageRepository(client *redis.Client) *MessageRepository {
	return &MessageRepository{client: client}
}

func padID(id int64) string {
	return fmt.Sprintf("%019d", id)
}

// Append stores msg. Index and payload become visible together.
// Content over model.MaxContentLength is rejected before anything is written.
func (r *MessageRepository) Append(ctx context.Context, msg *model.Message) (*model.Message, error) {
	if msg.ID <= 0 {
		return nil, ErrInvalidMessageID
	}
	if utf8.RuneCountInString(msg.Content) > model.MaxContentLength {
		return nil, model.ErrContentTooLong
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}

	start := time.Now()
	member := padID(msg.ID)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, cache.RoomMessagePayloadKey(msg.RoomID), member, data)
		pipe.ZAdd(ctx, cache.RoomMessagesKey(msg.RoomID), redis.Z{Score: 0, Member: member})
		return nil
	})
	metrics.RedisLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}

	return msg, nil
}

// RecentMessages returns up to count newest messages, newest first.
func (r *MessageRepository) RecentMessages(ctx context.Context, roomID int64, count int) ([]*model.Message, error) {
	if count <= 0 {
		return []*model.Message{}, nil
	}

	members, err := r.client.ZRevRangeByLex(ctx, cache.RoomMessagesKey(roomID), &redis.ZRangeBy{
		Max:   "+",
		Min:   "-",
		Count: int64(count),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read recent messages: %w", err)
	}

	return r.load(ctx, roomID, members)
}

// MessagesBefore returns up to pageSize messages with id < cursorID, newest
// first. Pass math.MaxInt64 for the first page. The cursor need not exist.
func (r *MessageRepository) MessagesBefore(ctx context.Context, roomID, cursorID int64, pageSize int) (*model.MessageSlice, error) {
	if pageSize <= 0 || cursorID <= 0 {
		return &model.MessageSlice{Messages: []*model.Message{}}, nil
	}

	members, err := r.client.ZRevRangeByLex(ctx, cache.RoomMessagesKey(roomID), &redis.ZRangeBy{
		Max:   "(" + padID(cursorID),
		Min:   "-",
		Count: int64(pageSize) + 1,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read messages before %d: %w", cursorID, err)
	}

	hasMore := len(members) > pageSize
	if hasMore {
		members = members[:pageSize]
	}

	messages, err := r.load(ctx, roomID, members)
	if err != nil {
		return nil, err
	}

	return &model.MessageSlice{Messages: messages, HasMore: hasMore}, nil
}

// CountUnread counts messages with id > lastReadID. Gaps in the id sequence do not matter.
func (r *MessageRepository) CountUnread(ctx context.Context, roomID, lastReadID int64) (int64, error) {
	if lastReadID < 0 {
		lastReadID = 0
	}

	n, err := r.client.ZLexCount(ctx, cache.RoomMessagesKey(roomID), "("+padID(lastReadID), "+").Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return n, nil
}

// LatestMessageID returns the newest id in the room, or 0 for an empty room.
func (r *MessageRepository) LatestMessageID(ctx context.Context, roomID int64) (int64, error) {
	members, err := r.client.ZRevRangeByLex(ctx, cache.RoomMessagesKey(roomID), &redis.ZRangeBy{
		Max:   "+",
		Min:   "-",
		Count: 1,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read latest message id: %w", err)
	}
	if len(members) == 0 {
		return 0, nil
	}

	id, err := strconv.ParseInt(members[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed message index member %q: %w", members[0], err)
	}
	return id, nil
}

func (r *MessageRepository) load(ctx context.Context, roomID int64, members []string) ([]*model.Message, error) {
	messages := make([]*model.Message, 0, len(members))
	if len(members) == 0 {
		return messages, nil
	}

	values, err := r.client.HMGet(ctx, cache.RoomMessagePayloadKey(roomID), members...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load message payloads: %w", err)
	}

	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// index entry without payload; skip rather than fail the page
			continue
		}
		var msg model.Message
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			return nil, fmt.Errorf("failed to decode message %s: %w", members[i], err)
		}
		messages = append(messages, &msg)
	}

	return messages, nil
}
