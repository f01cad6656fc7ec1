package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-demo/chatcore/internal/model"
	"github.com/jmoiron/sqlx"
)

// ReadPositionRepository is the durable tier of the read-position tracker.
type ReadPositionRepository struct {
	db *sqlx.DB
}

func NewReadPositionRepository(db *sqlx.DB) *ReadPositionRepository {
	return &ReadPositionRepository{db: db}
}

// Get returns the stored position and whether one exists.
func (r *ReadPositionRepository) Get(ctx context.Context, roomID, userID int64) (int64, bool, error) {
	var id int64
	query := `
		SELECT last_read_message_id
		FROM chat_read_positions
		WHERE room_id = $1 AND user_id = $2`

	if err := r.db.GetContext(ctx, &id, query, roomID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get read position: %w", err)
	}
	return id, true, nil
}

// Upsert writes positions in one transaction. A stored position never moves backwards.
func (r *ReadPositionRepository) Upsert(ctx context.Context, positions []*model.ReadPosition) error {
	if len(positions) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO chat_read_positions (room_id, user_id, last_read_message_id, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (room_id, user_id) DO UPDATE
		SET last_read_message_id = GREATEST(chat_read_positions.last_read_message_id, EXCLUDED.last_read_message_id),
		    updated_at = NOW()`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare read position upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range positions {
		if _, err := stmt.ExecContext(ctx, p.RoomID, p.UserID, p.LastReadMessageID); err != nil {
			return fmt.Errorf("failed to upsert read position: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit read positions: %w", err)
	}
	return nil
}
