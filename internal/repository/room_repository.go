package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-demo/chatcore/internal/model"
	"github.com/jmoiron/sqlx"
)

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomAlreadyExists = errors.New("room already exists")
)

type RoomRepository struct {
	db *sqlx.DB
}

func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// CreateWithAdmin inserts the room and its first ADMIN membership atomically.
// The room keeps the id it was reserved with.
func (r *RoomRepository) CreateWithAdmin(ctx context.Context, room *model.Room, admin *model.Member) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	roomQuery := `
		INSERT INTO chat_rooms (id, title, description, background_image_url, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	err = tx.QueryRowxContext(ctx, roomQuery,
		room.ID,
		room.Title,
		room.Description,
		room.BackgroundImageURL,
		room.PasswordHash,
	).Scan(&room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrRoomAlreadyExists
		}
		return fmt.Errorf("failed to create room: %w", err)
	}

	admin.RoomID = room.ID
	admin.Role = model.MemberRoleAdmin
	if err := insertMember(ctx, tx, admin); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit room creation: %w", err)
	}
	return nil
}

// GetByID retrieves a live (not soft deleted) room by ID
func (r *RoomRepository) GetByID(ctx context.Context, id int64) (*model.Room, error) {
	var room model.Room
	query := `SELECT * FROM chat_rooms WHERE id = $1 AND deleted_at IS NULL`

	if err := r.db.GetContext(ctx, &room, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to get room by id: %w", err)
	}

	return &room, nil
}

// Update updates a room's descriptive fields
func (r *RoomRepository) Update(ctx context.Context, room *model.Room) error {
	query := `
		UPDATE chat_rooms
		SET title = $2, description = $3, background_image_url = $4, password_hash = $5, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		room.ID,
		room.Title,
		room.Description,
		room.BackgroundImageURL,
		room.PasswordHash,
	).Scan(&room.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRoomNotFound
		}
		return fmt.Errorf("failed to update room: %w", err)
	}

	return nil
}

// SoftDelete marks the room deleted and every active member as left
func (r *RoomRepository) SoftDelete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := softDeleteRoom(ctx, tx, id); err != nil {
		return err
	}

	memberQuery := `
		UPDATE chat_members SET left_at = NOW()
		WHERE room_id = $1 AND banned_at IS NULL AND left_at IS NULL`
	if _, err := tx.ExecContext(ctx, memberQuery, id); err != nil {
		return fmt.Errorf("failed to release room members: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit room deletion: %w", err)
	}
	return nil
}

func softDeleteRoom(ctx context.Context, tx *sqlx.Tx, id int64) error {
	query := `UPDATE chat_rooms SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`

	result, err := tx.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrRoomNotFound
	}

	return nil
}
