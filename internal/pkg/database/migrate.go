package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS chat_rooms (
		id                   BIGINT PRIMARY KEY,
		title                VARCHAR(50) NOT NULL,
		description          VARCHAR(100),
		background_image_url TEXT,
		password_hash        TEXT,
		created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		deleted_at           TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS chat_members (
		id             BIGSERIAL PRIMARY KEY,
		room_id        BIGINT NOT NULL REFERENCES chat_rooms(id),
		user_id        BIGINT NOT NULL,
		name           VARCHAR(50) NOT NULL,
		role           VARCHAR(10) NOT NULL,
		notify_enabled BOOLEAN NOT NULL DEFAULT TRUE,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		banned_at      TIMESTAMPTZ,
		left_at        TIMESTAMPTZ
	)`,
	// at most one ACTIVE record per (room, user)
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_chat_members_active
		ON chat_members (room_id, user_id)
		WHERE banned_at IS NULL AND left_at IS NULL`,
	`CREATE INDEX IF NOT EXISTS ix_chat_members_room_user
		ON chat_members (room_id, user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS chat_read_positions (
		room_id              BIGINT NOT NULL,
		user_id              BIGINT NOT NULL,
		last_read_message_id BIGINT NOT NULL,
		updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (room_id, user_id)
	)`,
}

// Migrate creates the chat tables when they do not exist yet.
func Migrate(ctx context.Context, db *sqlx.DB, logger *zap.Logger) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i, err)
		}
	}

	logger.Info("Database schema is up to date", zap.Int("statements", len(schema)))
	return nil
}
