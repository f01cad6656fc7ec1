package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-demo/chatcore/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrMemberNotFound    = errors.New("member not found")
	ErrAlreadyRoomMember = errors.New("already a room member")
)

const activeMember = "banned_at IS NULL AND left_at IS NULL"

// MemberRepository persists membership records. Only ACTIVE records are
// visible to the lookup queries except FindLatest.
type MemberRepository struct {
	db *sqlx.DB
}

func NewMemberRepository(db *sqlx.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

// Create inserts an ACTIVE membership record
func (r *MemberRepository) Create(ctx context.Context, member *model.Member) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := lockRoom(ctx, tx, member.RoomID, "FOR SHARE"); err != nil {
		return err
	}
	if err := insertMember(ctx, tx, member); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit member: %w", err)
	}
	return nil
}

func insertMember(ctx context.Context, tx *sqlx.Tx, member *model.Member) error {
	query := `
		INSERT INTO chat_members (room_id, user_id, name, role, notify_enabled)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := tx.QueryRowxContext(ctx, query,
		member.RoomID,
		member.UserID,
		member.Name,
		member.Role,
		member.NotifyEnabled,
	).Scan(&member.ID, &member.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyRoomMember
		}
		return fmt.Errorf("failed to create member: %w", err)
	}
	return nil
}

// FindActive returns the user's ACTIVE record in the room
func (r *MemberRepository) FindActive(ctx context.Context, roomID, userID int64) (*model.Member, error) {
	query := `SELECT * FROM chat_members WHERE room_id = $1 AND user_id = $2 AND ` + activeMember
	return r.get(ctx, query, roomID, userID)
}

// FindLatest returns the user's most recent record in any state
func (r *MemberRepository) FindLatest(ctx context.Context, roomID, userID int64) (*model.Member, error) {
	query := `
		SELECT * FROM chat_members
		WHERE room_id = $1 AND user_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1`
	return r.get(ctx, query, roomID, userID)
}

// FindAdmin returns the room's ACTIVE admin
func (r *MemberRepository) FindAdmin(ctx context.Context, roomID int64) (*model.Member, error) {
	query := `SELECT * FROM chat_members WHERE room_id = $1 AND role = $2 AND ` + activeMember
	return r.get(ctx, query, roomID, model.MemberRoleAdmin)
}

// CountActive counts ACTIVE members
func (r *MemberRepository) CountActive(ctx context.Context, roomID int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM chat_members WHERE room_id = $1 AND ` + activeMember

	if err := r.db.GetContext(ctx, &count, query, roomID); err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}
	return count, nil
}

// ListActiveByUserIDs returns ACTIVE records for the given users
func (r *MemberRepository) ListActiveByUserIDs(ctx context.Context, roomID int64, userIDs []int64) ([]*model.Member, error) {
	members := []*model.Member{}
	if len(userIDs) == 0 {
		return members, nil
	}

	query := `
		SELECT * FROM chat_members
		WHERE room_id = $1 AND user_id = ANY($2) AND ` + activeMember + `
		ORDER BY id`

	if err := r.db.SelectContext(ctx, &members, query, roomID, pq.Array(userIDs)); err != nil {
		return nil, fmt.Errorf("failed to list members by user ids: %w", err)
	}
	return members, nil
}

// ListActiveSummariesExcluding returns summaries of ACTIVE members whose user id is not excluded
func (r *MemberRepository) ListActiveSummariesExcluding(ctx context.Context, roomID int64, excluded []int64) ([]*model.MemberSummary, error) {
	summaries := []*model.MemberSummary{}
	query := `
		SELECT id, user_id, name, role FROM chat_members
		WHERE room_id = $1 AND NOT (user_id = ANY($2)) AND ` + activeMember + `
		ORDER BY id`

	if excluded == nil {
		excluded = []int64{}
	}
	if err := r.db.SelectContext(ctx, &summaries, query, roomID, pq.Array(excluded)); err != nil {
		return nil, fmt.Errorf("failed to list member summaries: %w", err)
	}
	return summaries, nil
}

// ListRoomsByUserID lists live rooms the user is an ACTIVE member of,
// most recently joined first.
func (r *MemberRepository) ListRoomsByUserID(ctx context.Context, userID int64, limit, offset int) ([]*model.UserRoom, error) {
	query := `
		SELECT r.*, me.role AS my_role,
			(SELECT COUNT(*) FROM chat_members m
			 WHERE m.room_id = r.id AND m.banned_at IS NULL AND m.left_at IS NULL) AS member_count
		FROM chat_members me
		INNER JOIN chat_rooms r ON r.id = me.room_id AND r.deleted_at IS NULL
		WHERE me.user_id = $1 AND me.banned_at IS NULL AND me.left_at IS NULL
		ORDER BY me.created_at DESC, me.id DESC
		LIMIT $2 OFFSET $3`

	rooms := []*model.UserRoom{}
	if err := r.db.SelectContext(ctx, &rooms, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list user rooms: %w", err)
	}
	return rooms, nil
}

// ListNotifiable returns user ids of ACTIVE members with notifications on, except excludeUserID
func (r *MemberRepository) ListNotifiable(ctx context.Context, roomID, excludeUserID int64) ([]int64, error) {
	ids := []int64{}
	query := `
		SELECT user_id FROM chat_members
		WHERE room_id = $1 AND user_id <> $2 AND notify_enabled AND ` + activeMember

	if err := r.db.SelectContext(ctx, &ids, query, roomID, excludeUserID); err != nil {
		return nil, fmt.Errorf("failed to list notifiable members: %w", err)
	}
	return ids, nil
}

// UpdateNotify toggles push notifications for an ACTIVE member
func (r *MemberRepository) UpdateNotify(ctx context.Context, roomID, userID int64, enabled bool) error {
	query := `UPDATE chat_members SET notify_enabled = $3 WHERE room_id = $1 AND user_id = $2 AND ` + activeMember

	result, err := r.db.ExecContext(ctx, query, roomID, userID, enabled)
	if err != nil {
		return fmt.Errorf("failed to update notify setting: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// Leave marks the member LEFT and returns how many ACTIVE members remain.
// The room row and the member row are locked first, so the admin rule is
// checked against the count that the update commits with. Concurrent joins
// block on the room row. When none remain the room is soft deleted in the
// same transaction.
func (r *MemberRepository) Leave(ctx context.Context, member *model.Member) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := lockRoom(ctx, tx, member.RoomID, "FOR UPDATE"); err != nil {
		return 0, err
	}

	var stored model.Member
	if err := tx.GetContext(ctx, &stored, `SELECT * FROM chat_members WHERE id = $1 FOR UPDATE`, member.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrMemberNotFound
		}
		return 0, fmt.Errorf("failed to lock member: %w", err)
	}

	var active int
	countQuery := `SELECT COUNT(*) FROM chat_members WHERE room_id = $1 AND ` + activeMember
	if err := tx.GetContext(ctx, &active, countQuery, member.RoomID); err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}

	if err := stored.Leave(time.Now().UTC(), active); err != nil {
		if errors.Is(err, model.ErrMemberInactive) {
			return 0, ErrMemberNotFound
		}
		return 0, err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE chat_members SET left_at = $2 WHERE id = $1`, stored.ID, stored.LeftAt); err != nil {
		return 0, fmt.Errorf("failed to leave room: %w", err)
	}

	remaining := active - 1
	if remaining == 0 {
		if err := softDeleteRoom(ctx, tx, member.RoomID); err != nil && !errors.Is(err, ErrRoomNotFound) {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit leave: %w", err)
	}
	*member = stored
	return remaining, nil
}

// lockRoom takes a row lock on a live room. mode is "FOR UPDATE" or "FOR SHARE".
func lockRoom(ctx context.Context, tx *sqlx.Tx, roomID int64, mode string) error {
	var id int64
	query := `SELECT id FROM chat_rooms WHERE id = $1 AND deleted_at IS NULL ` + mode
	if err := tx.GetContext(ctx, &id, query, roomID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRoomNotFound
		}
		return fmt.Errorf("failed to lock room: %w", err)
	}
	return nil
}

// MutatePair loads two ACTIVE records under row locks, lets fn change them
// and persists role and state of both. Passing the same id twice hands fn
// the same record for both arguments.
func (r *MemberRepository) MutatePair(ctx context.Context, roomID, firstID, secondID int64, fn func(first, second *model.Member) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var rows []*model.Member
	query := `
		SELECT * FROM chat_members
		WHERE room_id = $1 AND id = ANY($2) AND ` + activeMember + `
		ORDER BY id
		FOR UPDATE`
	if err := tx.SelectContext(ctx, &rows, query, roomID, pq.Array([]int64{firstID, secondID})); err != nil {
		return fmt.Errorf("failed to lock members: %w", err)
	}

	byID := make(map[int64]*model.Member, len(rows))
	for _, m := range rows {
		byID[m.ID] = m
	}
	first, second := byID[firstID], byID[secondID]
	if first == nil || second == nil {
		return ErrMemberNotFound
	}

	if err := fn(first, second); err != nil {
		return err
	}

	update := `UPDATE chat_members SET role = $2, banned_at = $3, left_at = $4 WHERE id = $1`
	for _, m := range uniqueMembers(first, second) {
		if _, err := tx.ExecContext(ctx, update, m.ID, m.Role, m.BannedAt, m.LeftAt); err != nil {
			return fmt.Errorf("failed to update member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit member update: %w", err)
	}
	return nil
}

func uniqueMembers(a, b *model.Member) []*model.Member {
	if a.ID == b.ID {
		return []*model.Member{a}
	}
	return []*model.Member{a, b}
}

func (r *MemberRepository) get(ctx context.Context, query string, args ...interface{}) (*model.Member, error) {
	var member model.Member
	if err := r.db.GetContext(ctx, &member, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return &member, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
