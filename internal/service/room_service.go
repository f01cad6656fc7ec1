package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-demo/chatcore/internal/model"
	apperrors "github.com/go-demo/chatcore/internal/pkg/errors"
	"github.com/go-demo/chatcore/internal/pkg/metrics"
	"github.com/go-demo/chatcore/internal/pkg/utils"
	"github.com/go-demo/chatcore/internal/repository"
	"go.uber.org/zap"
)

const (
	defaultPendingRoomTTL = time.Hour
	defaultRoomPageSize   = 20
	maxRoomPageSize       = 100
)

type RoomService struct {
	roomRepo    RoomStore
	memberRepo  MemberStore
	pendingRepo PendingRoomStore
	positions   *ReadPositionService
	ids         IDGenerator
	publisher   Publisher
	pendingTTL  time.Duration
	logger      *zap.Logger
}

func NewRoomService(
	roomRepo RoomStore,
	memberRepo MemberStore,
	pendingRepo PendingRoomStore,
	positions *ReadPositionService,
	ids IDGenerator,
	publisher Publisher,
	pendingTTL time.Duration,
	logger *zap.Logger,
) *RoomService {
	if pendingTTL <= 0 {
		pendingTTL = defaultPendingRoomTTL
	}
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &RoomService{
		roomRepo:    roomRepo,
		memberRepo:  memberRepo,
		pendingRepo: pendingRepo,
		positions:   positions,
		ids:         ids,
		publisher:   publisher,
		pendingTTL:  pendingTTL,
		logger:      logger,
	}
}

// PendingTTL is how long a reservation waits for confirmation.
func (s *RoomService) PendingTTL() time.Duration {
	return s.pendingTTL
}

// PendRoomInput represents the first phase of room creation
type PendRoomInput struct {
	Title       string
	Description string
	Password    string
}

// Pend reserves a room id for creatorID. A later Pend by the same creator
// replaces the reservation.
func (s *RoomService) Pend(ctx context.Context, creatorID int64, input *PendRoomInput) (int64, error) {
	title := utils.SanitizeString(input.Title)
	description := utils.SanitizeString(input.Description)

	v := utils.NewValidator()
	v.ValidateRoomTitle("title", title)
	v.ValidateRoomDescription("description", description)
	v.ValidateRoomPassword("password", input.Password)
	if v.HasErrors() {
		return 0, apperrors.ErrValidation.WithDetails(v.Errors())
	}

	pending := &model.PendingRoom{
		RoomID:      s.ids.Generate(),
		CreatorID:   creatorID,
		Title:       title,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	if input.Password != "" {
		hash, err := utils.HashRoomPassword(input.Password)
		if err != nil {
			s.logger.Error("Failed to hash room password", zap.Error(err))
			return 0, apperrors.ErrInternal.Wrap(err)
		}
		pending.PasswordHash = hash
	}

	if err := s.pendingRepo.Save(ctx, pending, s.pendingTTL); err != nil {
		s.logger.Error("Failed to save pending room", zap.Error(err))
		return 0, apperrors.ErrInternal.Wrap(err)
	}

	metrics.RoomsPended.Inc()
	s.logger.Info("Room pended",
		zap.Int64("room_id", pending.RoomID),
		zap.Int64("creator_id", creatorID),
	)
	return pending.RoomID, nil
}

// ConfirmRoomInput carries the fields supplied when confirming a reservation.
// RoomID is optional; when set it must name the requester's reservation.
type ConfirmRoomInput struct {
	RoomID             int64
	Name               string
	BackgroundImageURL string
}

// Confirm consumes the requester's reservation and creates the room with the
// requester as its ADMIN.
func (s *RoomService) Confirm(ctx context.Context, requesterID int64, input *ConfirmRoomInput) (*model.Room, error) {
	name := utils.SanitizeString(input.Name)

	v := utils.NewValidator()
	v.ValidateMemberName("name", name)
	if v.HasErrors() {
		return nil, apperrors.ErrValidation.WithDetails(v.Errors())
	}

	if input.RoomID != 0 {
		owner, err := s.pendingRepo.Owner(ctx, input.RoomID)
		if err != nil {
			if errors.Is(err, repository.ErrPendingRoomNotFound) {
				return nil, apperrors.ErrPendingRoomNotFound
			}
			return nil, apperrors.ErrInternal.Wrap(err)
		}
		if owner != requesterID {
			s.logger.Warn("Room confirmed by non-creator",
				zap.Int64("room_id", input.RoomID),
				zap.Int64("requester_id", requesterID),
			)
			return nil, apperrors.ErrInvalidCreator
		}
	}

	pending, err := s.pendingRepo.Take(ctx, requesterID)
	if err != nil {
		if errors.Is(err, repository.ErrPendingRoomNotFound) {
			return nil, apperrors.ErrPendingRoomNotFound
		}
		s.logger.Error("Failed to take pending room", zap.Error(err))
		return nil, apperrors.ErrInternal.Wrap(err)
	}
	if pending.CreatorID != requesterID {
		return nil, apperrors.ErrInvalidCreator
	}
	if input.RoomID != 0 && pending.RoomID != input.RoomID {
		// superseded by a newer Pend
		s.restore(pending)
		return nil, apperrors.ErrPendingRoomNotFound
	}

	room := &model.Room{
		ID:    pending.RoomID,
		Title: pending.Title,
	}
	if pending.Description != "" {
		room.Description = sql.NullString{String: pending.Description, Valid: true}
	}
	if pending.PasswordHash != "" {
		room.PasswordHash = sql.NullString{String: pending.PasswordHash, Valid: true}
	}
	if input.BackgroundImageURL != "" {
		room.BackgroundImageURL = sql.NullString{String: input.BackgroundImageURL, Valid: true}
	}

	admin := model.NewMember(room.ID, requesterID, name, model.MemberRoleAdmin)
	if err := s.roomRepo.CreateWithAdmin(ctx, room, admin); err != nil {
		if errors.Is(err, repository.ErrRoomAlreadyExists) {
			return nil, apperrors.ErrConflict
		}
		s.logger.Error("Failed to create room", zap.Error(err))
		s.restore(pending)
		return nil, apperrors.ErrInternal.Wrap(err)
	}

	metrics.RoomsCreated.Inc()
	s.logger.Info("Room created",
		zap.Int64("room_id", room.ID),
		zap.String("title", room.Title),
		zap.Int64("admin_id", requesterID),
	)
	return room, nil
}

func (s *RoomService) restore(pending *model.PendingRoom) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.pendingRepo.Restore(ctx, pending, s.pendingTTL); err != nil {
		s.logger.Warn("Failed to restore pending room",
			zap.Int64("room_id", pending.RoomID),
			zap.Error(err),
		)
	}
}

// GetRoom retrieves a live room by ID
func (s *RoomService) GetRoom(ctx context.Context, roomID int64) (*model.Room, error) {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, mapRoomError(err)
	}
	return room, nil
}

// UpdateRoomInput represents room update input. Nil fields are left unchanged;
// an empty Password removes the room password.
type UpdateRoomInput struct {
	RoomID             int64
	UserID             int64
	Title              *string
	Description        *string
	BackgroundImageURL *string
	Password           *string
}

// Update changes the room's descriptive fields. Only the admin may update.
func (s *RoomService) Update(ctx context.Context, input *UpdateRoomInput) (*model.Room, error) {
	v := utils.NewValidator()
	if input.Title != nil {
		v.ValidateRoomTitle("title", *input.Title)
	}
	if input.Description != nil {
		v.ValidateRoomDescription("description", *input.Description)
	}
	if input.Password != nil {
		v.ValidateRoomPassword("password", *input.Password)
	}
	if v.HasErrors() {
		return nil, apperrors.ErrValidation.WithDetails(v.Errors())
	}

	room, err := s.roomRepo.GetByID(ctx, input.RoomID)
	if err != nil {
		return nil, mapRoomError(err)
	}
	if _, err := requireAdmin(ctx, s.memberRepo, input.RoomID, input.UserID); err != nil {
		return nil, err
	}

	if input.Title != nil {
		room.Title = *input.Title
	}
	if input.Description != nil {
		room.Description = nullString(*input.Description)
	}
	if input.BackgroundImageURL != nil {
		room.BackgroundImageURL = nullString(*input.BackgroundImageURL)
	}
	if input.Password != nil {
		room.PasswordHash = sql.NullString{}
		if *input.Password != "" {
			hash, err := utils.HashRoomPassword(*input.Password)
			if err != nil {
				return nil, apperrors.ErrInternal.Wrap(err)
			}
			room.PasswordHash = sql.NullString{String: hash, Valid: true}
		}
	}

	if err := s.roomRepo.Update(ctx, room); err != nil {
		return nil, mapRoomError(err)
	}

	s.logger.Info("Room updated", zap.Int64("room_id", room.ID))
	return room, nil
}

// Delete soft deletes the room and releases every member. Only the admin may delete.
func (s *RoomService) Delete(ctx context.Context, roomID, userID int64) error {
	if _, err := requireAdmin(ctx, s.memberRepo, roomID, userID); err != nil {
		return err
	}

	if err := s.roomRepo.SoftDelete(ctx, roomID); err != nil {
		return mapRoomError(err)
	}

	publish(ctx, s.publisher, s.logger, &model.RoomEvent{
		Type:       model.RoomEventRoomDeleted,
		RoomID:     roomID,
		OccurredAt: time.Now().UTC(),
	})
	s.logger.Info("Room deleted",
		zap.Int64("room_id", roomID),
		zap.Int64("user_id", userID),
	)
	return nil
}

// ListMyRooms lists the rooms userID is an ACTIVE member of, each with the
// user's unread count.
func (s *RoomService) ListMyRooms(ctx context.Context, userID int64, limit, offset int) ([]*model.UserRoom, error) {
	if limit <= 0 {
		limit = defaultRoomPageSize
	}
	if limit > maxRoomPageSize {
		limit = maxRoomPageSize
	}
	if offset < 0 {
		offset = 0
	}

	rooms, err := s.memberRepo.ListRoomsByUserID(ctx, userID, limit, offset)
	if err != nil {
		s.logger.Error("Failed to list user rooms", zap.Int64("user_id", userID), zap.Error(err))
		return nil, apperrors.ErrInternal.Wrap(err)
	}
	if s.positions == nil {
		return rooms, nil
	}

	for _, room := range rooms {
		unread, err := s.positions.UnreadCount(ctx, userID, room.ID)
		if err != nil {
			s.logger.Error("Failed to count unread messages",
				zap.Int64("room_id", room.ID),
				zap.Int64("user_id", userID),
				zap.Error(err),
			)
			return nil, apperrors.ErrInternal.Wrap(err)
		}
		room.UnreadCount = unread
	}
	return rooms, nil
}

func mapRoomError(err error) error {
	if errors.Is(err, repository.ErrRoomNotFound) {
		return apperrors.ErrRoomNotFound
	}
	return apperrors.ErrInternal.Wrap(err)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// publish delivers a realtime event; failures are only logged.
func publish(ctx context.Context, p Publisher, logger *zap.Logger, event *model.RoomEvent) {
	if err := p.Publish(ctx, event); err != nil {
		logger.Warn("Failed to publish room event",
			zap.String("type", string(event.Type)),
			zap.Int64("room_id", event.RoomID),
			zap.Error(err),
		)
	}
}
