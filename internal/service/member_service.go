package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-demo/chatcore/internal/model"
	"github.com/go-demo/chatcore/internal/pkg/cache"
	apperrors "github.com/go-demo/chatcore/internal/pkg/errors"
	"github.com/go-demo/chatcore/internal/pkg/lock"
	"github.com/go-demo/chatcore/internal/pkg/metrics"
	"github.com/go-demo/chatcore/internal/pkg/utils"
	"github.com/go-demo/chatcore/internal/repository"
	"go.uber.org/zap"
)

// MemberService drives the membership state machine. Every room with
// members has exactly one ACTIVE ADMIN; the role only moves via DelegateAdmin.
type MemberService struct {
	roomRepo   RoomStore
	memberRepo MemberStore
	locker     lock.Locker
	publisher  Publisher
	logger     *zap.Logger
}

func NewMemberService(
	roomRepo RoomStore,
	memberRepo MemberStore,
	locker lock.Locker,
	publisher Publisher,
	logger *zap.Logger,
) *MemberService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &MemberService{
		roomRepo:   roomRepo,
		memberRepo: memberRepo,
		locker:     locker,
		publisher:  publisher,
		logger:     logger,
	}
}

// JoinInput represents room join input
type JoinInput struct {
	RoomID   int64
	UserID   int64
	Name     string
	Password string
}

// Join adds the user to the room as an ACTIVE MEMBER.
func (s *MemberService) Join(ctx context.Context, input *JoinInput) (*model.Member, error) {
	name := utils.SanitizeString(input.Name)

	v := utils.NewValidator()
	v.ValidateMemberName("name", name)
	if v.HasErrors() {
		return nil, apperrors.ErrValidation.WithDetails(v.Errors())
	}

	room, err := s.roomRepo.GetByID(ctx, input.RoomID)
	if err != nil {
		return nil, mapRoomError(err)
	}

	_, err = s.memberRepo.FindActive(ctx, input.RoomID, input.UserID)
	switch {
	case err == nil:
		return nil, apperrors.ErrAlreadyJoined
	case !errors.Is(err, repository.ErrMemberNotFound):
		return nil, apperrors.ErrInternal.Wrap(err)
	}

	latest, err := s.memberRepo.FindLatest(ctx, input.RoomID, input.UserID)
	switch {
	case err == nil && latest.Status() == model.MemberStatusBanned:
		s.logger.Warn("Banned user tried to join",
			zap.Int64("room_id", input.RoomID),
			zap.Int64("user_id", input.UserID),
		)
		return nil, apperrors.ErrBanned
	case err != nil && !errors.Is(err, repository.ErrMemberNotFound):
		return nil, apperrors.ErrInternal.Wrap(err)
	}

	if room.HasPassword() && !utils.CheckPassword(input.Password, room.PasswordHash.String) {
		return nil, apperrors.ErrWrongRoomPassword
	}

	member := model.NewMember(input.RoomID, input.UserID, name, model.MemberRoleMember)
	if err := s.memberRepo.Create(ctx, member); err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyRoomMember):
			return nil, apperrors.ErrAlreadyJoined
		case errors.Is(err, repository.ErrRoomNotFound):
			return nil, apperrors.ErrRoomNotFound
		}
		s.logger.Error("Failed to create member", zap.Error(err))
		return nil, apperrors.ErrInternal.Wrap(err)
	}

	metrics.MembershipTransitions.WithLabelValues("join").Inc()
	publish(ctx, s.publisher, s.logger, &model.RoomEvent{
		Type:       model.RoomEventMemberJoined,
		RoomID:     member.RoomID,
		Member:     member.Summary(),
		OccurredAt: member.CreatedAt,
	})
	return member, nil
}

// Leave moves the user's ACTIVE record to LEFT. The admin must delegate
// first unless they are the last member, in which case the room is deleted.
func (s *MemberService) Leave(ctx context.Context, roomID, userID int64) error {
	var (
		member    *model.Member
		remaining int
	)
	err := s.withAdminLock(ctx, roomID, func(ctx context.Context) error {
		var err error
		member, err = s.memberRepo.FindActive(ctx, roomID, userID)
		if err != nil {
			return err
		}
		remaining, err = s.memberRepo.Leave(ctx, member)
		return err
	})
	switch {
	case errors.Is(err, model.ErrAdminMustStay):
		return apperrors.ErrAdminCannotLeave
	case err != nil:
		return mapTransitionError(err, apperrors.ErrValidation)
	}

	metrics.MembershipTransitions.WithLabelValues("leave").Inc()
	event := &model.RoomEvent{
		Type:       model.RoomEventMemberLeft,
		RoomID:     roomID,
		Member:     member.Summary(),
		OccurredAt: time.Now().UTC(),
	}
	if remaining == 0 {
		event.Type = model.RoomEventRoomDeleted
		s.logger.Info("Last member left, room deleted", zap.Int64("room_id", roomID))
	}
	publish(ctx, s.publisher, s.logger, event)
	return nil
}

// DelegateAdmin hands the ADMIN role from adminUserID to the target member.
// Runs under the room's admin lock.
func (s *MemberService) DelegateAdmin(ctx context.Context, roomID, adminUserID, targetMemberID int64) error {
	var target *model.Member
	err := s.withAdminLock(ctx, roomID, func(ctx context.Context) error {
		current, err := s.memberRepo.FindActive(ctx, roomID, adminUserID)
		if err != nil {
			if errors.Is(err, repository.ErrMemberNotFound) {
				return apperrors.ErrNotMember
			}
			return apperrors.ErrInternal.Wrap(err)
		}

		return s.memberRepo.MutatePair(ctx, roomID, current.ID, targetMemberID, func(first, second *model.Member) error {
			target = second
			return model.DelegateAdmin(first, second)
		})
	})
	if err != nil {
		return mapTransitionError(err, apperrors.ErrSelfDelegation)
	}

	metrics.MembershipTransitions.WithLabelValues("delegate").Inc()
	publish(ctx, s.publisher, s.logger, &model.RoomEvent{
		Type:       model.RoomEventAdminChanged,
		RoomID:     roomID,
		Member:     target.Summary(),
		OccurredAt: time.Now().UTC(),
	})
	s.logger.Info("Admin delegated",
		zap.Int64("room_id", roomID),
		zap.Int64("from_user_id", adminUserID),
		zap.Int64("to_member_id", targetMemberID),
	)
	return nil
}

// Ban moves the target member to BANNED. Only the admin may ban and a
// banned user can never rejoin the room.
func (s *MemberService) Ban(ctx context.Context, roomID, adminUserID, targetMemberID int64) error {
	var target *model.Member
	err := s.withAdminLock(ctx, roomID, func(ctx context.Context) error {
		admin, err := s.memberRepo.FindActive(ctx, roomID, adminUserID)
		if err != nil {
			if errors.Is(err, repository.ErrMemberNotFound) {
				return apperrors.ErrNotMember
			}
			return apperrors.ErrInternal.Wrap(err)
		}

		return s.memberRepo.MutatePair(ctx, roomID, admin.ID, targetMemberID, func(first, second *model.Member) error {
			target = second
			return model.Ban(first, second, time.Now().UTC())
		})
	})
	if err != nil {
		return mapTransitionError(err, apperrors.ErrCannotBanSelf)
	}

	metrics.MembershipTransitions.WithLabelValues("ban").Inc()
	publish(ctx, s.publisher, s.logger, &model.RoomEvent{
		Type:       model.RoomEventMemberBanned,
		RoomID:     roomID,
		Member:     target.Summary(),
		OccurredAt: target.BannedAt.Time,
	})
	return nil
}

func (s *MemberService) withAdminLock(ctx context.Context, roomID int64, fn func(ctx context.Context) error) error {
	err := lock.Do(ctx, s.locker, cache.RoomAdminLockKey(roomID), fn)
	if errors.Is(err, lock.ErrTimeout) {
		s.logger.Warn("Room admin lock busy", zap.Int64("room_id", roomID))
		return apperrors.ErrLockTimeout
	}
	return err
}

// SetNotify toggles push notifications for the user's membership
func (s *MemberService) SetNotify(ctx context.Context, roomID, userID int64, enabled bool) error {
	if err := s.memberRepo.UpdateNotify(ctx, roomID, userID, enabled); err != nil {
		return mapMemberError(err)
	}
	return nil
}

// IsActiveMember reports whether the user holds an ACTIVE record in the room
func (s *MemberService) IsActiveMember(ctx context.Context, roomID, userID int64) (bool, error) {
	_, err := s.memberRepo.FindActive(ctx, roomID, userID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, repository.ErrMemberNotFound) {
		return false, nil
	}
	return false, apperrors.ErrInternal.Wrap(err)
}

func (s *MemberService) ReadMember(ctx context.Context, roomID, userID int64) (*model.Member, error) {
	member, err := s.memberRepo.FindActive(ctx, roomID, userID)
	if err != nil {
		return nil, mapMemberError(err)
	}
	return member, nil
}

func (s *MemberService) ReadAdmin(ctx context.Context, roomID int64) (*model.Member, error) {
	admin, err := s.memberRepo.FindAdmin(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return nil, apperrors.ErrAdminNotFound
		}
		return nil, apperrors.ErrInternal.Wrap(err)
	}
	return admin, nil
}

func (s *MemberService) CountActive(ctx context.Context, roomID int64) (int, error) {
	count, err := s.memberRepo.CountActive(ctx, roomID)
	if err != nil {
		return 0, apperrors.ErrInternal.Wrap(err)
	}
	return count, nil
}

func (s *MemberService) MembersByUserIDs(ctx context.Context, roomID int64, userIDs []int64) ([]*model.Member, error) {
	members, err := s.memberRepo.ListActiveByUserIDs(ctx, roomID, userIDs)
	if err != nil {
		return nil, apperrors.ErrInternal.Wrap(err)
	}
	return members, nil
}

func (s *MemberService) MemberSummariesExcluding(ctx context.Context, roomID int64, excluded []int64) ([]*model.MemberSummary, error) {
	summaries, err := s.memberRepo.ListActiveSummariesExcluding(ctx, roomID, excluded)
	if err != nil {
		return nil, apperrors.ErrInternal.Wrap(err)
	}
	return summaries, nil
}

// requireMember returns the user's ACTIVE record or ErrNotMember.
func requireMember(ctx context.Context, members MemberStore, roomID, userID int64) (*model.Member, error) {
	member, err := members.FindActive(ctx, roomID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return nil, apperrors.ErrNotMember
		}
		return nil, apperrors.ErrInternal.Wrap(err)
	}
	return member, nil
}

func requireAdmin(ctx context.Context, members MemberStore, roomID, userID int64) (*model.Member, error) {
	member, err := requireMember(ctx, members, roomID, userID)
	if err != nil {
		return nil, err
	}
	if !member.IsAdmin() {
		return nil, apperrors.ErrNotAdmin
	}
	return member, nil
}

func mapMemberError(err error) error {
	if errors.Is(err, repository.ErrMemberNotFound) {
		return apperrors.ErrMemberNotFound
	}
	return apperrors.ErrInternal.Wrap(err)
}

// mapTransitionError maps state machine and lock failures; self is the
// validation error used when both sides are the same member.
func mapTransitionError(err error, self *apperrors.AppError) error {
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, model.ErrSameMember):
		return self
	case errors.Is(err, model.ErrNotAdmin):
		return apperrors.ErrNotAdmin
	case errors.Is(err, model.ErrMemberInactive), errors.Is(err, repository.ErrMemberNotFound):
		return apperrors.ErrMemberNotFound
	}
	return apperrors.ErrInternal.Wrap(err)
}
