package service

import (
	"context"
	"errors"

	"github.com/go-demo/chatcore/internal/model"
	apperrors "github.com/go-demo/chatcore/internal/pkg/errors"
	"github.com/go-demo/chatcore/internal/repository"
	"go.uber.org/zap"
)

const defaultRecentMessageWindow = 15

// RoomDetailService composes the viewer-facing snapshot of a room.
type RoomDetailService struct {
	memberRepo  MemberStore
	messageRepo MessageStore
	window      int
	logger      *zap.Logger
}

func NewRoomDetailService(memberRepo MemberStore, messageRepo MessageStore, window int, logger *zap.Logger) *RoomDetailService {
	if window <= 0 {
		window = defaultRecentMessageWindow
	}
	return &RoomDetailService{
		memberRepo:  memberRepo,
		messageRepo: messageRepo,
		window:      window,
		logger:      logger,
	}
}

// Execute builds the room detail for viewerID.
//
// Recent participants are the active senders of the last window messages,
// excluding the viewer. When neither the viewer nor any of them is the admin,
// the admin is appended so the viewer always sees who runs the room. Every
// other active member is listed as a summary.
func (s *RoomDetailService) Execute(ctx context.Context, viewerID, roomID int64) (*model.RoomDetail, error) {
	viewer, err := s.memberRepo.FindActive(ctx, roomID, viewerID)
	if err != nil {
		return nil, mapMemberError(err)
	}

	messages, err := s.messageRepo.RecentMessages(ctx, roomID, s.window)
	if err != nil {
		s.logger.Error("Failed to read recent messages", zap.Int64("room_id", roomID), zap.Error(err))
		return nil, apperrors.ErrInternal.Wrap(err)
	}

	senderIDs := recentSenders(messages, viewerID)

	recent, err := s.memberRepo.ListActiveByUserIDs(ctx, roomID, senderIDs)
	if err != nil {
		return nil, apperrors.ErrInternal.Wrap(err)
	}

	if !viewer.IsAdmin() && !containsAdmin(recent) {
		admin, err := s.memberRepo.FindAdmin(ctx, roomID)
		if err != nil {
			if errors.Is(err, repository.ErrMemberNotFound) {
				return nil, apperrors.ErrAdminNotFound
			}
			return nil, apperrors.ErrInternal.Wrap(err)
		}
		recent = append(recent, admin)
		senderIDs = append(senderIDs, admin.UserID)
	}

	excluded := append(senderIDs, viewerID)
	others, err := s.memberRepo.ListActiveSummariesExcluding(ctx, roomID, excluded)
	if err != nil {
		return nil, apperrors.ErrInternal.Wrap(err)
	}

	return &model.RoomDetail{
		Viewer:             viewer,
		RecentParticipants: recent,
		OtherParticipants:  others,
		RecentMessages:     messages,
	}, nil
}

// recentSenders returns distinct sender ids in recency order, without the viewer.
func recentSenders(messages []*model.Message, viewerID int64) []int64 {
	seen := make(map[int64]struct{}, len(messages))
	ids := make([]int64, 0, len(messages))
	for _, m := range messages {
		if m.SenderID == viewerID {
			continue
		}
		if _, ok := seen[m.SenderID]; ok {
			continue
		}
		seen[m.SenderID] = struct{}{}
		ids = append(ids, m.SenderID)
	}
	return ids
}

func containsAdmin(members []*model.Member) bool {
	for _, m := range members {
		if m.Role == model.MemberRoleAdmin {
			return true
		}
	}
	return false
}
