// Package servicetest provides in-memory stand-ins for the Postgres backed
// stores so services can be tested without a database.
package servicetest

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/go-demo/chatcore/internal/model"
	"github.com/go-demo/chatcore/internal/repository"
)

// Store holds rooms, members and read positions. Its Rooms, Members and
// ReadPositions views satisfy the matching service store interfaces.
type Store struct {
	mu           sync.Mutex
	rooms        map[int64]*model.Room
	members      []*model.Member
	positions    map[[2]int64]int64
	nextMemberID int64

	// Err, when set, is returned by every call.
	Err error
}

func NewStore() *Store {
	return &Store{
		rooms:     make(map[int64]*model.Room),
		positions: make(map[[2]int64]int64),
	}
}

func (s *Store) Rooms() *RoomStore                 { return &RoomStore{s} }
func (s *Store) Members() *MemberStore             { return &MemberStore{s} }
func (s *Store) ReadPositions() *ReadPositionStore { return &ReadPositionStore{s} }

// SeedRoom creates a room with an ADMIN member for adminUserID.
func (s *Store) SeedRoom(roomID, adminUserID int64, title string) (*model.Room, *model.Member) {
	room := &model.Room{ID: roomID, Title: title}
	admin := model.NewMember(roomID, adminUserID, "admin", model.MemberRoleAdmin)
	if err := s.Rooms().CreateWithAdmin(context.Background(), room, admin); err != nil {
		panic(err)
	}
	return room, admin
}

// SeedMember adds an ACTIVE MEMBER.
func (s *Store) SeedMember(roomID, userID int64, name string) *model.Member {
	m := model.NewMember(roomID, userID, name, model.MemberRoleMember)
	if err := s.Members().Create(context.Background(), m); err != nil {
		panic(err)
	}
	return m
}

// Member returns a copy of the record with the given member id.
func (s *Store) Member(memberID int64) *model.Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.members {
		if m.ID == memberID {
			cp := *m
			return &cp
		}
	}
	return nil
}

// SetReadPosition stores a durable read position.
func (s *Store) SetReadPosition(roomID, userID, messageID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[[2]int64{roomID, userID}] = messageID
}

func (s *Store) insert(m *model.Member) error {
	for _, existing := range s.members {
		if existing.RoomID == m.RoomID && existing.UserID == m.UserID && existing.IsActive() {
			return repository.ErrAlreadyRoomMember
		}
	}
	s.nextMemberID++
	m.ID = s.nextMemberID
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	cp := *m
	s.members = append(s.members, &cp)
	return nil
}

func (s *Store) find(match func(m *model.Member) bool) (*model.Member, error) {
	for i := len(s.members) - 1; i >= 0; i-- {
		if match(s.members[i]) {
			cp := *s.members[i]
			return &cp, nil
		}
	}
	return nil, repository.ErrMemberNotFound
}

func (s *Store) activeIn(roomID int64) []*model.Member {
	var out []*model.Member
	for _, m := range s.members {
		if m.RoomID == roomID && m.IsActive() {
			out = append(out, m)
		}
	}
	return out
}

type RoomStore struct{ s *Store }

func (r *RoomStore) CreateWithAdmin(_ context.Context, room *model.Room, admin *model.Member) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	if _, ok := r.s.rooms[room.ID]; ok {
		return repository.ErrRoomAlreadyExists
	}

	now := time.Now().UTC()
	room.CreatedAt, room.UpdatedAt = now, now
	cp := *room
	r.s.rooms[room.ID] = &cp

	admin.RoomID = room.ID
	admin.Role = model.MemberRoleAdmin
	return r.s.insert(admin)
}

func (r *RoomStore) GetByID(_ context.Context, id int64) (*model.Room, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	room, ok := r.s.rooms[id]
	if !ok || room.IsDeleted() {
		return nil, repository.ErrRoomNotFound
	}
	cp := *room
	return &cp, nil
}

func (r *RoomStore) Update(_ context.Context, room *model.Room) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	existing, ok := r.s.rooms[room.ID]
	if !ok || existing.IsDeleted() {
		return repository.ErrRoomNotFound
	}
	room.UpdatedAt = time.Now().UTC()
	cp := *room
	r.s.rooms[room.ID] = &cp
	return nil
}

func (r *RoomStore) SoftDelete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	room, ok := r.s.rooms[id]
	if !ok || room.IsDeleted() {
		return repository.ErrRoomNotFound
	}
	now := time.Now().UTC()
	room.DeletedAt = sql.NullTime{Time: now, Valid: true}
	for _, m := range r.s.activeIn(id) {
		m.LeftAt = sql.NullTime{Time: now, Valid: true}
	}
	return nil
}

type MemberStore struct{ s *Store }

func (r *MemberStore) Create(_ context.Context, member *model.Member) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	if room, ok := r.s.rooms[member.RoomID]; !ok || room.IsDeleted() {
		return repository.ErrRoomNotFound
	}
	return r.s.insert(member)
}

func (r *MemberStore) FindActive(_ context.Context, roomID, userID int64) (*model.Member, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	return r.s.find(func(m *model.Member) bool {
		return m.RoomID == roomID && m.UserID == userID && m.IsActive()
	})
}

func (r *MemberStore) FindLatest(_ context.Context, roomID, userID int64) (*model.Member, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	return r.s.find(func(m *model.Member) bool {
		return m.RoomID == roomID && m.UserID == userID
	})
}

func (r *MemberStore) FindAdmin(_ context.Context, roomID int64) (*model.Member, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	return r.s.find(func(m *model.Member) bool {
		return m.RoomID == roomID && m.IsAdmin()
	})
}

func (r *MemberStore) CountActive(_ context.Context, roomID int64) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return 0, r.s.Err
	}
	return len(r.s.activeIn(roomID)), nil
}

func (r *MemberStore) ListActiveByUserIDs(_ context.Context, roomID int64, userIDs []int64) ([]*model.Member, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	want := toSet(userIDs)
	out := []*model.Member{}
	for _, m := range r.s.activeIn(roomID) {
		if _, ok := want[m.UserID]; ok {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MemberStore) ListActiveSummariesExcluding(_ context.Context, roomID int64, excluded []int64) ([]*model.MemberSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	skip := toSet(excluded)
	out := []*model.MemberSummary{}
	for _, m := range r.s.activeIn(roomID) {
		if _, ok := skip[m.UserID]; !ok {
			out = append(out, m.Summary())
		}
	}
	return out, nil
}

func (r *MemberStore) ListNotifiable(_ context.Context, roomID, excludeUserID int64) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	ids := []int64{}
	for _, m := range r.s.activeIn(roomID) {
		if m.UserID != excludeUserID && m.NotifyEnabled {
			ids = append(ids, m.UserID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *MemberStore) ListRoomsByUserID(_ context.Context, userID int64, limit, offset int) ([]*model.UserRoom, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	rooms := []*model.UserRoom{}
	for i := len(r.s.members) - 1; i >= 0; i-- {
		m := r.s.members[i]
		if m.UserID != userID || !m.IsActive() {
			continue
		}
		room, ok := r.s.rooms[m.RoomID]
		if !ok || room.IsDeleted() {
			continue
		}
		rooms = append(rooms, &model.UserRoom{
			Room:        *room,
			Role:        m.Role,
			MemberCount: len(r.s.activeIn(m.RoomID)),
		})
	}
	if offset >= len(rooms) {
		return []*model.UserRoom{}, nil
	}
	rooms = rooms[offset:]
	if limit < len(rooms) {
		rooms = rooms[:limit]
	}
	return rooms, nil
}

func (r *MemberStore) UpdateNotify(_ context.Context, roomID, userID int64, enabled bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	for _, m := range r.s.activeIn(roomID) {
		if m.UserID == userID {
			m.NotifyEnabled = enabled
			return nil
		}
	}
	return repository.ErrMemberNotFound
}

func (r *MemberStore) Leave(_ context.Context, member *model.Member) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return 0, r.s.Err
	}

	var stored *model.Member
	for _, m := range r.s.members {
		if m.ID == member.ID && m.IsActive() {
			stored = m
		}
	}
	if stored == nil {
		return 0, repository.ErrMemberNotFound
	}

	now := time.Now().UTC()
	if err := stored.Leave(now, len(r.s.activeIn(member.RoomID))); err != nil {
		return 0, err
	}
	*member = *stored

	remaining := len(r.s.activeIn(member.RoomID))
	if remaining == 0 {
		if room, ok := r.s.rooms[member.RoomID]; ok && !room.IsDeleted() {
			room.DeletedAt = sql.NullTime{Time: now, Valid: true}
		}
	}
	return remaining, nil
}

func (r *MemberStore) MutatePair(_ context.Context, roomID, firstID, secondID int64, fn func(first, second *model.Member) error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}

	byID := make(map[int64]*model.Member, 2)
	for _, m := range r.s.activeIn(roomID) {
		if m.ID == firstID || m.ID == secondID {
			cp := *m
			byID[m.ID] = &cp
		}
	}
	first, second := byID[firstID], byID[secondID]
	if first == nil || second == nil {
		return repository.ErrMemberNotFound
	}

	if err := fn(first, second); err != nil {
		return err
	}

	for _, m := range r.s.members {
		if updated, ok := byID[m.ID]; ok {
			m.Role, m.BannedAt, m.LeftAt = updated.Role, updated.BannedAt, updated.LeftAt
		}
	}
	return nil
}

type ReadPositionStore struct{ s *Store }

func (r *ReadPositionStore) Get(_ context.Context, roomID, userID int64) (int64, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return 0, false, r.s.Err
	}
	id, ok := r.s.positions[[2]int64{roomID, userID}]
	return id, ok, nil
}

func (r *ReadPositionStore) Upsert(_ context.Context, positions []*model.ReadPosition) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	for _, p := range positions {
		key := [2]int64{p.RoomID, p.UserID}
		if p.LastReadMessageID > r.s.positions[key] {
			r.s.positions[key] = p.LastReadMessageID
		}
	}
	return nil
}

// ErrUnavailable simulates an unreachable backend.
var ErrUnavailable = errors.New("servicetest: backend unavailable")

func toSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
