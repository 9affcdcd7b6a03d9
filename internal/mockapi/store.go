package mockapi

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"audience-client/internal/domain"
)

var (
	ErrNotFound      = errors.New("resource does not exist")
	ErrDuplicateName = errors.New("name already exists")
	ErrLocked        = errors.New("segment is not modifiable because it is part of an audience")
	ErrInvalid       = errors.New("invalid request")
)

// AppendHook вызывается перед каждым добавлением в сегмент. call начинается с 1.
// Ненулевая ошибка отклоняет добавление.
type AppendHook func(segmentID string, call int) error

type segmentRecord struct {
	seg     domain.Segment
	members map[string]struct{}
	locked  bool
	calls   int
}

// Usage - счетчики использования, которые отдает эндпоинт usage.
type Usage struct {
	SegmentsCreated  int `json:"segments_created"`
	AudiencesCreated int `json:"audiences_created"`
	UserIDsUploaded  int `json:"user_ids_uploaded"`
	Queries          int `json:"queries"`
}

// Store хранит сегменты и аудитории в памяти.
type Store struct {
	mu            sync.RWMutex
	segments      map[string]*segmentRecord
	segmentOrder  []string
	audiences     map[string]*domain.Audience
	audienceOrder []string
	minUsers      int64
	maxUsers      int64
	usage         Usage
	appendHook    AppendHook
}

// NewStore создает пустое хранилище с границами размера аудитории.
func NewStore(minUsers, maxUsers int64) *Store {
	return &Store{
		segments:  make(map[string]*segmentRecord),
		audiences: make(map[string]*domain.Audience),
		minUsers:  minUsers,
		maxUsers:  maxUsers,
	}
}

// SetAppendHook устанавливает хук добавления.
func (s *Store) SetAppendHook(h AppendHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendHook = h
}

// CreateSegment создает сегмент с уникальным именем.
func (s *Store) CreateSegment(name string) (domain.Segment, error) {
	if name == "" {
		return domain.Segment{}, fmt.Errorf("%w: segment name is required", ErrInvalid)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.segments {
		if rec.seg.Name == name {
			return domain.Segment{}, fmt.Errorf("%w: segment %q", ErrDuplicateName, name)
		}
	}
	rec := &segmentRecord{
		seg:     domain.Segment{ID: uuid.NewString(), Name: name},
		members: make(map[string]struct{}),
	}
	s.segments[rec.seg.ID] = rec
	s.segmentOrder = append(s.segmentOrder, rec.seg.ID)
	s.usage.SegmentsCreated++
	return rec.seg, nil
}

// AppendIDs добавляет пользователей в сегмент. Повторные ID не увеличивают счетчик.
func (s *Store) AppendIDs(segmentID string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.segments[segmentID]
	if !ok {
		return fmt.Errorf("%w: segment %s", ErrNotFound, segmentID)
	}
	rec.calls++
	if s.appendHook != nil {
		if err := s.appendHook(segmentID, rec.calls); err != nil {
			return err
		}
	}
	if rec.locked {
		return ErrLocked
	}
	for _, id := range ids {
		rec.members[id] = struct{}{}
	}
	rec.seg.NumUserIDs = int64(len(rec.members))
	s.usage.UserIDsUploaded += len(ids)
	return nil
}

// LockSegment помечает сегмент как включенный в аудиторию.
func (s *Store) LockSegment(segmentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.segments[segmentID]
	if !ok {
		return fmt.Errorf("%w: segment %s", ErrNotFound, segmentID)
	}
	rec.locked = true
	return nil
}

func (s *Store) GetSegment(id string) (domain.Segment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.segments[id]
	if !ok {
		return domain.Segment{}, fmt.Errorf("%w: segment %s", ErrNotFound, id)
	}
	return rec.seg, nil
}

func (s *Store) DeleteSegment(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.segments[id]; !ok {
		return fmt.Errorf("%w: segment %s", ErrNotFound, id)
	}
	delete(s.segments, id)
	s.segmentOrder = removeID(s.segmentOrder, id)
	return nil
}

// ListSegments возвращает страницу сегментов в порядке создания и смещение следующей страницы (-1, если страниц больше нет).
func (s *Store) ListSegments(offset, limit int) ([]domain.Segment, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids, next := pageOf(s.segmentOrder, offset, limit)
	out := make([]domain.Segment, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.segments[id].seg)
	}
	return out, next
}

// CreateAudience проверяет сегменты и границы размера, создает аудиторию и блокирует ее сегменты.
func (s *Store) CreateAudience(name string, segmentIDs []string) (domain.Audience, error) {
	if name == "" {
		return domain.Audience{}, fmt.Errorf("%w: audience name is required", ErrInvalid)
	}
	if len(segmentIDs) == 0 {
		return domain.Audience{}, fmt.Errorf("%w: at least one segment is required", ErrInvalid)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, aud := range s.audiences {
		if aud.Name == name {
			return domain.Audience{}, fmt.Errorf("%w: audience %q", ErrDuplicateName, name)
		}
	}

	seen := make(map[string]struct{}, len(segmentIDs))
	var total int64
	for _, id := range segmentIDs {
		if _, dup := seen[id]; dup {
			return domain.Audience{}, fmt.Errorf("%w: duplicate segment %s", ErrInvalid, id)
		}
		seen[id] = struct{}{}
		rec, ok := s.segments[id]
		if !ok {
			return domain.Audience{}, fmt.Errorf("%w: segment %s", ErrNotFound, id)
		}
		total += rec.seg.NumUserIDs
	}
	if total < s.minUsers || total > s.maxUsers {
		return domain.Audience{}, fmt.Errorf("%w: audience must hold between %d and %d user ids, segments hold %d",
			ErrInvalid, s.minUsers, s.maxUsers, total)
	}

	aud := &domain.Audience{
		ID:         uuid.NewString(),
		Name:       name,
		SegmentIDs: append([]string(nil), segmentIDs...),
		NumUserIDs: total,
	}
	for _, id := range segmentIDs {
		s.segments[id].locked = true
	}
	s.audiences[aud.ID] = aud
	s.audienceOrder = append(s.audienceOrder, aud.ID)
	s.usage.AudiencesCreated++
	return *aud, nil
}

func (s *Store) GetAudience(id string) (domain.Audience, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	aud, ok := s.audiences[id]
	if !ok {
		return domain.Audience{}, fmt.Errorf("%w: audience %s", ErrNotFound, id)
	}
	return *aud, nil
}

func (s *Store) DeleteAudience(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.audiences[id]; !ok {
		return fmt.Errorf("%w: audience %s", ErrNotFound, id)
	}
	delete(s.audiences, id)
	s.audienceOrder = removeID(s.audienceOrder, id)
	return nil
}

// ListAudiences возвращает страницу аудиторий в порядке создания.
func (s *Store) ListAudiences(offset, limit int) ([]domain.Audience, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids, next := pageOf(s.audienceOrder, offset, limit)
	out := make([]domain.Audience, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.audiences[id])
	}
	return out, next
}

// GroupingResult - результат одной группировки в ответе query.
type GroupingResult struct {
	GroupBy    []string `json:"group_by"`
	NumUserIDs int64    `json:"num_user_ids"`
	Segments   int      `json:"num_segments"`
}

// Query формирует детерминированный ответ по группировкам аудитории.
func (s *Store) Query(id string, groupings domain.Groupings) (map[string]GroupingResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	aud, ok := s.audiences[id]
	if !ok {
		return nil, fmt.Errorf("%w: audience %s", ErrNotFound, id)
	}
	if len(groupings) == 0 {
		return nil, fmt.Errorf("%w: groupings are required", ErrInvalid)
	}
	names := make([]string, 0, len(groupings))
	for name := range groupings {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]GroupingResult, len(groupings))
	for _, name := range names {
		out[name] = GroupingResult{
			GroupBy:    groupings[name].GroupBy,
			NumUserIDs: aud.NumUserIDs,
			Segments:   len(aud.SegmentIDs),
		}
	}
	s.usage.Queries++
	return out, nil
}

// Usage возвращает копию счетчиков.
func (s *Store) Usage() Usage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usage
}

func pageOf(ids []string, offset, limit int) ([]string, int) {
	if offset < 0 || offset >= len(ids) {
		return nil, -1
	}
	end := len(ids)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	next := -1
	if end < len(ids) {
		next = end
	}
	return append([]string(nil), ids[offset:end]...), next
}

func removeID(ids []string, id string) []string {
	for i, existing := range ids {
		if existing == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
