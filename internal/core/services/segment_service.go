package services

import (
	"context"
	"fmt"
	"log/slog"

	"audience-client/internal/domain"
	"audience-client/internal/metrics"
	"audience-client/internal/ports"
)

// SegmentOption - функциональная опция для настройки SegmentService.
type SegmentOption func(*SegmentService)

// WithChunkSize задает размер порции при добавлении пользователей.
func WithChunkSize(n int) SegmentOption {
	return func(s *SegmentService) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

// WithBuildMode задает параметры, с которыми создаются новые сегменты.
func WithBuildMode(mode domain.BuildMode, accountID string) SegmentOption {
	return func(s *SegmentService) {
		s.buildMode = mode
		s.accountID = accountID
	}
}

// WithSegmentLogger устанавливает логгер для сервиса.
func WithSegmentLogger(l *slog.Logger) SegmentOption {
	return func(s *SegmentService) {
		if l != nil {
			s.log = l
		}
	}
}

// WithSegmentMetrics включает учет добавленных порций.
func WithSegmentMetrics(m *metrics.Metrics) SegmentOption {
	return func(s *SegmentService) {
		s.metrics = m
	}
}

// SegmentService создает, дополняет и удаляет сегменты по имени.
type SegmentService struct {
	api       ports.SegmentAPI
	lister    *Lister[domain.Segment]
	chunkSize int
	buildMode domain.BuildMode
	accountID string
	metrics   *metrics.Metrics
	log       *slog.Logger
}

var _ ports.SegmentManager = (*SegmentService)(nil)

// NewSegmentService создает SegmentService. По умолчанию порция равна лимиту сервиса.
func NewSegmentService(api ports.SegmentAPI, opts ...SegmentOption) *SegmentService {
	s := &SegmentService{
		api:       api,
		chunkSize: MaxUsersPerSegmentUpload,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lister = NewLister[domain.Segment]("segments", api.ListSegments, s.log)
	return s
}

// List возвращает все сегменты аккаунта.
func (s *SegmentService) List(ctx context.Context) ([]domain.Segment, error) {
	return s.lister.List(ctx)
}

// FindByName возвращает сегмент с указанным именем или nil.
func (s *SegmentService) FindByName(ctx context.Context, name string) (*domain.Segment, error) {
	return s.lister.FindByName(ctx, name)
}

// Get загружает сегмент по ID.
func (s *SegmentService) Get(ctx context.Context, id string) (*domain.Segment, error) {
	seg, err := s.api.GetSegment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get segment %s: %w", id, err)
	}
	return seg, nil
}

// CreateOrUpdate создает сегмент, если его нет, и последовательно добавляет в него ids порциями.
// Первая неудачная порция останавливает загрузку, уже добавленные порции остаются в сегменте.
// Возвращает состояние сегмента, заново прочитанное с сервиса.
func (s *SegmentService) CreateOrUpdate(ctx context.Context, name string, ids []string) (*domain.Segment, error) {
	seg, err := s.lister.FindByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("look up segment %q: %w", name, err)
	}

	if seg == nil {
		s.log.InfoContext(ctx, "segment does not exist, creating", "segment", name, "build_mode", s.buildMode)
		seg, err = s.api.CreateSegment(ctx, domain.NewSegment{Name: name, BuildMode: s.buildMode, AccountID: s.accountID})
		if err != nil {
			s.log.ErrorContext(ctx, "failed to create segment", "segment", name, "error", err)
			return nil, &CreationError{Resource: "segment", Name: name, Err: err}
		}
		s.log.InfoContext(ctx, "segment created", "segment", name, "segment_id", seg.ID)
	}

	chunks := Split(ids, s.chunkSize)
	if len(ids) > s.chunkSize {
		s.log.InfoContext(ctx, "dividing user ids into chunks", "count", len(ids), "chunk_size", s.chunkSize, "chunks", len(chunks))
	}

	for i, chunk := range chunks {
		if err := s.api.AppendSegmentIDs(ctx, seg.ID, chunk); err != nil {
			appendErr := &AppendError{SegmentID: seg.ID, SegmentName: name, Chunk: i + 1, Total: len(chunks), Err: err}
			if appendErr.Locked() {
				s.log.ErrorContext(ctx, "segment is locked since it is already included in an audience",
					"segment", name, "segment_id", seg.ID, "chunk", i+1, "chunks", len(chunks))
			} else {
				s.log.ErrorContext(ctx, "failed to add user ids to segment",
					"segment", name, "segment_id", seg.ID, "chunk", i+1, "chunks", len(chunks), "error", err)
			}
			return nil, appendErr
		}
		s.metrics.IncChunkAppended()
		s.log.InfoContext(ctx, "added user ids to segment", "segment", name, "count", len(chunk), "chunk", i+1, "chunks", len(chunks))
	}

	fresh, err := s.api.GetSegment(ctx, seg.ID)
	if err != nil {
		return nil, fmt.Errorf("re-fetch segment %q: %w", name, err)
	}
	return fresh, nil
}

// DeleteByName удаляет сегмент по имени. Отсутствующий сегмент дает NotFound без ошибки.
func (s *SegmentService) DeleteByName(ctx context.Context, name string) (DeleteOutcome, error) {
	seg, err := s.lister.FindByName(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("look up segment %q: %w", name, err)
	}
	if seg == nil {
		s.log.InfoContext(ctx, "segment not found, nothing to delete", "segment", name)
		return NotFound, nil
	}
	if err := s.api.DeleteSegment(ctx, seg.ID); err != nil {
		return 0, fmt.Errorf("delete segment %q (%s): %w", name, seg.ID, err)
	}
	s.log.InfoContext(ctx, "segment deleted", "segment", name, "segment_id", seg.ID)
	return Deleted, nil
}

// DeleteByID удаляет сегмент по ID.
func (s *SegmentService) DeleteByID(ctx context.Context, id string) error {
	if err := s.api.DeleteSegment(ctx, id); err != nil {
		return fmt.Errorf("delete segment %s: %w", id, err)
	}
	s.log.InfoContext(ctx, "segment deleted", "segment_id", id)
	return nil
}
