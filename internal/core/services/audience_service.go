package services

import (
	"context"
	"fmt"
	"log/slog"

	"audience-client/internal/domain"
	"audience-client/internal/ports"
)

// Границы суммарного числа пользователей в аудитории на момент создания.
const (
	MinUsersPerAudience int64 = 500
	MaxUsersPerAudience int64 = 30_000_000
)

// AudienceOption - функциональная опция для настройки AudienceService.
type AudienceOption func(*AudienceService)

// WithSizeBounds переопределяет границы размера аудитории.
func WithSizeBounds(minUsers, maxUsers int64) AudienceOption {
	return func(s *AudienceService) {
		if minUsers > 0 && maxUsers >= minUsers {
			s.minUsers = minUsers
			s.maxUsers = maxUsers
		}
	}
}

// WithAudienceLogger устанавливает логгер для сервиса.
func WithAudienceLogger(l *slog.Logger) AudienceOption {
	return func(s *AudienceService) {
		if l != nil {
			s.log = l
		}
	}
}

// AudienceService ищет, создает и удаляет аудитории по имени.
type AudienceService struct {
	api      ports.AudienceAPI
	lister   *Lister[domain.Audience]
	minUsers int64
	maxUsers int64
	log      *slog.Logger
}

var _ ports.AudienceManager = (*AudienceService)(nil)

// NewAudienceService создает AudienceService с границами размера по умолчанию.
func NewAudienceService(api ports.AudienceAPI, opts ...AudienceOption) *AudienceService {
	s := &AudienceService{
		api:      api,
		minUsers: MinUsersPerAudience,
		maxUsers: MaxUsersPerAudience,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lister = NewLister[domain.Audience]("audiences", api.ListAudiences, s.log)
	return s
}

// List возвращает все аудитории аккаунта.
func (s *AudienceService) List(ctx context.Context) ([]domain.Audience, error) {
	return s.lister.List(ctx)
}

// GetOrAbsent возвращает аудиторию с указанным именем или nil.
func (s *AudienceService) GetOrAbsent(ctx context.Context, name string) (*domain.Audience, error) {
	aud, err := s.lister.FindByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("look up audience %q: %w", name, err)
	}
	return aud, nil
}

// Get загружает аудиторию по ID.
func (s *AudienceService) Get(ctx context.Context, id string) (*domain.Audience, error) {
	aud, err := s.api.GetAudience(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get audience %s: %w", id, err)
	}
	return aud, nil
}

// ValidateSize проверяет суммарное число пользователей в сегментах.
// Граничные значения допустимы.
func (s *AudienceService) ValidateSize(segments []domain.Segment) error {
	var total int64
	for _, seg := range segments {
		total += seg.NumUserIDs
	}
	switch {
	case total < s.minUsers:
		return &SizeError{Violation: TooFew, Total: total, Min: s.minUsers, Max: s.maxUsers}
	case total > s.maxUsers:
		return &SizeError{Violation: TooMany, Total: total, Min: s.minUsers, Max: s.maxUsers}
	}
	s.log.Info("segments hold enough user ids for an audience", "total", total, "segments", len(segments))
	return nil
}

// Create создает аудиторию. Ошибки сервиса возвращаются без повторов.
func (s *AudienceService) Create(ctx context.Context, name string, segmentIDs []string) (*domain.Audience, error) {
	aud, err := s.api.CreateAudience(ctx, name, segmentIDs)
	if err != nil {
		s.log.ErrorContext(ctx, "failed to create audience", "audience", name, "segment_ids", segmentIDs, "error", err)
		return nil, &CreationError{Resource: "audience", Name: name, Err: err}
	}
	s.log.InfoContext(ctx, "audience created", "audience", name, "audience_id", aud.ID, "segments", len(aud.SegmentIDs))
	return aud, nil
}

// DeleteByName удаляет аудиторию по имени. Отсутствующая аудитория дает NotFound без ошибки.
func (s *AudienceService) DeleteByName(ctx context.Context, name string) (DeleteOutcome, error) {
	aud, err := s.GetOrAbsent(ctx, name)
	if err != nil {
		return 0, err
	}
	if aud == nil {
		s.log.InfoContext(ctx, "audience not found, nothing to delete", "audience", name)
		return NotFound, nil
	}
	if err := s.DeleteByID(ctx, aud.ID); err != nil {
		return 0, err
	}
	return Deleted, nil
}

// DeleteByID удаляет аудиторию по ID.
func (s *AudienceService) DeleteByID(ctx context.Context, id string) error {
	if err := s.api.DeleteAudience(ctx, id); err != nil {
		return fmt.Errorf("delete audience %s: %w", id, err)
	}
	s.log.InfoContext(ctx, "audience deleted", "audience_id", id)
	return nil
}

// Query выполняет запрос к аудитории с указанными группировками.
func (s *AudienceService) Query(ctx context.Context, id string, groupings domain.Groupings) (domain.QueryResult, error) {
	res, err := s.api.QueryAudience(ctx, id, groupings)
	if err != nil {
		return nil, fmt.Errorf("query audience %s: %w", id, err)
	}
	return res, nil
}
