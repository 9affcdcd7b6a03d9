package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"audience-client/internal/domain"
	"audience-client/internal/ports"
)

// ReconcilePhase - фаза пересоздания аудитории.
type ReconcilePhase int

const (
	PhaseNotStarted ReconcilePhase = iota
	PhaseDeleted
	PhaseRecreated
)

func (p ReconcilePhase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not-started"
	case PhaseDeleted:
		return "deleted"
	case PhaseRecreated:
		return "recreated"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// relinkSaga выполняет "обновление" аудитории: удаление старой и создание новой под тем же именем.
// Между шагами аудитории с этим именем не существует.
type relinkSaga struct {
	api        ports.AudienceAPI
	old        domain.Audience
	segmentIDs []string
	phase      ReconcilePhase
	log        *slog.Logger
}

func (s *relinkSaga) run(ctx context.Context) (*domain.Audience, error) {
	if err := s.api.DeleteAudience(ctx, s.old.ID); err != nil {
		return nil, fmt.Errorf("delete audience %q (%s) before relinking: %w", s.old.Name, s.old.ID, err)
	}
	s.phase = PhaseDeleted
	s.log.WarnContext(ctx, "audience deleted, recreating with updated segments",
		"audience", s.old.Name, "old_audience_id", s.old.ID, "segment_ids", s.segmentIDs)

	created, err := s.api.CreateAudience(ctx, s.old.Name, s.segmentIDs)
	if err != nil {
		hazard := &ReconciliationHazard{
			AudienceName:  s.old.Name,
			OldAudienceID: s.old.ID,
			SegmentIDs:    s.segmentIDs,
			Phase:         s.phase,
			Err:           err,
		}
		s.log.ErrorContext(ctx, "audience lost: deleted but not recreated, manual recreation required",
			"audience", s.old.Name, "old_audience_id", s.old.ID, "segment_ids", s.segmentIDs, "error", err)
		return nil, hazard
	}
	s.phase = PhaseRecreated

	fresh, err := s.api.GetAudience(ctx, created.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch recreated audience %q (%s): %w", s.old.Name, created.ID, err)
	}
	return fresh, nil
}

// ReconcilerOption - функциональная опция для настройки Reconciler.
type ReconcilerOption func(*Reconciler)

// WithReconcilerLogger устанавливает логгер.
func WithReconcilerLogger(l *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		if l != nil {
			r.log = l
		}
	}
}

// Reconciler гарантирует, что аудитория ссылается на заданные сегменты.
// Вызовы EnsureLinked выполняются строго последовательно.
type Reconciler struct {
	api ports.AudienceAPI
	mu  sync.Mutex
	log *slog.Logger
}

var _ ports.AudienceLinker = (*Reconciler)(nil)

// NewReconciler создает Reconciler.
func NewReconciler(api ports.AudienceAPI, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{api: api, log: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// EnsureLinked добавляет в аудиторию недостающие сегменты.
//
// Если все сегменты уже входят в аудиторию, она возвращается без обращений к сервису.
// Иначе аудитория удаляется и создается заново с идентификаторами old ++ missing,
// поэтому ID результата отличается от исходного. Ошибка создания после удаления
// возвращается как *ReconciliationHazard.
func (r *Reconciler) EnsureLinked(ctx context.Context, audience *domain.Audience, segments []domain.Segment) (*domain.Audience, error) {
	if audience == nil {
		return nil, fmt.Errorf("ensure linked: nil audience")
	}

	missing := missingSegmentIDs(*audience, segments)
	if len(missing) == 0 {
		r.log.DebugContext(ctx, "audience already references all segments", "audience", audience.Name)
		return audience, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(audience.SegmentIDs)+len(missing))
	ids = append(ids, audience.SegmentIDs...)
	ids = append(ids, missing...)

	r.log.InfoContext(ctx, "adding segments to audience", "audience", audience.Name, "missing", missing)
	saga := &relinkSaga{api: r.api, old: *audience, segmentIDs: ids, log: r.log}
	return saga.run(ctx)
}

// missingSegmentIDs возвращает ID сегментов, которых нет в аудитории, в исходном порядке и без повторов.
func missingSegmentIDs(audience domain.Audience, segments []domain.Segment) []string {
	seen := make(map[string]struct{}, len(audience.SegmentIDs)+len(segments))
	for _, id := range audience.SegmentIDs {
		seen[id] = struct{}{}
	}
	var missing []string
	for _, seg := range segments {
		if _, ok := seen[seg.ID]; ok {
			continue
		}
		seen[seg.ID] = struct{}{}
		missing = append(missing, seg.ID)
	}
	return missing
}
