package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"audience-client/internal/core/services"
	"audience-client/internal/domain"
	"audience-client/internal/ports"
)

var (
	// ErrNothingToDelete - в настройках нет ни имени аудитории, ни имен сегментов.
	ErrNothingToDelete = errors.New("no audience or segment name configured, nothing to delete")
	// ErrAborted - пользователь отказался от удаления.
	ErrAborted = errors.New("deletion aborted by user")
	// ErrConfirmationRequired - подтверждение нужно, но запросить его не у кого.
	ErrConfirmationRequired = errors.New("deleting everything requires confirmation or --yes")
)

// SegmentRemover - операции над сегментами, нужные администрированию.
type SegmentRemover interface {
	ports.SegmentManager
	DeleteByName(ctx context.Context, name string) (services.DeleteOutcome, error)
}

// AudienceRemover - операции над аудиториями, нужные администрированию.
type AudienceRemover interface {
	ports.AudienceManager
	DeleteByName(ctx context.Context, name string) (services.DeleteOutcome, error)
}

// ListingPrinter выводит листинги и статистику.
type ListingPrinter interface {
	PrintSegments(segments []domain.Segment)
	PrintAudiences(audiences []domain.Audience)
	PrintUsage(usage domain.Usage)
}

// Confirmer запрашивает у пользователя подтверждение.
type Confirmer interface {
	Confirm(prompt string) (bool, error)
}

// DeleteSummary - сколько ресурсов удалено.
type DeleteSummary struct {
	Audiences int
	Segments  int
}

// AdminOption - функциональная опция для настройки AdminUseCase.
type AdminOption func(*AdminUseCase)

// WithConfirmer задает источник подтверждений для полного удаления.
func WithConfirmer(c Confirmer) AdminOption {
	return func(uc *AdminUseCase) {
		uc.confirm = c
	}
}

// WithAdminLogger устанавливает логгер.
func WithAdminLogger(l *slog.Logger) AdminOption {
	return func(uc *AdminUseCase) {
		if l != nil {
			uc.log = l
		}
	}
}

// AdminUseCase выполняет листинг, статистику и удаление ресурсов.
type AdminUseCase struct {
	segments  SegmentRemover
	audiences AudienceRemover
	usage     ports.UsageAPI
	printer   ListingPrinter
	confirm   Confirmer
	log       *slog.Logger
}

// NewAdminUseCase создает новый экземпляр AdminUseCase.
func NewAdminUseCase(segments SegmentRemover, audiences AudienceRemover, usage ports.UsageAPI, printer ListingPrinter, opts ...AdminOption) *AdminUseCase {
	uc := &AdminUseCase{
		segments:  segments,
		audiences: audiences,
		usage:     usage,
		printer:   printer,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// List выводит все сегменты и аудитории аккаунта.
func (uc *AdminUseCase) List(ctx context.Context) error {
	segs, err := uc.segments.List(ctx)
	if err != nil {
		return fmt.Errorf("list segments: %w", err)
	}
	auds, err := uc.audiences.List(ctx)
	if err != nil {
		return fmt.Errorf("list audiences: %w", err)
	}
	uc.printer.PrintSegments(segs)
	uc.printer.PrintAudiences(auds)
	return nil
}

// Usage выводит статистику использования продукта.
func (uc *AdminUseCase) Usage(ctx context.Context) error {
	usage, err := uc.usage.Usage(ctx)
	if err != nil {
		return fmt.Errorf("get usage: %w", err)
	}
	uc.printer.PrintUsage(usage)
	return nil
}

// DeleteConfigured удаляет аудиторию и сегменты из настроек.
// Аудитория удаляется первой, чтобы она не ссылалась на удаленные сегменты.
// С withSegments удаляются и все сегменты, на которые ссылалась аудитория.
func (uc *AdminUseCase) DeleteConfigured(ctx context.Context, audienceName string, segmentNames []string, withSegments bool) (DeleteSummary, error) {
	var summary DeleteSummary
	if audienceName == "" && len(segmentNames) == 0 {
		return summary, ErrNothingToDelete
	}

	if audienceName != "" {
		if withSegments {
			s, err := uc.DeleteAudienceAndSegments(ctx, audienceName)
			summary.Audiences += s.Audiences
			summary.Segments += s.Segments
			if err != nil {
				return summary, err
			}
		} else {
			out, err := uc.audiences.DeleteByName(ctx, audienceName)
			if err != nil {
				return summary, fmt.Errorf("delete audience %q: %w", audienceName, err)
			}
			if out == services.Deleted {
				summary.Audiences++
			}
		}
	}

	for _, name := range segmentNames {
		out, err := uc.segments.DeleteByName(ctx, name)
		if err != nil {
			return summary, fmt.Errorf("delete segment %q: %w", name, err)
		}
		if out == services.Deleted {
			summary.Segments++
		}
	}
	return summary, nil
}

// DeleteAudienceAndSegments удаляет аудиторию и все ее сегменты.
// Уже отсутствующие сегменты пропускаются.
func (uc *AdminUseCase) DeleteAudienceAndSegments(ctx context.Context, name string) (DeleteSummary, error) {
	var summary DeleteSummary
	aud, err := uc.audiences.GetOrAbsent(ctx, name)
	if err != nil {
		return summary, fmt.Errorf("look up audience %q: %w", name, err)
	}
	if aud == nil {
		uc.log.InfoContext(ctx, "attempting delete, but audience does not exist", "audience", name)
		return summary, nil
	}

	return uc.deleteAudience(ctx, *aud)
}

// DeleteEverything удаляет все аудитории и сегменты аккаунта.
// Без assumeYes запрашивает подтверждение.
func (uc *AdminUseCase) DeleteEverything(ctx context.Context, assumeYes bool) (DeleteSummary, error) {
	var summary DeleteSummary
	if !assumeYes {
		if uc.confirm == nil {
			return summary, ErrConfirmationRequired
		}
		ok, err := uc.confirm.Confirm("Delete ALL audiences and segments?")
		if err != nil {
			return summary, fmt.Errorf("%w: %w", ErrConfirmationRequired, err)
		}
		if !ok {
			return summary, ErrAborted
		}
	}

	auds, err := uc.audiences.List(ctx)
	if err != nil {
		return summary, fmt.Errorf("list audiences: %w", err)
	}
	uc.log.InfoContext(ctx, "deleting all audiences and their segments", "audiences", len(auds))
	for _, aud := range auds {
		s, err := uc.deleteAudience(ctx, aud)
		summary.Audiences += s.Audiences
		summary.Segments += s.Segments
		if err != nil {
			return summary, err
		}
	}

	segs, err := uc.segments.List(ctx)
	if err != nil {
		return summary, fmt.Errorf("list segments: %w", err)
	}
	for _, seg := range segs {
		if err := uc.segments.DeleteByID(ctx, seg.ID); err != nil {
			return summary, fmt.Errorf("delete segment %q: %w", seg.Name, err)
		}
		summary.Segments++
	}
	return summary, nil
}

// deleteAudience удаляет аудиторию, затем ее сегменты.
func (uc *AdminUseCase) deleteAudience(ctx context.Context, aud domain.Audience) (DeleteSummary, error) {
	var summary DeleteSummary
	if err := uc.audiences.DeleteByID(ctx, aud.ID); err != nil {
		return summary, fmt.Errorf("delete audience %q: %w", aud.Name, err)
	}
	summary.Audiences++
	uc.log.InfoContext(ctx, "deleting audience segments", "audience", aud.Name, "segment_ids", aud.SegmentIDs)

	for _, id := range aud.SegmentIDs {
		err := uc.segments.DeleteByID(ctx, id)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			uc.log.WarnContext(ctx, "segment already deleted", "segment_id", id)
		case err != nil:
			return summary, fmt.Errorf("delete segment %s of audience %q: %w", id, aud.Name, err)
		default:
			summary.Segments++
		}
	}
	return summary, nil
}
