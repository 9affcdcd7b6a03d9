package services

import (
	"errors"
	"fmt"
	"strings"

	"audience-client/internal/domain"
)

// ErrNoSegments - попытка создать аудиторию без единого сегмента.
var ErrNoSegments = errors.New("no segments to build audience with")

// CreationError - сервис отклонил создание сегмента или аудитории.
type CreationError struct {
	Resource string
	Name     string
	Err      error
}

func (e *CreationError) Error() string {
	return fmt.Sprintf("create %s %q: %v", e.Resource, e.Name, e.Err)
}

func (e *CreationError) Unwrap() error { return e.Err }

// AppendError - ошибка добавления порции пользователей в сегмент.
// Порции до Chunk уже добавлены и не откатываются.
type AppendError struct {
	SegmentID   string
	SegmentName string
	// Chunk - номер неудачной порции, начиная с 1.
	Chunk int
	Total int
	Err   error
}

func (e *AppendError) Error() string {
	return fmt.Sprintf("append chunk %d/%d to segment %q (%s): %v", e.Chunk, e.Total, e.SegmentName, e.SegmentID, e.Err)
}

func (e *AppendError) Unwrap() error { return e.Err }

// Locked сообщает, что сегмент уже включен в аудиторию.
func (e *AppendError) Locked() bool {
	return errors.Is(e.Err, domain.ErrSegmentLocked)
}

// SizeViolation - вид нарушения границ размера аудитории.
type SizeViolation string

const (
	TooFew  SizeViolation = "too_few"
	TooMany SizeViolation = "too_many"
)

// SizeError - суммарное число пользователей в сегментах вне допустимых границ.
type SizeError struct {
	Violation SizeViolation
	Total     int64
	Min       int64
	Max       int64
}

func (e *SizeError) Error() string {
	if e.Violation == TooFew {
		return fmt.Sprintf("not enough user ids to create an audience: minimum is %d, segments hold %d", e.Min, e.Total)
	}
	return fmt.Sprintf("too many user ids to create an audience: maximum is %d, segments hold %d", e.Max, e.Total)
}

// ReconciliationHazard - аудитория удалена, но не создана заново.
// Состояние потеряно, требуется ручное восстановление из SegmentIDs.
type ReconciliationHazard struct {
	AudienceName  string
	OldAudienceID string
	SegmentIDs    []string
	Phase         ReconcilePhase
	Err           error
}

func (e *ReconciliationHazard) Error() string {
	return fmt.Sprintf("audience %q (%s) was deleted but not recreated (phase %s); recreate it manually from segments [%s]: %v",
		e.AudienceName, e.OldAudienceID, e.Phase, strings.Join(e.SegmentIDs, ", "), e.Err)
}

func (e *ReconciliationHazard) Unwrap() error { return e.Err }

// IsReconciliationHazard сообщает, содержит ли цепочка ошибок ReconciliationHazard.
func IsReconciliationHazard(err error) bool {
	var hazard *ReconciliationHazard
	return errors.As(err, &hazard)
}

// DeleteOutcome - результат удаления по имени. Отсутствие ресурса ошибкой не считается.
type DeleteOutcome int

const (
	Deleted DeleteOutcome = iota + 1
	NotFound
)

func (o DeleteOutcome) String() string {
	switch o {
	case Deleted:
		return "deleted"
	case NotFound:
		return "not_found"
	default:
		return "unknown"
	}
}
