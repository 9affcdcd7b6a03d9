package ports

import (
	"context"

	"audience-client/internal/domain"
)

// SegmentAPI определяет операции сервиса над сегментами.
type SegmentAPI interface {
	// ListSegments возвращает одну страницу листинга. Пустой cursor означает первую страницу.
	ListSegments(ctx context.Context, cursor string) (domain.Page[domain.Segment], error)
	CreateSegment(ctx context.Context, req domain.NewSegment) (*domain.Segment, error)
	// AppendSegmentIDs добавляет одну порцию пользователей в сегмент.
	AppendSegmentIDs(ctx context.Context, segmentID string, userIDs []string) error
	GetSegment(ctx context.Context, id string) (*domain.Segment, error)
	DeleteSegment(ctx context.Context, id string) error
}

// AudienceAPI определяет операции сервиса над аудиториями.
type AudienceAPI interface {
	ListAudiences(ctx context.Context, cursor string) (domain.Page[domain.Audience], error)
	CreateAudience(ctx context.Context, name string, segmentIDs []string) (*domain.Audience, error)
	GetAudience(ctx context.Context, id string) (*domain.Audience, error)
	DeleteAudience(ctx context.Context, id string) error
	QueryAudience(ctx context.Context, id string, groupings domain.Groupings) (domain.QueryResult, error)
}

// UsageAPI возвращает статистику использования продукта.
type UsageAPI interface {
	Usage(ctx context.Context) (domain.Usage, error)
}

// API объединяет все операции сервиса.
type API interface {
	SegmentAPI
	AudienceAPI
	UsageAPI
}

// IdentifierSource определяет интерфейс загрузки идентификаторов пользователей.
type IdentifierSource interface {
	// LoadIdentifiers возвращает дедуплицированный список в стабильном порядке.
	LoadIdentifiers(ctx context.Context) ([]string, error)
}

// ResultWriter сохраняет результат запроса к аудитории.
type ResultWriter interface {
	// Write возвращает путь, по которому сохранен результат.
	Write(audienceName string, result domain.QueryResult) (string, error)
}

// SegmentManager определяет операции оркестрации сегментов.
type SegmentManager interface {
	List(ctx context.Context) ([]domain.Segment, error)
	FindByName(ctx context.Context, name string) (*domain.Segment, error)
	Get(ctx context.Context, id string) (*domain.Segment, error)
	CreateOrUpdate(ctx context.Context, name string, ids []string) (*domain.Segment, error)
	DeleteByID(ctx context.Context, id string) error
}

// AudienceManager определяет операции оркестрации аудиторий.
type AudienceManager interface {
	List(ctx context.Context) ([]domain.Audience, error)
	GetOrAbsent(ctx context.Context, name string) (*domain.Audience, error)
	ValidateSize(segments []domain.Segment) error
	Create(ctx context.Context, name string, segmentIDs []string) (*domain.Audience, error)
	DeleteByID(ctx context.Context, id string) error
	Query(ctx context.Context, id string, groupings domain.Groupings) (domain.QueryResult, error)
}

// AudienceLinker добавляет в аудиторию недостающие сегменты.
type AudienceLinker interface {
	EnsureLinked(ctx context.Context, audience *domain.Audience, segments []domain.Segment) (*domain.Audience, error)
}
