package domain

import (
	"encoding/json"
	"strings"
)

// Named реализуется ресурсами, которые ищутся по имени при обходе листинга.
type Named interface {
	ResourceName() string
}

// Segment представляет именованный набор пользователей на стороне сервиса.
// После включения в Audience сервис запрещает добавлять в него новых пользователей.
type Segment struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	NumUserIDs int64  `json:"num_user_ids"`
}

// ResourceName реализует Named.
func (s Segment) ResourceName() string { return s.Name }

// Audience представляет композицию сегментов. Операции обновления у сервиса нет,
// поэтому любое изменение SegmentIDs выполняется через удаление и повторное создание.
type Audience struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	SegmentIDs []string `json:"segment_ids"`
	NumUserIDs int64    `json:"num_user_ids,omitempty"`
}

// ResourceName реализует Named.
func (a Audience) ResourceName() string { return a.Name }

// HasSegment сообщает, ссылается ли аудитория на сегмент с указанным ID.
func (a Audience) HasSegment(id string) bool {
	for _, existing := range a.SegmentIDs {
		if existing == id {
			return true
		}
	}
	return false
}

// AudienceMetadata добавляется в результат запроса при включенной настройке add_audience_metadata.
type AudienceMetadata struct {
	Audience
	SegmentNames []string `json:"segment_names"`
}

// Page - одна страница курсорного листинга.
type Page[T any] struct {
	Items []T
	Next  string
}

// Grouping - спецификация агрегации, передается в запрос без изменений.
type Grouping struct {
	GroupBy []string `json:"group_by" yaml:"group_by"`
}

// Groupings - именованные группировки из конфигурации.
type Groupings map[string]Grouping

// QueryResult - ответ эндпоинта query. Структура определяется сервисом,
// поэтому хранится как набор сырых JSON-значений верхнего уровня.
type QueryResult map[string]json.RawMessage

// Usage - ответ эндпоинта usage.
type Usage map[string]any

// NewSegment описывает запрос на создание сегмента.
type NewSegment struct {
	Name      string
	BuildMode BuildMode
	AccountID string
}

// MarshalJSON формирует тело запроса с параметрами режима построения.
func (n NewSegment) MarshalJSON() ([]byte, error) {
	body := map[string]any{"name": n.Name}
	if key, params := n.BuildMode.SeedParams(n.AccountID); key != "" {
		body[key] = params
	}
	return json.Marshal(body)
}

// BuildMode определяет, каким способом сервис заполняет новый сегмент.
type BuildMode string

const (
	BuildModeNone      BuildMode = ""
	BuildModeFollowed  BuildMode = "followed"
	BuildModeEngaged   BuildMode = "engaged"
	BuildModeImpressed BuildMode = "impressed"
	BuildModeTailored  BuildMode = "tailored"
)

// ParseBuildMode нормализует значение из конфигурации.
func ParseBuildMode(s string) (BuildMode, bool) {
	switch m := BuildMode(strings.ToLower(strings.TrimSpace(s))); m {
	case BuildModeNone, BuildModeFollowed, BuildModeEngaged, BuildModeImpressed, BuildModeTailored:
		return m, true
	default:
		return BuildModeNone, false
	}
}

// SeedParams возвращает ключ и значение, которые добавляются в тело запроса создания сегмента.
// Для пустого режима или пустого accountID ключ пустой.
func (m BuildMode) SeedParams(accountID string) (string, map[string][]string) {
	if m == BuildModeNone || accountID == "" {
		return "", nil
	}
	if m == BuildModeTailored {
		return string(m), map[string][]string{"tailored_audience_ids": {accountID}}
	}
	return string(m), map[string][]string{"user_ids": {accountID}}
}
