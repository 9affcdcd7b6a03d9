// Package log содержит обработчик slog, скрывающий ключи доступа к API.
package log

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

const mask = "***masked***"

// SecretMaskerHandler - обертка для slog.Handler, которая маскирует ключи OAuth в логах
type SecretMaskerHandler struct {
	handler slog.Handler
	secrets []string
}

// NewSecretMaskerHandler создает новый обработчик. secrets - значения,
// которые никогда не должны попадать в лог (ключи из конфигурации).
func NewSecretMaskerHandler(handler slog.Handler, secrets ...string) *SecretMaskerHandler {
	var nonEmpty []string
	for _, s := range secrets {
		if s != "" {
			nonEmpty = append(nonEmpty, s)
		}
	}
	return &SecretMaskerHandler{
		handler: handler,
		secrets: nonEmpty,
	}
}

// параметры OAuth в заголовке Authorization (oauth_token="...")
// и в строке запроса (oauth_token=...)
var (
	oauthHeaderParam = regexp.MustCompile(`(oauth_[a-z_]+)="[^"]*"`)
	oauthQueryParam  = regexp.MustCompile(`(oauth_[a-z_]+)=([^"&\s,]+)`)
)

// maskSecrets заменяет найденные ключи на маску
func (h *SecretMaskerHandler) maskSecrets(text string) string {
	for _, s := range h.secrets {
		text = strings.ReplaceAll(text, s, mask)
	}
	text = oauthHeaderParam.ReplaceAllString(text, `$1="`+mask+`"`)
	return oauthQueryParam.ReplaceAllString(text, `$1=`+mask)
}

// Enabled реализует интерфейс slog.Handler
func (h *SecretMaskerHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle реализует интерфейс slog.Handler
func (h *SecretMaskerHandler) Handle(ctx context.Context, record slog.Record) error {
	// Clone обнуляет атрибуты копии, поэтому их нужно добавить заново.
	r := record.Clone()
	r.Message = h.maskSecrets(r.Message)

	record.Attrs(func(a slog.Attr) bool {
		r.AddAttrs(slog.Attr{
			Key:   a.Key,
			Value: h.maskValue(a.Value),
		})
		return true
	})

	return h.handler.Handle(ctx, r)
}

// WithAttrs реализует интерфейс slog.Handler
func (h *SecretMaskerHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, attr := range attrs {
		masked[i] = slog.Attr{
			Key:   attr.Key,
			Value: h.maskValue(attr.Value),
		}
	}
	return &SecretMaskerHandler{
		handler: h.handler.WithAttrs(masked),
		secrets: h.secrets,
	}
}

// WithGroup реализует интерфейс slog.Handler
func (h *SecretMaskerHandler) WithGroup(name string) slog.Handler {
	return &SecretMaskerHandler{
		handler: h.handler.WithGroup(name),
		secrets: h.secrets,
	}
}

// maskValue рекурсивно маскирует значения атрибутов
func (h *SecretMaskerHandler) maskValue(value slog.Value) slog.Value {
	switch value.Kind() {
	case slog.KindString:
		return slog.StringValue(h.maskSecrets(value.String()))
	case slog.KindAny:
		// ошибки транспорта содержат URL запроса
		if err, ok := value.Any().(error); ok {
			return slog.StringValue(h.maskSecrets(err.Error()))
		}
		return value
	case slog.KindGroup:
		group := value.Group()
		masked := make([]slog.Attr, len(group))
		for i, attr := range group {
			masked[i] = slog.Attr{
				Key:   attr.Key,
				Value: h.maskValue(attr.Value),
			}
		}
		return slog.GroupValue(masked...)
	default:
		return value
	}
}

// NewMaskedLogger создает новый экземпляр slog.Logger с маскировкой ключей
func NewMaskedLogger(handler slog.Handler, secrets ...string) *slog.Logger {
	return slog.New(NewSecretMaskerHandler(handler, secrets...))
}

// ParseLevel переводит уровень из конфигурации в slog.Level. Неизвестные значения дают info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
