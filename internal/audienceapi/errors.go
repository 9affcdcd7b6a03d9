package audienceapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"audience-client/internal/domain"
)

// lockedMarker - признак ответа на добавление в сегмент, уже включенный в аудиторию.
const lockedMarker = "not modifiable"

// errorBody покрывает формы тела ошибки, которые возвращает сервис.
type errorBody struct {
	Errors  []errorItem     `json:"errors"`
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
}

type errorItem struct {
	Code    any    `json:"code"`
	Message string `json:"message"`
}

// decodeError разбирает ответ с ошибкой один раз, чтобы вызывающий код
// работал с причиной ошибки, а не с содержимым тела.
func decodeError(method, path string, status int, raw []byte) *domain.APIError {
	body := strings.TrimSpace(string(raw))
	apiErr := &domain.APIError{
		Method:  method,
		Path:    path,
		Status:  status,
		Reason:  domain.ReasonGeneric,
		Message: extractMessage(raw),
		Body:    body,
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}

	switch {
	case strings.Contains(strings.ToLower(apiErr.Message), lockedMarker),
		strings.Contains(strings.ToLower(body), lockedMarker):
		apiErr.Reason = domain.ReasonLocked
	case status == http.StatusNotFound:
		apiErr.Reason = domain.ReasonNotFound
	case status == http.StatusTooManyRequests:
		apiErr.Reason = domain.ReasonRateLimited
	}
	return apiErr
}

func extractMessage(raw []byte) string {
	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return strings.TrimSpace(string(raw))
	}

	var parts []string
	for _, item := range body.Errors {
		if item.Message != "" {
			parts = append(parts, item.Message)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, "; ")
	}

	if len(body.Error) > 0 {
		var s string
		if err := json.Unmarshal(body.Error, &s); err == nil && s != "" {
			return s
		}
		var nested struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(body.Error, &nested); err == nil && nested.Message != "" {
			return nested.Message
		}
	}
	return body.Message
}
