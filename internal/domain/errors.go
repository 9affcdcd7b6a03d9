package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound - ресурс отсутствует на стороне сервиса.
	ErrNotFound = errors.New("resource not found")
	// ErrSegmentLocked - сегмент уже включен в аудиторию и не принимает новых пользователей.
	ErrSegmentLocked = errors.New("segment is locked")
	// ErrRateLimited - сервис отклонил запрос из-за превышения лимита.
	ErrRateLimited = errors.New("rate limited")
)

// ErrorReason классифицирует ошибку сервиса. Определяется один раз при разборе ответа.
type ErrorReason string

const (
	ReasonGeneric     ErrorReason = "generic"
	ReasonLocked      ErrorReason = "locked"
	ReasonNotFound    ErrorReason = "not_found"
	ReasonRateLimited ErrorReason = "rate_limited"
)

// APIError - ответ сервиса со статусом выше 201.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Reason  ErrorReason
	Message string
	Body    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: status %d (%s): %s", e.Method, e.Path, e.Status, e.Reason, e.Message)
}

// Is связывает причину ошибки с сентинелами пакета.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrSegmentLocked:
		return e.Reason == ReasonLocked
	case ErrNotFound:
		return e.Reason == ReasonNotFound
	case ErrRateLimited:
		return e.Reason == ReasonRateLimited
	}
	return false
}

// AsAPIError извлекает *APIError из цепочки ошибок.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
