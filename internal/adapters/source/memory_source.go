package source

import (
	"context"

	"audience-client/internal/ports"
)

// MemorySource отдает идентификаторы, переданные напрямую (например, флагом командной строки).
type MemorySource struct {
	ids []string
}

var _ ports.IdentifierSource = (*MemorySource)(nil)

// NewMemorySource создает новый экземпляр MemorySource.
func NewMemorySource(ids []string) *MemorySource {
	return &MemorySource{ids: ids}
}

// LoadIdentifiers возвращает копию данных без повторов.
func (s *MemorySource) LoadIdentifiers(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Dedupe(s.ids), nil
}
