package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemorySource(t *testing.T) {
	t.Run("LoadIdentifiers возвращает данные без повторов", func(t *testing.T) {
		source := NewMemorySource([]string{"3", "1", "3", "2", "1"})

		ids, err := source.LoadIdentifiers(context.Background())

		assert.NoError(t, err)
		assert.Equal(t, []string{"3", "1", "2"}, ids)
	})

	t.Run("LoadIdentifiers возвращает копию данных", func(t *testing.T) {
		original := []string{"1", "2"}
		source := NewMemorySource(original)

		ids, err := source.LoadIdentifiers(context.Background())
		assert.NoError(t, err)

		ids[0] = "X"

		assert.Equal(t, []string{"1", "2"}, original)
	})

	t.Run("Пустой источник", func(t *testing.T) {
		ids, err := NewMemorySource(nil).LoadIdentifiers(context.Background())

		assert.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("Отмененный контекст", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := NewMemorySource([]string{"1"}).LoadIdentifiers(ctx)

		assert.ErrorIs(t, err, context.Canceled)
	})
}
