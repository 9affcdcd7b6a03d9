package services

import (
	"context"
	"fmt"
	"log/slog"

	"audience-client/internal/domain"
)

// PageFetcher загружает одну страницу листинга по курсору.
type PageFetcher[T any] func(ctx context.Context, cursor string) (domain.Page[T], error)

// Lister обходит курсорный листинг сервиса.
//
// Страницы читаются последовательно без снимка состояния: если коллекция меняется
// во время обхода, результат может содержать дубликаты или пропуски.
type Lister[T domain.Named] struct {
	kind  string
	fetch PageFetcher[T]
	log   *slog.Logger
}

// NewLister создает Lister для ресурса kind ("segments", "audiences").
func NewLister[T domain.Named](kind string, fetch PageFetcher[T], log *slog.Logger) *Lister[T] {
	if log == nil {
		log = slog.Default()
	}
	return &Lister[T]{kind: kind, fetch: fetch, log: log}
}

// List возвращает все элементы коллекции в порядке страниц.
// Ошибка любой страницы прерывает обход, частичный результат не возвращается.
func (l *Lister[T]) List(ctx context.Context) ([]T, error) {
	var (
		items  []T
		cursor string
		pages  int
	)
	for {
		page, err := l.fetch(ctx, cursor)
		if err != nil {
			return nil, fmt.Errorf("list %s (page %d): %w", l.kind, pages+1, err)
		}
		pages++
		items = append(items, page.Items...)
		if page.Next == "" {
			break
		}
		cursor = page.Next
	}
	l.log.DebugContext(ctx, "listing complete", "kind", l.kind, "pages", pages, "count", len(items))
	return items, nil
}

// FindByName выполняет полный обход и линейный поиск первого элемента с указанным именем.
// Сложность O(n) от числа ресурсов на каждый вызов. Возвращает nil, если элемент не найден.
func (l *Lister[T]) FindByName(ctx context.Context, name string) (*T, error) {
	items, err := l.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ResourceName() == name {
			found := items[i]
			return &found, nil
		}
	}
	return nil, nil
}
