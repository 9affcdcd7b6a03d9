// Package source содержит источники идентификаторов пользователей для сборки сегмента.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"

	"audience-client/internal/adapters/parser"
	"audience-client/internal/metrics"
	"audience-client/internal/ports"
)

// ProcessedDir - подпапка входящей папки для обработанных файлов.
const ProcessedDir = "processed"

var ingestPatterns = []string{"*.json", "*.csv"}

// InboxOption - функциональная опция для настройки InboxSource.
type InboxOption func(*InboxSource)

// WithLogger устанавливает логгер.
func WithLogger(l *slog.Logger) InboxOption {
	return func(s *InboxSource) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics включает учет загруженных идентификаторов.
func WithMetrics(m *metrics.Metrics) InboxOption {
	return func(s *InboxSource) {
		s.metrics = m
	}
}

// InboxSource читает идентификаторы из файлов входящей папки.
// Разобранные файлы переносятся в подпапку processed.
type InboxSource struct {
	dir     string
	parser  *parser.IDParser
	metrics *metrics.Metrics
	log     *slog.Logger
}

var _ ports.IdentifierSource = (*InboxSource)(nil)

// NewInboxSource создает новый экземпляр InboxSource.
func NewInboxSource(dir string, opts ...InboxOption) *InboxSource {
	s := &InboxSource{
		dir:    dir,
		parser: parser.NewIDParser(),
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Pending сообщает, есть ли во входящей папке файлы для обработки.
func (s *InboxSource) Pending() (bool, error) {
	files, err := s.glob(append([]string{"*.gz"}, ingestPatterns...))
	if err != nil {
		return false, err
	}
	return len(files) > 0, nil
}

// LoadIdentifiers распаковывает архивы, разбирает JSON и CSV и возвращает
// уникальные идентификаторы в порядке первого появления.
func (s *InboxSource) LoadIdentifiers(ctx context.Context) ([]string, error) {
	if err := os.MkdirAll(filepath.Join(s.dir, ProcessedDir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to prepare inbox %s: %w", s.dir, err)
	}

	archives, err := s.glob([]string{"*.gz"})
	if err != nil {
		return nil, err
	}
	for _, archive := range archives {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := decompress(archive); err != nil {
			return nil, err
		}
		s.log.DebugContext(ctx, "archive decompressed", "file", archive)
	}

	files, err := s.glob(ingestPatterns)
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "inbox scanned", "dir", s.dir, "files", len(files))

	var all []string
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ids, err := s.parseFile(file)
		if err != nil {
			// Файл остается во входящей папке, чтобы его можно было исправить и обработать повторно
			s.log.WarnContext(ctx, "skipping inbox file", "file", file, "error", err)
			continue
		}
		all = append(all, ids...)

		if err := os.Rename(file, filepath.Join(s.dir, ProcessedDir, filepath.Base(file))); err != nil {
			return nil, fmt.Errorf("failed to move %s to processed: %w", file, err)
		}
	}

	unique := Dedupe(all)
	s.metrics.AddIngested(len(unique))
	s.log.InfoContext(ctx, "identifiers loaded", "parsed", len(all), "unique", len(unique))
	return unique, nil
}

func (s *InboxSource) parseFile(file string) ([]string, error) {
	if strings.EqualFold(filepath.Ext(file), ".csv") {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", file, err)
		}
		defer f.Close()
		return s.parser.ParseCSV(f)
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file, err)
	}
	ids, format, err := s.parser.ParseJSON(data)
	if err != nil {
		return nil, err
	}
	s.log.Debug("inbox file parsed", "file", file, "format", format.String(), "ids", len(ids))
	return ids, nil
}

func (s *InboxSource) glob(patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(s.dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("failed to scan inbox %s: %w", s.dir, err)
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

// decompress распаковывает name.json.gz в name.json рядом с архивом и удаляет архив.
func decompress(archive string) error {
	in, err := os.Open(archive)
	if err != nil {
		return fmt.Errorf("failed to open archive %s: %w", archive, err)
	}
	defer in.Close()

	zr, err := gzip.NewReader(in)
	if err != nil {
		return fmt.Errorf("failed to read archive %s: %w", archive, err)
	}
	defer zr.Close()

	target := strings.TrimSuffix(archive, filepath.Ext(archive))
	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}
	if _, err := io.Copy(out, zr); err != nil {
		out.Close()
		return errors.Join(fmt.Errorf("failed to decompress %s: %w", archive, err), os.Remove(target))
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", target, err)
	}

	in.Close()
	if err := os.Remove(archive); err != nil {
		return fmt.Errorf("failed to remove archive %s: %w", archive, err)
	}
	return nil
}

// Dedupe удаляет повторы, сохраняя порядок первого появления.
func Dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
