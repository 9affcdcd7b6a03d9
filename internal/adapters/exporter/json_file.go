// Package exporter сохраняет и выводит результаты запросов к аудиториям.
package exporter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"audience-client/internal/domain"
	"audience-client/internal/ports"
)

// ResultPath возвращает путь файла результатов <outbox>/<audience>_results<ext>.
// В режиме serialize существующие файлы не перезаписываются: выбирается
// первый свободный суффикс _results_N, начиная с 2.
func ResultPath(outbox, audienceName, ext string, serialize bool) string {
	path := filepath.Join(outbox, audienceName+"_results"+ext)
	if !serialize {
		return path
	}
	for n := 2; fileExists(path); n++ {
		path = filepath.Join(outbox, audienceName+"_results_"+strconv.Itoa(n)+ext)
	}
	return path
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// JSONFileWriter записывает результат запроса в JSON-файл в папке outbox.
type JSONFileWriter struct {
	outbox    string
	serialize bool
}

var _ ports.ResultWriter = (*JSONFileWriter)(nil)

// NewJSONFileWriter создает новый экземпляр JSONFileWriter.
func NewJSONFileWriter(outbox string, serialize bool) *JSONFileWriter {
	return &JSONFileWriter{outbox: outbox, serialize: serialize}
}

// Write сохраняет результат и возвращает путь к файлу.
func (w *JSONFileWriter) Write(audienceName string, result domain.QueryResult) (string, error) {
	if err := os.MkdirAll(w.outbox, 0o755); err != nil {
		return "", fmt.Errorf("failed to create outbox %s: %w", w.outbox, err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode result: %w", err)
	}

	path := ResultPath(w.outbox, audienceName, ".json", w.serialize)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("failed to write result %s: %w", path, err)
	}
	return path, nil
}
