package exporter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/xuri/excelize/v2"

	"audience-client/internal/domain"
	"audience-client/internal/ports"
)

const resultsSheet = "Результаты"

// XLSXWriter сохраняет результат запроса в таблицу Excel: одна строка на
// каждое скалярное значение, ключ - путь через точку.
type XLSXWriter struct {
	outbox    string
	serialize bool
}

var _ ports.ResultWriter = (*XLSXWriter)(nil)

// NewXLSXWriter создает новый экземпляр XLSXWriter.
func NewXLSXWriter(outbox string, serialize bool) *XLSXWriter {
	return &XLSXWriter{outbox: outbox, serialize: serialize}
}

// Write сохраняет результат и возвращает путь к файлу.
func (w *XLSXWriter) Write(audienceName string, result domain.QueryResult) (string, error) {
	rows, err := Flatten(result)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(w.outbox, 0o755); err != nil {
		return "", fmt.Errorf("failed to create outbox %s: %w", w.outbox, err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(resultsSheet)
	if err != nil {
		return "", fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return "", fmt.Errorf("failed to remove default sheet: %w", err)
	}

	headers := []any{"Аудитория", "Ключ", "Значение"}
	if err := f.SetSheetRow(resultsSheet, "A1", &headers); err != nil {
		return "", fmt.Errorf("failed to write header: %w", err)
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := []any{audienceName, row.Key, row.Value}
		if err := f.SetSheetRow(resultsSheet, cell, &values); err != nil {
			return "", fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	path := ResultPath(w.outbox, audienceName, ".xlsx", w.serialize)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return path, nil
}

// Row - одно скалярное значение результата.
type Row struct {
	Key   string
	Value string
}

// Flatten раскладывает результат в строки в порядке сортировки ключей.
// Элементы массивов адресуются индексом: groupings.0.count.
func Flatten(result domain.QueryResult) ([]Row, error) {
	keys := make([]string, 0, len(result))
	for k := range result {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var rows []Row
	for _, k := range keys {
		dec := json.NewDecoder(bytes.NewReader(result[k]))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("failed to decode result key %s: %w", k, err)
		}
		rows = flattenValue(rows, k, v)
	}
	return rows, nil
}

func flattenValue(rows []Row, prefix string, v any) []Row {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			rows = flattenValue(rows, prefix+"."+k, val[k])
		}
	case []any:
		for i, item := range val {
			rows = flattenValue(rows, prefix+"."+strconv.Itoa(i), item)
		}
	case nil:
		rows = append(rows, Row{Key: prefix, Value: ""})
	default:
		rows = append(rows, Row{Key: prefix, Value: fmt.Sprint(val)})
	}
	return rows
}
