// Package parser извлекает идентификаторы пользователей из выгрузок твитов.
package parser

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNoUserIDColumn возвращается для CSV без колонки user_id.
var ErrNoUserIDColumn = errors.New("csv header has no user_id column")

// Format - распознанный формат JSON-файла.
type Format int

const (
	FormatUnknown Format = iota
	// FormatResults - ответ поиска: {"results":[...]} или {"next":...,"results":[...]}.
	FormatResults
	// FormatReplay - построчный поток активностей с завершающей строкой info.
	FormatReplay
	// FormatIDs - готовый список {"ids":[...]}.
	FormatIDs
	// FormatStream - построчный поток активностей без служебных строк.
	FormatStream
)

func (f Format) String() string {
	switch f {
	case FormatResults:
		return "results"
	case FormatReplay:
		return "replay"
	case FormatIDs:
		return "ids"
	case FormatStream:
		return "stream"
	default:
		return "unknown"
	}
}

const replayCompletedMarker = `"info":{"message":"Replay Request Completed"`

// DetectFormat определяет формат по началу содержимого.
func DetectFormat(data []byte) Format {
	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.HasPrefix(trimmed, []byte(`{"results":[`)), bytes.HasPrefix(trimmed, []byte(`{"next":`)):
		return FormatResults
	case bytes.Contains(trimmed, []byte(replayCompletedMarker)):
		return FormatReplay
	case bytes.HasPrefix(trimmed, []byte(`{"ids":[`)):
		return FormatIDs
	case bytes.HasPrefix(trimmed, []byte(`{`)):
		return FormatStream
	default:
		return FormatUnknown
	}
}

// IDParser разбирает содержимое файлов входящей папки.
type IDParser struct{}

// NewIDParser создает новый экземпляр IDParser.
func NewIDParser() *IDParser {
	return &IDParser{}
}

// ParseJSON возвращает идентификаторы пользователей в порядке появления (с повторами).
func (p *IDParser) ParseJSON(data []byte) ([]string, Format, error) {
	format := DetectFormat(data)
	switch format {
	case FormatResults:
		var envelope struct {
			Results []json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal(data, &envelope); err != nil {
			return nil, format, fmt.Errorf("failed to unmarshal results: %w", err)
		}
		ids, err := idsFromActivities(envelope.Results)
		return ids, format, err

	case FormatReplay:
		lines, err := splitLines(data)
		if err != nil {
			return nil, format, err
		}
		if len(lines) > 0 {
			lines = lines[:len(lines)-1]
		}
		var activities []json.RawMessage
		for _, line := range lines {
			if bytes.Contains(line, []byte(`"id":"`)) {
				activities = append(activities, line)
			}
		}
		ids, err := idsFromActivities(activities)
		return ids, format, err

	case FormatIDs:
		var list struct {
			IDs []json.RawMessage `json:"ids"`
		}
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, format, fmt.Errorf("failed to unmarshal ids: %w", err)
		}
		ids := make([]string, 0, len(list.IDs))
		for _, raw := range list.IDs {
			if id := scalarID(raw); id != "" {
				ids = append(ids, id)
			}
		}
		return ids, format, nil

	case FormatStream:
		lines, err := splitLines(data)
		if err != nil {
			return nil, format, err
		}
		ids, err := idsFromActivities(lines)
		return ids, format, err

	default:
		return nil, format, fmt.Errorf("unrecognized json content")
	}
}

// ParseCSV читает колонку user_id. Пустые значения пропускаются.
func (p *IDParser) ParseCSV(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrNoUserIDColumn
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	col := -1
	for i, name := range header {
		if strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) == "user_id" {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, ErrNoUserIDColumn
	}

	var ids []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv record: %w", err)
		}
		if col >= len(record) {
			continue
		}
		if id := strings.TrimSpace(record[col]); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type activity struct {
	Actor *struct {
		ID string `json:"id"`
	} `json:"actor"`
	User *struct {
		ID    json.RawMessage `json:"id"`
		IDStr string          `json:"id_str"`
	} `json:"user"`
}

// idsFromActivities извлекает автора каждой активности. Формат Activity Streams
// хранит его в actor.id вида "id:twitter.com:123", исходный формат - в user.id.
func idsFromActivities(raws []json.RawMessage) ([]string, error) {
	ids := make([]string, 0, len(raws))
	for i, raw := range raws {
		var a activity
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("failed to unmarshal activity %d: %w", i, err)
		}
		switch {
		case a.Actor != nil && a.Actor.ID != "":
			parts := strings.Split(a.Actor.ID, ":")
			ids = append(ids, parts[len(parts)-1])
		case a.User != nil && a.User.IDStr != "":
			ids = append(ids, a.User.IDStr)
		case a.User != nil:
			if id := scalarID(a.User.ID); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

// scalarID приводит строковый или числовой JSON-идентификатор к строке без потери точности.
func scalarID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return ""
	}
	switch id := v.(type) {
	case string:
		return id
	case json.Number:
		return id.String()
	default:
		return ""
	}
}

func splitLines(data []byte) ([]json.RawMessage, error) {
	var lines []json.RawMessage
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		lines = append(lines, append(json.RawMessage(nil), line...))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to split lines: %w", err)
	}
	return lines, nil
}
