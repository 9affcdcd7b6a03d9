package exporter

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"audience-client/internal/domain"
	"audience-client/internal/ports"
)

// ConsolePrinter выводит списки и результаты в виде текстовых таблиц.
type ConsolePrinter struct {
	out io.Writer
}

var _ ports.ResultWriter = (*ConsolePrinter)(nil)

// NewConsolePrinter создает новый экземпляр ConsolePrinter.
func NewConsolePrinter(out io.Writer) *ConsolePrinter {
	return &ConsolePrinter{out: out}
}

// PrintSegments выводит таблицу сегментов.
func (p *ConsolePrinter) PrintSegments(segments []domain.Segment) {
	fmt.Fprintln(p.out, "--- Segments ---")
	if len(segments) == 0 {
		fmt.Fprintln(p.out, "No segments found.")
		return
	}
	rows := make([][]string, 0, len(segments))
	for _, s := range segments {
		rows = append(rows, []string{s.Name, s.ID, strconv.FormatInt(s.NumUserIDs, 10)})
	}
	p.table([]string{"Name", "ID", "Users"}, rows)
}

// PrintAudiences выводит таблицу аудиторий.
func (p *ConsolePrinter) PrintAudiences(audiences []domain.Audience) {
	fmt.Fprintln(p.out, "--- Audiences ---")
	if len(audiences) == 0 {
		fmt.Fprintln(p.out, "No audiences found.")
		return
	}
	rows := make([][]string, 0, len(audiences))
	for _, a := range audiences {
		rows = append(rows, []string{a.Name, a.ID, strings.Join(a.SegmentIDs, ",")})
	}
	p.table([]string{"Name", "ID", "Segments"}, rows)
}

// PrintUsage выводит статистику использования.
func (p *ConsolePrinter) PrintUsage(usage domain.Usage) {
	fmt.Fprintln(p.out, "--- Usage ---")
	keys := make([]string, 0, len(usage))
	for k := range usage {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, formatValue(usage[k])})
	}
	p.table([]string{"Metric", "Value"}, rows)
}

// Write печатает результат запроса. Файл не создается, поэтому путь пустой.
func (p *ConsolePrinter) Write(audienceName string, result domain.QueryResult) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Fprintf(p.out, "--- Audience %s ---\n%s\n", audienceName, data)
	return "", nil
}

func (p *ConsolePrinter) table(headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	p.row(headers, widths)
	sep := make([]string, len(widths))
	for i, w := range widths {
		sep[i] = strings.Repeat("-", w)
	}
	p.row(sep, widths)
	for _, row := range rows {
		p.row(row, widths)
	}
}

func (p *ConsolePrinter) row(cells []string, widths []int) {
	var sb strings.Builder
	for i, cell := range cells {
		sb.WriteString("| ")
		sb.WriteString(cell)
		sb.WriteString(padding(cell, widths[i]))
		sb.WriteString(" ")
	}
	sb.WriteString("|\n")
	io.WriteString(p.out, sb.String())
}

// padding вычисляет отступ с учетом ширины символов в терминале.
func padding(s string, colWidth int) string {
	if n := colWidth - runewidth.StringWidth(s); n > 0 {
		return strings.Repeat(" ", n)
	}
	return ""
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}
