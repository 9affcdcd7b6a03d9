package exporter

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"audience-client/internal/domain"
)

func sampleResult() domain.QueryResult {
	return domain.QueryResult{
		"gender": json.RawMessage(`{"group_by":["user.gender"],"buckets":[{"value":"f","count":10},{"value":"m","count":7}]}`),
		"audience": json.RawMessage(`{"name":"aud","segment_names":["s1"],"deleted":null}`),
	}
}

func TestResultPath(t *testing.T) {
	dir := t.TempDir()

	assert.Equal(t, filepath.Join(dir, "aud_results.json"), ResultPath(dir, "aud", ".json", false))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "aud_results.json"), []byte("{}"), 0o644))
	assert.Equal(t, filepath.Join(dir, "aud_results.json"), ResultPath(dir, "aud", ".json", false))
	assert.Equal(t, filepath.Join(dir, "aud_results_2.json"), ResultPath(dir, "aud", ".json", true))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "aud_results_2.json"), []byte("{}"), 0o644))
	assert.Equal(t, filepath.Join(dir, "aud_results_3.json"), ResultPath(dir, "aud", ".json", true))
}

func TestJSONFileWriter(t *testing.T) {
	t.Run("Перезапись без serialize", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "output")
		w := NewJSONFileWriter(dir, false)

		first, err := w.Write("aud", sampleResult())
		require.NoError(t, err)
		second, err := w.Write("aud", sampleResult())
		require.NoError(t, err)
		assert.Equal(t, first, second)

		data, err := os.ReadFile(first)
		require.NoError(t, err)
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Contains(t, decoded, "gender")
		assert.Contains(t, decoded, "audience")
	})

	t.Run("Нумерация с serialize", func(t *testing.T) {
		dir := t.TempDir()
		w := NewJSONFileWriter(dir, true)

		var paths []string
		for i := 0; i < 3; i++ {
			p, err := w.Write("aud", sampleResult())
			require.NoError(t, err)
			paths = append(paths, filepath.Base(p))
		}
		assert.Equal(t, []string{"aud_results.json", "aud_results_2.json", "aud_results_3.json"}, paths)
	})
}

func TestFlatten(t *testing.T) {
	rows, err := Flatten(sampleResult())
	require.NoError(t, err)

	got := make(map[string]string, len(rows))
	var keys []string
	for _, r := range rows {
		got[r.Key] = r.Value
		keys = append(keys, r.Key)
	}

	assert.Equal(t, "aud", got["audience.name"])
	assert.Equal(t, "", got["audience.deleted"])
	assert.Equal(t, "s1", got["audience.segment_names.0"])
	assert.Equal(t, "10", got["gender.buckets.0.count"])
	assert.Equal(t, "m", got["gender.buckets.1.value"])
	assert.Equal(t, "user.gender", got["gender.group_by.0"])
	assert.True(t, strings.HasPrefix(keys[0], "audience."), "ключи должны быть отсортированы")

	_, err = Flatten(domain.QueryResult{"bad": json.RawMessage(`{`)})
	assert.Error(t, err)
}

func TestXLSXWriter(t *testing.T) {
	dir := t.TempDir()
	path, err := NewXLSXWriter(dir, false).Write("aud", sampleResult())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "aud_results.xlsx"), path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{resultsSheet}, f.GetSheetList())
	rows, err := f.GetRows(resultsSheet)
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, []string{"Аудитория", "Ключ", "Значение"}, rows[0])

	flat, _ := Flatten(sampleResult())
	assert.Len(t, rows, len(flat)+1)
	assert.Equal(t, "aud", rows[1][0])
}

func TestConsolePrinter(t *testing.T) {
	t.Run("Таблица сегментов выровнена", func(t *testing.T) {
		var buf bytes.Buffer
		p := NewConsolePrinter(&buf)

		p.PrintSegments([]domain.Segment{
			{ID: "1", Name: "короткий", NumUserIDs: 5},
			{ID: "22", Name: "日本語セグメント", NumUserIDs: 100000},
		})

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 5)
		assert.Equal(t, "--- Segments ---", lines[0])
		assert.Contains(t, lines[1], "| Name")
		assert.Contains(t, lines[4], "日本語セグメント")
		assert.Contains(t, lines[4], "100000")
	})

	t.Run("Пустые списки", func(t *testing.T) {
		var buf bytes.Buffer
		p := NewConsolePrinter(&buf)

		p.PrintSegments(nil)
		p.PrintAudiences(nil)

		assert.Contains(t, buf.String(), "No segments found.")
		assert.Contains(t, buf.String(), "No audiences found.")
	})

	t.Run("Аудитории и статистика", func(t *testing.T) {
		var buf bytes.Buffer
		p := NewConsolePrinter(&buf)

		p.PrintAudiences([]domain.Audience{{ID: "a1", Name: "aud", SegmentIDs: []string{"s1", "s2"}}})
		p.PrintUsage(domain.Usage{"queries": float64(3), "window": map[string]any{"days": float64(30)}})

		out := buf.String()
		assert.Contains(t, out, "s1,s2")
		assert.Contains(t, out, "| queries | 3")
		assert.Contains(t, out, `{"days":30}`)
	})

	t.Run("Вывод результата не создает файл", func(t *testing.T) {
		var buf bytes.Buffer
		path, err := NewConsolePrinter(&buf).Write("aud", sampleResult())

		require.NoError(t, err)
		assert.Empty(t, path)
		assert.Contains(t, buf.String(), "--- Audience aud ---")
		assert.Contains(t, buf.String(), `"segment_names"`)
	})
}

func TestPadding(t *testing.T) {
	assert.Equal(t, "   ", padding("ab", 5))
	assert.Equal(t, " ", padding("日本", 5))
	assert.Equal(t, "", padding("toolong", 3))
}
