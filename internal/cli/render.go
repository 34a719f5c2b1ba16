package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"datastorm/data/dataset"
)

func renderRecords(w io.Writer, format string, columns []string, rows []dataset.Record) error {
	if rows == nil {
		rows = []dataset.Record{}
	}
	switch format {
	case OutputJSON:
		return renderJSON(w, rows)
	case OutputYAML:
		return renderYAML(w, rows)
	default:
		return renderTable(w, columns, rows)
	}
}

// renderValue 输出单个标量结果（count、rows_affected）
func renderValue(w io.Writer, format, key string, v any) error {
	switch format {
	case OutputJSON:
		return renderJSON(w, map[string]any{key: v})
	case OutputYAML:
		return renderYAML(w, map[string]any{key: v})
	default:
		_, err := fmt.Fprintln(w, v)
		return err
	}
}

func renderTable(w io.Writer, columns []string, rows []dataset.Record) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "(0 rows)")
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	t.AppendHeader(header)

	for _, rec := range rows {
		row := make(table.Row, len(columns))
		for i, c := range columns {
			row[i] = formatValue(rec[c])
		}
		t.AppendRow(row)
	}

	t.Render()
	_, err := fmt.Fprintf(w, "(%d rows)\n", len(rows))
	return err
}

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprint(v)
}

// recordColumns 单条记录没有列元信息时按列名排序
func recordColumns(rec dataset.Record) []string {
	cols := make([]string, 0, len(rec))
	for c := range rec {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}
