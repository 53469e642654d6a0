package console

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/tidwall/gjson"
)

// Columns returns the union of the records' keys in first-seen order.
func Columns(items []json.RawMessage) []string {
	var cols []string
	seen := make(map[string]struct{})
	for _, item := range items {
		gjson.ParseBytes(item).ForEach(func(key, _ gjson.Result) bool {
			if _, ok := seen[key.String()]; !ok {
				seen[key.String()] = struct{}{}
				cols = append(cols, key.String())
			}
			return true
		})
	}
	return cols
}

// Row renders item's cells for cols. Objects and arrays become compact JSON,
// null and missing values become empty cells.
func Row(item json.RawMessage, cols []string) []string {
	values := make(map[string]gjson.Result)
	gjson.ParseBytes(item).ForEach(func(key, value gjson.Result) bool {
		values[key.String()] = value
		return true
	})

	row := make([]string, len(cols))
	for i, col := range cols {
		row[i] = cell(values[col])
	}
	return row
}

var cellReplacer = strings.NewReplacer("\t", " ", "\r", " ", "\n", " ")

func cell(v gjson.Result) string {
	switch v.Type {
	case gjson.Null:
		return ""
	case gjson.String:
		return cellReplacer.Replace(v.Str)
	case gjson.JSON:
		var buf bytes.Buffer
		if err := json.Compact(&buf, []byte(v.Raw)); err != nil {
			return v.Raw
		}
		return buf.String()
	default:
		return v.Raw
	}
}

func Badge(n int) string {
	return fmt.Sprintf("%d items", n)
}

// RenderTable writes items as an aligned table.
func RenderTable(w io.Writer, items []json.RawMessage) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "No results to display")
		return err
	}
	cols := Columns(items)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(cols, "\t"))
	for _, item := range items {
		fmt.Fprintln(tw, strings.Join(Row(item, cols), "\t"))
	}
	return tw.Flush()
}

// RenderJSON writes items as a two-space indented JSON array.
func RenderJSON(w io.Writer, items []json.RawMessage) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "No results to display")
		return err
	}
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
