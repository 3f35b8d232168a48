package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/razeghi71/tea/dyn"
	"github.com/razeghi71/tea/table"
)

func render(w io.Writer, t *table.Table, format string) error {
	switch format {
	case "json":
		recs, err := records(t)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	case "yaml":
		recs, err := records(t)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(recs)
	}
	printTable(w, t)
	return nil
}

// records converts rows to maps with native cell values. Missing numbers
// become null.
func records(t *table.Table) ([]map[string]any, error) {
	cols := make([][]any, len(t.Columns))
	for i := range t.Columns {
		vals, err := cellValues(t.Column(i))
		if err != nil {
			return nil, errors.Wrapf(err, "column %q", t.Columns[i])
		}
		cols[i] = vals
	}
	out := make([]map[string]any, t.Height())
	for r := range out {
		rec := make(map[string]any, len(t.Columns))
		for i, c := range t.Columns {
			rec[c] = cols[i][r]
		}
		out[r] = rec
	}
	return out, nil
}

func cellValues(v dyn.Value) ([]any, error) {
	out := make([]any, v.Len())
	switch dt := v.DType(); {
	case dt.IsInt():
		a, err := dyn.CastAs[int64](v)
		if err != nil {
			return nil, err
		}
		for i, x := range a.Values() {
			out[i] = x
		}
	case dt.IsFloat():
		xs, err := dyn.Float64s(v)
		if err != nil {
			return nil, err
		}
		for i, x := range xs {
			if !math.IsNaN(x) {
				out[i] = x
			}
		}
	case dt == dyn.Bool:
		a, err := dyn.As[bool](v)
		if err != nil {
			return nil, err
		}
		for i, x := range a.Values() {
			out[i] = x
		}
	default:
		for i := range out {
			out[i] = v.Format(i)
		}
	}
	return out, nil
}

func printTable(w io.Writer, t *table.Table) {
	if len(t.Columns) == 0 {
		return
	}

	widths := make([]int, len(t.Columns))
	for i, col := range t.Columns {
		widths[i] = len(col)
	}

	cells := make([][]string, t.Height())
	for r := range cells {
		cells[r] = make([]string, len(t.Columns))
		for j := range t.Columns {
			cells[r][j] = t.Cell(r, j)
			widths[j] = max(widths[j], len(cells[r][j]))
		}
	}

	parts := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		parts[i] = padRight(col, widths[i])
	}
	fmt.Fprintln(w, strings.Join(parts, " | "))

	for i := range t.Columns {
		parts[i] = strings.Repeat("-", widths[i])
	}
	fmt.Fprintln(w, strings.Join(parts, "-+-"))

	for _, row := range cells {
		for i := range t.Columns {
			parts[i] = padRight(row[i], widths[i])
		}
		fmt.Fprintln(w, strings.Join(parts, " | "))
	}
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func stringColumns(cols ...[]string) []dyn.Value {
	out := make([]dyn.Value, len(cols))
	for i, c := range cols {
		out[i] = dyn.FromSlice(c)
	}
	return out
}
