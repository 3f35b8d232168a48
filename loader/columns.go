package loader

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/razeghi71/tea/dyn"
	"github.com/razeghi71/tea/table"
)

func buildTable(columns []string, cells [][]any) (*table.Table, error) {
	vals := make([]dyn.Value, len(columns))
	for i := range columns {
		vals[i] = buildColumn(cells[i])
	}
	return table.NewTable(columns, vals)
}

// buildColumn picks the narrowest dtype holding every cell. Integers with
// gaps widen to f64 so the gaps can be NaN; anything mixed with text becomes
// str. A column with no values at all is f64 NaN.
func buildColumn(cells []any) dyn.Value {
	var ints, floats, bools, strs, times, nulls int
	for _, c := range cells {
		switch v := c.(type) {
		case nil:
			nulls++
		case int64:
			ints++
		case float64:
			floats++
		case bool:
			bools++
		case time.Time:
			times++
		case string:
			if _, err := time.Parse(time.RFC3339Nano, v); err == nil {
				times++
			}
			strs++
		}
	}
	n := len(cells)

	switch {
	case nulls == n:
		return dyn.Full(n, math.NaN())
	case ints == n:
		out := make([]int64, n)
		for i, c := range cells {
			out[i] = c.(int64)
		}
		return dyn.FromSlice(out)
	case ints+floats+nulls == n:
		out := make([]float64, n)
		for i, c := range cells {
			switch v := c.(type) {
			case int64:
				out[i] = float64(v)
			case float64:
				out[i] = v
			default:
				out[i] = math.NaN()
			}
		}
		return dyn.FromSlice(out)
	case bools == n:
		out := make([]bool, n)
		for i, c := range cells {
			out[i] = c.(bool)
		}
		return dyn.FromSlice(out)
	case times+nulls == n:
		out := make([]dyn.Timestamp, n)
		for i, c := range cells {
			switch v := c.(type) {
			case time.Time:
				out[i] = dyn.FromTime(v)
			case string:
				t, _ := time.Parse(time.RFC3339Nano, v)
				out[i] = dyn.FromTime(t)
			default:
				out[i] = dyn.NaT
			}
		}
		return dyn.FromSlice(out)
	}

	out := make([]string, n)
	for i, c := range cells {
		switch v := c.(type) {
		case nil:
		case string:
			out[i] = v
		case time.Time:
			out[i] = v.Format(time.RFC3339Nano)
		default:
			out[i] = formatCell(v)
		}
	}
	return dyn.FromSlice(out)
}

func formatCell(v any) string {
	switch x := v.(type) {
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	}
	return fmt.Sprint(v)
}
