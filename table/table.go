package table

import (
	"slices"
	"strings"

	"github.com/pkg/errors"

	"github.com/razeghi71/tea/dyn"
	"github.com/razeghi71/tea/expr"
)

// ErrNoColumn is returned when a named column does not exist.
var ErrNoColumn = errors.New("no such column")

// Table is an ordered set of named columns of equal length.
type Table struct {
	Columns []string
	cols    []dyn.Value
	rows    int
}

// NewTable creates a table from column names and values.
func NewTable(columns []string, vals []dyn.Value) (*Table, error) {
	if len(columns) != len(vals) {
		return nil, errors.Errorf("table: %d names for %d columns", len(columns), len(vals))
	}
	t := &Table{}
	for i, name := range columns {
		if err := t.Set(name, vals[i]); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// NewDeferred creates a table of rows rows without touching the column
// values, so deferred columns stay unmaterialized until first used.
func NewDeferred(columns []string, vals []dyn.Value, rows int) (*Table, error) {
	if len(columns) != len(vals) {
		return nil, errors.Errorf("table: %d names for %d columns", len(columns), len(vals))
	}
	for i, name := range columns {
		if slices.Index(columns[:i], name) >= 0 {
			return nil, errors.Errorf("table: duplicate column %q", name)
		}
	}
	return &Table{Columns: slices.Clone(columns), cols: slices.Clone(vals), rows: rows}, nil
}

// ColIndex returns the index of a column by name, or -1.
func (t *Table) ColIndex(name string) int {
	return slices.Index(t.Columns, name)
}

// Get returns the column with the given name.
func (t *Table) Get(name string) (dyn.Value, error) {
	i := t.ColIndex(name)
	if i < 0 {
		return nil, errors.Wrapf(ErrNoColumn, "%q", name)
	}
	return t.cols[i], nil
}

// Column returns the column at position i.
func (t *Table) Column(i int) dyn.Value {
	return t.cols[i]
}

// Set replaces the named column, or appends it when absent. The length must
// match the other columns.
func (t *Table) Set(name string, v dyn.Value) error {
	if v.Ndim() == 0 {
		return errors.Wrapf(dyn.ErrShapeMismatch, "column %q is a scalar", name)
	}
	i := t.ColIndex(name)
	if len(t.cols) > 0 && !(len(t.cols) == 1 && i == 0) && v.Len() != t.rows {
		return errors.Wrapf(dyn.ErrShapeMismatch, "column %q has %d rows, table has %d", name, v.Len(), t.rows)
	}
	t.rows = v.Len()
	if i >= 0 {
		t.cols[i] = v
		return nil
	}
	t.Columns = append(t.Columns, name)
	t.cols = append(t.cols, v)
	return nil
}

// Remove drops the named columns.
func (t *Table) Remove(names ...string) error {
	for _, name := range names {
		i := t.ColIndex(name)
		if i < 0 {
			return errors.Wrapf(ErrNoColumn, "%q", name)
		}
		t.Columns = slices.Delete(t.Columns, i, i+1)
		t.cols = slices.Delete(t.cols, i, i+1)
	}
	if len(t.cols) == 0 {
		t.rows = 0
	}
	return nil
}

// Rename changes the name of a column in place.
func (t *Table) Rename(old, name string) error {
	i := t.ColIndex(old)
	if i < 0 {
		return errors.Wrapf(ErrNoColumn, "%q", old)
	}
	if j := t.ColIndex(name); j >= 0 && j != i {
		return errors.Errorf("rename: column %q already exists", name)
	}
	t.Columns[i] = name
	return nil
}

// Height returns the number of rows.
func (t *Table) Height() int {
	return t.rows
}

// Context returns an evaluation context over the current columns.
func (t *Table) Context() *expr.Context {
	ctx, err := expr.NewContext(t.Columns, t.cols)
	if err != nil {
		// Set keeps names unique.
		panic(err)
	}
	return ctx
}

// Eval evaluates e against the table's columns.
func (t *Table) Eval(e *expr.Expr) (dyn.Value, error) {
	return e.Value(t.Context())
}

// IntoArr returns an owned copy of the named column.
func (t *Table) IntoArr(name string) (dyn.Value, error) {
	v, err := t.Get(name)
	if err != nil {
		return nil, err
	}
	return v.IntoOwned(), nil
}

// ViewArr returns a read-only view of the named column.
func (t *Table) ViewArr(name string) (dyn.Value, error) {
	v, err := t.Get(name)
	if err != nil {
		return nil, err
	}
	return v.View(), nil
}

// Cell renders the value at a row and column position.
func (t *Table) Cell(row, col int) string {
	return t.cols[col].Format(row)
}

// TakeRows returns a new table holding the given rows of every column.
func (t *Table) TakeRows(rows []int) (*Table, error) {
	out := &Table{Columns: slices.Clone(t.Columns), cols: make([]dyn.Value, len(t.cols)), rows: len(rows)}
	for i, c := range t.cols {
		v, err := c.Take(rows)
		if err != nil {
			return nil, errors.Wrapf(err, "column %q", t.Columns[i])
		}
		out.cols[i] = v
	}
	return out, nil
}

// Clone copies the column list. Column values are shared.
func (t *Table) Clone() *Table {
	return &Table{Columns: slices.Clone(t.Columns), cols: slices.Clone(t.cols), rows: t.rows}
}

// String returns a compact representation of the table.
func (t *Table) String() string {
	if t.Height() == 0 {
		return "[" + strings.Join(t.Columns, ", ") + "] (0 rows)"
	}

	var sb strings.Builder
	sb.WriteString("[ ")
	for i := 0; i < t.Height(); i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("{")
		for j, name := range t.Columns {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(name)
			sb.WriteString(":")
			sb.WriteString(t.Cell(i, j))
		}
		sb.WriteString("}")
	}
	sb.WriteString(" ]")
	return sb.String()
}
