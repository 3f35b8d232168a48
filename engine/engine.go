package engine

import (
	"cmp"
	"math"
	"slices"
	"sort"

	"github.com/pkg/errors"

	"github.com/razeghi71/tea/dyn"
	"github.com/razeghi71/tea/expr"
	"github.com/razeghi71/tea/groupby"
	"github.com/razeghi71/tea/table"
)

// Execute runs a pipeline of ops on the given input table. Each op
// evaluates its expressions against the table produced by the previous one.
func Execute(ops []Op, input *table.Table) (*table.Table, error) {
	current := input
	for _, op := range ops {
		var err error
		current, err = execOp(op, current)
		if err != nil {
			return nil, err
		}
	}
	return current, nil
}

func execOp(op Op, t *table.Table) (*table.Table, error) {
	switch o := op.(type) {
	case *HeadOp:
		return project(t, t.Columns, expr.All().Head(o.N))
	case *TailOp:
		return project(t, t.Columns, expr.All().Tail(o.N))
	case *SortOp:
		return execSort(o, t)
	case *SelectOp:
		return execSelect(o, t)
	case *FilterOp:
		return project(t, t.Columns, expr.All().Filter(o.Mask))
	case *TransformOp:
		return execTransform(o, t)
	case *GroupReduceOp:
		return execGroupReduce(o, t)
	case *RollingOp:
		return execRolling(o, t)
	case *CountOp:
		return table.NewTable([]string{"count"}, []dyn.Value{dyn.FromSlice([]int64{int64(t.Height())})})
	case *DistinctOp:
		return execDistinct(o, t)
	case *RenameOp:
		return execRename(o, t)
	case *RemoveOp:
		result := t.Clone()
		if err := result.Remove(o.Columns...); err != nil {
			return nil, errors.Wrap(err, "remove")
		}
		return result, nil
	default:
		return nil, errors.Errorf("unknown operation type %T", op)
	}
}

// project evaluates an expression producing one array per column and builds
// a table from them.
func project(t *table.Table, columns []string, e *expr.Expr) (*table.Table, error) {
	vals, err := e.Values(t.Context())
	if err != nil {
		return nil, err
	}
	if len(t.Columns) == 0 {
		return t.Clone(), nil
	}
	return table.NewTable(columns, vals)
}

func execSelect(o *SelectOp, t *table.Table) (*table.Table, error) {
	for _, c := range o.Columns {
		if t.ColIndex(c) < 0 {
			return nil, errors.Errorf("select: column %q not found", c)
		}
	}
	return project(t, o.Columns, expr.Cols(o.Columns...))
}

func execSort(o *SortOp, t *table.Table) (*table.Table, error) {
	keys := make([]sortKey, len(o.Columns))
	for i, c := range o.Columns {
		v, err := t.Get(c)
		if err != nil {
			return nil, errors.Wrap(err, "sort")
		}
		if keys[i], err = newSortKey(v); err != nil {
			return nil, errors.Wrapf(err, "sort %q", c)
		}
	}

	order := make([]int, t.Height())
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		for _, k := range keys {
			c := k.compare(order[i], order[j])
			if c != 0 {
				if o.Desc && !k.missing(order[i]) && !k.missing(order[j]) {
					return c > 0
				}
				return c < 0
			}
		}
		return false
	})
	return project(t, t.Columns, expr.All().Take(order))
}

// sortKey compares rows of one column. Missing values sort last in both
// directions.
type sortKey struct {
	nums []float64
	strs []string
}

func newSortKey(v dyn.Value) (sortKey, error) {
	switch dt := v.DType(); {
	case dt.IsNumeric() || dt.IsTemporal() || dt == dyn.Bool:
		xs, err := dyn.Float64s(v)
		return sortKey{nums: xs}, err
	case dt == dyn.String:
		a, err := dyn.As[string](v)
		if err != nil {
			return sortKey{}, err
		}
		return sortKey{strs: a.Values()}, nil
	}
	strs := make([]string, v.Len())
	for i := range strs {
		strs[i] = v.Format(i)
	}
	return sortKey{strs: strs}, nil
}

func (k sortKey) missing(i int) bool {
	if k.nums != nil {
		return math.IsNaN(k.nums[i])
	}
	return false
}

func (k sortKey) compare(i, j int) int {
	if k.nums == nil {
		return cmp.Compare(k.strs[i], k.strs[j])
	}
	a, b := k.nums[i], k.nums[j]
	switch an, bn := math.IsNaN(a), math.IsNaN(b); {
	case an && bn:
		return 0
	case an:
		return 1
	case bn:
		return -1
	}
	return cmp.Compare(a, b)
}

func execTransform(o *TransformOp, t *table.Table) (*table.Table, error) {
	ctx := t.Context()
	result := t.Clone()
	for _, a := range o.Assignments {
		v, err := a.Expr.Value(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "transform %q", a.Column)
		}
		if v, err = broadcastRows(v, t.Height()); err != nil {
			return nil, errors.Wrapf(err, "transform %q", a.Column)
		}
		if err := result.Set(a.Column, v); err != nil {
			return nil, errors.Wrapf(err, "transform %q", a.Column)
		}
	}
	return result, nil
}

// broadcastRows repeats a single value to n rows.
func broadcastRows(v dyn.Value, n int) (dyn.Value, error) {
	if v.Ndim() > 0 && v.Len() == n {
		return v, nil
	}
	if v.Size() != 1 {
		return nil, errors.Wrapf(dyn.ErrShapeMismatch, "%d values for %d rows", v.Len(), n)
	}
	one, err := v.Reshape(1)
	if err != nil {
		return nil, err
	}
	return one.Take(make([]int, n))
}

func execGroupReduce(o *GroupReduceOp, t *table.Table) (*table.Table, error) {
	keys := make([]*expr.Expr, len(o.Keys))
	for i, k := range o.Keys {
		if t.ColIndex(k) < 0 {
			return nil, errors.Errorf("group: column %q not found", k)
		}
		keys[i] = expr.Col(k)
	}
	aggs := make([]*expr.Expr, len(o.Assignments))
	columns := slices.Clone(o.Keys)
	for i, a := range o.Assignments {
		aggs[i] = a.Expr
		columns = append(columns, a.Column)
	}
	vals, err := expr.GroupBy(keys...).Agg(aggs...).Values(t.Context())
	if err != nil {
		return nil, errors.Wrap(err, "reduce")
	}
	return table.NewTable(columns, vals)
}

func execRolling(o *RollingOp, t *table.Table) (*table.Table, error) {
	ctx := t.Context()
	result := t.Clone()
	for _, a := range o.Assignments {
		v, err := expr.RollingApply(o.Window, o.MinPeriods, a.Expr).Value(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "rolling %q", a.Column)
		}
		if err := result.Set(a.Column, v); err != nil {
			return nil, errors.Wrapf(err, "rolling %q", a.Column)
		}
	}
	return result, nil
}

func execDistinct(o *DistinctOp, t *table.Table) (*table.Table, error) {
	columns := o.Columns
	if len(columns) == 0 {
		columns = t.Columns
	}
	keys := make([]dyn.Value, len(columns))
	for i, c := range columns {
		v, err := t.Get(c)
		if err != nil {
			return nil, errors.Wrap(err, "distinct")
		}
		keys[i] = v
	}
	if len(keys) == 0 {
		return t.Clone(), nil
	}
	groups, err := groupby.Partition(keys...)
	if err != nil {
		return nil, errors.Wrap(err, "distinct")
	}
	return project(t, t.Columns, expr.All().Take(groupby.Firsts(groups)))
}

func execRename(o *RenameOp, t *table.Table) (*table.Table, error) {
	result := t.Clone()
	for _, pair := range o.Pairs {
		if err := result.Rename(pair.Old, pair.New); err != nil {
			return nil, errors.Wrap(err, "rename")
		}
	}
	return result, nil
}
