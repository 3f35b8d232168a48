package expr

import (
	"math"
	"slices"

	"github.com/pkg/errors"

	"github.com/razeghi71/tea/dyn"
	"github.com/razeghi71/tea/kernels"
)

// valueStep lifts an array transformation into a step. A Vec payload is
// transformed element by element.
func valueStep(f func(dyn.Value) (dyn.Value, error)) StepFunc {
	return func(p Payload, ctx *Context) (Payload, *Context, error) {
		if vec, ok := p.(Vec); ok {
			out := make([]dyn.Value, len(vec.Values))
			for i, v := range vec.Values {
				r, err := f(v)
				if err != nil {
					return nil, nil, err
				}
				out[i] = r
			}
			return Vec{Values: out}, nil, nil
		}
		v, err := valueOf(p, ctx)
		if err != nil {
			return nil, nil, err
		}
		r, err := f(v)
		if err != nil {
			return nil, nil, err
		}
		return Single{Value: r}, nil, nil
	}
}

func (e *Expr) apply(name string, f func(dyn.Value) (dyn.Value, error)) *Expr {
	return e.Then(name, valueStep(f))
}

// Map appends an arbitrary array transformation.
func (e *Expr) Map(name string, f func(dyn.Value) (dyn.Value, error)) *Expr {
	return e.apply(name, f)
}

// Cast converts the elements to dt.
func (e *Expr) Cast(dt dyn.DType) *Expr {
	return e.apply("cast", func(v dyn.Value) (dyn.Value, error) { return v.Cast(dt) })
}

// Head keeps the first n rows as a view.
func (e *Expr) Head(n int) *Expr {
	return e.apply("head", func(v dyn.Value) (dyn.Value, error) {
		return v.Slice(0, clamp(n, v.Len()))
	})
}

// Tail keeps the last n rows as a view.
func (e *Expr) Tail(n int) *Expr {
	return e.apply("tail", func(v dyn.Value) (dyn.Value, error) {
		l := v.Len()
		return v.Slice(l-clamp(n, l), l)
	})
}

// SliceRows keeps rows [start, stop) as a view.
func (e *Expr) SliceRows(start, stop int) *Expr {
	return e.apply("slice", func(v dyn.Value) (dyn.Value, error) { return v.Slice(start, stop) })
}

// Take gathers rows by index.
func (e *Expr) Take(rows []int) *Expr {
	rows = slices.Clone(rows)
	return e.apply("take", func(v dyn.Value) (dyn.Value, error) { return v.Take(rows) })
}

// Reverse reverses the row order.
func (e *Expr) Reverse() *Expr {
	return e.apply("reverse", func(v dyn.Value) (dyn.Value, error) {
		n := v.Len()
		idx := make([]int, n)
		for i := range idx {
			idx[i] = n - 1 - i
		}
		return v.Take(idx)
	})
}

// Filter keeps the rows where mask is true. mask is evaluated against the
// same context as e.
func (e *Expr) Filter(mask *Expr) *Expr {
	mask = mask.Clone()
	return e.thenWith("filter", func(p Payload, ctx *Context) (Payload, *Context, error) {
		m, err := mask.Replay(ctx)
		if err != nil {
			return nil, nil, errors.Wrap(err, "mask")
		}
		bits, err := dyn.As[bool](m)
		if err != nil {
			return nil, nil, err
		}
		var rows []int
		for i, b := range bits.Values() {
			if b {
				rows = append(rows, i)
			}
		}
		return valueStep(func(v dyn.Value) (dyn.Value, error) {
			if v.Len() != bits.Len() {
				return nil, errors.Wrapf(dyn.ErrShapeMismatch, "mask has %d rows, value has %d", bits.Len(), v.Len())
			}
			return v.Take(rows)
		})(p, ctx)
	}, mask)
}

// Rank replaces each value by its 1-based rank, ties sharing their average
// rank. Two-dimensional values are ranked per column.
func (e *Expr) Rank() *Expr {
	return e.apply("rank", func(v dyn.Value) (dyn.Value, error) { return columnwise(v, kernels.Rank) })
}

// Abs takes absolute values.
func (e *Expr) Abs() *Expr {
	return e.apply("abs", func(v dyn.Value) (dyn.Value, error) {
		return columnwise(v, func(xs []float64) []float64 {
			out := make([]float64, len(xs))
			for i, x := range xs {
				out[i] = math.Abs(x)
			}
			return out
		})
	})
}

// FillNaN replaces missing values with fill.
func (e *Expr) FillNaN(fill float64) *Expr {
	return e.apply("fill_nan", func(v dyn.Value) (dyn.Value, error) {
		return columnwise(v, func(xs []float64) []float64 {
			out := make([]float64, len(xs))
			for i, x := range xs {
				if math.IsNaN(x) {
					x = fill
				}
				out[i] = x
			}
			return out
		})
	})
}

// CumSum computes running sums, skipping missing values.
func (e *Expr) CumSum() *Expr {
	return e.apply("cumsum", func(v dyn.Value) (dyn.Value, error) { return columnwise(v, kernels.CumSum) })
}

// Shift moves values down by n rows (up for negative n), filling with NaN.
func (e *Expr) Shift(n int) *Expr {
	return e.apply("shift", func(v dyn.Value) (dyn.Value, error) {
		return columnwise(v, func(xs []float64) []float64 { return kernels.Shift(xs, n) })
	})
}

// ConcatWith appends the rows of others after the rows of e.
func (e *Expr) ConcatWith(others ...*Expr) *Expr {
	others = cloneAll(others)
	return e.thenWith("concat", func(p Payload, ctx *Context) (Payload, *Context, error) {
		vals, err := gather(p, ctx, others)
		if err != nil {
			return nil, nil, err
		}
		v, err := dyn.Concat(vals...)
		if err != nil {
			return nil, nil, err
		}
		return Single{Value: v}, nil, nil
	}, others...)
}

// Stack stacks e and others along a new leading axis. A Vec payload is
// stacked on its own when no others are given.
func (e *Expr) Stack(others ...*Expr) *Expr {
	others = cloneAll(others)
	return e.thenWith("stack", func(p Payload, ctx *Context) (Payload, *Context, error) {
		vals, err := gather(p, ctx, others)
		if err != nil {
			return nil, nil, err
		}
		v, err := dyn.Stack(vals...)
		if err != nil {
			return nil, nil, err
		}
		return Single{Value: v}, nil, nil
	}, others...)
}

// Transpose reverses the axes.
func (e *Expr) Transpose() *Expr {
	return e.apply("transpose", func(v dyn.Value) (dyn.Value, error) { return v.Transpose(), nil })
}

// Reshape changes the shape. One dimension may be -1.
func (e *Expr) Reshape(shape ...int) *Expr {
	shape = slices.Clone(shape)
	return e.apply("reshape", func(v dyn.Value) (dyn.Value, error) { return v.Reshape(shape...) })
}

// IntoOwned copies the result into an owned buffer.
func (e *Expr) IntoOwned() *Expr {
	return e.apply("into_owned", func(v dyn.Value) (dyn.Value, error) { return v.IntoOwned(), nil })
}

// Share moves the result behind a reference count so later readers get views.
func (e *Expr) Share() *Expr {
	return e.Then("share", func(p Payload, ctx *Context) (Payload, *Context, error) {
		if s, ok := p.(Shared); ok {
			return s, nil, nil
		}
		v, err := valueOf(p, ctx)
		if err != nil {
			return nil, nil, err
		}
		return Shared{Ref: Share(v)}, nil, nil
	})
}

// Item evaluates e and returns its single element.
func (e *Expr) Item(ctx *Context) (any, error) {
	v, err := e.Value(ctx)
	if err != nil {
		return nil, err
	}
	return dyn.Item(v)
}

func clamp(n, l int) int {
	return max(0, min(n, l))
}

func cloneAll(es []*Expr) []*Expr {
	out := make([]*Expr, len(es))
	for i, o := range es {
		out[i] = o.Clone()
	}
	return out
}

// gather returns the arrays of p followed by the replayed values of others.
func gather(p Payload, ctx *Context, others []*Expr) ([]dyn.Value, error) {
	vals, err := valuesOf(p, ctx)
	if err != nil {
		return nil, err
	}
	vals = slices.Clone(vals)
	for _, o := range others {
		v, err := o.Replay(ctx)
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
	}
	return vals, nil
}

// columnwise applies f to a 1-d value, or to every column of a 2-d value in
// parallel lanes. The result is float64.
func columnwise(v dyn.Value, f func([]float64) []float64) (dyn.Value, error) {
	xs, err := dyn.Float64s(v)
	if err != nil {
		return nil, err
	}
	switch v.Ndim() {
	case 0, 1:
		return dyn.FromShape(f(xs), v.Shape()...)
	case 2:
	default:
		return nil, errors.Wrapf(dyn.ErrShapeMismatch, "column-wise operation on %d-d value", v.Ndim())
	}
	shape := v.Shape()
	rows, cols := shape[0], shape[1]
	out := make([]float64, len(xs))
	err = kernels.Lanes(cols, func(j int) error {
		col := make([]float64, rows)
		for i := range col {
			col[i] = xs[i*cols+j]
		}
		r := f(col)
		if len(r) != rows {
			return errors.Wrapf(dyn.ErrShapeMismatch, "column %d: %d results for %d rows", j, len(r), rows)
		}
		for i, x := range r {
			out[i*cols+j] = x
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dyn.FromShape(out, rows, cols)
}

// reduceValue collapses a 1-d value to a scalar, or a 2-d value to one
// scalar per column.
func reduceValue(v dyn.Value, r kernels.Reducer) (dyn.Value, error) {
	xs, err := dyn.Float64s(v)
	if err != nil {
		return nil, err
	}
	switch v.Ndim() {
	case 0, 1:
		return dyn.Scalar(r(xs)), nil
	case 2:
	default:
		return nil, errors.Wrapf(dyn.ErrShapeMismatch, "reduction of %d-d value", v.Ndim())
	}
	shape := v.Shape()
	rows, cols := shape[0], shape[1]
	out := make([]float64, cols)
	err = kernels.Lanes(cols, func(j int) error {
		col := make([]float64, rows)
		for i := range col {
			col[i] = xs[i*cols+j]
		}
		out[j] = r(col)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dyn.FromSlice(out), nil
}
