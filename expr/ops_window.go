package expr

import (
	"math"

	"github.com/pkg/errors"

	"github.com/razeghi71/tea/dyn"
	"github.com/razeghi71/tea/kernels"
)

// Agg reduces the value with a named reducer: sum, mean, var, std, min, max,
// first, last or count. Missing values are skipped. One-dimensional values
// reduce to a scalar, two-dimensional values to one scalar per column.
func (e *Expr) Agg(name string) *Expr {
	r, ok := kernels.NewReducer(name)
	if !ok {
		return e.Then(name, failStep(errors.Errorf("unknown aggregation %q", name)))
	}
	return e.apply(name, func(v dyn.Value) (dyn.Value, error) { return reduceValue(v, r) })
}

func (e *Expr) Sum() *Expr   { return e.Agg("sum") }
func (e *Expr) Mean() *Expr  { return e.Agg("mean") }
func (e *Expr) Min() *Expr   { return e.Agg("min") }
func (e *Expr) Max() *Expr   { return e.Agg("max") }
func (e *Expr) Count() *Expr { return e.Agg("count") }
func (e *Expr) Std() *Expr   { return e.Agg("std") }
func (e *Expr) Var() *Expr   { return e.Agg("var") }
func (e *Expr) First() *Expr { return e.Agg("first") }
func (e *Expr) Last() *Expr  { return e.Agg("last") }

// Corr is the Pearson correlation with other over rows where both are present.
func (e *Expr) Corr(other *Expr) *Expr {
	return e.binary("corr", other, func(a, b dyn.Value) (dyn.Value, error) {
		if a.Len() != b.Len() {
			return nil, errors.Wrapf(dyn.ErrShapeMismatch, "corr of %d and %d rows", a.Len(), b.Len())
		}
		xs, err := dyn.Float64s(a)
		if err != nil {
			return nil, err
		}
		ys, err := dyn.Float64s(b)
		if err != nil {
			return nil, err
		}
		return dyn.Scalar(kernels.Corr(xs, ys)), nil
	})
}

// Rolling applies a named window reducer (sum, mean, var, std, min, max) over
// trailing windows. A window with fewer than minPeriods present values yields NaN.
func (e *Expr) Rolling(name string, window, minPeriods int) *Expr {
	if _, ok := kernels.NewWindow(name); !ok {
		return e.Then("rolling_"+name, failStep(errors.Errorf("unknown window %q", name)))
	}
	if window < 1 {
		return e.Then("rolling_"+name, failStep(errors.Errorf("window must be positive, got %d", window)))
	}
	return e.apply("rolling_"+name, func(v dyn.Value) (dyn.Value, error) {
		return columnwise(v, func(xs []float64) []float64 {
			w, _ := kernels.NewWindow(name)
			return kernels.Rolling(xs, window, minPeriods, w)
		})
	})
}

func (e *Expr) RollingSum(window, minPeriods int) *Expr  { return e.Rolling("sum", window, minPeriods) }
func (e *Expr) RollingMean(window, minPeriods int) *Expr { return e.Rolling("mean", window, minPeriods) }
func (e *Expr) RollingStd(window, minPeriods int) *Expr  { return e.Rolling("std", window, minPeriods) }
func (e *Expr) RollingMin(window, minPeriods int) *Expr  { return e.Rolling("min", window, minPeriods) }
func (e *Expr) RollingMax(window, minPeriods int) *Expr  { return e.Rolling("max", window, minPeriods) }

// RollingApply evaluates agg once per trailing window of the context rows.
// Each window is a child context of row views; agg must reduce it to a single
// number. Windows shorter than minPeriods rows yield NaN. Windows are
// evaluated in parallel lanes.
func RollingApply(window, minPeriods int, agg *Expr) *Expr {
	agg = agg.Clone()
	e := All()
	e.st.name = agg.Name()
	return e.Then("rolling_apply", func(_ Payload, ctx *Context) (Payload, *Context, error) {
		if window < 1 {
			return nil, nil, errors.Errorf("window must be positive, got %d", window)
		}
		n, err := ctx.Height()
		if err != nil {
			return nil, nil, err
		}
		out := make([]float64, n)
		err = kernels.Lanes(n, func(i int) error {
			start := max(0, i-window+1)
			if i+1-start < minPeriods {
				out[i] = math.NaN()
				return nil
			}
			child, err := ctx.SliceRows(start, i+1)
			if err != nil {
				return err
			}
			v, err := agg.Replay(child)
			if err != nil {
				return errors.Wrapf(err, "window ending at row %d", i)
			}
			out[i], err = dyn.Float(v)
			return err
		})
		if err != nil {
			return nil, nil, err
		}
		return Single{Value: dyn.FromSlice(out)}, nil, nil
	})
}

func failStep(err error) StepFunc {
	return func(Payload, *Context) (Payload, *Context, error) { return nil, nil, err }
}
