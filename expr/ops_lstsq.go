package expr

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/razeghi71/tea/dyn"
	"github.com/razeghi71/tea/linalg"
)

// Lstsq fits e as the target of an ordinary least-squares regression on xs.
// Each regressor contributes one column, or one per column when it is
// two-dimensional. With intercept set a leading column of ones is added.
// The result is a regression payload; use Params, Singular, Residuals or
// FitRank to extract arrays from it.
func (e *Expr) Lstsq(intercept bool, xs ...*Expr) *Expr {
	xs = cloneAll(xs)
	return e.thenWith("lstsq", func(p Payload, ctx *Context) (Payload, *Context, error) {
		yv, err := valueOf(p, ctx)
		if err != nil {
			return nil, nil, err
		}
		if yv.Ndim() != 1 {
			return nil, nil, errors.Wrapf(dyn.ErrShapeMismatch, "lstsq target must be 1-d, got %v", yv.Shape())
		}
		y, err := dyn.Float64s(yv)
		if err != nil {
			return nil, nil, err
		}
		m := len(y)

		var cols [][]float64
		if intercept {
			ones := make([]float64, m)
			for i := range ones {
				ones[i] = 1
			}
			cols = append(cols, ones)
		}
		for i, x := range xs {
			xv, err := x.Replay(ctx)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "regressor %d", i)
			}
			c, err := regressorColumns(xv, m)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "regressor %d", i)
			}
			cols = append(cols, c...)
		}
		if len(cols) == 0 {
			return nil, nil, errors.Wrap(linalg.ErrSolver, "no regressors")
		}

		a := mat.NewDense(m, len(cols), nil)
		for j, c := range cols {
			a.SetCol(j, c)
		}
		res, err := linalg.Lstsq(a, mat.NewDense(m, 1, y), -1)
		if err != nil {
			return nil, nil, err
		}
		return Regression{Result: res}, nil, nil
	}, xs...)
}

func regressorColumns(v dyn.Value, rows int) ([][]float64, error) {
	if v.Len() != rows {
		return nil, errors.Wrapf(dyn.ErrShapeMismatch, "%d rows, target has %d", v.Len(), rows)
	}
	xs, err := dyn.Float64s(v)
	if err != nil {
		return nil, err
	}
	switch v.Ndim() {
	case 1:
		return [][]float64{xs}, nil
	case 2:
		k := v.Shape()[1]
		cols := make([][]float64, k)
		for j := range cols {
			cols[j] = make([]float64, rows)
			for i := 0; i < rows; i++ {
				cols[j][i] = xs[i*k+j]
			}
		}
		return cols, nil
	}
	return nil, errors.Wrapf(dyn.ErrShapeMismatch, "regressor of %d dimensions", v.Ndim())
}

func (e *Expr) regression(name string, f func(*linalg.Result) dyn.Value) *Expr {
	return e.Then(name, func(p Payload, _ *Context) (Payload, *Context, error) {
		r, ok := p.(Regression)
		if !ok {
			return nil, nil, errors.Wrapf(dyn.ErrDtypeMismatch, "%s needs a regression, got %s", name, p.kind())
		}
		return Single{Value: f(r.Result)}, nil, nil
	})
}

// Params extracts the fitted coefficients, intercept first when present.
func (e *Expr) Params() *Expr {
	return e.regression("params", func(r *linalg.Result) dyn.Value {
		return dyn.FromSlice(mat.Col(nil, 0, r.Solution))
	})
}

// Singular extracts the singular values of the design matrix.
func (e *Expr) Singular() *Expr {
	return e.regression("singular", func(r *linalg.Result) dyn.Value {
		return dyn.FromSlice(append([]float64(nil), r.Singular...))
	})
}

// Residuals extracts the residual sum of squares. It is empty for
// rank-deficient fits.
func (e *Expr) Residuals() *Expr {
	return e.regression("residuals", func(r *linalg.Result) dyn.Value {
		return dyn.FromSlice(append([]float64{}, r.Residuals...))
	})
}

// FitRank extracts the effective rank of the design matrix.
func (e *Expr) FitRank() *Expr {
	return e.regression("fit_rank", func(r *linalg.Result) dyn.Value {
		return dyn.Scalar(int64(r.Rank))
	})
}
