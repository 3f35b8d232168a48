package expr

import (
	"slices"
	"strings"

	"github.com/pkg/errors"

	"github.com/razeghi71/tea/dyn"
)

type arithOp byte

const (
	opAdd arithOp = '+'
	opSub arithOp = '-'
	opMul arithOp = '*'
	opDiv arithOp = '/'
)

// Add adds other element-wise. Operands of length one broadcast.
func (e *Expr) Add(other *Expr) *Expr { return e.binary("add", other, arithStep(opAdd)) }

// Sub subtracts other element-wise.
func (e *Expr) Sub(other *Expr) *Expr { return e.binary("sub", other, arithStep(opSub)) }

// Mul multiplies by other element-wise.
func (e *Expr) Mul(other *Expr) *Expr { return e.binary("mul", other, arithStep(opMul)) }

// Div divides by other element-wise. The result is always float64.
func (e *Expr) Div(other *Expr) *Expr { return e.binary("div", other, arithStep(opDiv)) }

// AddScalar adds a constant.
func (e *Expr) AddScalar(x float64) *Expr { return e.Add(Lit(dyn.Scalar(x))) }

// SubScalar subtracts a constant.
func (e *Expr) SubScalar(x float64) *Expr { return e.Sub(Lit(dyn.Scalar(x))) }

// MulScalar multiplies by a constant.
func (e *Expr) MulScalar(x float64) *Expr { return e.Mul(Lit(dyn.Scalar(x))) }

// DivScalar divides by a constant.
func (e *Expr) DivScalar(x float64) *Expr { return e.Div(Lit(dyn.Scalar(x))) }

// Gt is the mask e > other.
func (e *Expr) Gt(other *Expr) *Expr { return e.binary("gt", other, compareStep(func(c int) bool { return c > 0 })) }

// Ge is the mask e >= other.
func (e *Expr) Ge(other *Expr) *Expr { return e.binary("ge", other, compareStep(func(c int) bool { return c >= 0 })) }

// Lt is the mask e < other.
func (e *Expr) Lt(other *Expr) *Expr { return e.binary("lt", other, compareStep(func(c int) bool { return c < 0 })) }

// Le is the mask e <= other.
func (e *Expr) Le(other *Expr) *Expr { return e.binary("le", other, compareStep(func(c int) bool { return c <= 0 })) }

// Eq is the mask e == other.
func (e *Expr) Eq(other *Expr) *Expr { return e.binary("eq", other, compareStep(func(c int) bool { return c == 0 })) }

// Ne is the mask e != other.
func (e *Expr) Ne(other *Expr) *Expr { return e.binary("ne", other, compareStep(func(c int) bool { return c != 0 })) }

// binary appends a step combining the current value with other, which is
// replayed against the same context.
func (e *Expr) binary(name string, other *Expr, f func(a, b dyn.Value) (dyn.Value, error)) *Expr {
	other = other.Clone()
	return e.thenWith(name, func(p Payload, ctx *Context) (Payload, *Context, error) {
		rhs, err := other.Replay(ctx)
		if err != nil {
			return nil, nil, errors.Wrap(err, "operand")
		}
		return valueStep(func(lhs dyn.Value) (dyn.Value, error) { return f(lhs, rhs) })(p, ctx)
	}, other)
}

// broadcast returns the result shape and index functions for a and b.
func broadcast(a, b dyn.Value) ([]int, func(int) int, func(int) int, error) {
	same := func(i int) int { return i }
	zero := func(int) int { return 0 }
	switch {
	case slices.Equal(a.Shape(), b.Shape()):
		return a.Shape(), same, same, nil
	case b.Size() == 1:
		return a.Shape(), same, zero, nil
	case a.Size() == 1:
		return b.Shape(), zero, same, nil
	}
	return nil, nil, nil, errors.Wrapf(dyn.ErrShapeMismatch, "cannot broadcast %v with %v", a.Shape(), b.Shape())
}

func arithStep(op arithOp) func(a, b dyn.Value) (dyn.Value, error) {
	return func(a, b dyn.Value) (dyn.Value, error) {
		a, b, err := dyn.Unify(a, b)
		if err != nil {
			return nil, err
		}
		shape, ia, ib, err := broadcast(a, b)
		if err != nil {
			return nil, err
		}
		if dt := a.DType(); op != opDiv && (dt.IsInt() || dt == dyn.Bool) {
			x, err := dyn.CastAs[int64](a)
			if err != nil {
				return nil, err
			}
			y, err := dyn.CastAs[int64](b)
			if err != nil {
				return nil, err
			}
			xs, ys := x.Values(), y.Values()
			out := make([]int64, sizeOf(shape))
			for i := range out {
				out[i] = applyInt(op, xs[ia(i)], ys[ib(i)])
			}
			return dyn.FromShape(out, shape...)
		}
		xs, err := dyn.Float64s(a)
		if err != nil {
			return nil, err
		}
		ys, err := dyn.Float64s(b)
		if err != nil {
			return nil, err
		}
		out := make([]float64, sizeOf(shape))
		for i := range out {
			out[i] = applyFloat(op, xs[ia(i)], ys[ib(i)])
		}
		return dyn.FromShape(out, shape...)
	}
}

func applyInt(op arithOp, x, y int64) int64 {
	switch op {
	case opAdd:
		return x + y
	case opSub:
		return x - y
	}
	return x * y
}

func applyFloat(op arithOp, x, y float64) float64 {
	switch op {
	case opAdd:
		return x + y
	case opSub:
		return x - y
	case opMul:
		return x * y
	}
	return x / y
}

// compareStep compares strings lexicographically and everything else as
// float64. Comparisons involving NaN are false except for Ne.
func compareStep(keep func(c int) bool) func(a, b dyn.Value) (dyn.Value, error) {
	return func(a, b dyn.Value) (dyn.Value, error) {
		shape, ia, ib, err := broadcast(a, b)
		if err != nil {
			return nil, err
		}
		out := make([]bool, sizeOf(shape))
		if a.DType() == dyn.String || b.DType() == dyn.String {
			x, err := dyn.As[string](a)
			if err != nil {
				return nil, err
			}
			y, err := dyn.As[string](b)
			if err != nil {
				return nil, err
			}
			xs, ys := x.Values(), y.Values()
			for i := range out {
				out[i] = keep(strings.Compare(xs[ia(i)], ys[ib(i)]))
			}
			return dyn.FromShape(out, shape...)
		}
		xs, err := dyn.Float64s(a)
		if err != nil {
			return nil, err
		}
		ys, err := dyn.Float64s(b)
		if err != nil {
			return nil, err
		}
		nanResult := keep(1) && keep(-1) && !keep(0)
		for i := range out {
			x, y := xs[ia(i)], ys[ib(i)]
			switch {
			case x != x || y != y:
				out[i] = nanResult
			case x < y:
				out[i] = keep(-1)
			case x > y:
				out[i] = keep(1)
			default:
				out[i] = keep(0)
			}
		}
		return dyn.FromShape(out, shape...)
	}
}

func sizeOf(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// Zip combines e with other element by element through f. other is
// evaluated against the same context as e.
func (e *Expr) Zip(name string, other *Expr, f func(a, b dyn.Value) (dyn.Value, error)) *Expr {
	return e.binary(name, other, f)
}

// And is the element-wise conjunction of two masks.
func (e *Expr) And(other *Expr) *Expr {
	return e.binary("and", other, logicStep(func(x, y bool) bool { return x && y }))
}

// Or is the element-wise disjunction of two masks.
func (e *Expr) Or(other *Expr) *Expr {
	return e.binary("or", other, logicStep(func(x, y bool) bool { return x || y }))
}

func logicStep(f func(x, y bool) bool) func(a, b dyn.Value) (dyn.Value, error) {
	return func(a, b dyn.Value) (dyn.Value, error) {
		shape, ia, ib, err := broadcast(a, b)
		if err != nil {
			return nil, err
		}
		x, err := dyn.As[bool](a)
		if err != nil {
			return nil, err
		}
		y, err := dyn.As[bool](b)
		if err != nil {
			return nil, err
		}
		xs, ys := x.Values(), y.Values()
		out := make([]bool, sizeOf(shape))
		for i := range out {
			out[i] = f(xs[ia(i)], ys[ib(i)])
		}
		return dyn.FromShape(out, shape...)
	}
}

// Where keeps e on rows where mask holds and takes other elsewhere. Both
// branches are unified to one dtype; a branch of length one broadcasts.
func (e *Expr) Where(mask, other *Expr) *Expr {
	mask, other = mask.Clone(), other.Clone()
	return e.thenWith("where", func(p Payload, ctx *Context) (Payload, *Context, error) {
		m, err := mask.Replay(ctx)
		if err != nil {
			return nil, nil, errors.Wrap(err, "mask")
		}
		b, err := other.Replay(ctx)
		if err != nil {
			return nil, nil, errors.Wrap(err, "operand")
		}
		return valueStep(func(a dyn.Value) (dyn.Value, error) { return where(a, m, b) })(p, ctx)
	}, mask, other)
}

func where(a, mask, b dyn.Value) (dyn.Value, error) {
	m, err := dyn.As[bool](mask)
	if err != nil {
		return nil, errors.Wrap(err, "mask")
	}
	if mask.Ndim() != 1 {
		return nil, errors.Wrapf(dyn.ErrShapeMismatch, "mask must be 1-d, got %v", mask.Shape())
	}
	a, b, err = dyn.Unify(a, b)
	if err != nil {
		return nil, err
	}
	ms := m.Values()
	n := len(ms)
	pick := func(v dyn.Value) (dyn.Value, func(int) int, error) {
		flat, err := v.Reshape(v.Size())
		if err != nil {
			return nil, nil, err
		}
		switch {
		case v.Size() == 1:
			return flat, func(int) int { return 0 }, nil
		case v.Ndim() == 1 && v.Len() == n:
			return flat, func(i int) int { return i }, nil
		}
		return nil, nil, errors.Wrapf(dyn.ErrShapeMismatch, "branch of shape %v for %d rows", v.Shape(), n)
	}
	fa, ia, err := pick(a)
	if err != nil {
		return nil, err
	}
	fb, ib, err := pick(b)
	if err != nil {
		return nil, err
	}
	joined, err := dyn.Concat(fa, fb)
	if err != nil {
		return nil, err
	}
	rows := make([]int, n)
	for i, keep := range ms {
		if keep {
			rows[i] = ia(i)
		} else {
			rows[i] = fa.Len() + ib(i)
		}
	}
	return joined.Take(rows)
}
