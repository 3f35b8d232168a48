package engine

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/razeghi71/tea/dyn"
	"github.com/razeghi71/tea/expr"
)

// Call builds the expression for a named function applied to args. Extra
// scalar parameters (window sizes, fill values, dtypes) come in params.
func Call(name string, args []*expr.Expr, params []string) (*expr.Expr, error) {
	switch name {
	// Element-wise functions
	case "upper":
		return unary(name, args, params, 0, func(e *expr.Expr, _ []string) (*expr.Expr, error) {
			return e.Map(name, mapStrings(strings.ToUpper)), nil
		})
	case "lower":
		return unary(name, args, params, 0, func(e *expr.Expr, _ []string) (*expr.Expr, error) {
			return e.Map(name, mapStrings(strings.ToLower)), nil
		})
	case "trim":
		return unary(name, args, params, 0, func(e *expr.Expr, _ []string) (*expr.Expr, error) {
			return e.Map(name, mapStrings(strings.TrimSpace)), nil
		})
	case "len":
		return unary(name, args, params, 0, func(e *expr.Expr, _ []string) (*expr.Expr, error) {
			return e.Map(name, callLen), nil
		})
	case "substr":
		return unary(name, args, params, 2, func(e *expr.Expr, p []string) (*expr.Expr, error) {
			ints, err := atois(p)
			if err != nil {
				return nil, errors.Wrap(err, "substr")
			}
			return e.Map(name, mapStrings(func(s string) string { return substr(s, ints[0], ints[1]) })), nil
		})
	case "year", "month", "day":
		return unary(name, args, params, 0, func(e *expr.Expr, _ []string) (*expr.Expr, error) {
			return e.Map(name, datePart(name)), nil
		})
	case "abs":
		return unary(name, args, params, 0, func(e *expr.Expr, _ []string) (*expr.Expr, error) { return e.Abs(), nil })
	case "rank":
		return unary(name, args, params, 0, func(e *expr.Expr, _ []string) (*expr.Expr, error) { return e.Rank(), nil })
	case "cumsum":
		return unary(name, args, params, 0, func(e *expr.Expr, _ []string) (*expr.Expr, error) { return e.CumSum(), nil })
	case "shift":
		return unary(name, args, params, 1, func(e *expr.Expr, p []string) (*expr.Expr, error) {
			n, err := strconv.Atoi(p[0])
			if err != nil {
				return nil, errors.Wrap(err, "shift")
			}
			return e.Shift(n), nil
		})
	case "fillnan":
		return unary(name, args, params, 1, func(e *expr.Expr, p []string) (*expr.Expr, error) {
			f, err := strconv.ParseFloat(p[0], 64)
			if err != nil {
				return nil, errors.Wrap(err, "fillnan")
			}
			return e.FillNaN(f), nil
		})
	case "cast":
		return unary(name, args, params, 1, func(e *expr.Expr, p []string) (*expr.Expr, error) {
			dt, err := dyn.ParseDType(p[0])
			if err != nil {
				return nil, err
			}
			return e.Cast(dt), nil
		})
	case "coalesce":
		if len(args) != 2 || len(params) != 0 {
			return nil, errors.Errorf("coalesce() takes 2 arguments, got %d", len(args)+len(params))
		}
		return args[0].Zip(name, args[1], coalesce), nil
	case "add", "sub", "mul", "div":
		if len(args) != 2 || len(params) != 0 {
			return nil, errors.Errorf("%s() takes 2 arguments, got %d", name, len(args)+len(params))
		}
		return arith(name, args[0], args[1]), nil
	case "corr":
		if len(args) != 2 || len(params) != 0 {
			return nil, errors.Errorf("corr() takes 2 arguments, got %d", len(args)+len(params))
		}
		return args[0].Corr(args[1]), nil
	case "gt", "ge", "lt", "le", "eq", "ne", "and", "or":
		if len(args) != 2 || len(params) != 0 {
			return nil, errors.Errorf("%s() takes 2 arguments, got %d", name, len(args)+len(params))
		}
		return logic(name, args[0], args[1]), nil
	case "if":
		if len(args) != 3 || len(params) != 0 {
			return nil, errors.Errorf("if() takes 3 arguments, got %d", len(args)+len(params))
		}
		return args[1].Where(args[0], args[2]), nil

	// Aggregate functions
	case "sum", "mean", "avg", "min", "max", "count", "std", "var", "first", "last":
		return unary(name, args, params, 0, func(e *expr.Expr, _ []string) (*expr.Expr, error) { return e.Agg(name), nil })

	// Rolling window functions: rolling_<agg>(col, window, min_periods)
	case "rolling_sum", "rolling_mean", "rolling_var", "rolling_std", "rolling_min", "rolling_max":
		return unary(name, args, params, 2, func(e *expr.Expr, p []string) (*expr.Expr, error) {
			ints, err := atois(p)
			if err != nil {
				return nil, errors.Wrap(err, name)
			}
			return e.Rolling(strings.TrimPrefix(name, "rolling_"), ints[0], ints[1]), nil
		})
	}
	return nil, errors.Errorf("unknown function %q", name)
}

func unary(name string, args []*expr.Expr, params []string, nparams int,
	build func(*expr.Expr, []string) (*expr.Expr, error)) (*expr.Expr, error) {
	if len(args) != 1 || len(params) != nparams {
		return nil, errors.Errorf("%s() takes 1 argument and %d parameters, got %d and %d", name, nparams, len(args), len(params))
	}
	return build(args[0], params)
}

func arith(name string, a, b *expr.Expr) *expr.Expr {
	switch name {
	case "add":
		return a.Add(b)
	case "sub":
		return a.Sub(b)
	case "mul":
		return a.Mul(b)
	}
	return a.Div(b)
}

func logic(name string, a, b *expr.Expr) *expr.Expr {
	switch name {
	case "gt":
		return a.Gt(b)
	case "ge":
		return a.Ge(b)
	case "lt":
		return a.Lt(b)
	case "le":
		return a.Le(b)
	case "eq":
		return a.Eq(b)
	case "ne":
		return a.Ne(b)
	case "and":
		return a.And(b)
	}
	return a.Or(b)
}

func atois(ps []string) ([]int, error) {
	out := make([]int, len(ps))
	for i, p := range ps {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func mapStrings(f func(string) string) func(dyn.Value) (dyn.Value, error) {
	return func(v dyn.Value) (dyn.Value, error) {
		a, err := dyn.CastAs[string](v)
		if err != nil {
			return nil, err
		}
		vals := a.Values()
		for i, s := range vals {
			vals[i] = f(s)
		}
		return dyn.FromShape(vals, v.Shape()...)
	}
}

func callLen(v dyn.Value) (dyn.Value, error) {
	a, err := dyn.CastAs[string](v)
	if err != nil {
		return nil, err
	}
	vals := a.Values()
	out := make([]int64, len(vals))
	for i, s := range vals {
		out[i] = int64(len(s))
	}
	return dyn.FromShape(out, v.Shape()...)
}

// substr takes length bytes from 1-based position start, clamped to s.
func substr(s string, start, length int) string {
	from := max(start-1, 0)
	if from >= len(s) || length <= 0 {
		return ""
	}
	return s[from:min(from+length, len(s))]
}

var dateFormats = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"2006/01/02",
}

// datePart extracts a calendar field as f64. Missing or empty dates give NaN.
func datePart(part string) func(dyn.Value) (dyn.Value, error) {
	return func(v dyn.Value) (dyn.Value, error) {
		times, err := toTimes(v)
		if err != nil {
			return nil, errors.Wrapf(err, "%s()", part)
		}
		out := make([]float64, len(times))
		for i, t := range times {
			switch {
			case t.IsZero():
				out[i] = math.NaN()
			case part == "year":
				out[i] = float64(t.Year())
			case part == "month":
				out[i] = float64(t.Month())
			default:
				out[i] = float64(t.Day())
			}
		}
		return dyn.FromShape(out, v.Shape()...)
	}
}

func toTimes(v dyn.Value) ([]time.Time, error) {
	switch v.DType() {
	case dyn.DateTime:
		a, err := dyn.As[dyn.Timestamp](v)
		if err != nil {
			return nil, err
		}
		vals := a.Values()
		out := make([]time.Time, len(vals))
		for i, ts := range vals {
			if !ts.IsNaT() {
				out[i] = ts.Time()
			}
		}
		return out, nil
	case dyn.String:
		a, err := dyn.As[string](v)
		if err != nil {
			return nil, err
		}
		vals := a.Values()
		out := make([]time.Time, len(vals))
		for i, s := range vals {
			if s == "" {
				continue
			}
			t, ok := parseDate(s)
			if !ok {
				return nil, errors.Wrapf(dyn.ErrDtypeMismatch, "cannot parse %q as a date", s)
			}
			out[i] = t
		}
		return out, nil
	}
	return nil, errors.Wrapf(dyn.ErrDtypeMismatch, "expected a date, got %s", v.DType())
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// coalesce takes b wherever a is missing. Strings treat "" as missing.
func coalesce(a, b dyn.Value) (dyn.Value, error) {
	if a.Len() != b.Len() && b.Size() != 1 {
		return nil, errors.Wrapf(dyn.ErrShapeMismatch, "coalesce of %d and %d rows", a.Len(), b.Len())
	}
	pick := func(i int) int {
		if b.Size() == 1 {
			return 0
		}
		return i
	}
	if a.DType() == dyn.String {
		x, err := dyn.As[string](a)
		if err != nil {
			return nil, err
		}
		y, err := dyn.CastAs[string](b)
		if err != nil {
			return nil, err
		}
		xs, ys := x.Values(), y.Values()
		for i, s := range xs {
			if s == "" {
				xs[i] = ys[pick(i)]
			}
		}
		return dyn.FromShape(xs, a.Shape()...)
	}
	xs, err := dyn.Float64s(a)
	if err != nil {
		return nil, err
	}
	ys, err := dyn.Float64s(b)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(xs))
	for i, x := range xs {
		if math.IsNaN(x) {
			x = ys[pick(i)]
		}
		out[i] = x
	}
	return dyn.FromShape(out, a.Shape()...)
}
