package engine

import (
	"math"
	"strconv"

	"github.com/pkg/errors"

	"github.com/razeghi71/tea/ast"
	"github.com/razeghi71/tea/dyn"
	"github.com/razeghi71/tea/expr"
)

// Compile turns a parsed pipeline into engine ops. A group op is merged with
// the reduce that follows it; a group with no reduce keeps the distinct keys.
func Compile(ops []ast.Op) ([]Op, error) {
	var out []Op
	for i := 0; i < len(ops); i++ {
		switch o := ops[i].(type) {
		case *ast.HeadOp:
			out = append(out, &HeadOp{N: o.N})
		case *ast.TailOp:
			out = append(out, &TailOp{N: o.N})
		case *ast.SortOp:
			out = append(out, &SortOp{Columns: o.Columns, Desc: o.Desc})
		case *ast.SelectOp:
			out = append(out, &SelectOp{Columns: o.Columns})
		case *ast.FilterOp:
			mask, err := compileCondition(o.Expr)
			if err != nil {
				return nil, errors.Wrap(err, "filter")
			}
			out = append(out, &FilterOp{Mask: mask})
		case *ast.TransformOp:
			as, err := compileAssignments(o.Assignments)
			if err != nil {
				return nil, errors.Wrap(err, "transform")
			}
			out = append(out, &TransformOp{Assignments: as})
		case *ast.GroupOp:
			op := &GroupReduceOp{Keys: o.Columns}
			if i+1 < len(ops) {
				if r, ok := ops[i+1].(*ast.ReduceOp); ok {
					as, err := compileAssignments(r.Assignments)
					if err != nil {
						return nil, errors.Wrap(err, "reduce")
					}
					op.Assignments = as
					i++
				}
			}
			out = append(out, op)
		case *ast.ReduceOp:
			return nil, errors.New("reduce must directly follow a group")
		case *ast.RollingOp:
			as, err := compileAssignments(o.Assignments)
			if err != nil {
				return nil, errors.Wrap(err, "rolling")
			}
			out = append(out, &RollingOp{Window: o.Window, MinPeriods: o.MinPeriods, Assignments: as})
		case *ast.CountOp:
			out = append(out, &CountOp{})
		case *ast.DistinctOp:
			out = append(out, &DistinctOp{Columns: o.Columns})
		case *ast.RenameOp:
			pairs := make([]RenamePair, len(o.Pairs))
			for j, p := range o.Pairs {
				pairs[j] = RenamePair{Old: p.Old, New: p.New}
			}
			out = append(out, &RenameOp{Pairs: pairs})
		case *ast.RemoveOp:
			out = append(out, &RemoveOp{Columns: o.Columns})
		default:
			return nil, errors.Errorf("unsupported operation %T", o)
		}
	}
	return out, nil
}

func compileAssignments(as []ast.Assignment) ([]Assignment, error) {
	out := make([]Assignment, len(as))
	for i, a := range as {
		e, err := CompileExpr(a.Expr)
		if err != nil {
			return nil, errors.Wrapf(err, "assignment %q", a.Column)
		}
		out[i] = Assignment{Column: a.Column, Expr: e}
	}
	return out, nil
}

// compileCondition rejects expressions that can never yield a boolean mask.
func compileCondition(e ast.Expr) (*expr.Expr, error) {
	switch n := e.(type) {
	case *ast.ColumnExpr:
		return nil, errors.Errorf("column %q is not a condition", n.Name)
	case *ast.LiteralExpr:
		if n.Kind != ast.BoolLit {
			return nil, errors.New("literal is not a condition")
		}
	case *ast.BinaryExpr:
		switch n.Op {
		case "+", "-", "*", "/":
			return nil, errors.Errorf("arithmetic %q is not a condition", n.Op)
		}
	case *ast.UnaryExpr:
		if n.Op == "-" {
			return nil, errors.New("negation is not a condition")
		}
	}
	return CompileExpr(e)
}

// CompileExpr builds the expression for a syntax tree.
func CompileExpr(e ast.Expr) (*expr.Expr, error) {
	switch n := e.(type) {
	case *ast.LiteralExpr:
		return expr.Lit(literal(n)), nil
	case *ast.ColumnExpr:
		return expr.Col(n.Name), nil
	case *ast.BinaryExpr:
		l, err := CompileExpr(n.Left)
		if err != nil {
			return nil, err
		}
		r, err := CompileExpr(n.Right)
		if err != nil {
			return nil, err
		}
		return binary(n.Op, l, r)
	case *ast.UnaryExpr:
		x, err := CompileExpr(n.Operand)
		if err != nil {
			return nil, err
		}
		if n.Op == "not" {
			return x.Map("not", not), nil
		}
		return expr.Lit(dyn.Scalar(int64(0))).Sub(x), nil
	case *ast.IsNullExpr:
		x, err := CompileExpr(n.Operand)
		if err != nil {
			return nil, err
		}
		return x.Map("is_null", isMissing(n.Negated)), nil
	case *ast.FuncCallExpr:
		return compileCall(n)
	}
	return nil, errors.Errorf("unsupported expression %T", e)
}

func literal(n *ast.LiteralExpr) dyn.Value {
	switch n.Kind {
	case ast.IntLit:
		return dyn.Scalar(n.Int)
	case ast.FloatLit:
		return dyn.Scalar(n.Float)
	case ast.StringLit:
		return dyn.Scalar(n.Str)
	case ast.BoolLit:
		return dyn.Scalar(n.Bool)
	}
	return dyn.Scalar(math.NaN())
}

func binary(op string, l, r *expr.Expr) (*expr.Expr, error) {
	name, ok := map[string]string{
		"+": "add", "-": "sub", "*": "mul", "/": "div",
		">": "gt", ">=": "ge", "<": "lt", "<=": "le", "==": "eq", "!=": "ne",
		"and": "and", "or": "or",
	}[op]
	if !ok {
		return nil, errors.Errorf("unknown operator %q", op)
	}
	return Call(name, []*expr.Expr{l, r}, nil)
}

// compileCall splits the arguments into expressions and literal parameters:
// the first exprArity(name) arguments are expressions, the rest parameters.
func compileCall(n *ast.FuncCallExpr) (*expr.Expr, error) {
	if n.Name == "count" && len(n.Args) == 0 {
		return expr.ColAt(0).Map("row_count", func(v dyn.Value) (dyn.Value, error) {
			return dyn.Scalar(int64(v.Len())), nil
		}), nil
	}
	nexprs := 1
	if a, ok := exprArity[n.Name]; ok {
		nexprs = a
	}
	nexprs = min(nexprs, len(n.Args))
	args := make([]*expr.Expr, nexprs)
	for i := range args {
		var err error
		if args[i], err = CompileExpr(n.Args[i]); err != nil {
			return nil, errors.Wrapf(err, "%s()", n.Name)
		}
	}
	params := make([]string, 0, len(n.Args)-nexprs)
	for i, a := range n.Args[nexprs:] {
		p, ok := param(a)
		if !ok {
			return nil, errors.Errorf("%s(): argument %d must be a literal", n.Name, nexprs+i+1)
		}
		params = append(params, p)
	}
	return Call(n.Name, args, params)
}

// param renders a literal argument, or a bare word such as a dtype name.
func param(e ast.Expr) (string, bool) {
	switch n := e.(type) {
	case *ast.ColumnExpr:
		return n.Name, true
	case *ast.UnaryExpr:
		if p, ok := param(n.Operand); ok && n.Op == "-" {
			return "-" + p, true
		}
	case *ast.LiteralExpr:
		switch n.Kind {
		case ast.IntLit:
			return strconv.FormatInt(n.Int, 10), true
		case ast.FloatLit:
			return strconv.FormatFloat(n.Float, 'g', -1, 64), true
		case ast.StringLit:
			return n.Str, true
		case ast.BoolLit:
			return strconv.FormatBool(n.Bool), true
		}
	}
	return "", false
}

func not(v dyn.Value) (dyn.Value, error) {
	a, err := dyn.As[bool](v)
	if err != nil {
		return nil, errors.Wrap(err, "not")
	}
	vals := a.Values()
	for i, b := range vals {
		vals[i] = !b
	}
	return dyn.FromShape(vals, v.Shape()...)
}

func isMissing(negated bool) func(dyn.Value) (dyn.Value, error) {
	return func(v dyn.Value) (dyn.Value, error) {
		out := make([]bool, v.Size())
		switch dt := v.DType(); {
		case dt == dyn.String:
			a, err := dyn.As[string](v)
			if err != nil {
				return nil, err
			}
			for i, s := range a.Values() {
				out[i] = s == ""
			}
		case dt.IsFloat() || dt.IsTemporal():
			xs, err := dyn.Float64s(v)
			if err != nil {
				return nil, err
			}
			for i, x := range xs {
				out[i] = math.IsNaN(x)
			}
		}
		if negated {
			for i := range out {
				out[i] = !out[i]
			}
		}
		return dyn.FromShape(out, v.Shape()...)
	}
}
