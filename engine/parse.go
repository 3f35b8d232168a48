package engine

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/razeghi71/tea/expr"
	"github.com/razeghi71/tea/parser"
)

// exprArity lists functions taking more than one expression argument; every
// other function takes one expression followed by literal parameters.
var exprArity = map[string]int{
	"coalesce": 2, "add": 2, "sub": 2, "mul": 2, "div": 2, "corr": 2,
	"gt": 2, "ge": 2, "lt": 2, "le": 2, "eq": 2, "ne": 2,
	"and": 2, "or": 2, "if": 3,
}

// ParseExpr parses and compiles an expression such as "price * qty",
// rank(age) or rolling_mean(price, 3, 1).
func ParseExpr(s string) (*expr.Expr, error) {
	if strings.TrimSpace(s) == "" {
		return nil, errors.New("empty expression")
	}
	tree, err := parser.ParseExpr(s)
	if err != nil {
		return nil, err
	}
	return CompileExpr(tree)
}

// ParseFilter parses a condition such as "age > 30 and lower(city) == 'ny'".
func ParseFilter(s string) (*expr.Expr, error) {
	tree, err := parser.ParseExpr(s)
	if err != nil {
		return nil, err
	}
	return compileCondition(tree)
}

// ParseAssignment parses "column = expression".
func ParseAssignment(s string) (Assignment, error) {
	a, err := parser.ParseAssignment(s)
	if err != nil {
		return Assignment{}, errors.Wrapf(err, "assignment %q must look like name = expression", s)
	}
	e, err := CompileExpr(a.Expr)
	if err != nil {
		return Assignment{}, errors.Wrapf(err, "assignment %q", a.Column)
	}
	return Assignment{Column: a.Column, Expr: e}, nil
}

// ParseQuery parses a full "file | op | op" query and returns the source
// filename with the compiled pipeline.
func ParseQuery(s string) (string, []Op, error) {
	q, err := parser.Parse(s)
	if err != nil {
		return "", nil, err
	}
	ops, err := Compile(q.Ops)
	if err != nil {
		return "", nil, err
	}
	return q.Source.Filename, ops, nil
}
