package parser

import (
	"testing"

	"github.com/razeghi71/tea/ast"
)

func mustParse(t *testing.T, input string) *ast.Query {
	t.Helper()
	q, err := Parse(input)
	if err != nil {
		t.Fatalf("parse %q: %v", input, err)
	}
	return q
}

func TestParseSimple(t *testing.T) {
	q := mustParse(t, "users.csv | head 10")
	if q.Source.Filename != "users.csv" {
		t.Errorf("expected 'users.csv', got %q", q.Source.Filename)
	}
	if len(q.Ops) != 1 {
		t.Fatalf("expected 1 op, got %d", len(q.Ops))
	}
	head, ok := q.Ops[0].(*ast.HeadOp)
	if !ok {
		t.Fatalf("expected HeadOp, got %T", q.Ops[0])
	}
	if head.N != 10 {
		t.Errorf("expected 10, got %d", head.N)
	}
}

func TestParseSourcePaths(t *testing.T) {
	for input, want := range map[string]string{
		"./data/users.csv":         "./data/users.csv",
		"/tmp/run-2024/users.avro": "/tmp/run-2024/users.avro",
		"../users.jsonl":           "../users.jsonl",
		`"my dir/users.csv"`:       "my dir/users.csv",
	} {
		if got := mustParse(t, input).Source.Filename; got != want {
			t.Errorf("%s: expected %q, got %q", input, want, got)
		}
	}
}

func TestParsePipeline(t *testing.T) {
	q := mustParse(t, "users.csv | filter { age > 20 } | select name age | sortd age | sorta name | tail 5 | count")
	want := []string{"*ast.FilterOp", "*ast.SelectOp", "*ast.SortOp", "*ast.SortOp", "*ast.TailOp", "*ast.CountOp"}
	if len(q.Ops) != len(want) {
		t.Fatalf("expected %d ops, got %d", len(want), len(q.Ops))
	}
	if s := q.Ops[2].(*ast.SortOp); !s.Desc || s.Columns[0] != "age" {
		t.Errorf("expected descending sort on age, got %+v", s)
	}
	if s := q.Ops[3].(*ast.SortOp); s.Desc {
		t.Errorf("expected ascending sort, got %+v", s)
	}
}

func TestParseFilterPrecedence(t *testing.T) {
	q := mustParse(t, `users.csv | filter { age + 1 > 20 * 2 and city == "NY" or not active }`)
	or, ok := q.Ops[0].(*ast.FilterOp).Expr.(*ast.BinaryExpr)
	if !ok || or.Op != "or" {
		t.Fatalf("expected top-level or, got %#v", q.Ops[0].(*ast.FilterOp).Expr)
	}
	and := or.Left.(*ast.BinaryExpr)
	if and.Op != "and" {
		t.Errorf("expected and under or, got %q", and.Op)
	}
	gt := and.Left.(*ast.BinaryExpr)
	if gt.Op != ">" {
		t.Fatalf("expected >, got %q", gt.Op)
	}
	if l := gt.Left.(*ast.BinaryExpr); l.Op != "+" {
		t.Errorf("expected + on the left of >, got %q", l.Op)
	}
	if r := gt.Right.(*ast.BinaryExpr); r.Op != "*" {
		t.Errorf("expected * on the right of >, got %q", r.Op)
	}
	if u := or.Right.(*ast.UnaryExpr); u.Op != "not" {
		t.Errorf("expected not, got %q", u.Op)
	}
}

func TestParseLeftAssociative(t *testing.T) {
	e, err := ParseExpr("a - b - c")
	if err != nil {
		t.Fatal(err)
	}
	outer := e.(*ast.BinaryExpr)
	if _, ok := outer.Left.(*ast.BinaryExpr); !ok {
		t.Errorf("expected (a - b) - c, got %#v", outer)
	}
}

func TestParseIsNull(t *testing.T) {
	e, err := ParseExpr("score is not null and name is null")
	if err != nil {
		t.Fatal(err)
	}
	and := e.(*ast.BinaryExpr)
	left := and.Left.(*ast.IsNullExpr)
	right := and.Right.(*ast.IsNullExpr)
	if !left.Negated || right.Negated {
		t.Errorf("expected is not null then is null, got %v and %v", left.Negated, right.Negated)
	}
}

func TestParseGroupReduce(t *testing.T) {
	q := mustParse(t, "users.csv | group city dept | reduce n = count(), total = sum(age)")
	g := q.Ops[0].(*ast.GroupOp)
	if len(g.Columns) != 2 || g.Columns[1] != "dept" {
		t.Errorf("expected [city dept], got %v", g.Columns)
	}
	r := q.Ops[1].(*ast.ReduceOp)
	if len(r.Assignments) != 2 {
		t.Fatalf("expected 2 assignments, got %d", len(r.Assignments))
	}
	count := r.Assignments[0].Expr.(*ast.FuncCallExpr)
	if count.Name != "count" || len(count.Args) != 0 {
		t.Errorf("expected count(), got %+v", count)
	}
}

func TestParseTransformAndRolling(t *testing.T) {
	q := mustParse(t, "users.csv | transform r = RANK(age), `full name` = upper(name) | rolling 3 m = mean(age)")
	tr := q.Ops[0].(*ast.TransformOp)
	if tr.Assignments[0].Expr.(*ast.FuncCallExpr).Name != "rank" {
		t.Error("expected function names to be lower-cased")
	}
	if tr.Assignments[1].Column != "full name" {
		t.Errorf("expected backtick column, got %q", tr.Assignments[1].Column)
	}
	ro := q.Ops[1].(*ast.RollingOp)
	if ro.Window != 3 || ro.MinPeriods != 1 {
		t.Errorf("expected window 3 with default min periods 1, got %+v", ro)
	}
	q = mustParse(t, "users.csv | rolling 3 2 m = mean(age)")
	if ro := q.Ops[0].(*ast.RollingOp); ro.MinPeriods != 2 {
		t.Errorf("expected min periods 2, got %d", ro.MinPeriods)
	}
}

func TestParseRenameRemoveDistinct(t *testing.T) {
	q := mustParse(t, "users.csv | rename name first age years | remove city | distinct | distinct years")
	rn := q.Ops[0].(*ast.RenameOp)
	if len(rn.Pairs) != 2 || rn.Pairs[1] != (ast.RenamePair{Old: "age", New: "years"}) {
		t.Errorf("unexpected pairs %v", rn.Pairs)
	}
	if rm := q.Ops[1].(*ast.RemoveOp); rm.Columns[0] != "city" {
		t.Errorf("unexpected remove %v", rm.Columns)
	}
	if d := q.Ops[2].(*ast.DistinctOp); len(d.Columns) != 0 {
		t.Errorf("expected distinct over all columns, got %v", d.Columns)
	}
	if d := q.Ops[3].(*ast.DistinctOp); d.Columns[0] != "years" {
		t.Errorf("expected distinct on years, got %v", d.Columns)
	}
}

func TestParseLiterals(t *testing.T) {
	e, err := ParseExpr(`if(flag == true, 1.5, null)`)
	if err != nil {
		t.Fatal(err)
	}
	call := e.(*ast.FuncCallExpr)
	if len(call.Args) != 3 {
		t.Fatalf("expected 3 args, got %d", len(call.Args))
	}
	if lit := call.Args[1].(*ast.LiteralExpr); lit.Kind != ast.FloatLit || lit.Float != 1.5 {
		t.Errorf("expected 1.5, got %+v", lit)
	}
	if lit := call.Args[2].(*ast.LiteralExpr); lit.Kind != ast.NullLit {
		t.Errorf("expected null, got %+v", lit)
	}
	e, err = ParseExpr("and(a, or(b, c))")
	if err != nil {
		t.Fatal(err)
	}
	if call := e.(*ast.FuncCallExpr); call.Name != "and" {
		t.Errorf("expected and() call form, got %q", call.Name)
	}
}

func TestParseAssignment(t *testing.T) {
	a, err := ParseAssignment("total = price * qty")
	if err != nil {
		t.Fatal(err)
	}
	if a.Column != "total" {
		t.Errorf("expected total, got %q", a.Column)
	}
	if _, err := ParseAssignment("price * qty"); err == nil {
		t.Error("expected error without a column name")
	}
}

func TestParseErrors(t *testing.T) {
	for _, s := range []string{
		"users.csv | unknown",
		"users.csv | head",
		"users.csv | head ten",
		"users.csv | filter age > 1",
		"users.csv | filter { age > }",
		"users.csv | select",
		"users.csv | rename a",
		"users.csv | transform x",
		"users.csv head 3",
		"| head 3",
	} {
		if _, err := Parse(s); err == nil {
			t.Errorf("expected error for %q", s)
		}
	}
	if _, err := ParseExpr("a b"); err == nil {
		t.Error("expected error for trailing tokens")
	}
}
