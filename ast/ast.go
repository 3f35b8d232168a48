// Package ast holds the syntax tree of a tea query: a source file followed by
// a pipe of operations whose arguments are expressions.
package ast

// Expr is an expression node used by filter, transform, reduce and rolling.
type Expr interface {
	exprNode()
}

// LiteralKind tells which field of a LiteralExpr is set.
type LiteralKind uint8

const (
	IntLit LiteralKind = iota
	FloatLit
	StringLit
	BoolLit
	NullLit
)

// LiteralExpr is a constant: number, string, bool or null.
type LiteralExpr struct {
	Kind  LiteralKind
	Int   int64
	Float float64
	Str   string
	Bool  bool
}

func (e *LiteralExpr) exprNode() {}

// ColumnExpr references a column by name.
type ColumnExpr struct {
	Name string
}

func (e *ColumnExpr) exprNode() {}

// BinaryExpr is an infix operation. Op is one of + - * / == != < > <= >= and or.
type BinaryExpr struct {
	Op    string
	Left  Expr
	Right Expr
}

func (e *BinaryExpr) exprNode() {}

// UnaryExpr is a prefix operation, "not" or "-".
type UnaryExpr struct {
	Op      string
	Operand Expr
}

func (e *UnaryExpr) exprNode() {}

// FuncCallExpr is name(args...). Name is lower case.
type FuncCallExpr struct {
	Name string
	Args []Expr
}

func (e *FuncCallExpr) exprNode() {}

// IsNullExpr is "x is null" or, when Negated, "x is not null".
type IsNullExpr struct {
	Operand Expr
	Negated bool
}

func (e *IsNullExpr) exprNode() {}

// Assignment is "column = expr".
type Assignment struct {
	Column string
	Expr   Expr
}

// Op is one stage of the pipeline.
type Op interface {
	opNode()
}

// SourceOp names the input file.
type SourceOp struct {
	Filename string
}

func (o *SourceOp) opNode() {}

type HeadOp struct {
	N int
}

func (o *HeadOp) opNode() {}

type TailOp struct {
	N int
}

func (o *TailOp) opNode() {}

// SortOp comes from sorta (ascending) or sortd (Desc).
type SortOp struct {
	Columns []string
	Desc    bool
}

func (o *SortOp) opNode() {}

type SelectOp struct {
	Columns []string
}

func (o *SelectOp) opNode() {}

type FilterOp struct {
	Expr Expr
}

func (o *FilterOp) opNode() {}

// GroupOp sets the keys for the reduce that follows it. On its own it keeps
// one row per distinct key.
type GroupOp struct {
	Columns []string
}

func (o *GroupOp) opNode() {}

type TransformOp struct {
	Assignments []Assignment
}

func (o *TransformOp) opNode() {}

// ReduceOp aggregates every group of the preceding group op.
type ReduceOp struct {
	Assignments []Assignment
}

func (o *ReduceOp) opNode() {}

// RollingOp evaluates assignments over trailing windows of Window rows. A
// window with fewer than MinPeriods rows yields a missing value.
type RollingOp struct {
	Window      int
	MinPeriods  int
	Assignments []Assignment
}

func (o *RollingOp) opNode() {}

type CountOp struct{}

func (o *CountOp) opNode() {}

// DistinctOp deduplicates on Columns, or on every column when empty.
type DistinctOp struct {
	Columns []string
}

func (o *DistinctOp) opNode() {}

type RenamePair struct {
	Old string
	New string
}

type RenameOp struct {
	Pairs []RenamePair
}

func (o *RenameOp) opNode() {}

type RemoveOp struct {
	Columns []string
}

func (o *RemoveOp) opNode() {}

// Query is a parsed query: the source and its pipeline.
type Query struct {
	Source *SourceOp
	Ops    []Op
}
