package engine

import "github.com/razeghi71/tea/expr"

// Op is a single stage of a pipeline.
type Op interface {
	opNode()
}

// Assignment binds the result of an expression to a column name.
type Assignment struct {
	Column string
	Expr   *expr.Expr
}

// HeadOp keeps the first N rows.
type HeadOp struct {
	N int
}

// TailOp keeps the last N rows.
type TailOp struct {
	N int
}

// SortOp sorts rows by columns. Missing values sort last.
type SortOp struct {
	Columns []string
	Desc    bool
}

// SelectOp projects columns in the given order.
type SelectOp struct {
	Columns []string
}

// FilterOp keeps rows where Mask is true.
type FilterOp struct {
	Mask *expr.Expr
}

// TransformOp creates or overwrites columns. Every assignment sees the table
// as it was before the op.
type TransformOp struct {
	Assignments []Assignment
}

// GroupReduceOp groups rows by Keys and evaluates each assignment once per
// group. The result has one row per group.
type GroupReduceOp struct {
	Keys        []string
	Assignments []Assignment
}

// RollingOp evaluates each assignment over trailing windows of rows.
type RollingOp struct {
	Window      int
	MinPeriods  int
	Assignments []Assignment
}

// CountOp returns a single-row table with the row count.
type CountOp struct{}

// DistinctOp keeps the first row of every distinct combination of Columns,
// or of all columns when none are given.
type DistinctOp struct {
	Columns []string
}

// RenamePair is one old to new column rename.
type RenamePair struct {
	Old string
	New string
}

// RenameOp renames columns.
type RenameOp struct {
	Pairs []RenamePair
}

// RemoveOp drops columns.
type RemoveOp struct {
	Columns []string
}

func (*HeadOp) opNode()        {}
func (*TailOp) opNode()        {}
func (*SortOp) opNode()        {}
func (*SelectOp) opNode()      {}
func (*FilterOp) opNode()      {}
func (*TransformOp) opNode()   {}
func (*GroupReduceOp) opNode() {}
func (*RollingOp) opNode()     {}
func (*CountOp) opNode()       {}
func (*DistinctOp) opNode()    {}
func (*RenameOp) opNode()      {}
func (*RemoveOp) opNode()      {}
