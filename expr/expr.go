// Package expr records computations on arrays as chains of steps and runs
// them on demand, optionally against an evaluation context.
package expr

import (
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/razeghi71/tea/dyn"
)

// StepFunc transforms the current payload. It may return a context that
// replaces ctx for the remaining steps; nil keeps the current one.
type StepFunc func(p Payload, ctx *Context) (Payload, *Context, error)

// Step is one queued transformation. Steps are immutable and may be shared
// between expressions.
type Step struct {
	Name string
	Fn   StepFunc
	// ReadsContext marks steps that evaluate other expressions against the
	// context, so a chain over a literal can still depend on it.
	ReadsContext bool
}

// Expr is a handle to shared expression state. Clone returns another handle
// to the same state; Chain on a shared handle copies first, so appending to
// one handle never changes what another handle evaluates to.
type Expr struct {
	st *state
}

type state struct {
	refs  atomic.Int32
	name  string
	base  Payload
	steps []Step
	// cache holds the result of the last context evaluation, valid for cacheCtx.
	cache    Payload
	cacheCtx *Context
}

// New returns an expression starting from p.
func New(p Payload) *Expr {
	st := &state{base: p}
	st.refs.Store(1)
	return &Expr{st: st}
}

// Lit returns an expression over a concrete array.
func Lit(v dyn.Value) *Expr { return New(Single{Value: v}) }

// Col returns an expression over a named context column.
func Col(name string) *Expr {
	e := New(Select{Selector: ByName(name)})
	e.st.name = name
	return e
}

// ColAt returns an expression over a context column by position.
func ColAt(i int) *Expr { return New(Select{Selector: ByIndex(i)}) }

// Cols returns an expression over several named context columns.
func Cols(names ...string) *Expr { return New(Select{Selector: ByNames(names...)}) }

// All returns an expression over every column of the context.
func All() *Expr { return New(Select{Selector: AllColumns()}) }

// Wrap returns a new expression whose base is e.
func Wrap(e *Expr) *Expr {
	w := New(Nested{Expr: e.Clone()})
	w.st.name = e.Name()
	return w
}

func (e *Expr) state() *state {
	if e.st == nil {
		panic("expr: use of released expression")
	}
	return e.st
}

// Clone returns another handle to the same state.
func (e *Expr) Clone() *Expr {
	st := e.state()
	st.refs.Add(1)
	return &Expr{st: st}
}

// Release drops this handle's reference. The handle must not be used afterwards.
func (e *Expr) Release() {
	e.state().refs.Add(-1)
	e.st = nil
}

// Refs returns the number of handles sharing the state.
func (e *Expr) Refs() int { return int(e.state().refs.Load()) }

// Name returns the output name of the expression, which defaults to the column it selects.
func (e *Expr) Name() string { return e.state().name }

// Alias sets the output name.
func (e *Expr) Alias(name string) *Expr {
	e.unique().st.name = name
	return e
}

// StepCount returns the number of queued steps.
func (e *Expr) StepCount() int { return len(e.state().steps) }

// Base returns the payload the chain starts from.
func (e *Expr) Base() Payload { return e.state().base }

// IsOwned reports whether e can be mutated destructively: no queued steps,
// an exclusively held handle and an owned array as base.
func (e *Expr) IsOwned() bool {
	st := e.state()
	if len(st.steps) > 0 || st.refs.Load() != 1 {
		return false
	}
	s, ok := st.base.(Single)
	return ok && s.Value.IsOwned()
}

// IsContextDependent reports whether the chain ultimately starts from a
// selector or runs a step that reads the context.
func (e *Expr) IsContextDependent() bool {
	st := e.state()
	for _, s := range st.steps {
		if s.ReadsContext {
			return true
		}
	}
	switch b := st.base.(type) {
	case Select:
		return true
	case Nested:
		return b.Expr.IsContextDependent()
	}
	return false
}

// unique is the ownership token for mutating state. Holding one means no
// other handle can observe the mutation.
type unique struct {
	st *state
}

// unique copies the state on write when it is shared: the old state becomes
// the nested base of a fresh one and the reference held by e moves to it.
func (e *Expr) unique() unique {
	st := e.state()
	if st.refs.Load() > 1 {
		fresh := &state{name: st.name, base: Nested{Expr: &Expr{st: st}}}
		fresh.refs.Store(1)
		e.st = fresh
		st = fresh
	}
	return unique{st: st}
}

func (u unique) push(s Step) {
	u.st.steps = append(u.st.steps, s)
	u.st.cache, u.st.cacheCtx = nil, nil
}

// Chain appends a step and returns e.
func (e *Expr) Chain(s Step) *Expr {
	e.unique().push(s)
	return e
}

// Then is Chain for a bare function.
func (e *Expr) Then(name string, fn StepFunc) *Expr {
	return e.Chain(Step{Name: name, Fn: fn})
}

// thenWith is Then for steps evaluating operands against the context.
func (e *Expr) thenWith(name string, fn StepFunc, operands ...*Expr) *Expr {
	reads := false
	for _, o := range operands {
		reads = reads || o.IsContextDependent()
	}
	return e.Chain(Step{Name: name, Fn: fn, ReadsContext: reads})
}

// Simplify splices nested expressions that nothing else references into e,
// so long chains of single-use expressions do not nest indefinitely. The
// value of e is unchanged.
func (e *Expr) Simplify() {
	st := e.state()
	for {
		n, ok := st.base.(Nested)
		if !ok || n.Expr.st == nil || n.Expr.st.refs.Load() != 1 {
			return
		}
		inner := n.Expr.st
		st.base = inner.base
		st.steps = slices.Concat(inner.steps, st.steps)
		if st.name == "" {
			st.name = inner.name
		}
	}
}

// Flatten returns the canonical base and the full list of steps from that
// base, looking through every nested expression. Nothing is modified.
func (e *Expr) Flatten() (Payload, []Step) {
	st := e.state()
	if n, ok := st.base.(Nested); ok {
		base, inner := n.Expr.Flatten()
		return base, slices.Concat(inner, st.steps)
	}
	return st.base, slices.Clone(st.steps)
}

func (e *Expr) String() string {
	base, steps := e.Flatten()
	s := base.kind()
	if sel, ok := base.(Select); ok {
		s = "col(" + sel.Selector.String() + ")"
	}
	for _, step := range steps {
		s += "." + step.Name + "()"
	}
	if n := e.Name(); n != "" {
		s = fmt.Sprintf("%s as %q", s, n)
	}
	return s
}
