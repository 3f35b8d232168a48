package expr

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/razeghi71/tea/dyn"
)

// ErrOutOfContext is returned when a selector cannot be resolved, either
// because the column is absent or because no context was supplied.
var ErrOutOfContext = errors.New("out of context")

type selectorKind uint8

const (
	selName selectorKind = iota
	selIndex
	selList
	selAll
)

// Selector names one or more context columns.
type Selector struct {
	kind  selectorKind
	name  string
	index int
	list  []Selector
}

// ByName selects a column by name.
func ByName(name string) Selector { return Selector{kind: selName, name: name} }

// ByIndex selects a column by position. Negative positions count from the end.
func ByIndex(i int) Selector { return Selector{kind: selIndex, index: i} }

// ByList selects several columns.
func ByList(sels ...Selector) Selector { return Selector{kind: selList, list: sels} }

// ByNames selects several columns by name.
func ByNames(names ...string) Selector {
	sels := make([]Selector, len(names))
	for i, n := range names {
		sels[i] = ByName(n)
	}
	return ByList(sels...)
}

// AllColumns selects every column of the context.
func AllColumns() Selector { return Selector{kind: selAll} }

// IsList reports whether the selector resolves to several columns.
func (s Selector) IsList() bool { return s.kind == selList || s.kind == selAll }

func (s Selector) String() string {
	switch s.kind {
	case selName:
		return s.name
	case selIndex:
		return "#" + strconv.Itoa(s.index)
	case selAll:
		return "*"
	}
	parts := make([]string, len(s.list))
	for i, sub := range s.list {
		parts[i] = sub.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Resolved is the result of a context lookup: one array or a list.
type Resolved struct {
	single dyn.Value
	list   []dyn.Value
	isList bool
}

// IsList reports whether the lookup produced a list.
func (r Resolved) IsList() bool { return r.isList }

// Single returns the resolved array, failing for list results.
func (r Resolved) Single() (dyn.Value, error) {
	if r.isList {
		return nil, errors.Wrapf(dyn.ErrShapeMismatch, "selector resolved to %d columns", len(r.list))
	}
	return r.single, nil
}

// List returns the resolved arrays; a single result becomes a list of one.
func (r Resolved) List() []dyn.Value {
	if r.isList {
		return r.list
	}
	return []dyn.Value{r.single}
}

// Context resolves selectors to arrays during evaluation. It is never
// modified after construction, so it can be shared between concurrent
// readers without locking.
type Context struct {
	names []string
	index map[string]int
	vals  []dyn.Value
	exprs []*Expr
}

// NewContext builds a context over named arrays.
func NewContext(names []string, vals []dyn.Value) (*Context, error) {
	if len(names) != len(vals) {
		return nil, errors.Errorf("context: %d names for %d columns", len(names), len(vals))
	}
	c, err := newContext(names)
	if err != nil {
		return nil, err
	}
	c.vals = append([]dyn.Value(nil), vals...)
	c.exprs = make([]*Expr, len(vals))
	return c, nil
}

// NewExprContext builds a context whose columns are expressions. An entry is
// evaluated against the context itself each time it is looked up.
func NewExprContext(names []string, exprs []*Expr) (*Context, error) {
	if len(names) != len(exprs) {
		return nil, errors.Errorf("context: %d names for %d columns", len(names), len(exprs))
	}
	c, err := newContext(names)
	if err != nil {
		return nil, err
	}
	c.vals = make([]dyn.Value, len(exprs))
	c.exprs = append([]*Expr(nil), exprs...)
	return c, nil
}

func newContext(names []string) (*Context, error) {
	c := &Context{names: append([]string(nil), names...), index: make(map[string]int, len(names))}
	for i, n := range names {
		if _, dup := c.index[n]; dup {
			return nil, errors.Errorf("context: duplicate column %q", n)
		}
		c.index[n] = i
	}
	return c, nil
}

// Len returns the number of columns.
func (c *Context) Len() int {
	if c == nil {
		return 0
	}
	return len(c.names)
}

// Names returns the column names in order.
func (c *Context) Names() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.names...)
}

// Index returns the position of a named column.
func (c *Context) Index(name string) (int, bool) {
	if c == nil {
		return 0, false
	}
	i, ok := c.index[name]
	return i, ok
}

// Get resolves a selector.
func (c *Context) Get(sel Selector) (Resolved, error) {
	if c == nil {
		return Resolved{}, errors.Wrapf(ErrOutOfContext, "column %s requested without a context", sel)
	}
	switch sel.kind {
	case selList:
		out := make([]dyn.Value, len(sel.list))
		for i, sub := range sel.list {
			v, err := c.Value(sub)
			if err != nil {
				return Resolved{}, err
			}
			out[i] = v
		}
		return Resolved{list: out, isList: true}, nil
	case selAll:
		out := make([]dyn.Value, len(c.names))
		for i := range c.names {
			v, err := c.at(i)
			if err != nil {
				return Resolved{}, err
			}
			out[i] = v
		}
		return Resolved{list: out, isList: true}, nil
	}
	i, err := c.position(sel)
	if err != nil {
		return Resolved{}, err
	}
	v, err := c.at(i)
	if err != nil {
		return Resolved{}, err
	}
	return Resolved{single: v}, nil
}

// Value resolves a selector that must name exactly one column.
func (c *Context) Value(sel Selector) (dyn.Value, error) {
	r, err := c.Get(sel)
	if err != nil {
		return nil, err
	}
	return r.Single()
}

func (c *Context) position(sel Selector) (int, error) {
	switch sel.kind {
	case selName:
		i, ok := c.index[sel.name]
		if !ok {
			return 0, errors.Wrapf(ErrOutOfContext, "column %q not found", sel.name)
		}
		return i, nil
	case selIndex:
		i := sel.index
		if i < 0 {
			i += len(c.names)
		}
		if i < 0 || i >= len(c.names) {
			return 0, errors.Wrapf(ErrOutOfContext, "column %d not found in %d columns", sel.index, len(c.names))
		}
		return i, nil
	}
	return 0, errors.Wrapf(ErrOutOfContext, "selector %s is not a single column", sel)
}

func (c *Context) at(i int) (dyn.Value, error) {
	if e := c.exprs[i]; e != nil {
		v, err := e.Replay(c)
		if err != nil {
			return nil, errors.Wrapf(err, "column %q", c.names[i])
		}
		return v, nil
	}
	return c.vals[i], nil
}

// Height returns the row count of the first column, or 0 for an empty context.
func (c *Context) Height() (int, error) {
	if c.Len() == 0 {
		return 0, nil
	}
	v, err := c.at(0)
	if err != nil {
		return 0, err
	}
	return v.Len(), nil
}

// SliceRows returns a child context holding views of rows [start, stop) of
// every column. Child contexts are only meant to live for the evaluation
// call that builds them.
func (c *Context) SliceRows(start, stop int) (*Context, error) {
	return c.derive(func(v dyn.Value) (dyn.Value, error) { return v.Slice(start, stop) })
}

// TakeRows returns a child context holding the given rows of every column.
func (c *Context) TakeRows(rows []int) (*Context, error) {
	return c.derive(func(v dyn.Value) (dyn.Value, error) { return v.Take(rows) })
}

func (c *Context) derive(f func(dyn.Value) (dyn.Value, error)) (*Context, error) {
	if c == nil {
		return nil, errors.Wrap(ErrOutOfContext, "child of missing context")
	}
	vals := make([]dyn.Value, len(c.names))
	for i := range c.names {
		v, err := c.at(i)
		if err != nil {
			return nil, err
		}
		if vals[i], err = f(v); err != nil {
			return nil, errors.Wrapf(err, "column %q", c.names[i])
		}
	}
	return &Context{names: c.names, index: c.index, vals: vals, exprs: make([]*Expr, len(vals))}, nil
}
