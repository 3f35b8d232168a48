package expr

import (
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/razeghi71/tea/dyn"
	"github.com/razeghi71/tea/linalg"
)

// Payload is what an expression currently holds. The set of payloads is closed.
type Payload interface {
	kind() string
}

// Nested is another expression used as the starting point.
type Nested struct{ Expr *Expr }

// Single is one array.
type Single struct{ Value dyn.Value }

// Vec is an ordered list of arrays, e.g. the result of a multi-column selector.
type Vec struct{ Values []dyn.Value }

// Shared is an array held through a reference count.
type Shared struct{ Ref *SharedValue }

// Select is a column selector resolved against the evaluation context.
type Select struct{ Selector Selector }

// Regression is the bundle produced by a least-squares step.
type Regression struct{ Result *linalg.Result }

func (Nested) kind() string     { return "nested" }
func (Single) kind() string     { return "single" }
func (Vec) kind() string        { return "vec" }
func (Shared) kind() string     { return "shared" }
func (Select) kind() string     { return "select" }
func (Regression) kind() string { return "regression" }

// SharedValue is a reference-counted array. Holders only ever get views.
type SharedValue struct {
	v    dyn.Value
	refs atomic.Int32
}

// Share wraps v with a reference count of one.
func Share(v dyn.Value) *SharedValue {
	s := &SharedValue{v: v}
	s.refs.Store(1)
	return s
}

// Acquire adds a reference.
func (s *SharedValue) Acquire() *SharedValue {
	s.refs.Add(1)
	return s
}

// Release drops a reference.
func (s *SharedValue) Release() {
	s.refs.Add(-1)
}

// Refs returns the current reference count.
func (s *SharedValue) Refs() int { return int(s.refs.Load()) }

// Value returns a read-only view of the shared array.
func (s *SharedValue) Value() dyn.Value { return s.v.View() }

// valueOf reduces a payload to a single array, resolving selectors and nested
// expressions against ctx.
func valueOf(p Payload, ctx *Context) (dyn.Value, error) {
	switch b := p.(type) {
	case Single:
		return b.Value, nil
	case Shared:
		return b.Ref.Value(), nil
	case Nested:
		return b.Expr.Value(ctx)
	case Select:
		return ctx.Value(b.Selector)
	case Vec:
		if len(b.Values) == 1 {
			return b.Values[0], nil
		}
		return nil, errors.Wrapf(dyn.ErrShapeMismatch, "expected a single array, payload holds %d", len(b.Values))
	case Regression:
		return nil, errors.Wrap(dyn.ErrDtypeMismatch, "regression result is not an array")
	}
	return nil, errors.Errorf("unknown payload %T", p)
}

// valuesOf reduces a payload to a list of arrays.
func valuesOf(p Payload, ctx *Context) ([]dyn.Value, error) {
	switch b := p.(type) {
	case Vec:
		return b.Values, nil
	case Select:
		r, err := ctx.Get(b.Selector)
		if err != nil {
			return nil, err
		}
		return r.List(), nil
	case Nested:
		return b.Expr.Values(ctx)
	}
	v, err := valueOf(p, ctx)
	if err != nil {
		return nil, err
	}
	return []dyn.Value{v}, nil
}
