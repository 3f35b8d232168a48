package arr

import (
	"github.com/pkg/errors"
)

// Mode is the ownership mode of a Storage.
type Mode uint8

const (
	// View borrows elements read-only.
	View Mode = iota
	// ViewMut borrows elements with write access.
	ViewMut
	// Owned holds its elements exclusively.
	Owned
	// ViewOnBase is a view bundled with the owned buffer it was derived from.
	ViewOnBase
)

func (m Mode) String() string {
	switch m {
	case View:
		return "view"
	case ViewMut:
		return "view_mut"
	case Owned:
		return "owned"
	case ViewOnBase:
		return "view_on_base"
	default:
		return "?"
	}
}

// Storage is an ownership-tagged strided array of T.
//
// For View, ViewMut and Owned the elements live in data. For ViewOnBase the
// owned buffer sits in an arena slot and the storage only carries the handle
// plus the layout of the view over it.
type Storage[T any] struct {
	mode   Mode
	data   []T
	base   *pin
	layout Layout
}

// FromVec takes ownership of data as a 1-d array.
func FromVec[T any](data []T) Storage[T] {
	return Storage[T]{mode: Owned, data: data, layout: RowMajor(len(data))}
}

// NewOwned takes ownership of data laid out row-major in shape.
func NewOwned[T any](data []T, shape ...int) (Storage[T], error) {
	if len(shape) == 0 {
		return FromVec(data), nil
	}
	l := RowMajor(shape...)
	if l.Size() != len(data) {
		return Storage[T]{}, errors.Wrapf(ErrShapeMismatch, "%d elements for shape %v", len(data), shape)
	}
	return Storage[T]{mode: Owned, data: data, layout: l}, nil
}

// Borrow returns a read-only 1-d view over data.
func Borrow[T any](data []T) Storage[T] {
	return Storage[T]{mode: View, data: data, layout: RowMajor(len(data))}
}

// BorrowMut returns a writable 1-d view over data.
func BorrowMut[T any](data []T) Storage[T] {
	return Storage[T]{mode: ViewMut, data: data, layout: RowMajor(len(data))}
}

// Scalar returns an owned 0-d array holding v.
func Scalar[T any](v T) Storage[T] {
	return Storage[T]{mode: Owned, data: []T{v}, layout: RowMajor()}
}

// Mode reports the ownership mode.
func (s Storage[T]) Mode() Mode { return s.mode }

// IsOwned reports whether the storage exclusively owns its elements.
func (s Storage[T]) IsOwned() bool { return s.mode == Owned }

// Shape returns a copy of the shape.
func (s Storage[T]) Shape() []int { return append([]int(nil), s.layout.Shape...) }

// Strides returns a copy of the strides.
func (s Storage[T]) Strides() []int { return append([]int(nil), s.layout.Strides...) }

// Ndim returns the number of axes.
func (s Storage[T]) Ndim() int { return s.layout.Ndim() }

// Size returns the total number of elements.
func (s Storage[T]) Size() int { return s.layout.Size() }

// Len returns the length of the first axis, or 1 for a 0-d array.
func (s Storage[T]) Len() int {
	if len(s.layout.Shape) == 0 {
		return 1
	}
	return s.layout.Shape[0]
}

// LenOf returns the length of the given axis.
func (s Storage[T]) LenOf(axis int) (int, error) {
	if axis < 0 || axis >= len(s.layout.Shape) {
		return 0, errors.Wrapf(ErrShapeMismatch, "axis %d for %d-d array", axis, len(s.layout.Shape))
	}
	return s.layout.Shape[axis], nil
}

// IsContiguous reports whether the elements are row-major without gaps.
func (s Storage[T]) IsContiguous() bool { return s.layout.IsContiguous() }

func (s Storage[T]) buf() []T {
	if s.mode == ViewOnBase {
		return s.base.resolve().([]T)
	}
	return s.data
}

// At returns the element at idx.
func (s Storage[T]) At(idx ...int) T {
	return s.buf()[s.layout.flat(idx)]
}

// Set writes the element at idx. Only Owned and ViewMut storages are writable.
func (s Storage[T]) Set(v T, idx ...int) {
	if s.mode != Owned && s.mode != ViewMut {
		panic(errors.Wrapf(ErrNotWritable, "set on %s storage", s.mode))
	}
	s.data[s.layout.flat(idx)] = v
}

// View returns a read-only view sharing the elements.
func (s Storage[T]) View() Storage[T] {
	return Storage[T]{mode: View, data: s.buf(), layout: s.layout.clone()}
}

// ViewMut returns a writable view sharing the elements.
func (s Storage[T]) ViewMut() (Storage[T], error) {
	if s.mode != Owned && s.mode != ViewMut {
		return Storage[T]{}, errors.Wrapf(ErrNotWritable, "mutable view of %s storage", s.mode)
	}
	return Storage[T]{mode: ViewMut, data: s.data, layout: s.layout.clone()}, nil
}

// Slice returns a view of rows [start, stop) along the first axis.
func (s Storage[T]) Slice(start, stop int) (Storage[T], error) {
	return s.SliceAxis(0, start, stop, 1)
}

// SliceAxis returns a view of every step-th index in [start, stop) along axis.
// The result never copies: writes to the source stay visible through it.
func (s Storage[T]) SliceAxis(axis, start, stop, step int) (Storage[T], error) {
	l, err := s.layout.sliceAxis(axis, start, stop, step)
	if err != nil {
		return Storage[T]{}, err
	}
	mode := View
	if s.mode == ViewMut {
		mode = ViewMut
	}
	return Storage[T]{mode: mode, data: s.buf(), layout: l}, nil
}

// Values copies the elements out in row-major order.
func (s Storage[T]) Values() []T {
	out := make([]T, 0, s.Size())
	b := s.buf()
	s.layout.each(func(pos int) { out = append(out, b[pos]) })
	return out
}

// Contiguous returns the elements without copying when they are laid out row-major.
func (s Storage[T]) Contiguous() ([]T, bool) {
	if !s.layout.IsContiguous() {
		return nil, false
	}
	n := s.Size()
	return s.buf()[s.layout.Offset : s.layout.Offset+n : s.layout.Offset+n], true
}

// IntoOwned returns an owned storage, copying only when s is not already Owned.
func (s Storage[T]) IntoOwned() Storage[T] {
	if s.mode == Owned {
		return s
	}
	return Storage[T]{mode: Owned, data: s.Values(), layout: RowMajor(s.layout.Shape...)}
}

// Transpose reverses the axes. An owned buffer is moved into the arena and the
// result is a ViewOnBase over it.
func (s Storage[T]) Transpose() Storage[T] {
	return s.derive(s.layout.transpose())
}

// Reshape returns the same elements under a new shape. One dimension may be -1.
// Non-contiguous storages are copied first.
func (s Storage[T]) Reshape(shape ...int) (Storage[T], error) {
	dims, err := resolveShape(s.Size(), shape)
	if err != nil {
		return Storage[T]{}, err
	}
	if !s.layout.IsContiguous() {
		s = s.IntoOwned()
	}
	l := RowMajor(dims...)
	l.Offset = s.layout.Offset
	return s.derive(l), nil
}

func (s Storage[T]) derive(l Layout) Storage[T] {
	switch s.mode {
	case Owned:
		return Storage[T]{mode: ViewOnBase, base: newPin(Default, s.data), layout: l}
	case ViewOnBase:
		return Storage[T]{mode: ViewOnBase, base: s.base, layout: l}
	default:
		return Storage[T]{mode: s.mode, data: s.data, layout: l}
	}
}

// Release frees the arena slot of a ViewOnBase storage. Other copies of the
// same bundle become invalid. It is a no-op for the other modes.
func (s Storage[T]) Release() {
	if s.mode == ViewOnBase && s.base != nil {
		s.base.arena.Release(s.base.handle)
	}
}

// Concat joins storages along the first axis into a new owned buffer.
func Concat[T any](parts ...Storage[T]) (Storage[T], error) {
	if len(parts) == 0 {
		return FromVec[T](nil), nil
	}
	first := parts[0]
	if first.Ndim() == 0 {
		return Storage[T]{}, errors.Wrap(ErrShapeMismatch, "cannot concatenate 0-d arrays")
	}
	rows := 0
	for i, p := range parts {
		if !sameTail(first.layout.Shape, p.layout.Shape) {
			return Storage[T]{}, errors.Wrapf(ErrShapeMismatch, "part %d has shape %v, want %v on trailing axes", i, p.layout.Shape, first.layout.Shape)
		}
		rows += p.layout.Shape[0]
	}
	out := make([]T, 0, rows*first.Size()/max(first.Len(), 1))
	for _, p := range parts {
		out = append(out, p.Values()...)
	}
	shape := first.Shape()
	shape[0] = rows
	return NewOwned(out, shape...)
}

// Stack joins equally shaped storages along a new first axis.
func Stack[T any](parts ...Storage[T]) (Storage[T], error) {
	if len(parts) == 0 {
		return FromVec[T](nil), nil
	}
	inner := parts[0].layout.Shape
	out := make([]T, 0, len(parts)*parts[0].Size())
	for i, p := range parts {
		if !equalShape(inner, p.layout.Shape) {
			return Storage[T]{}, errors.Wrapf(ErrShapeMismatch, "part %d has shape %v, want %v", i, p.layout.Shape, inner)
		}
		out = append(out, p.Values()...)
	}
	return NewOwned(out, append([]int{len(parts)}, inner...)...)
}

func sameTail(a, b []int) bool {
	return len(a) == len(b) && len(a) > 0 && equalShape(a[1:], b[1:])
}

func equalShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
