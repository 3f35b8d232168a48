package dyn

import (
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/razeghi71/tea/arr"
)

// Value is a dynamically typed array. The set of implementations is closed:
// *Array[T] for every Elem and *Deferred.
type Value interface {
	DType() DType
	Shape() []int
	Ndim() int
	// Len is the length of the first axis.
	Len() int
	Size() int
	IsOwned() bool
	// View returns a read-only value sharing the elements.
	View() Value
	// Slice returns a view of rows [start, stop) along the first axis.
	Slice(start, stop int) (Value, error)
	// Take gathers rows by index into a new owned value.
	Take(indices []int) (Value, error)
	IntoOwned() Value
	Transpose() Value
	Reshape(shape ...int) (Value, error)
	Cast(to DType) (Value, error)
	// Format renders row i.
	Format(i int) string
	String() string

	concat(rest []Value) (Value, error)
	stack(rest []Value) (Value, error)
	equal(other Value) bool
}

// Array holds elements of a single Go type T behind an arr.Storage.
type Array[T Elem] struct {
	st arr.Storage[T]
}

// FromSlice takes ownership of data as a 1-d value.
func FromSlice[T Elem](data []T) *Array[T] {
	return &Array[T]{st: arr.FromVec(data)}
}

// FromShape takes ownership of data laid out row-major in shape.
func FromShape[T Elem](data []T, shape ...int) (*Array[T], error) {
	st, err := arr.NewOwned(data, shape...)
	if err != nil {
		return nil, err
	}
	return &Array[T]{st: st}, nil
}

// Borrow wraps data as a read-only 1-d view.
func Borrow[T Elem](data []T) *Array[T] {
	return &Array[T]{st: arr.Borrow(data)}
}

// BorrowMut wraps data as a writable 1-d view.
func BorrowMut[T Elem](data []T) *Array[T] {
	return &Array[T]{st: arr.BorrowMut(data)}
}

// FromStorage wraps an existing storage.
func FromStorage[T Elem](st arr.Storage[T]) *Array[T] {
	return &Array[T]{st: st}
}

// Scalar returns a 0-d owned value.
func Scalar[T Elem](v T) *Array[T] {
	return &Array[T]{st: arr.Scalar(v)}
}

// Full returns an owned 1-d value of n copies of v.
func Full[T Elem](n int, v T) *Array[T] {
	data := make([]T, n)
	for i := range data {
		data[i] = v
	}
	return FromSlice(data)
}

// DType reports the element kind.
func (a *Array[T]) DType() DType { return DTypeOf[T]() }

func (a *Array[T]) Shape() []int  { return a.st.Shape() }
func (a *Array[T]) Ndim() int     { return a.st.Ndim() }
func (a *Array[T]) Len() int      { return a.st.Len() }
func (a *Array[T]) Size() int     { return a.st.Size() }
func (a *Array[T]) IsOwned() bool { return a.st.IsOwned() }

// Storage exposes the underlying storage.
func (a *Array[T]) Storage() arr.Storage[T] { return a.st }

// Mode reports the ownership mode of the storage.
func (a *Array[T]) Mode() arr.Mode { return a.st.Mode() }

// At returns the element at idx.
func (a *Array[T]) At(idx ...int) T { return a.st.At(idx...) }

// Set writes the element at idx. The value must be Owned or a mutable view.
func (a *Array[T]) Set(v T, idx ...int) { a.st.Set(v, idx...) }

// Values copies the elements out in row-major order.
func (a *Array[T]) Values() []T { return a.st.Values() }

// Contiguous returns the elements without copying when possible.
func (a *Array[T]) Contiguous() ([]T, bool) { return a.st.Contiguous() }

// ViewMut returns a writable view, failing for borrowed read-only values.
func (a *Array[T]) ViewMut() (*Array[T], error) {
	st, err := a.st.ViewMut()
	if err != nil {
		return nil, err
	}
	return &Array[T]{st: st}, nil
}

func (a *Array[T]) View() Value { return &Array[T]{st: a.st.View()} }

func (a *Array[T]) Slice(start, stop int) (Value, error) {
	st, err := a.st.Slice(start, stop)
	if err != nil {
		return nil, err
	}
	return &Array[T]{st: st}, nil
}

// SliceAxis returns a strided view along axis.
func (a *Array[T]) SliceAxis(axis, start, stop, step int) (*Array[T], error) {
	st, err := a.st.SliceAxis(axis, start, stop, step)
	if err != nil {
		return nil, err
	}
	return &Array[T]{st: st}, nil
}

func (a *Array[T]) Take(indices []int) (Value, error) {
	n := a.Len()
	if a.Ndim() == 0 {
		return nil, errors.Wrap(ErrShapeMismatch, "take from 0-d value")
	}
	if a.Ndim() == 1 {
		out := make([]T, len(indices))
		for i, idx := range indices {
			if idx < 0 || idx >= n {
				return nil, errors.Wrapf(ErrShapeMismatch, "take index %d out of range for length %d", idx, n)
			}
			out[i] = a.st.At(idx)
		}
		return FromSlice(out), nil
	}
	rows := make([]arr.Storage[T], len(indices))
	for i, idx := range indices {
		row, err := a.st.Slice(idx, idx+1)
		if err != nil {
			return nil, err
		}
		rows[i] = row
	}
	st, err := arr.Concat(rows...)
	if err != nil {
		return nil, err
	}
	if len(indices) == 0 {
		shape := a.Shape()
		shape[0] = 0
		st, err = arr.NewOwned[T](nil, shape...)
		if err != nil {
			return nil, err
		}
	}
	return &Array[T]{st: st}, nil
}

func (a *Array[T]) IntoOwned() Value { return &Array[T]{st: a.st.IntoOwned()} }

func (a *Array[T]) Transpose() Value { return &Array[T]{st: a.st.Transpose()} }

func (a *Array[T]) Reshape(shape ...int) (Value, error) {
	st, err := a.st.Reshape(shape...)
	if err != nil {
		return nil, err
	}
	return &Array[T]{st: st}, nil
}

// Release frees an arena-backed bundle early.
func (a *Array[T]) Release() { a.st.Release() }

func (a *Array[T]) Format(i int) string {
	switch a.Ndim() {
	case 0:
		return formatElem(a.st.At())
	case 1:
		return formatElem(a.st.At(i))
	}
	row, err := a.st.Slice(i, i+1)
	if err != nil {
		return "?"
	}
	vals := row.Values()
	parts := make([]string, len(vals))
	for j, v := range vals {
		parts[j] = formatElem(v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func (a *Array[T]) String() string {
	var sb strings.Builder
	sb.WriteString(a.DType().String())
	sb.WriteString(fmt.Sprint(a.Shape()))
	sb.WriteString("[")
	n := a.Len()
	if a.Ndim() == 0 {
		n = 1
	}
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		if i == 10 && n > 12 {
			sb.WriteString("...")
			i = n - 2
			continue
		}
		sb.WriteString(a.Format(i))
	}
	sb.WriteString("]")
	return sb.String()
}

func (a *Array[T]) concat(rest []Value) (Value, error) {
	parts := make([]arr.Storage[T], 0, len(rest)+1)
	parts = append(parts, a.st)
	for _, v := range rest {
		o, err := As[T](v)
		if err != nil {
			return nil, err
		}
		parts = append(parts, o.st)
	}
	st, err := arr.Concat(parts...)
	if err != nil {
		return nil, err
	}
	return &Array[T]{st: st}, nil
}

func (a *Array[T]) stack(rest []Value) (Value, error) {
	parts := make([]arr.Storage[T], 0, len(rest)+1)
	parts = append(parts, a.st)
	for _, v := range rest {
		o, err := As[T](v)
		if err != nil {
			return nil, err
		}
		parts = append(parts, o.st)
	}
	st, err := arr.Stack(parts...)
	if err != nil {
		return nil, err
	}
	return &Array[T]{st: st}, nil
}

func (a *Array[T]) equal(other Value) bool {
	o, err := As[T](other)
	if err != nil {
		return false
	}
	if !slices.Equal(a.Shape(), o.Shape()) {
		return false
	}
	x, y := a.Values(), o.Values()
	for i := range x {
		if !elemEqual(x[i], y[i]) {
			return false
		}
	}
	return true
}

// As returns v as an *Array[T], materializing deferred values first.
func As[T Elem](v Value) (*Array[T], error) {
	v, err := Materialize(v)
	if err != nil {
		return nil, err
	}
	a, ok := v.(*Array[T])
	if !ok {
		return nil, errors.Wrapf(ErrDtypeMismatch, "want %s, got %s", DTypeOf[T](), v.DType())
	}
	return a, nil
}

// CastAs casts v to the dtype backed by T and returns the typed array.
func CastAs[T Elem](v Value) (*Array[T], error) {
	c, err := v.Cast(DTypeOf[T]())
	if err != nil {
		return nil, err
	}
	return As[T](c)
}

// Float64s returns the elements of v as float64, casting when needed.
func Float64s(v Value) ([]float64, error) {
	a, err := CastAs[float64](v)
	if err != nil {
		return nil, err
	}
	if data, ok := a.Contiguous(); ok && a.Mode() == arr.Owned {
		return data, nil
	}
	return a.Values(), nil
}

func elemEqual[T Elem](x, y T) bool {
	switch xv := any(x).(type) {
	case float64:
		yv := any(y).(float64)
		return xv == yv || (math.IsNaN(xv) && math.IsNaN(yv))
	case float32:
		yv := any(y).(float32)
		return xv == yv || (xv != xv && yv != yv)
	case IndexList:
		return slices.Equal(xv, any(y).(IndexList))
	case ObjectValue:
		return reflect.DeepEqual(xv.V, any(y).(ObjectValue).V)
	default:
		return any(x) == any(y)
	}
}

func formatElem[T Elem](v T) string {
	switch x := any(v).(type) {
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case IndexList:
		return fmt.Sprint([]int(x))
	case ObjectValue:
		return fmt.Sprint(x.V)
	default:
		return fmt.Sprint(x)
	}
}
