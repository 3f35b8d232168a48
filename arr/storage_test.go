package arr

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func matrix(t *testing.T) Storage[int] {
	t.Helper()
	s, err := NewOwned([]int{1, 2, 3, 4, 5, 6}, 2, 3)
	require.NoError(t, err)
	return s
}

func TestNewOwnedShapeMismatch(t *testing.T) {
	_, err := NewOwned([]int{1, 2, 3}, 2, 2)
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestShapeAndStrides(t *testing.T) {
	s := matrix(t)
	assert.Equal(t, []int{2, 3}, s.Shape())
	assert.Equal(t, []int{3, 1}, s.Strides())
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 6, s.Size())
	n, err := s.LenOf(1)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	_, err = s.LenOf(2)
	assert.True(t, errors.Is(err, ErrShapeMismatch))
	assert.Equal(t, 6, s.At(1, 2))
}

func TestSliceDoesNotCopy(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5}
	s := FromVec(data)
	v, err := s.Slice(1, 4)
	require.NoError(t, err)
	assert.Equal(t, View, v.Mode())

	got, ok := v.Contiguous()
	require.True(t, ok)
	assert.Same(t, &data[1], &got[0])

	s.Set(42, 2)
	assert.Equal(t, 42.0, v.At(1))

	owned := v.IntoOwned()
	s.Set(7, 2)
	assert.Equal(t, 42.0, owned.At(1))
	assert.Equal(t, 7.0, v.At(1))
}

func TestSliceOutOfRange(t *testing.T) {
	s := FromVec([]int{1, 2, 3})
	_, err := s.Slice(2, 5)
	assert.True(t, errors.Is(err, ErrShapeMismatch))
	_, err = s.SliceAxis(1, 0, 1, 1)
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestSliceAxisStep(t *testing.T) {
	s := matrix(t)
	v, err := s.SliceAxis(1, 0, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, v.Shape())
	assert.Equal(t, []int{1, 3, 4, 6}, v.Values())
	assert.False(t, v.IsContiguous())
}

func TestIntoOwnedKeepsOwned(t *testing.T) {
	data := []int{1, 2}
	s := FromVec(data)
	o := s.IntoOwned()
	o.Set(9, 0)
	assert.Equal(t, 9, data[0])
}

func TestViewMut(t *testing.T) {
	data := []int{1, 2, 3}
	s := Borrow(data)
	_, err := s.ViewMut()
	assert.True(t, errors.Is(err, ErrNotWritable))
	assert.Panics(t, func() { s.Set(1, 0) })

	m, err := BorrowMut(data).ViewMut()
	require.NoError(t, err)
	m.Set(10, 1)
	assert.Equal(t, []int{1, 10, 3}, data)
}

func TestTransposeOwnedUsesArena(t *testing.T) {
	before := Default.Live()
	tr := matrix(t).Transpose()
	assert.Equal(t, ViewOnBase, tr.Mode())
	assert.Equal(t, Default.Live(), before+1)
	assert.Equal(t, []int{3, 2}, tr.Shape())
	assert.Equal(t, []int{1, 4, 2, 5, 3, 6}, tr.Values())
	assert.Equal(t, 4, tr.At(0, 1))

	back := tr.Transpose()
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, back.Values())

	tr.Release()
	assert.Equal(t, before, Default.Live())
	assert.Panics(t, func() { back.At(0, 0) })
}

func TestReshape(t *testing.T) {
	r, err := FromVec([]int{1, 2, 3, 4, 5, 6}).Reshape(3, -1)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2}, r.Shape())
	assert.Equal(t, 4, r.At(1, 1))
	r.Release()

	v, err := Borrow([]int{1, 2, 3, 4}).Reshape(2, 2)
	require.NoError(t, err)
	assert.Equal(t, View, v.Mode())

	_, err = Borrow([]int{1, 2, 3}).Reshape(2, 2)
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestReshapeNonContiguousCopies(t *testing.T) {
	s := matrix(t)
	col, err := s.SliceAxis(1, 1, 2, 1)
	require.NoError(t, err)
	flat, err := col.Reshape(-1)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 5}, flat.Values())
	flat.Release()
}

func TestConcatAndStack(t *testing.T) {
	a := FromVec([]int{1, 2})
	b := Borrow([]int{3})
	c, err := Concat(a, b)
	require.NoError(t, err)
	assert.True(t, c.IsOwned())
	assert.Equal(t, []int{1, 2, 3}, c.Values())

	_, err = Concat(matrix(t), a)
	assert.True(t, errors.Is(err, ErrShapeMismatch))

	st, err := Stack(a, FromVec([]int{5, 6}))
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, st.Shape())
	assert.Equal(t, 6, st.At(1, 1))

	_, err = Stack(a, b)
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestScalar(t *testing.T) {
	s := Scalar(3.5)
	assert.Equal(t, 0, s.Ndim())
	assert.Equal(t, 1, s.Size())
	assert.Equal(t, 3.5, s.At())
	assert.Equal(t, []float64{3.5}, s.Values())
}

func TestArenaGenerations(t *testing.T) {
	a := NewArena()
	h1 := a.Alloc([]int{1})
	require.True(t, a.Release(h1))
	assert.False(t, a.Release(h1))
	h2 := a.Alloc([]int{2})
	_, ok := a.Get(h1)
	assert.False(t, ok)
	got, ok := a.Get(h2)
	require.True(t, ok)
	assert.Equal(t, []int{2}, got)
	assert.Equal(t, 1, a.Live())
}
