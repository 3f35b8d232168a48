package dyn

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/razeghi71/tea/arr"
)

func TestDTypeOf(t *testing.T) {
	assert.Equal(t, F64, FromSlice([]float64{1}).DType())
	assert.Equal(t, DateTime, FromSlice([]Timestamp{1}).DType())
	assert.Equal(t, OptIndex, FromSlice([]OptIdx{Some(1)}).DType())
	assert.Equal(t, Indices, FromSlice([]IndexList{{1, 2}}).DType())
	assert.Equal(t, Object, FromSlice([]ObjectValue{{V: 1}}).DType())
}

func TestParseDType(t *testing.T) {
	for _, dt := range []DType{Bool, I32, U64, F32, String, DateTime, TimeDelta, OptIndex} {
		got, err := ParseDType(dt.String())
		require.NoError(t, err)
		assert.Equal(t, dt, got)
	}
	got, err := ParseDType("float")
	require.NoError(t, err)
	assert.Equal(t, F64, got)
	_, err = ParseDType("complex")
	assert.True(t, errors.Is(err, ErrDtypeMismatch))
}

func TestCastRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		src  Value
		via  DType
	}{
		{"i32 via i64", FromSlice([]int32{-3, 0, 7, math.MaxInt32}), I64},
		{"f32 via f64", FromSlice([]float32{1.5, -2.25, float32(math.Inf(1))}), F64},
		{"i64 via datetime", FromSlice([]int64{0, 1_700_000_000_000_000_000}), DateTime},
		{"bool via u8", FromSlice([]bool{true, false, true}), U8},
		{"u16 via f64", FromSlice([]uint16{0, 65535}), F64},
		{"i64 via str", FromSlice([]int64{-12, 99}), String},
		{"timedelta via i64", FromSlice([]Duration{Duration(time.Second), NaT}), I64},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			mid, err := c.src.Cast(c.via)
			require.NoError(t, err)
			assert.Equal(t, c.via, mid.DType())
			back, err := mid.Cast(c.src.DType())
			require.NoError(t, err)
			assert.True(t, Equal(c.src, back), "got %s want %s", back, c.src)
		})
	}
}

func TestCastReinterpretIsView(t *testing.T) {
	data := []int64{10, 20}
	v, err := FromSlice(data).Cast(DateTime)
	require.NoError(t, err)
	ts, err := As[Timestamp](v)
	require.NoError(t, err)
	assert.Equal(t, arr.View, ts.Mode())
	data[1] = 30
	assert.Equal(t, Timestamp(30), ts.At(1))
}

func TestCastSameDTypeIsView(t *testing.T) {
	a := FromSlice([]float64{1, 2})
	v, err := a.Cast(F64)
	require.NoError(t, err)
	assert.False(t, v.IsOwned())
}

func TestCastMissingValues(t *testing.T) {
	v, err := FromSlice([]float64{1, math.NaN()}).Cast(OptIndex)
	require.NoError(t, err)
	o, err := As[OptIdx](v)
	require.NoError(t, err)
	assert.Equal(t, []OptIdx{Some(1), {}}, o.Values())

	f, err := o.Cast(F64)
	require.NoError(t, err)
	vals, err := Float64s(f)
	require.NoError(t, err)
	assert.Equal(t, 1.0, vals[0])
	assert.True(t, math.IsNaN(vals[1]))

	_, err = o.Cast(I64)
	assert.True(t, errors.Is(err, ErrDtypeMismatch))
}

func TestCastIncompatible(t *testing.T) {
	_, err := FromSlice([]IndexList{{1}}).Cast(F64)
	assert.True(t, errors.Is(err, ErrDtypeMismatch))
	_, err = FromSlice([]string{"x"}).Cast(I64)
	assert.True(t, errors.Is(err, ErrDtypeMismatch))
}

func TestCastStringToDateTime(t *testing.T) {
	v, err := FromSlice([]string{"2024-01-02", "NaT"}).Cast(DateTime)
	require.NoError(t, err)
	ts, err := As[Timestamp](v)
	require.NoError(t, err)
	assert.Equal(t, 2024, ts.At(0).Time().Year())
	assert.True(t, ts.At(1).IsNaT())
	assert.Equal(t, "2024-01-02T00:00:00Z", ts.Format(0))
}

func TestSliceAndTake(t *testing.T) {
	a := FromSlice([]string{"a", "b", "c", "d"})
	s, err := a.Slice(1, 3)
	require.NoError(t, err)
	assert.False(t, s.IsOwned())
	assert.Equal(t, "b", s.Format(0))

	tk, err := a.Take([]int{3, 0})
	require.NoError(t, err)
	assert.True(t, tk.IsOwned())
	assert.True(t, Equal(FromSlice([]string{"d", "a"}), tk))

	_, err = a.Take([]int{4})
	assert.True(t, errors.Is(err, ErrShapeMismatch))
	_, err = a.Slice(3, 9)
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestTake2D(t *testing.T) {
	m, err := FromShape([]int64{1, 2, 3, 4, 5, 6}, 3, 2)
	require.NoError(t, err)
	tk, err := m.Take([]int{2, 0})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, tk.Shape())
	assert.Equal(t, "[5 6]", tk.Format(0))

	empty, err := m.Take(nil)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, empty.Shape())
}

func TestConcatStack(t *testing.T) {
	c, err := Concat(FromSlice([]int64{1, 2}), Borrow([]int64{3}))
	require.NoError(t, err)
	assert.True(t, Equal(FromSlice([]int64{1, 2, 3}), c))

	_, err = Concat(FromSlice([]int64{1}), FromSlice([]float64{1}))
	assert.True(t, errors.Is(err, ErrDtypeMismatch))

	s, err := Stack(FromSlice([]float64{1, 2}), FromSlice([]float64{3, 4}))
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, s.Shape())

	tr := s.Transpose()
	f, err := As[float64](tr)
	require.NoError(t, err)
	assert.Equal(t, arr.ViewOnBase, f.Mode())
	assert.Equal(t, 3.0, f.At(0, 1))
	f.Release()
}

func TestUnify(t *testing.T) {
	a, b, err := Unify(FromSlice([]int32{1}), FromSlice([]float32{2}))
	require.NoError(t, err)
	assert.Equal(t, F64, a.DType())
	assert.Equal(t, F64, b.DType())

	a, b, err = Unify(FromSlice([]int8{1}), FromSlice([]bool{true}))
	require.NoError(t, err)
	assert.Equal(t, I64, a.DType())
	assert.Equal(t, I64, b.DType())

	_, _, err = Unify(FromSlice([]int8{1}), FromSlice([]string{"x"}))
	assert.True(t, errors.Is(err, ErrDtypeMismatch))
}

func TestEmptyAndItem(t *testing.T) {
	e := Empty(F64, 2)
	vals, err := Float64s(e)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(vals[0]))
	assert.Equal(t, 3, Empty(DateTime, 3).Len())

	it, err := Item(Scalar(int64(5)))
	require.NoError(t, err)
	assert.Equal(t, int64(5), it)
	_, err = Item(FromSlice([]int64{1, 2}))
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

type countingSource struct {
	calls int
	fail  bool
}

func (s *countingSource) DType() DType { return I64 }

func (s *countingSource) Materialize() (Value, error) {
	s.calls++
	if s.fail {
		return nil, errors.New("batch unavailable")
	}
	return FromSlice([]int64{4, 5, 6}), nil
}

func TestDeferredMaterializesOnce(t *testing.T) {
	src := &countingSource{}
	d := Defer(src)
	assert.Equal(t, I64, d.DType())
	assert.Equal(t, 0, src.calls)
	assert.False(t, d.Prepared())

	assert.Equal(t, 3, d.Len())
	s, err := d.Slice(1, 2)
	require.NoError(t, err)
	assert.Equal(t, "5", s.Format(0))
	assert.True(t, Equal(FromSlice([]int64{4, 5, 6}), d))
	assert.Equal(t, 1, src.calls)
}

func TestDeferredPreparedConcurrent(t *testing.T) {
	src := &countingSource{}
	d := Defer(src)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, d.Prepare())
		}()
		go func() {
			defer wg.Done()
			if d.Prepared() {
				assert.Equal(t, 3, d.Len())
			}
		}()
	}
	wg.Wait()
	assert.True(t, d.Prepared())
	assert.Equal(t, 1, src.calls)

	failed := Defer(&countingSource{fail: true})
	require.Error(t, failed.Prepare())
	assert.False(t, failed.Prepared())
}

func TestDeferredFailure(t *testing.T) {
	d := Defer(&countingSource{fail: true})
	_, err := d.Cast(F64)
	require.Error(t, err)
	assert.Panics(t, func() { d.Len() })
	_, err = Materialize(d)
	require.Error(t, err)
}

func TestString(t *testing.T) {
	s := FromSlice([]float64{1, 2.5}).String()
	assert.Equal(t, "f64[2][1, 2.5]", s)
}
