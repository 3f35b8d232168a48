package dyn

import (
	"math"

	"github.com/pkg/errors"
)

// Concat joins values of identical dtype along the first axis into a new owned value.
func Concat(vals ...Value) (Value, error) {
	if len(vals) == 0 {
		return nil, errors.Wrap(ErrShapeMismatch, "concat of no values")
	}
	if err := SameDType(vals...); err != nil {
		return nil, err
	}
	return vals[0].concat(vals[1:])
}

// Stack joins equally shaped values of identical dtype along a new first axis.
func Stack(vals ...Value) (Value, error) {
	if len(vals) == 0 {
		return nil, errors.Wrap(ErrShapeMismatch, "stack of no values")
	}
	if err := SameDType(vals...); err != nil {
		return nil, err
	}
	return vals[0].stack(vals[1:])
}

// SameDType fails unless every value has the same dtype.
func SameDType(vals ...Value) error {
	for i, v := range vals[1:] {
		if v.DType() != vals[0].DType() {
			return errors.Wrapf(ErrDtypeMismatch, "value %d is %s, value 0 is %s", i+1, v.DType(), vals[0].DType())
		}
	}
	return nil
}

// Equal reports whether a and b have the same dtype, shape and elements.
// NaN compares equal to NaN.
func Equal(a, b Value) bool {
	if a.DType() != b.DType() {
		return false
	}
	return a.equal(b)
}

// Unify brings two values to a common dtype through an explicit checked cast.
// Identical dtypes pass through; numeric (and bool) pairs promote to i64 or f64.
func Unify(a, b Value) (Value, Value, error) {
	da, db := a.DType(), b.DType()
	if da == db {
		return a, b, nil
	}
	numeric := func(d DType) bool { return d.IsNumeric() || d == Bool }
	if !numeric(da) || !numeric(db) {
		return nil, nil, errors.Wrapf(ErrDtypeMismatch, "no common dtype for %s and %s", da, db)
	}
	to := I64
	if da.IsFloat() || db.IsFloat() {
		to = F64
	}
	ca, err := a.Cast(to)
	if err != nil {
		return nil, nil, err
	}
	cb, err := b.Cast(to)
	if err != nil {
		return nil, nil, err
	}
	return ca, cb, nil
}

// Empty returns an owned 1-d value of dtype dt with n zero elements.
// Floats are filled with NaN and temporal kinds with NaT.
func Empty(dt DType, n int) Value {
	switch dt {
	case Bool:
		return FromSlice(make([]bool, n))
	case I8:
		return FromSlice(make([]int8, n))
	case I16:
		return FromSlice(make([]int16, n))
	case I32:
		return FromSlice(make([]int32, n))
	case I64:
		return FromSlice(make([]int64, n))
	case U8:
		return FromSlice(make([]uint8, n))
	case U16:
		return FromSlice(make([]uint16, n))
	case U32:
		return FromSlice(make([]uint32, n))
	case U64:
		return FromSlice(make([]uint64, n))
	case F32:
		return Full(n, float32(math.NaN()))
	case F64:
		return Full(n, math.NaN())
	case String:
		return FromSlice(make([]string, n))
	case DateTime:
		return Full[Timestamp](n, NaT)
	case TimeDelta:
		return Full[Duration](n, NaT)
	case OptIndex:
		return FromSlice(make([]OptIdx, n))
	case Indices:
		return FromSlice(make([]IndexList, n))
	default:
		return FromSlice(make([]ObjectValue, n))
	}
}

// Item returns the single element of a 0-d or length-1 value.
func Item(v Value) (any, error) {
	v, err := Materialize(v)
	if err != nil {
		return nil, err
	}
	if v.Size() != 1 {
		return nil, errors.Wrapf(ErrShapeMismatch, "item of value with %d elements", v.Size())
	}
	switch a := v.(type) {
	case *Array[bool]:
		return a.Values()[0], nil
	case *Array[int8]:
		return a.Values()[0], nil
	case *Array[int16]:
		return a.Values()[0], nil
	case *Array[int32]:
		return a.Values()[0], nil
	case *Array[int64]:
		return a.Values()[0], nil
	case *Array[uint8]:
		return a.Values()[0], nil
	case *Array[uint16]:
		return a.Values()[0], nil
	case *Array[uint32]:
		return a.Values()[0], nil
	case *Array[uint64]:
		return a.Values()[0], nil
	case *Array[float32]:
		return a.Values()[0], nil
	case *Array[float64]:
		return a.Values()[0], nil
	case *Array[string]:
		return a.Values()[0], nil
	case *Array[Timestamp]:
		return a.Values()[0], nil
	case *Array[Duration]:
		return a.Values()[0], nil
	case *Array[OptIdx]:
		return a.Values()[0], nil
	case *Array[IndexList]:
		return a.Values()[0], nil
	case *Array[ObjectValue]:
		return a.Values()[0], nil
	}
	return nil, errors.Wrapf(ErrDtypeMismatch, "item of %s", v.DType())
}

// Float returns the single element of v as float64.
func Float(v Value) (float64, error) {
	f, err := Float64s(v)
	if err != nil {
		return 0, err
	}
	if len(f) != 1 {
		return 0, errors.Wrapf(ErrShapeMismatch, "scalar of value with %d elements", len(f))
	}
	return f[0], nil
}
