package dyn

import (
	"math"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/razeghi71/tea/arr"
)

type number interface {
	int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32 | float64
}

// Cast converts the elements to another dtype. Same-dtype casts and casts
// between bit-identical representations (i64, datetime, timedelta) return a
// view without copying; everything else converts element-wise into a new
// owned value.
func (a *Array[T]) Cast(to DType) (Value, error) {
	from := a.DType()
	if from == to {
		return a.View(), nil
	}
	if v, ok := reinterpret(a, to); ok {
		return v, nil
	}
	switch src := any(a).(type) {
	case *Array[bool]:
		return castBool(src, to)
	case *Array[int8]:
		return castNumber(src, to)
	case *Array[int16]:
		return castNumber(src, to)
	case *Array[int32]:
		return castNumber(src, to)
	case *Array[int64]:
		return castNumber(src, to)
	case *Array[uint8]:
		return castNumber(src, to)
	case *Array[uint16]:
		return castNumber(src, to)
	case *Array[uint32]:
		return castNumber(src, to)
	case *Array[uint64]:
		return castNumber(src, to)
	case *Array[float32]:
		return castNumber(src, to)
	case *Array[float64]:
		return castNumber(src, to)
	case *Array[string]:
		return castString(src, to)
	case *Array[Timestamp]:
		return castTemporal(src, to)
	case *Array[Duration]:
		return castTemporal(src, to)
	case *Array[OptIdx]:
		return castOptIndex(src, to)
	}
	if to == String {
		return mapElems(a, formatElem[T]), nil
	}
	return nil, errors.Wrapf(ErrDtypeMismatch, "cannot cast %s to %s", from, to)
}

func reinterpret[T Elem](a *Array[T], to DType) (Value, bool) {
	switch src := any(a).(type) {
	case *Array[int64]:
		return reinterpretI64(src.st, to)
	case *Array[Timestamp]:
		return reinterpretI64(arr.Reinterpret[Timestamp, int64](src.st), to)
	case *Array[Duration]:
		return reinterpretI64(arr.Reinterpret[Duration, int64](src.st), to)
	}
	return nil, false
}

func reinterpretI64(st arr.Storage[int64], to DType) (Value, bool) {
	switch to {
	case I64:
		return &Array[int64]{st: st.View()}, true
	case DateTime:
		return &Array[Timestamp]{st: arr.Reinterpret[int64, Timestamp](st)}, true
	case TimeDelta:
		return &Array[Duration]{st: arr.Reinterpret[int64, Duration](st)}, true
	}
	return nil, false
}

// mapElems applies f to every element, keeping the shape.
func mapElems[S, D Elem](a *Array[S], f func(S) D) *Array[D] {
	src := a.Values()
	out := make([]D, len(src))
	for i, v := range src {
		out[i] = f(v)
	}
	st, err := arr.NewOwned(out, a.Shape()...)
	if err != nil {
		panic(err)
	}
	return &Array[D]{st: st}
}

// mapElemsErr is mapElems for conversions that can fail.
func mapElemsErr[S, D Elem](a *Array[S], f func(S) (D, error)) (*Array[D], error) {
	src := a.Values()
	out := make([]D, len(src))
	for i, v := range src {
		d, err := f(v)
		if err != nil {
			return nil, errors.Wrapf(ErrDtypeMismatch, "element %d: %v", i, err)
		}
		out[i] = d
	}
	st, err := arr.NewOwned(out, a.Shape()...)
	if err != nil {
		return nil, err
	}
	return &Array[D]{st: st}, nil
}

func castNumber[S number](a *Array[S], to DType) (Value, error) {
	switch to {
	case Bool:
		return mapElems(a, func(v S) bool { return v != 0 }), nil
	case I8:
		return mapElems(a, toInt[S, int8]), nil
	case I16:
		return mapElems(a, toInt[S, int16]), nil
	case I32:
		return mapElems(a, toInt[S, int32]), nil
	case I64:
		return mapElems(a, toInt[S, int64]), nil
	case U8:
		return mapElems(a, toInt[S, uint8]), nil
	case U16:
		return mapElems(a, toInt[S, uint16]), nil
	case U32:
		return mapElems(a, toInt[S, uint32]), nil
	case U64:
		return mapElems(a, toInt[S, uint64]), nil
	case F32:
		return mapElems(a, func(v S) float32 { return float32(v) }), nil
	case F64:
		return mapElems(a, func(v S) float64 { return float64(v) }), nil
	case String:
		return mapElems(a, formatElem[S]), nil
	case DateTime:
		return mapElems(a, func(v S) Timestamp {
			if v != v {
				return NaT
			}
			return Timestamp(int64(v))
		}), nil
	case TimeDelta:
		return mapElems(a, func(v S) Duration {
			if v != v {
				return NaT
			}
			return Duration(int64(v))
		}), nil
	case OptIndex:
		return mapElems(a, func(v S) OptIdx {
			if v != v || v < 0 {
				return OptIdx{}
			}
			return Some(int(v))
		}), nil
	}
	return nil, errors.Wrapf(ErrDtypeMismatch, "cannot cast %s to %s", DTypeOf[S](), to)
}

// toInt converts with NaN mapped to zero.
func toInt[S number, D int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64](v S) D {
	if v != v {
		return 0
	}
	return D(v)
}

func castBool(a *Array[bool], to DType) (Value, error) {
	if to == String {
		return mapElems(a, strconv.FormatBool), nil
	}
	if !to.IsNumeric() {
		return nil, errors.Wrapf(ErrDtypeMismatch, "cannot cast bool to %s", to)
	}
	u := mapElems(a, func(v bool) uint8 {
		if v {
			return 1
		}
		return 0
	})
	if to == U8 {
		return u, nil
	}
	return castNumber(u, to)
}

func castString(a *Array[string], to DType) (Value, error) {
	switch {
	case to == Bool:
		return mapElemsErr(a, strconv.ParseBool)
	case to.IsFloat():
		f, err := mapElemsErr(a, func(s string) (float64, error) {
			if s == "" {
				return math.NaN(), nil
			}
			return strconv.ParseFloat(s, 64)
		})
		if err != nil {
			return nil, err
		}
		return castNumber(f, to)
	case to.IsInt():
		i, err := mapElemsErr(a, func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) })
		if err != nil {
			return nil, err
		}
		return castNumber(i, to)
	case to == DateTime:
		return mapElemsErr(a, parseTimestamp)
	case to == TimeDelta:
		return mapElemsErr(a, func(s string) (Duration, error) {
			if s == "NaT" || s == "" {
				return NaT, nil
			}
			d, err := time.ParseDuration(s)
			return Duration(d), err
		})
	}
	return nil, errors.Wrapf(ErrDtypeMismatch, "cannot cast str to %s", to)
}

func parseTimestamp(s string) (Timestamp, error) {
	if s == "NaT" || s == "" {
		return NaT, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, err = time.Parse(time.DateOnly, s)
	}
	if err != nil {
		return NaT, err
	}
	return FromTime(t), nil
}

func castTemporal[S Timestamp | Duration](a *Array[S], to DType) (Value, error) {
	switch {
	case to == String:
		return mapElems(a, formatElem[S]), nil
	case to == F64 || to == F32:
		f := mapElems(a, func(v S) float64 {
			if v == NaT {
				return math.NaN()
			}
			return float64(v)
		})
		return castNumber(f, to)
	case to.IsInt():
		return castNumber(mapElems(a, func(v S) int64 { return int64(v) }), to)
	}
	return nil, errors.Wrapf(ErrDtypeMismatch, "cannot cast %s to %s", DTypeOf[S](), to)
}

func castOptIndex(a *Array[OptIdx], to DType) (Value, error) {
	switch {
	case to == String:
		return mapElems(a, OptIdx.String), nil
	case to.IsFloat():
		f := mapElems(a, func(v OptIdx) float64 {
			if !v.Valid {
				return math.NaN()
			}
			return float64(v.Index)
		})
		return castNumber(f, to)
	case to.IsInt():
		i, err := mapElemsErr(a, func(v OptIdx) (int64, error) {
			if !v.Valid {
				return 0, errors.New("missing index has no integer value")
			}
			return int64(v.Index), nil
		})
		if err != nil {
			return nil, err
		}
		return castNumber(i, to)
	}
	return nil, errors.Wrapf(ErrDtypeMismatch, "cannot cast opt_index to %s", to)
}
