package dyn

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/razeghi71/tea/arr"
)

var (
	// ErrDtypeMismatch is returned for operations between incompatible element kinds.
	ErrDtypeMismatch = errors.New("dtype mismatch")
	// ErrShapeMismatch aliases arr.ErrShapeMismatch so callers need a single import.
	ErrShapeMismatch = arr.ErrShapeMismatch
)

// DType is the closed set of element kinds a Value can hold.
type DType uint8

const (
	Bool DType = iota
	I8
	I16
	I32
	I64
	U8
	U16
	U32
	U64
	F32
	F64
	String
	DateTime
	TimeDelta
	OptIndex
	Indices
	Object
)

var dtypeNames = [...]string{
	Bool:      "bool",
	I8:        "i8",
	I16:       "i16",
	I32:       "i32",
	I64:       "i64",
	U8:        "u8",
	U16:       "u16",
	U32:       "u32",
	U64:       "u64",
	F32:       "f32",
	F64:       "f64",
	String:    "str",
	DateTime:  "datetime",
	TimeDelta: "timedelta",
	OptIndex:  "opt_index",
	Indices:   "indices",
	Object:    "object",
}

func (d DType) String() string {
	if int(d) < len(dtypeNames) {
		return dtypeNames[d]
	}
	return "unknown"
}

// ParseDType looks a dtype up by its String form.
func ParseDType(s string) (DType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range dtypeNames {
		if n == s {
			return DType(i), nil
		}
	}
	switch s {
	case "int", "int64":
		return I64, nil
	case "float", "float64":
		return F64, nil
	case "string", "utf8":
		return String, nil
	}
	return 0, errors.Wrapf(ErrDtypeMismatch, "unknown dtype %q", s)
}

// IsInt reports whether d is a signed or unsigned integer kind.
func (d DType) IsInt() bool { return d >= I8 && d <= U64 }

// IsFloat reports whether d is a floating point kind.
func (d DType) IsFloat() bool { return d == F32 || d == F64 }

// IsNumeric reports whether d supports arithmetic.
func (d DType) IsNumeric() bool { return d.IsInt() || d.IsFloat() }

// IsTemporal reports whether d is DateTime or TimeDelta.
func (d DType) IsTemporal() bool { return d == DateTime || d == TimeDelta }

// NaT is the missing value of DateTime and TimeDelta.
const NaT = math.MinInt64

// Timestamp backs DateTime: a point in time as nanoseconds since the Unix epoch.
type Timestamp int64

// Time converts to time.Time in UTC.
func (t Timestamp) Time() time.Time { return time.Unix(0, int64(t)).UTC() }

// IsNaT reports whether t is missing.
func (t Timestamp) IsNaT() bool { return t == NaT }

func (t Timestamp) String() string {
	if t.IsNaT() {
		return "NaT"
	}
	return t.Time().Format(time.RFC3339Nano)
}

// FromTime converts a time.Time to a Timestamp.
func FromTime(t time.Time) Timestamp { return Timestamp(t.UnixNano()) }

// Duration backs TimeDelta: a span in nanoseconds.
type Duration int64

// IsNaT reports whether d is missing.
func (d Duration) IsNaT() bool { return d == NaT }

func (d Duration) String() string {
	if d.IsNaT() {
		return "NaT"
	}
	return time.Duration(d).String()
}

// OptIdx backs OptIndex: a row index that may be absent.
type OptIdx struct {
	Index int
	Valid bool
}

// Some returns a present OptIdx.
func Some(i int) OptIdx { return OptIdx{Index: i, Valid: true} }

func (o OptIdx) String() string {
	if !o.Valid {
		return "None"
	}
	return strconv.Itoa(o.Index)
}

// IndexList is a vector of row indices, e.g. the members of a group.
type IndexList []int

// ObjectValue boxes an arbitrary Go value.
type ObjectValue struct {
	V any
}

// Elem is the set of Go element types backing the dtypes.
type Elem interface {
	bool | int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 |
		float32 | float64 | string | Timestamp | Duration | OptIdx | IndexList | ObjectValue
}

// DTypeOf returns the dtype that T backs.
func DTypeOf[T Elem]() DType {
	var z T
	switch any(z).(type) {
	case bool:
		return Bool
	case int8:
		return I8
	case int16:
		return I16
	case int32:
		return I32
	case int64:
		return I64
	case uint8:
		return U8
	case uint16:
		return U16
	case uint32:
		return U32
	case uint64:
		return U64
	case float32:
		return F32
	case float64:
		return F64
	case string:
		return String
	case Timestamp:
		return DateTime
	case Duration:
		return TimeDelta
	case OptIdx:
		return OptIndex
	case IndexList:
		return Indices
	default:
		return Object
	}
}
