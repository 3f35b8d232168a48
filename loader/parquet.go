package loader

import (
	"io"
	"math"
	"os"
	"sync"

	parquet "github.com/parquet-go/parquet-go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/razeghi71/tea/dyn"
	"github.com/razeghi71/tea/table"
)

// loadParquet reads only the schema. Column data stays on disk until a
// column is first used; the whole batch is then decoded once and shared by
// every column of the file.
func loadParquet(filename string) (*table.Table, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open %s", filename)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, "cannot stat %s", filename)
	}
	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read Parquet metadata from %s", filename)
	}

	fields := pf.Schema().Fields()
	b := &batch{path: filename, dtypes: make([]dyn.DType, len(fields))}
	columns := make([]string, len(fields))
	vals := make([]dyn.Value, len(fields))
	for i, field := range fields {
		if !field.Leaf() {
			return nil, errors.Errorf("parquet column %q is nested", field.Name())
		}
		columns[i] = field.Name()
		b.dtypes[i] = parquetDType(field)
		vals[i] = dyn.Defer(&column{batch: b, index: i})
	}
	return table.NewDeferred(columns, vals, int(pf.NumRows()))
}

func parquetDType(field parquet.Field) dyn.DType {
	switch field.Type().Kind() {
	case parquet.Boolean:
		if field.Optional() {
			return dyn.String
		}
		return dyn.Bool
	case parquet.Int32:
		if field.Optional() {
			return dyn.F64
		}
		return dyn.I32
	case parquet.Int64:
		if field.Optional() {
			return dyn.F64
		}
		return dyn.I64
	case parquet.Float:
		return dyn.F32
	case parquet.Double:
		return dyn.F64
	}
	return dyn.String
}

// batch is the decoded content of one Parquet file.
type batch struct {
	path   string
	dtypes []dyn.DType

	once sync.Once
	cols []dyn.Value
	err  error
}

func (b *batch) load() ([]dyn.Value, error) {
	b.once.Do(func() {
		b.cols, b.err = b.read()
		log.WithFields(logrus.Fields{"file": b.path, "columns": len(b.dtypes)}).Debug("parquet batch materialized")
	})
	return b.cols, b.err
}

func (b *batch) read() ([]dyn.Value, error) {
	f, err := os.Open(b.path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open %s", b.path)
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, "cannot stat %s", b.path)
	}
	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read Parquet file %s", b.path)
	}

	n := int(pf.NumRows())
	builders := make([]columnBuilder, len(b.dtypes))
	for i, dt := range b.dtypes {
		builders[i] = newColumnBuilder(dt, n)
	}

	r := parquet.NewReader(pf)
	defer r.Close()
	rows := make([]parquet.Row, 256)
	for {
		k, err := r.ReadRows(rows)
		for _, row := range rows[:k] {
			for _, v := range row {
				if c := v.Column(); c >= 0 && c < len(builders) {
					builders[c].add(v)
				}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "error reading Parquet rows from %s", b.path)
		}
		if k == 0 {
			break
		}
	}

	out := make([]dyn.Value, len(builders))
	for i, cb := range builders {
		out[i] = cb.value()
	}
	return out, nil
}

// column is one column of a batch, handed out as a deferred value.
type column struct {
	batch *batch
	index int
}

func (c *column) DType() dyn.DType { return c.batch.dtypes[c.index] }

func (c *column) Materialize() (dyn.Value, error) {
	cols, err := c.batch.load()
	if err != nil {
		return nil, err
	}
	return cols[c.index], nil
}

type columnBuilder struct {
	dt    dyn.DType
	bools []bool
	i32   []int32
	i64   []int64
	f32   []float32
	f64   []float64
	strs  []string
}

func newColumnBuilder(dt dyn.DType, n int) columnBuilder {
	cb := columnBuilder{dt: dt}
	switch dt {
	case dyn.Bool:
		cb.bools = make([]bool, 0, n)
	case dyn.I32:
		cb.i32 = make([]int32, 0, n)
	case dyn.I64:
		cb.i64 = make([]int64, 0, n)
	case dyn.F32:
		cb.f32 = make([]float32, 0, n)
	case dyn.F64:
		cb.f64 = make([]float64, 0, n)
	default:
		cb.strs = make([]string, 0, n)
	}
	return cb
}

func (cb *columnBuilder) add(v parquet.Value) {
	null := v.IsNull()
	switch cb.dt {
	case dyn.Bool:
		cb.bools = append(cb.bools, !null && v.Boolean())
	case dyn.I32:
		cb.i32 = append(cb.i32, v.Int32())
	case dyn.I64:
		cb.i64 = append(cb.i64, v.Int64())
	case dyn.F32:
		if null {
			cb.f32 = append(cb.f32, float32(math.NaN()))
			return
		}
		cb.f32 = append(cb.f32, v.Float())
	case dyn.F64:
		switch {
		case null:
			cb.f64 = append(cb.f64, math.NaN())
		case v.Kind() == parquet.Int32:
			cb.f64 = append(cb.f64, float64(v.Int32()))
		case v.Kind() == parquet.Int64:
			cb.f64 = append(cb.f64, float64(v.Int64()))
		default:
			cb.f64 = append(cb.f64, v.Double())
		}
	default:
		switch {
		case null:
			cb.strs = append(cb.strs, "")
		case v.Kind() == parquet.Boolean:
			cb.strs = append(cb.strs, formatCell(v.Boolean()))
		default:
			cb.strs = append(cb.strs, string(v.ByteArray()))
		}
	}
}

func (cb *columnBuilder) value() dyn.Value {
	switch cb.dt {
	case dyn.Bool:
		return dyn.FromSlice(cb.bools)
	case dyn.I32:
		return dyn.FromSlice(cb.i32)
	case dyn.I64:
		return dyn.FromSlice(cb.i64)
	case dyn.F32:
		return dyn.FromSlice(cb.f32)
	case dyn.F64:
		return dyn.FromSlice(cb.f64)
	}
	return dyn.FromSlice(cb.strs)
}
