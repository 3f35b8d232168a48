package dyn

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

// Source is an external columnar batch that has not been converted yet.
type Source interface {
	// DType is known from the batch schema without reading any data.
	DType() DType
	Materialize() (Value, error)
}

// Deferred is a Value whose elements come from a Source on first access.
// Conversion runs once; every read method prepares first.
type Deferred struct {
	src  Source
	once sync.Once
	v    Value
	err  error
	done atomic.Bool
}

// Defer wraps src without converting it.
func Defer(src Source) *Deferred {
	return &Deferred{src: src}
}

// Prepare converts the source if that has not happened yet.
func (d *Deferred) Prepare() error {
	d.once.Do(func() {
		v, err := d.src.Materialize()
		if err != nil {
			d.err = errors.Wrap(err, "materialize deferred value")
			return
		}
		if v.DType() != d.src.DType() {
			d.err = errors.Wrapf(ErrDtypeMismatch, "source declared %s, produced %s", d.src.DType(), v.DType())
			return
		}
		d.v = v
		d.done.Store(true)
	})
	return d.err
}

// Prepared reports whether the source was already converted successfully.
func (d *Deferred) Prepared() bool {
	return d.done.Load()
}

// must is used by read methods with no error result. A failed conversion there
// is unrecoverable because the value was already handed out as readable.
func (d *Deferred) must() Value {
	if err := d.Prepare(); err != nil {
		panic(err)
	}
	return d.v
}

func (d *Deferred) DType() DType    { return d.src.DType() }
func (d *Deferred) Shape() []int    { return d.must().Shape() }
func (d *Deferred) Ndim() int       { return d.must().Ndim() }
func (d *Deferred) Len() int        { return d.must().Len() }
func (d *Deferred) Size() int       { return d.must().Size() }
func (d *Deferred) IsOwned() bool   { return d.must().IsOwned() }
func (d *Deferred) View() Value     { return d.must().View() }
func (d *Deferred) IntoOwned() Value { return d.must().IntoOwned() }
func (d *Deferred) Transpose() Value { return d.must().Transpose() }
func (d *Deferred) Format(i int) string {
	return d.must().Format(i)
}

func (d *Deferred) String() string {
	if !d.Prepared() {
		return d.DType().String() + "[deferred]"
	}
	return d.v.String()
}

func (d *Deferred) Slice(start, stop int) (Value, error) {
	if err := d.Prepare(); err != nil {
		return nil, err
	}
	return d.v.Slice(start, stop)
}

func (d *Deferred) Take(indices []int) (Value, error) {
	if err := d.Prepare(); err != nil {
		return nil, err
	}
	return d.v.Take(indices)
}

func (d *Deferred) Reshape(shape ...int) (Value, error) {
	if err := d.Prepare(); err != nil {
		return nil, err
	}
	return d.v.Reshape(shape...)
}

func (d *Deferred) Cast(to DType) (Value, error) {
	if err := d.Prepare(); err != nil {
		return nil, err
	}
	return d.v.Cast(to)
}

func (d *Deferred) concat(rest []Value) (Value, error) {
	if err := d.Prepare(); err != nil {
		return nil, err
	}
	return d.v.concat(rest)
}

func (d *Deferred) stack(rest []Value) (Value, error) {
	if err := d.Prepare(); err != nil {
		return nil, err
	}
	return d.v.stack(rest)
}

func (d *Deferred) equal(other Value) bool {
	if err := d.Prepare(); err != nil {
		return false
	}
	return d.v.equal(other)
}

// Materialize prepares v if it is deferred and returns the concrete value.
func Materialize(v Value) (Value, error) {
	d, ok := v.(*Deferred)
	if !ok {
		return v, nil
	}
	if err := d.Prepare(); err != nil {
		return nil, err
	}
	return d.v, nil
}
