package arr

import (
	"github.com/pkg/errors"
)

var (
	// ErrShapeMismatch is returned when indices, shapes or axes do not fit an array.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrNotWritable is returned when a writable view is requested from a read-only storage.
	ErrNotWritable = errors.New("storage is not writable")
)

// Layout maps a logical n-dimensional index onto a flat element buffer.
type Layout struct {
	Offset  int
	Shape   []int
	Strides []int
}

// RowMajor returns the standard contiguous layout for shape.
func RowMajor(shape ...int) Layout {
	strides := make([]int, len(shape))
	step := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = step
		step *= shape[i]
	}
	return Layout{Shape: append([]int(nil), shape...), Strides: strides}
}

// Ndim returns the number of axes.
func (l Layout) Ndim() int { return len(l.Shape) }

// Size returns the number of addressable elements. A 0-d layout holds one element.
func (l Layout) Size() int {
	n := 1
	for _, d := range l.Shape {
		n *= d
	}
	return n
}

// IsContiguous reports whether the layout is row-major without gaps.
func (l Layout) IsContiguous() bool {
	step := 1
	for i := len(l.Shape) - 1; i >= 0; i-- {
		if l.Shape[i] != 1 && l.Strides[i] != step {
			return false
		}
		step *= l.Shape[i]
	}
	return true
}

func (l Layout) clone() Layout {
	return Layout{
		Offset:  l.Offset,
		Shape:   append([]int(nil), l.Shape...),
		Strides: append([]int(nil), l.Strides...),
	}
}

// flat converts a logical index to a buffer position. A wrong index is a programming error.
func (l Layout) flat(idx []int) int {
	if len(idx) != len(l.Shape) {
		panic(errors.Errorf("arr: index of %d axes into %d-d array", len(idx), len(l.Shape)))
	}
	pos := l.Offset
	for i, v := range idx {
		if v < 0 || v >= l.Shape[i] {
			panic(errors.Errorf("arr: index %d out of range for axis %d with length %d", v, i, l.Shape[i]))
		}
		pos += v * l.Strides[i]
	}
	return pos
}

// each visits every buffer position in row-major logical order.
func (l Layout) each(fn func(pos int)) {
	if l.Size() == 0 {
		return
	}
	nd := len(l.Shape)
	if nd == 0 {
		fn(l.Offset)
		return
	}
	idx := make([]int, nd)
	pos := l.Offset
	for {
		fn(pos)
		ax := nd - 1
		for ; ax >= 0; ax-- {
			idx[ax]++
			pos += l.Strides[ax]
			if idx[ax] < l.Shape[ax] {
				break
			}
			pos -= idx[ax] * l.Strides[ax]
			idx[ax] = 0
		}
		if ax < 0 {
			return
		}
	}
}

func (l Layout) sliceAxis(axis, start, stop, step int) (Layout, error) {
	if axis < 0 || axis >= len(l.Shape) {
		return Layout{}, errors.Wrapf(ErrShapeMismatch, "axis %d for %d-d array", axis, len(l.Shape))
	}
	if step <= 0 {
		return Layout{}, errors.Wrapf(ErrShapeMismatch, "slice step must be positive, got %d", step)
	}
	n := l.Shape[axis]
	if start < 0 || stop > n || start > stop {
		return Layout{}, errors.Wrapf(ErrShapeMismatch, "slice [%d:%d] of axis with length %d", start, stop, n)
	}
	out := l.clone()
	out.Offset += start * l.Strides[axis]
	out.Shape[axis] = (stop - start + step - 1) / step
	out.Strides[axis] *= step
	return out, nil
}

func (l Layout) transpose() Layout {
	out := l.clone()
	for i, j := 0, len(out.Shape)-1; i < j; i, j = i+1, j-1 {
		out.Shape[i], out.Shape[j] = out.Shape[j], out.Shape[i]
		out.Strides[i], out.Strides[j] = out.Strides[j], out.Strides[i]
	}
	return out
}

// resolveShape fills in a single -1 dimension so the shape holds size elements.
func resolveShape(size int, shape []int) ([]int, error) {
	out := append([]int(nil), shape...)
	infer := -1
	known := 1
	for i, d := range out {
		switch {
		case d == -1 && infer < 0:
			infer = i
		case d < 0:
			return nil, errors.Wrapf(ErrShapeMismatch, "invalid dimension %d in %v", d, shape)
		default:
			known *= d
		}
	}
	if infer >= 0 {
		if known == 0 || size%known != 0 {
			return nil, errors.Wrapf(ErrShapeMismatch, "cannot reshape %d elements into %v", size, shape)
		}
		out[infer] = size / known
		known = size
	}
	if known != size {
		return nil, errors.Wrapf(ErrShapeMismatch, "cannot reshape %d elements into %v", size, shape)
	}
	return out, nil
}
