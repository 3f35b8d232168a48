package arr

import (
	"unsafe"

	"github.com/pkg/errors"
)

// Reinterpret views the elements of s as D without copying. S and D must have
// identical size and bit representation; the caller guarantees the latter.
// The result is a View (or ViewMut when s is one) sharing the elements of s.
func Reinterpret[S, D any](s Storage[S]) Storage[D] {
	var (
		zs S
		zd D
	)
	if unsafe.Sizeof(zs) != unsafe.Sizeof(zd) {
		panic(errors.Errorf("arr: reinterpret between element sizes %d and %d", unsafe.Sizeof(zs), unsafe.Sizeof(zd)))
	}
	b := s.buf()
	var data []D
	if len(b) > 0 {
		data = unsafe.Slice((*D)(unsafe.Pointer(unsafe.SliceData(b))), len(b))
	}
	mode := View
	if s.mode == ViewMut {
		mode = ViewMut
	}
	return Storage[D]{mode: mode, data: data, layout: s.layout.clone()}
}
