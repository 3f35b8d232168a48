// Package kernels holds the numeric routines that expression steps call into.
// Kernels are pure: they never modify their inputs. Missing values are NaN.
package kernels

import (
	"math"
)

// Window is an incremental reducer over a sliding window. Add is called with
// the element entering the window, Remove with the element leaving it. NaN
// elements are accepted by both and ignored by the statistic.
type Window interface {
	Add(v float64)
	Remove(v float64)
	// Valid returns the number of non-NaN elements currently in the window.
	Valid() int
	Value() float64
}

// Rolling slides a window of the given size over xs. Positions where the
// window holds fewer than minPeriods valid elements are NaN.
func Rolling(xs []float64, window, minPeriods int, w Window) []float64 {
	out := make([]float64, len(xs))
	RollingInto(out, xs, window, minPeriods, w)
	return out
}

// RollingInto is Rolling writing into out, which must be as long as xs.
func RollingInto(out, xs []float64, window, minPeriods int, w Window) {
	if minPeriods < 1 {
		minPeriods = 1
	}
	for i, v := range xs {
		w.Add(v)
		if i >= window {
			w.Remove(xs[i-window])
		}
		if w.Valid() >= minPeriods {
			out[i] = w.Value()
		} else {
			out[i] = math.NaN()
		}
	}
}

// SumWindow keeps a running sum.
type SumWindow struct {
	sum float64
	n   int
}

func (w *SumWindow) Add(v float64) {
	if !math.IsNaN(v) {
		w.sum += v
		w.n++
	}
}

func (w *SumWindow) Remove(v float64) {
	if !math.IsNaN(v) {
		w.sum -= v
		w.n--
	}
}

func (w *SumWindow) Valid() int      { return w.n }
func (w *SumWindow) Value() float64 { return w.sum }

// MeanWindow keeps a running mean.
type MeanWindow struct {
	SumWindow
}

func (w *MeanWindow) Value() float64 {
	if w.n == 0 {
		return math.NaN()
	}
	return w.sum / float64(w.n)
}

// VarWindow keeps the running sample variance (ddof 1). With Std set it reports
// the standard deviation instead.
type VarWindow struct {
	Std   bool
	sum   float64
	sumSq float64
	n     int
}

func (w *VarWindow) Add(v float64) {
	if !math.IsNaN(v) {
		w.sum += v
		w.sumSq += v * v
		w.n++
	}
}

func (w *VarWindow) Remove(v float64) {
	if !math.IsNaN(v) {
		w.sum -= v
		w.sumSq -= v * v
		w.n--
	}
}

func (w *VarWindow) Valid() int { return w.n }

func (w *VarWindow) Value() float64 {
	if w.n < 2 {
		return math.NaN()
	}
	n := float64(w.n)
	mean := w.sum / n
	v := (w.sumSq - n*mean*mean) / (n - 1)
	if v < 0 {
		v = 0
	}
	if w.Std {
		return math.Sqrt(v)
	}
	return v
}

// ExtremeWindow tracks the minimum (or the maximum with Max set). It keeps the
// window contents in arrival order and rescans only when the current extreme leaves.
type ExtremeWindow struct {
	Max  bool
	vals []float64
	best float64
	n    int
}

func (w *ExtremeWindow) better(a, b float64) bool {
	if w.Max {
		return a > b
	}
	return a < b
}

func (w *ExtremeWindow) Add(v float64) {
	w.vals = append(w.vals, v)
	if math.IsNaN(v) {
		return
	}
	if w.n == 0 || w.better(v, w.best) {
		w.best = v
	}
	w.n++
}

func (w *ExtremeWindow) Remove(v float64) {
	w.vals = w.vals[1:]
	if math.IsNaN(v) {
		return
	}
	w.n--
	if v != w.best || w.n == 0 {
		return
	}
	first := true
	for _, x := range w.vals {
		if math.IsNaN(x) {
			continue
		}
		if first || w.better(x, w.best) {
			w.best = x
			first = false
		}
	}
}

func (w *ExtremeWindow) Valid() int { return w.n }

func (w *ExtremeWindow) Value() float64 {
	if w.n == 0 {
		return math.NaN()
	}
	return w.best
}

// NewWindow returns a fresh window reducer by name: sum, mean, var, std, min, max.
func NewWindow(name string) (Window, bool) {
	switch name {
	case "sum":
		return &SumWindow{}, true
	case "mean":
		return &MeanWindow{}, true
	case "var":
		return &VarWindow{}, true
	case "std":
		return &VarWindow{Std: true}, true
	case "min":
		return &ExtremeWindow{}, true
	case "max":
		return &ExtremeWindow{Max: true}, true
	}
	return nil, false
}
