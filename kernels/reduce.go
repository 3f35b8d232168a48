package kernels

import (
	"math"
	"sort"
)

// Sum adds the non-NaN elements. An input without valid elements sums to 0.
func Sum(xs []float64) float64 {
	var s float64
	for _, v := range xs {
		if !math.IsNaN(v) {
			s += v
		}
	}
	return s
}

// Count returns the number of non-NaN elements.
func Count(xs []float64) int {
	n := 0
	for _, v := range xs {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Mean averages the non-NaN elements.
func Mean(xs []float64) float64 {
	var w MeanWindow
	for _, v := range xs {
		w.Add(v)
	}
	return w.Value()
}

// Var is the sample variance of the non-NaN elements.
func Var(xs []float64) float64 {
	n := Count(xs)
	if n < 2 {
		return math.NaN()
	}
	m := Mean(xs)
	var ss float64
	for _, v := range xs {
		if !math.IsNaN(v) {
			d := v - m
			ss += d * d
		}
	}
	return ss / float64(n-1)
}

// Std is the sample standard deviation of the non-NaN elements.
func Std(xs []float64) float64 {
	return math.Sqrt(Var(xs))
}

// Min returns the smallest non-NaN element.
func Min(xs []float64) float64 {
	w := ExtremeWindow{}
	for _, v := range xs {
		w.Add(v)
	}
	return w.Value()
}

// Max returns the largest non-NaN element.
func Max(xs []float64) float64 {
	w := ExtremeWindow{Max: true}
	for _, v := range xs {
		w.Add(v)
	}
	return w.Value()
}

// First returns the first element, NaN for empty input.
func First(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	return xs[0]
}

// Last returns the last element, NaN for empty input.
func Last(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	return xs[len(xs)-1]
}

// Reducer collapses a vector to a scalar.
type Reducer func(xs []float64) float64

// NewReducer looks a reducer up by name.
func NewReducer(name string) (Reducer, bool) {
	switch name {
	case "sum":
		return Sum, true
	case "mean", "avg":
		return Mean, true
	case "var":
		return Var, true
	case "std":
		return Std, true
	case "min":
		return Min, true
	case "max":
		return Max, true
	case "first":
		return First, true
	case "last":
		return Last, true
	case "count":
		return func(xs []float64) float64 { return float64(Count(xs)) }, true
	}
	return nil, false
}

// Rank assigns 1-based ranks with ties sharing their average rank. NaN stays NaN.
func Rank(xs []float64) []float64 {
	out := make([]float64, len(xs))
	idx := make([]int, 0, len(xs))
	for i, v := range xs {
		if math.IsNaN(v) {
			out[i] = math.NaN()
			continue
		}
		idx = append(idx, i)
	}
	sort.SliceStable(idx, func(a, b int) bool { return xs[idx[a]] < xs[idx[b]] })
	for start := 0; start < len(idx); {
		end := start + 1
		for end < len(idx) && xs[idx[end]] == xs[idx[start]] {
			end++
		}
		r := float64(start+end+1) / 2
		for _, i := range idx[start:end] {
			out[i] = r
		}
		start = end
	}
	return out
}

// Corr is the Pearson correlation over positions where both inputs are valid.
func Corr(xs, ys []float64) float64 {
	n := min(len(xs), len(ys))
	var sx, sy, sxx, syy, sxy float64
	k := 0
	for i := 0; i < n; i++ {
		x, y := xs[i], ys[i]
		if math.IsNaN(x) || math.IsNaN(y) {
			continue
		}
		sx += x
		sy += y
		sxx += x * x
		syy += y * y
		sxy += x * y
		k++
	}
	if k < 2 {
		return math.NaN()
	}
	fk := float64(k)
	cov := sxy - sx*sy/fk
	vx := sxx - sx*sx/fk
	vy := syy - sy*sy/fk
	if vx <= 0 || vy <= 0 {
		return math.NaN()
	}
	return cov / math.Sqrt(vx*vy)
}

// CumSum is the running sum. NaN positions stay NaN and do not reset the sum.
func CumSum(xs []float64) []float64 {
	out := make([]float64, len(xs))
	var s float64
	for i, v := range xs {
		if math.IsNaN(v) {
			out[i] = math.NaN()
			continue
		}
		s += v
		out[i] = s
	}
	return out
}

// Shift moves elements by n positions, filling the gap with NaN. Negative n shifts left.
func Shift(xs []float64, n int) []float64 {
	out := make([]float64, len(xs))
	for i := range out {
		j := i - n
		if j < 0 || j >= len(xs) {
			out[i] = math.NaN()
			continue
		}
		out[i] = xs[j]
	}
	return out
}
