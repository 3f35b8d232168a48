package kernels

import (
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nan = math.NaN()

func assertFloats(t *testing.T, want, got []float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		if math.IsNaN(want[i]) {
			assert.True(t, math.IsNaN(got[i]), "index %d: want NaN, got %v", i, got[i])
			continue
		}
		assert.InDelta(t, want[i], got[i], 1e-9, "index %d", i)
	}
}

func TestRollingSumMinPeriods(t *testing.T) {
	got := Rolling([]float64{1, nan, 3, 4}, 3, 2, &SumWindow{})
	assertFloats(t, []float64{nan, nan, 4, 7}, got)
}

func TestRollingWindows(t *testing.T) {
	xs := []float64{5, 1, 4, 2, 8}
	cases := map[string][]float64{
		"sum":  {5, 6, 10, 7, 14},
		"mean": {5, 3, 10.0 / 3, 7.0 / 3, 14.0 / 3},
		"min":  {5, 1, 1, 1, 2},
		"max":  {5, 5, 5, 4, 8},
		"std":  {nan, math.Sqrt(8), math.Sqrt(13.0 / 3), math.Sqrt(7.0 / 3), math.Sqrt(28.0 / 3)},
	}
	for name, want := range cases {
		t.Run(name, func(t *testing.T) {
			w, ok := NewWindow(name)
			require.True(t, ok)
			assertFloats(t, want, Rolling(xs, 3, 1, w))
		})
	}
	_, ok := NewWindow("median")
	assert.False(t, ok)
}

func TestRollingMatchesReducer(t *testing.T) {
	xs := []float64{3, nan, 1, 4, 1, 5, nan, 2, 6}
	for _, name := range []string{"sum", "mean", "min", "max", "std"} {
		w, _ := NewWindow(name)
		r, _ := NewReducer(name)
		got := Rolling(xs, 4, 2, w)
		for i := range xs {
			lo := max(0, i-3)
			win := xs[lo : i+1]
			want := nan
			if Count(win) >= 2 {
				want = r(win)
			}
			if math.IsNaN(want) {
				assert.True(t, math.IsNaN(got[i]), "%s[%d]", name, i)
			} else {
				assert.InDelta(t, want, got[i], 1e-9, "%s[%d]", name, i)
			}
		}
	}
}

func TestReducers(t *testing.T) {
	xs := []float64{2, nan, 4, 9}
	assert.Equal(t, 15.0, Sum(xs))
	assert.Equal(t, 3, Count(xs))
	assert.Equal(t, 5.0, Mean(xs))
	assert.Equal(t, 2.0, Min(xs))
	assert.Equal(t, 9.0, Max(xs))
	assert.InDelta(t, 13.0, Var(xs), 1e-12)
	assert.Equal(t, 2.0, First(xs))
	assert.Equal(t, 9.0, Last(xs))
	assert.Equal(t, 0.0, Sum([]float64{nan}))
	assert.True(t, math.IsNaN(Mean(nil)))
	assert.True(t, math.IsNaN(Std([]float64{1})))
}

func TestRank(t *testing.T) {
	assertFloats(t, []float64{3, 1.5, 4, 1.5, 5, 6}, Rank([]float64{3, 1, 4, 1, 5, 9}))
	assertFloats(t, []float64{nan, 1, 2}, Rank([]float64{nan, 0, 7}))
}

func TestCorr(t *testing.T) {
	assert.InDelta(t, 1.0, Corr([]float64{1, 2, 3}, []float64{2, 4, 6}), 1e-12)
	assert.InDelta(t, -1.0, Corr([]float64{1, 2, 3, nan}, []float64{3, 2, 1, 0}), 1e-12)
	assert.True(t, math.IsNaN(Corr([]float64{1, 1}, []float64{1, 2})))
}

func TestCumSumShift(t *testing.T) {
	assertFloats(t, []float64{1, nan, 4}, CumSum([]float64{1, nan, 3}))
	assertFloats(t, []float64{nan, 1, 2}, Shift([]float64{1, 2, 3}, 1))
	assertFloats(t, []float64{2, 3, nan}, Shift([]float64{1, 2, 3}, -1))
}

func TestLanes(t *testing.T) {
	Configure(4, 1)
	defer Configure(4, 2)

	out := make([]int, 100)
	require.NoError(t, Lanes(len(out), func(i int) error {
		out[i] = i * i
		return nil
	}))
	assert.Equal(t, 81, out[9])

	var ran atomic.Int32
	boom := errors.New("boom")
	err := Lanes(10, func(i int) error {
		ran.Add(1)
		if i == 3 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
}
