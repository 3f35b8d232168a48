package linalg

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestLstsqExactFit(t *testing.T) {
	// y = 2 + 3x
	a := mat.NewDense(4, 2, []float64{1, 0, 1, 1, 1, 2, 1, 3})
	b := mat.NewDense(4, 1, []float64{2, 5, 8, 11})
	res, err := Lstsq(a, b, -1)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Rank)
	assert.InDelta(t, 2.0, res.Solution.At(0, 0), 1e-9)
	assert.InDelta(t, 3.0, res.Solution.At(1, 0), 1e-9)
	require.Len(t, res.Residuals, 1)
	assert.InDelta(t, 0.0, res.Residuals[0], 1e-9)
	require.Len(t, res.Singular, 2)
	assert.Greater(t, res.Singular[0], res.Singular[1])
}

func TestLstsqResiduals(t *testing.T) {
	a := mat.NewDense(3, 1, []float64{1, 1, 1})
	b := mat.NewDense(3, 1, []float64{1, 2, 6})
	res, err := Lstsq(a, b, -1)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, res.Solution.At(0, 0), 1e-9)
	assert.InDelta(t, 14.0, res.Residuals[0], 1e-9)
}

func TestLstsqRankDeficient(t *testing.T) {
	a := mat.NewDense(3, 2, []float64{1, 2, 2, 4, 3, 6})
	b := mat.NewDense(3, 1, []float64{1, 2, 3})
	res, err := Lstsq(a, b, -1)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rank)
	assert.Empty(t, res.Residuals)
}

func TestLstsqShapeError(t *testing.T) {
	_, err := Lstsq(mat.NewDense(2, 1, []float64{1, 2}), mat.NewDense(3, 1, []float64{1, 2, 3}), -1)
	assert.True(t, errors.Is(err, ErrSolver))
}
