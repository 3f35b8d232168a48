// Package linalg solves dense least-squares problems.
package linalg

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrSolver is returned when the factorization fails.
var ErrSolver = errors.New("least squares solver failed")

// Result is the outcome of a least-squares fit of a*x = b.
type Result struct {
	// Singular holds the singular values of a in descending order.
	Singular []float64
	// Solution has one column per column of b.
	Solution *mat.Dense
	Rank     int
	// Residuals holds the squared residual norm per column of b. It is empty
	// when a is rank deficient or not taller than wide.
	Residuals []float64
}

// Lstsq minimizes |a*x - b| with an SVD. Singular values below rcond times the
// largest one are treated as zero; a negative rcond selects machine precision
// scaled by the larger dimension of a.
func Lstsq(a, b *mat.Dense, rcond float64) (*Result, error) {
	m, n := a.Dims()
	bm, k := b.Dims()
	if bm != m {
		return nil, errors.Wrapf(ErrSolver, "a has %d rows, b has %d", m, bm)
	}
	if m == 0 || n == 0 {
		return nil, errors.Wrap(ErrSolver, "empty system")
	}
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, errors.Wrap(ErrSolver, "svd did not converge")
	}
	s := svd.Values(nil)
	if rcond < 0 {
		rcond = float64(max(m, n)) * 2.220446049250313e-16
	}
	cut := rcond * s[0]
	rank := 0
	for _, v := range s {
		if v > cut {
			rank++
		}
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	// x = V * diag(1/s) * U^T * b over the first rank singular triplets.
	var utb mat.Dense
	utb.Mul(u.T(), b)
	for i := 0; i < len(s); i++ {
		for j := 0; j < k; j++ {
			if i < rank {
				utb.Set(i, j, utb.At(i, j)/s[i])
			} else {
				utb.Set(i, j, 0)
			}
		}
	}
	x := mat.NewDense(n, k, nil)
	x.Mul(&v, &utb)

	res := &Result{Singular: s, Solution: x, Rank: rank}
	if rank == n && m > n {
		var fit mat.Dense
		fit.Mul(a, x)
		res.Residuals = make([]float64, k)
		for j := 0; j < k; j++ {
			var ss float64
			for i := 0; i < m; i++ {
				d := b.At(i, j) - fit.At(i, j)
				ss += d * d
			}
			res.Residuals[j] = ss
		}
	}
	for _, c := range x.RawMatrix().Data {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, errors.Wrap(ErrSolver, "non-finite solution")
		}
	}
	return res, nil
}
