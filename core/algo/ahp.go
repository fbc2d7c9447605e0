package algo

import (
	"fmt"
	"math"

	"github.com/huangsam/tqi/schema"
)

// DefaultConsistencyTolerance is the consistency ratio above which comparisons are flagged.
const DefaultConsistencyTolerance = 0.1

const (
	reciprocalTolerance = 0.02
	powerIterations     = 1000
	powerEpsilon        = 1e-12
)

// randomIndex holds Saaty's random consistency index by matrix order.
var randomIndex = []float64{0, 0, 0, 0.58, 0.90, 1.12, 1.24, 1.32, 1.41, 1.45, 1.49, 1.51, 1.48, 1.56, 1.57, 1.59}

// ValidateComparisonMatrix checks that m is square, strictly positive and reciprocal.
func ValidateComparisonMatrix(m [][]float64) error {
	n := len(m)
	if n == 0 {
		return fmt.Errorf("%w: empty matrix", schema.ErrMalformedComparisonMatrix)
	}
	for i, row := range m {
		if len(row) != n {
			return fmt.Errorf("%w: row %d has %d entries, expected %d", schema.ErrMalformedComparisonMatrix, i, len(row), n)
		}
	}
	for i := range n {
		for j := range n {
			v := m[i][j]
			if !(v > 0) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: entry [%d][%d] = %v is not positive", schema.ErrMalformedComparisonMatrix, i, j, v)
			}
			if math.Abs(v*m[j][i]-1) > reciprocalTolerance {
				return fmt.Errorf("%w: entries [%d][%d] and [%d][%d] are not reciprocal", schema.ErrMalformedComparisonMatrix, i, j, j, i)
			}
		}
	}
	return nil
}

// PriorityVector returns the principal eigenvector of a pairwise comparison matrix normalized
// to sum 1, along with the consistency ratio of the judgments. Power iteration keeps the result
// deterministic for a given matrix.
func PriorityVector(m [][]float64) ([]float64, float64, error) {
	if err := ValidateComparisonMatrix(m); err != nil {
		return nil, 0, err
	}

	n := len(m)
	w := make([]float64, n)
	for i := range w {
		w[i] = 1 / float64(n)
	}

	next := make([]float64, n)
	for range powerIterations {
		var total float64
		for i := range n {
			var s float64
			for j := range n {
				s += m[i][j] * w[j]
			}
			next[i] = s
			total += s
		}
		var delta float64
		for i := range n {
			next[i] /= total
			delta = math.Max(delta, math.Abs(next[i]-w[i]))
		}
		w, next = next, w
		if delta < powerEpsilon {
			break
		}
	}

	return w, ConsistencyRatio(m, w), nil
}

// ConsistencyRatio computes CI/RI for the matrix given its priority vector.
// Matrices of order two or less are always consistent.
func ConsistencyRatio(m [][]float64, w []float64) float64 {
	n := len(m)
	if n <= 2 {
		return 0
	}

	var lambda float64
	for i := range n {
		var s float64
		for j := range n {
			s += m[i][j] * w[j]
		}
		lambda += s / w[i]
	}
	lambda /= float64(n)

	ci := (lambda - float64(n)) / float64(n-1)
	ri := randomIndex[min(n, len(randomIndex)-1)]
	cr := ci / ri
	if cr < 0 {
		// rounding on a perfectly consistent matrix
		return 0
	}
	return cr
}

// UniformWeights returns n equal weights summing to 1.
func UniformWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1 / float64(n)
	}
	return w
}
