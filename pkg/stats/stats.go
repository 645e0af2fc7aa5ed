package stats

import (
	"math"
	"sort"
)

// Median returns the median value of the slice (allocates a copy).
func Median(x []float64) float64 {
	return Percentile(x, 50)
}

// Percentile returns the p-th percentile (0 <= p <= 100) using linear interpolation between
// closest ranks. NaN values are ignored; an empty or all-NaN slice yields NaN.
func Percentile(x []float64, p float64) float64 {
	cp := make([]float64, 0, len(x))
	for _, v := range x {
		if !math.IsNaN(v) {
			cp = append(cp, v)
		}
	}
	n := len(cp)
	if n == 0 {
		return math.NaN()
	}
	sort.Float64s(cp)
	if p <= 0 {
		return cp[0]
	}
	if p >= 100 {
		return cp[n-1]
	}
	rank := p / 100 * float64(n-1)
	lower := int(rank)
	upper := lower + 1
	weight := rank - float64(lower)
	if upper >= n {
		return cp[lower]
	}
	return cp[lower]*(1-weight) + cp[upper]*weight
}
