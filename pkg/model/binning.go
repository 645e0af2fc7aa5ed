package model

import (
	"math"
	"sort"
)

// binMapper buckets each feature into at most maxBin histogram bins.
// Bin b holds the values v with upper[b-1] < v <= upper[b]; the last bound is +Inf.
// Missing values share bin 0, so they always take the left branch.
type binMapper struct {
	upper [][]float64
}

func newBinMapper(X [][]float64, maxBin int) *binMapper {
	p := len(X[0])
	m := &binMapper{upper: make([][]float64, p)}
	col := make([]float64, 0, len(X))
	for f := 0; f < p; f++ {
		col = col[:0]
		for _, row := range X {
			if v := row[f]; !math.IsNaN(v) {
				col = append(col, v)
			}
		}
		m.upper[f] = binBounds(col, maxBin)
	}
	return m
}

// binBounds sorts values in place and returns the bin upper bounds.
// With few distinct values every value gets its own bin, otherwise bins hold roughly equal counts.
func binBounds(values []float64, maxBin int) []float64 {
	if len(values) == 0 {
		return []float64{math.Inf(1)}
	}
	sort.Float64s(values)
	distinct := []float64{values[0]}
	counts := []int{1}
	for _, v := range values[1:] {
		if v == distinct[len(distinct)-1] {
			counts[len(counts)-1]++
			continue
		}
		distinct = append(distinct, v)
		counts = append(counts, 1)
	}

	bounds := make([]float64, 0, min(len(distinct), maxBin))
	if len(distinct) <= maxBin {
		for i := 0; i < len(distinct)-1; i++ {
			bounds = append(bounds, (distinct[i]+distinct[i+1])/2)
		}
		return append(bounds, math.Inf(1))
	}

	perBin := float64(len(values)) / float64(maxBin)
	acc := 0
	for i := 0; i < len(distinct)-1 && len(bounds) < maxBin-1; i++ {
		acc += counts[i]
		if float64(acc) >= perBin*float64(len(bounds)+1) {
			bounds = append(bounds, (distinct[i]+distinct[i+1])/2)
		}
	}
	return append(bounds, math.Inf(1))
}

func (m *binMapper) numBins(f int) int { return len(m.upper[f]) }

func (m *binMapper) bin(f int, v float64) uint8 {
	if math.IsNaN(v) {
		return 0
	}
	return uint8(sort.SearchFloat64s(m.upper[f], v))
}

// threshold is the raw-value split point equivalent to "bin <= b".
func (m *binMapper) threshold(f, b int) float64 { return m.upper[f][b] }

// apply bins X column by column.
func (m *binMapper) apply(X [][]float64) [][]uint8 {
	out := make([][]uint8, len(m.upper))
	for f := range m.upper {
		col := make([]uint8, len(X))
		for i, row := range X {
			col[i] = m.bin(f, row[f])
		}
		out[f] = col
	}
	return out
}
