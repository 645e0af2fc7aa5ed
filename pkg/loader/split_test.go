package loader

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrainTestSplitRatio(t *testing.T) {
	for _, n := range []int{10, 97, 768, 1000} {
		for _, ratio := range []float64{0.7, 0.8, 0.9} {
			train, test, err := TrainTestSplit(n, 1-ratio, 42)
			require.NoError(t, err)
			assert.Equal(t, n, len(train)+len(test))
			got := float64(len(test)) / float64(n)
			assert.Less(t, math.Abs(got-(1-ratio)), 1.0/float64(n)+1e-9, "n=%d ratio=%v", n, ratio)
		}
	}
}

func TestTrainTestSplitNoOverlapAndDeterministic(t *testing.T) {
	train, test, err := TrainTestSplit(200, 0.2, 7)
	require.NoError(t, err)

	seen := map[int]bool{}
	for _, i := range append(append([]int(nil), train...), test...) {
		assert.False(t, seen[i], "row %d assigned twice", i)
		seen[i] = true
	}
	assert.Len(t, seen, 200)

	train2, test2, err := TrainTestSplit(200, 0.2, 7)
	require.NoError(t, err)
	assert.Equal(t, train, train2)
	assert.Equal(t, test, test2)
}

func TestTrainTestSplitRejectsEmptySide(t *testing.T) {
	_, _, err := TrainTestSplit(1, 0.2, 1)
	assert.Error(t, err)
	_, _, err = TrainTestSplit(10, 0, 1)
	assert.Error(t, err)
}

func TestStratifiedKFold(t *testing.T) {
	y := make([]int, 0, 100)
	for i := range 100 {
		if i%4 == 0 {
			y = append(y, 1)
		} else {
			y = append(y, 0)
		}
	}

	folds, err := StratifiedKFold(y, 5)
	require.NoError(t, err)
	require.Len(t, folds, 5)

	var all []int
	for _, f := range folds {
		pos := 0
		for _, i := range f {
			pos += y[i]
		}
		assert.Len(t, f, 20)
		assert.Equal(t, 5, pos, "every fold keeps the 1:3 class balance")
		all = append(all, f...)
	}
	sort.Ints(all)
	for i := range all {
		assert.Equal(t, i, all[i])
	}
}

func TestStratifiedKFoldTooFewMembers(t *testing.T) {
	_, err := StratifiedKFold([]int{0, 0, 1, 1}, 3)
	assert.Error(t, err)
}

func TestComplement(t *testing.T) {
	assert.Equal(t, []int{0, 2, 4}, Complement(5, []int{3, 1}))
}
