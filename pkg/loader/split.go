package loader

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// TrainTestSplit shuffles the row indices 0..n-1 with seed and cuts them into a train and a
// test set. The test side holds ceil(testRatio*n) rows.
func TrainTestSplit(n int, testRatio float64, seed int64) (train, test []int, err error) {
	if testRatio <= 0 || testRatio >= 1 {
		return nil, nil, fmt.Errorf("split: test ratio %v must be in (0, 1)", testRatio)
	}
	nTest := int(math.Ceil(testRatio*float64(n) - 1e-9))
	if nTest == 0 || nTest >= n {
		return nil, nil, fmt.Errorf("split: %d rows with test ratio %v leaves an empty side", n, testRatio)
	}
	indices := rand.New(rand.NewSource(seed)).Perm(n)
	return indices[nTest:], indices[:nTest], nil
}

// StratifiedKFold assigns every row to one of k test folds so that each fold keeps roughly
// the class proportions of y. Rows of each class are taken in order, without shuffling.
func StratifiedKFold(y []int, k int) ([][]int, error) {
	if k < 2 {
		return nil, errors.New("kfold: need at least 2 folds")
	}
	if len(y) < k {
		return nil, fmt.Errorf("kfold: cannot split %d rows into %d folds", len(y), k)
	}

	byClass := map[int][]int{}
	for i, c := range y {
		byClass[c] = append(byClass[c], i)
	}
	classes := make([]int, 0, len(byClass))
	allSmall := true
	for c, rows := range byClass {
		classes = append(classes, c)
		if len(rows) >= k {
			allSmall = false
		}
	}
	if allSmall {
		return nil, fmt.Errorf("kfold: %d folds exceed the number of members in each class", k)
	}
	sort.Ints(classes)

	// Deal the class-sorted labels round-robin to get each fold's per-class quota.
	sorted := make([]int, 0, len(y))
	for _, c := range classes {
		for range byClass[c] {
			sorted = append(sorted, c)
		}
	}
	quota := make([]map[int]int, k)
	for f := range k {
		quota[f] = map[int]int{}
		for i := f; i < len(sorted); i += k {
			quota[f][sorted[i]]++
		}
	}

	folds := make([][]int, k)
	for _, c := range classes {
		rows := byClass[c]
		pos := 0
		for f := range k {
			n := quota[f][c]
			folds[f] = append(folds[f], rows[pos:pos+n]...)
			pos += n
		}
	}
	for f := range folds {
		sort.Ints(folds[f])
	}
	return folds, nil
}

// Complement returns the indices in 0..n-1 that are not in test.
func Complement(n int, test []int) []int {
	in := make([]bool, n)
	for _, i := range test {
		in[i] = true
	}
	out := make([]int, 0, n-len(test))
	for i := range n {
		if !in[i] {
			out = append(out, i)
		}
	}
	return out
}
