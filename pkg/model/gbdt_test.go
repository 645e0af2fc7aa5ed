package model

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// separable returns two uniform features with a linear decision boundary.
func separable(n int, seed int64) ([][]float64, []int) {
	rnd := rand.New(rand.NewSource(seed))
	X := make([][]float64, n)
	y := make([]int, n)
	for i := range X {
		a, b := rnd.Float64(), rnd.Float64()
		X[i] = []float64{a, b}
		if a+0.2*b > 0.6 {
			y[i] = 1
		}
	}
	return X, y
}

func TestGBDTLearnsSeparableData(t *testing.T) {
	X, y := separable(300, 1)
	m := NewGradientBoostedTrees(WithNEstimators(60), WithNumLeaves(8))
	require.NoError(t, m.Fit(X, y))

	proba := m.PredictProba(X)
	for _, p := range proba {
		assert.True(t, p >= 0 && p <= 1, "probability %v out of range", p)
	}
	assert.Greater(t, Accuracy(y, m.Predict(X)), 0.9)

	Xt, yt := separable(200, 2)
	assert.Greater(t, ROCAUC(yt, m.PredictProba(Xt)), 0.9)
}

func TestGBDTDeterministic(t *testing.T) {
	X, y := separable(200, 3)
	opts := []Option{WithNEstimators(20), WithSubsample(0.7), WithColsampleByTree(0.5), WithRandomState(7)}

	a := NewGradientBoostedTrees(opts...)
	require.NoError(t, a.Fit(X, y))
	b := NewGradientBoostedTrees(opts...)
	require.NoError(t, b.Fit(X, y))

	assert.Equal(t, a.Trees, b.Trees)
	assert.Equal(t, a.PredictProba(X), b.PredictProba(X))
}

func TestGBDTInitScoreUsesWeightedBaseRate(t *testing.T) {
	// 2 positives, 6 negatives, weight 3 on positives: weighted base rate is 0.5.
	X := [][]float64{{1}, {2}, {3}, {4}, {5}, {6}, {7}, {8}}
	y := []int{1, 0, 0, 0, 1, 0, 0, 0}
	m := NewGradientBoostedTrees(WithNEstimators(3), WithScalePosWeight(3))
	require.NoError(t, m.Fit(X, y))

	assert.InDelta(t, 0, m.InitScore, 1e-12)
	// Eight rows cannot hold two children of min_child_samples=20, so every tree is a single leaf.
	for _, tree := range m.Trees {
		assert.Equal(t, 1, tree.NumLeaves())
	}
	proba := m.PredictProba(X)
	for _, p := range proba[1:] {
		assert.Equal(t, proba[0], p)
	}
}

func TestGBDTRespectsTreeLimits(t *testing.T) {
	X, y := separable(400, 4)

	shallow := NewGradientBoostedTrees(WithNEstimators(10), WithMaxDepth(1), WithNumLeaves(31))
	require.NoError(t, shallow.Fit(X, y))
	for _, tree := range shallow.Trees {
		assert.LessOrEqual(t, tree.Depth(), 1)
	}

	narrow := NewGradientBoostedTrees(WithNEstimators(10), WithNumLeaves(4), WithMinChildSamples(5))
	require.NoError(t, narrow.Fit(X, y))
	for _, tree := range narrow.Trees {
		assert.LessOrEqual(t, tree.NumLeaves(), 4)
	}
}

func TestTreeMissingValueGoesLeft(t *testing.T) {
	tree := Tree{Nodes: []Node{
		{Feature: 0, Threshold: 1, Left: 1, Right: 2},
		{Leaf: true, Value: -1},
		{Leaf: true, Value: 1},
	}}
	assert.Equal(t, -1.0, tree.predict([]float64{math.NaN()}))
	assert.Equal(t, -1.0, tree.predict([]float64{1}))
	assert.Equal(t, 1.0, tree.predict([]float64{1.5}))
}

func TestGBDTHandlesMissingValues(t *testing.T) {
	X, y := separable(200, 5)
	for i := 0; i < len(X); i += 10 {
		X[i][1] = math.NaN()
	}
	m := NewGradientBoostedTrees(WithNEstimators(10))
	require.NoError(t, m.Fit(X, y))
	for _, p := range m.PredictProba([][]float64{{math.NaN(), math.NaN()}, {0.9, math.NaN()}}) {
		assert.False(t, math.IsNaN(p))
	}
}

func TestGBDTFitErrors(t *testing.T) {
	m := NewGradientBoostedTrees()
	assert.Error(t, m.Fit(nil, nil))
	assert.Error(t, m.Fit([][]float64{{1}, {2}}, []int{0}))
	assert.Error(t, m.Fit([][]float64{{1}, {2, 3}}, []int{0, 1}))
	assert.Error(t, m.Fit([][]float64{{1}, {2}}, []int{0, 2}))

	bad := NewGradientBoostedTrees(WithLearningRate(0))
	assert.Error(t, bad.Fit([][]float64{{1}, {2}}, []int{0, 1}))

	named := NewGradientBoostedTrees()
	named.Features = []string{"a", "b"}
	assert.Error(t, named.Fit([][]float64{{1}, {2}}, []int{0, 1}))
}

func TestGBDTSaveLoad(t *testing.T) {
	X, y := separable(150, 6)
	m := NewGradientBoostedTrees(WithNEstimators(15))
	m.Features = []string{"a", "b"}
	require.NoError(t, m.Fit(X, y))

	path := filepath.Join(t.TempDir(), "models", "model.gob")
	require.NoError(t, m.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, loaded.FeatureNames())
	assert.Equal(t, m.Params, loaded.Params)
	assert.Equal(t, m.PredictProba(X), loaded.PredictProba(X))

	_, err = Load(filepath.Join(t.TempDir(), "missing.gob"))
	assert.Error(t, err)

	junk := filepath.Join(t.TempDir(), "junk.gob")
	require.NoError(t, os.WriteFile(junk, []byte("not a model"), 0o644))
	_, err = Load(junk)
	assert.Error(t, err)
}

func TestUnmarshalRejectsBrokenTree(t *testing.T) {
	m := &GradientBoostedTrees{Params: DefaultParams(), Trees: []Tree{{Nodes: []Node{{Feature: 0, Left: 0, Right: 5}}}}}
	b, err := m.MarshalBinary()
	require.NoError(t, err)
	assert.Error(t, (&GradientBoostedTrees{}).UnmarshalBinary(b))
}

func TestBinBounds(t *testing.T) {
	assert.Equal(t, []float64{1.5, 2.5, math.Inf(1)}, binBounds([]float64{3, 1, 2, 2}, 255))
	assert.Equal(t, []float64{math.Inf(1)}, binBounds(nil, 255))

	values := make([]float64, 1000)
	for i := range values {
		values[i] = float64(i)
	}
	bounds := binBounds(values, 16)
	assert.LessOrEqual(t, len(bounds), 16)
	assert.Greater(t, len(bounds), 8)

	m := &binMapper{upper: [][]float64{{1.5, 2.5, math.Inf(1)}}}
	assert.Equal(t, uint8(0), m.bin(0, math.NaN()))
	assert.Equal(t, uint8(0), m.bin(0, 1.5))
	assert.Equal(t, uint8(1), m.bin(0, 2))
	assert.Equal(t, uint8(2), m.bin(0, 100))
}

func TestParamsSetAndMap(t *testing.T) {
	p := DefaultParams()
	require.NoError(t, p.Set("n_estimators", 250))
	require.NoError(t, p.Set("learning_rate", 0.05))
	require.NoError(t, p.Set("max_depth", -1))
	assert.Error(t, p.Set("boosting", 1))

	assert.Equal(t, 250, p.NEstimators)
	assert.Equal(t, 0.05, p.Map()["learning_rate"])
	assert.Equal(t, -1.0, p.Map()["max_depth"])
	assert.Len(t, ParamNames(), len(p.Map()))
	assert.NoError(t, p.Validate())
}
