package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSearch(jobs int) *RandomizedSearch {
	base := DefaultParams()
	base.MinChildSamples = 5
	return &RandomizedSearch{
		Base: base,
		Distributions: map[string]Distribution{
			"n_estimators":     RandInt{Low: 5, High: 15},
			"num_leaves":       RandInt{Low: 2, High: 8},
			"max_depth":        Choice{Values: []float64{-1, 2, 3}},
			"learning_rate":    Uniform{Loc: 0.05, Scale: 0.2},
			"colsample_bytree": Uniform{Loc: 0.6, Scale: 0.4},
			"subsample":        Uniform{Loc: 0.6, Scale: 0.4},
		},
		NIter:       4,
		CV:          3,
		Scoring:     "f1",
		RandomState: 42,
		NJobs:       jobs,
	}
}

func TestSampleIsSeededAndInRange(t *testing.T) {
	s := testSearch(1)
	a, err := s.Sample()
	require.NoError(t, err)
	b, err := s.Sample()
	require.NoError(t, err)
	assert.Equal(t, a, b)

	for _, c := range a {
		assert.GreaterOrEqual(t, c.Params.NEstimators, 5)
		assert.Less(t, c.Params.NEstimators, 15)
		assert.Contains(t, []int{-1, 2, 3}, c.Params.MaxDepth)
		assert.GreaterOrEqual(t, c.Params.LearningRate, 0.05)
		assert.Less(t, c.Params.LearningRate, 0.25)
		assert.Equal(t, 5, c.Params.MinChildSamples, "unsampled parameters keep the base value")
		assert.Len(t, c.Sample, 6)
	}

	s.RandomState = 43
	other, err := s.Sample()
	require.NoError(t, err)
	assert.NotEqual(t, a, other)
}

func TestSampleUnknownParameter(t *testing.T) {
	s := testSearch(1)
	s.Distributions["boosting_type"] = Choice{Values: []float64{1}}
	_, err := s.Sample()
	assert.Error(t, err)
}

func TestRandomizedSearchIndependentOfWorkers(t *testing.T) {
	X, y := separable(150, 9)
	features := []string{"a", "b"}

	serial, err := testSearch(1).Fit(context.Background(), X, y, features)
	require.NoError(t, err)
	parallel, err := testSearch(4).Fit(context.Background(), X, y, features)
	require.NoError(t, err)

	assert.Equal(t, serial.BestIndex, parallel.BestIndex)
	assert.Equal(t, serial.BestScore, parallel.BestScore)
	assert.Equal(t, serial.Candidates, parallel.Candidates)
	assert.Equal(t, serial.Best.Trees, parallel.Best.Trees)

	assert.Equal(t, features, serial.Best.FeatureNames())
	assert.Equal(t, serial.Candidates[serial.BestIndex].Params, serial.BestParams)
	for _, c := range serial.Candidates {
		assert.Len(t, c.Scores, 3)
		assert.LessOrEqual(t, c.Mean, serial.BestScore)
	}
	for i := 0; i < serial.BestIndex; i++ {
		assert.Less(t, serial.Candidates[i].Mean, serial.BestScore, "earlier candidates lose ties")
	}
}

func TestRandomizedSearchErrors(t *testing.T) {
	X, y := separable(30, 10)

	s := testSearch(1)
	s.Scoring = "bogus"
	_, err := s.Fit(context.Background(), X, y, nil)
	assert.Error(t, err)

	s = testSearch(1)
	s.CV = 1
	_, err = s.Fit(context.Background(), X, y, nil)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = testSearch(2).Fit(ctx, X, y, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScorerByName(t *testing.T) {
	for _, name := range []string{"f1", "accuracy", "precision", "recall", "roc_auc", "neg_log_loss"} {
		s, err := ScorerByName(name)
		require.NoError(t, err, name)
		assert.NotNil(t, s)
	}
	acc, _ := ScorerByName("accuracy")
	assert.Equal(t, 0.5, acc([]int{0, 1}, []float64{0.9, 0.9}))
}
