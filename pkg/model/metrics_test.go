package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassificationMetrics(t *testing.T) {
	yTrue := []int{1, 1, 1, 0, 0, 0, 0, 1}
	yPred := []int{1, 0, 1, 0, 1, 0, 0, 1}

	tn, fp, fn, tp := ConfusionMatrix(yTrue, yPred)
	assert.Equal(t, []int{3, 1, 1, 3}, []int{tn, fp, fn, tp})
	assert.Equal(t, 0.75, Accuracy(yTrue, yPred))

	prec, rec, f1 := PrecisionRecallF1(yTrue, yPred)
	assert.Equal(t, 0.75, prec)
	assert.Equal(t, 0.75, rec)
	assert.InDelta(t, 0.75, f1, 1e-12)

	prec, rec, f1 = PrecisionRecallF1([]int{0, 0}, []int{0, 0})
	assert.Zero(t, prec)
	assert.Zero(t, rec)
	assert.Zero(t, f1)
}

func TestBinaryPredFromProbaIsStrict(t *testing.T) {
	assert.Equal(t, []int{0, 0, 1}, BinaryPredFromProba([]float64{0.2, 0.5, 0.51}, 0.5))
}

func TestROCAUC(t *testing.T) {
	tests := []struct {
		name   string
		y      []int
		scores []float64
		want   float64
	}{
		{"perfect", []int{0, 0, 1, 1}, []float64{0.1, 0.2, 0.8, 0.9}, 1},
		{"reversed", []int{1, 1, 0, 0}, []float64{0.1, 0.2, 0.8, 0.9}, 0},
		{"mixed", []int{0, 0, 1, 1}, []float64{0.1, 0.4, 0.35, 0.8}, 0.75},
		{"ties", []int{0, 1}, []float64{0.5, 0.5}, 0.5},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, ROCAUC(tc.y, tc.scores), 1e-12)
		})
	}

	assert.True(t, math.IsNaN(ROCAUC([]int{1, 1}, []float64{0.3, 0.6})))
}

func TestROCCurveShape(t *testing.T) {
	fpr, tpr, thr := ROCCurve([]int{0, 0, 1, 1}, []float64{0.1, 0.4, 0.35, 0.8})
	assert.Equal(t, []float64{0, 0, 0.5, 0.5, 1}, fpr)
	assert.Equal(t, []float64{0, 0.5, 0.5, 1, 1}, tpr)
	assert.True(t, math.IsInf(thr[0], 1))
	assert.Equal(t, []float64{0.8, 0.4, 0.35, 0.1}, thr[1:])
}

func TestEvaluate(t *testing.T) {
	r := Evaluate([]int{0, 1, 1, 0}, []float64{0.1, 0.9, 0.7, 0.6})
	assert.Equal(t, 0.75, r.Accuracy)
	assert.InDelta(t, 2.0/3.0, r.Precision, 1e-12)
	assert.Equal(t, 1.0, r.Recall)
	assert.Equal(t, 1.0, r.ROCAUC)
	assert.Greater(t, r.LogLoss, 0.0)
	assert.Len(t, r.Map(), 6)
}

func TestLogLoss(t *testing.T) {
	assert.InDelta(t, math.Log(2), LogLoss([]int{0, 1}, []float64{0.5, 0.5}), 1e-12)
	assert.Less(t, LogLoss([]int{0, 1}, []float64{0, 1}), 1e-12)
	assert.Zero(t, LogLoss(nil, nil))
	assert.InDelta(t, 0.25, Sigmoid(Logit(0.25)), 1e-12)
}
