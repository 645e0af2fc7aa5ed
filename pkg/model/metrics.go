package model

import (
	"math"
	"sort"
)

// Binary classification metrics, labels 0/1.

func BinaryPredFromProba(proba []float64, threshold float64) []int {
	out := make([]int, len(proba))
	for i, p := range proba {
		if p > threshold {
			out[i] = 1
		} else {
			out[i] = 0
		}
	}
	return out
}

func Accuracy(yTrue []int, yPred []int) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	c := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			c++
		}
	}
	return float64(c) / float64(len(yTrue))
}

// ConfusionMatrix returns the true negative, false positive, false negative and true positive counts.
func ConfusionMatrix(yTrue []int, yPred []int) (tn, fp, fn, tp int) {
	for i := range yTrue {
		switch {
		case yPred[i] == 1 && yTrue[i] == 1:
			tp++
		case yPred[i] == 1 && yTrue[i] == 0:
			fp++
		case yPred[i] == 0 && yTrue[i] == 1:
			fn++
		default:
			tn++
		}
	}
	return
}

// PrecisionRecallF1 returns 0 for any ratio with an empty denominator.
func PrecisionRecallF1(yTrue []int, yPred []int) (prec, rec, f1 float64) {
	_, fp, fn, tp := ConfusionMatrix(yTrue, yPred)
	if tp+fp > 0 {
		prec = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		rec = float64(tp) / float64(tp+fn)
	}
	if prec+rec > 0 {
		f1 = 2 * prec * rec / (prec + rec)
	}
	return
}

// ROCCurve returns false and true positive rates at every distinct score threshold,
// starting at (0, 0). Thresholds are in decreasing order; the first one is +Inf.
func ROCCurve(yTrue []int, scores []float64) (fpr, tpr, thresholds []float64) {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] > scores[idx[b]] })

	pos, neg := 0, 0
	for _, y := range yTrue {
		if y == 1 {
			pos++
		} else {
			neg++
		}
	}

	fpr = []float64{0}
	tpr = []float64{0}
	thresholds = []float64{math.Inf(1)}
	tp, fp := 0, 0
	for k, i := range idx {
		if yTrue[i] == 1 {
			tp++
		} else {
			fp++
		}
		if k+1 < len(idx) && scores[idx[k+1]] == scores[i] {
			continue
		}
		fpr = append(fpr, rate(fp, neg))
		tpr = append(tpr, rate(tp, pos))
		thresholds = append(thresholds, scores[i])
	}
	return fpr, tpr, thresholds
}

func rate(c, total int) float64 {
	if total == 0 {
		return math.NaN()
	}
	return float64(c) / float64(total)
}

// AUC integrates a curve with the trapezoidal rule.
func AUC(x, y []float64) float64 {
	area := 0.0
	for i := 1; i < len(x); i++ {
		area += (x[i] - x[i-1]) * (y[i] + y[i-1]) / 2
	}
	return area
}

// ROCAUC is the area under the ROC curve. It is NaN when yTrue holds a single class.
func ROCAUC(yTrue []int, scores []float64) float64 {
	fpr, tpr, _ := ROCCurve(yTrue, scores)
	return AUC(fpr, tpr)
}

// Report gathers the evaluation metrics logged for a trained model.
type Report struct {
	Accuracy  float64
	Precision float64
	Recall    float64
	F1        float64
	ROCAUC    float64
	LogLoss   float64
}

// Evaluate scores probabilities against labels, predicting 1 when p > 0.5.
func Evaluate(yTrue []int, proba []float64) Report {
	pred := BinaryPredFromProba(proba, 0.5)
	prec, rec, f1 := PrecisionRecallF1(yTrue, pred)
	return Report{
		Accuracy:  Accuracy(yTrue, pred),
		Precision: prec,
		Recall:    rec,
		F1:        f1,
		ROCAUC:    ROCAUC(yTrue, proba),
		LogLoss:   LogLoss(yTrue, proba),
	}
}

// Map keys the report the way it is logged to the tracker.
func (r Report) Map() map[string]float64 {
	return map[string]float64{
		"accuracy":  r.Accuracy,
		"precision": r.Precision,
		"recall":    r.Recall,
		"f1_score":  r.F1,
		"roc_auc":   r.ROCAUC,
		"log_loss":  r.LogLoss,
	}
}
