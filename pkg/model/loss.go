package model

import "math"

func Sigmoid(x float64) float64 { return 1.0 / (1.0 + math.Exp(-x)) }

// Logit is the inverse of Sigmoid, clamped away from 0 and 1.
func Logit(p float64) float64 {
	p = math.Min(math.Max(p, 1e-15), 1-1e-15)
	return math.Log(p / (1 - p))
}

// LogLoss is the mean binary cross-entropy of probabilities against 0/1 labels.
func LogLoss(yTrue []int, proba []float64) float64 {
	n := len(yTrue)
	if n == 0 {
		return 0
	}
	s := 0.0
	for i := range n {
		p := math.Min(math.Max(proba[i], 1e-15), 1-1e-15)
		if yTrue[i] == 1 {
			s -= math.Log(p)
		} else {
			s -= math.Log(1 - p)
		}
	}
	return s / float64(n)
}

// logisticGradients fills the weighted first and second derivatives of the log loss
// with respect to the raw scores.
func logisticGradients(y []int, weight, score, grad, hess []float64) {
	for i := range y {
		p := Sigmoid(score[i])
		grad[i] = weight[i] * (p - float64(y[i]))
		hess[i] = weight[i] * p * (1 - p)
	}
}
