package model

// Classifier is a binary classifier over 0/1 labels.
type Classifier interface {
	Fit(X [][]float64, y []int) error
	PredictProba(X [][]float64) []float64 // returns p(y=1) per row
	Predict(X [][]float64) []int
}
