package dataprep

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"diabetesml/pkg/data"
)

// ErrNotFitted is returned when Transform runs before Fit.
var ErrNotFitted = errors.New("dataprep: imputer is not fitted")

// MeanImputer replaces NaN cells of the chosen columns with the column mean learned by Fit.
type MeanImputer struct {
	Columns []string
	Means   []float64
}

func NewMeanImputer(columns []string) *MeanImputer {
	return &MeanImputer{Columns: append([]string(nil), columns...)}
}

// Fit learns one mean per column, ignoring NaN cells.
func (m *MeanImputer) Fit(f *data.Frame) error {
	means := make([]float64, len(m.Columns))
	for k, name := range m.Columns {
		col, err := f.Column(name)
		if err != nil {
			return err
		}
		present := observed(col)
		if len(present) == 0 {
			return fmt.Errorf("dataprep: column %q has no observed values", name)
		}
		means[k] = stat.Mean(present, nil)
	}
	m.Means = means
	return nil
}

// Transform returns a copy of f with missing cells filled; the fitted means are not touched.
func (m *MeanImputer) Transform(f *data.Frame) (*data.Frame, error) {
	if len(m.Means) != len(m.Columns) || len(m.Means) == 0 {
		return nil, ErrNotFitted
	}
	out := f.Clone()
	for k, name := range m.Columns {
		j := out.Index(name)
		if j < 0 {
			return nil, fmt.Errorf("dataprep: no column %q", name)
		}
		for _, row := range out.Rows {
			if math.IsNaN(row[j]) {
				row[j] = m.Means[k]
			}
		}
	}
	return out, nil
}

// FitTransform fits on f and fills it.
func (m *MeanImputer) FitTransform(f *data.Frame) (*data.Frame, error) {
	if err := m.Fit(f); err != nil {
		return nil, err
	}
	return m.Transform(f)
}

func observed(col []float64) []float64 {
	out := make([]float64, 0, len(col))
	for _, v := range col {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
