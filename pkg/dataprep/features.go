package dataprep

import (
	"fmt"

	"diabetesml/pkg/data"
)

// Interaction is a derived feature equal to Left * Right.
type Interaction struct {
	Name  string
	Left  string
	Right string
}

// DiabetesInteractions are the engineered features of the diabetes model.
var DiabetesInteractions = []Interaction{
	{Name: "Glucose_x_BMI", Left: "Glucose", Right: "BMI"},
	{Name: "Glucose_x_Age", Left: "Glucose", Right: "Age"},
	{Name: "SkinThickness_x_Insulin", Left: "SkinThickness", Right: "Insulin"},
}

// AddInteractions returns a copy of f with one column per interaction appended.
// Missing inputs propagate as NaN so the imputer sees them.
func AddInteractions(f *data.Frame, interactions []Interaction) (*data.Frame, error) {
	out := f.Clone()
	for _, it := range interactions {
		l, r := f.Index(it.Left), f.Index(it.Right)
		if l < 0 || r < 0 {
			return nil, fmt.Errorf("interaction %s needs columns %q and %q", it.Name, it.Left, it.Right)
		}
		vals := make([]float64, len(f.Rows))
		for i, row := range f.Rows {
			vals[i] = row[l] * row[r]
		}
		if err := out.AddColumn(it.Name, vals); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// InteractionNames lists the derived column names in order.
func InteractionNames(interactions []Interaction) []string {
	out := make([]string, len(interactions))
	for i, it := range interactions {
		out[i] = it.Name
	}
	return out
}
