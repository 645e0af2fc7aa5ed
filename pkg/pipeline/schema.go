package pipeline

import (
	"fmt"

	"diabetesml/pkg/dataprep"
)

// Schema describes the structure of a dataset.
type Schema struct {
	Raw          []string
	Interactions []dataprep.Interaction
	Target       string
}

// DiabetesSchema is the Pima diabetes layout with its engineered features.
func DiabetesSchema() Schema {
	return Schema{
		Raw: []string{
			"Pregnancies", "Glucose", "BloodPressure", "SkinThickness",
			"Insulin", "BMI", "DiabetesPedigreeFunction", "Age",
		},
		Interactions: dataprep.DiabetesInteractions,
		Target:       "Outcome",
	}
}

// FeatureNames lists the raw then the derived feature columns.
func (s Schema) FeatureNames() []string {
	return append(append([]string(nil), s.Raw...), dataprep.InteractionNames(s.Interactions)...)
}

// Validate checks that columns hold every raw feature, and the target when withTarget is set.
func (s Schema) Validate(columns []string, withTarget bool) error {
	have := make(map[string]bool, len(columns))
	for _, c := range columns {
		have[c] = true
	}
	for _, c := range s.Raw {
		if !have[c] {
			return fmt.Errorf("schema: missing feature column %q", c)
		}
	}
	if withTarget && !have[s.Target] {
		return fmt.Errorf("schema: missing target column %q", s.Target)
	}
	return nil
}
