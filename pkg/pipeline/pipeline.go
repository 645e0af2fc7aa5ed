package pipeline

import "diabetesml/pkg/data"

// Transformer interface for fit/transform pattern.
type Transformer interface {
	Fit(f *data.Frame) error
	Transform(f *data.Frame) (*data.Frame, error)
}

// Pipeline chains multiple transformers. Each step is fit on the output of the previous one.
type Pipeline struct {
	steps []Transformer
}

func NewPipeline(steps ...Transformer) *Pipeline {
	return &Pipeline{steps: steps}
}

// FitTransform fits every step in order and returns the fully transformed frame.
func (p *Pipeline) FitTransform(f *data.Frame) (*data.Frame, error) {
	for _, step := range p.steps {
		if err := step.Fit(f); err != nil {
			return nil, err
		}
		var err error
		if f, err = step.Transform(f); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Transform applies the fitted steps without refitting.
func (p *Pipeline) Transform(f *data.Frame) (*data.Frame, error) {
	for _, step := range p.steps {
		var err error
		if f, err = step.Transform(f); err != nil {
			return nil, err
		}
	}
	return f, nil
}
