// Package serve exposes the trained classifier through an HTML form.
package serve

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"diabetesml/pkg/config"
	"diabetesml/pkg/data"
	"diabetesml/pkg/dataprep"
	"diabetesml/pkg/errs"
	"diabetesml/pkg/logging"
	"diabetesml/pkg/model"
	"diabetesml/pkg/pipeline"
	"diabetesml/pkg/stats"
)

// ErrNotLoaded is returned when the model or the scaler could not be loaded at startup.
var ErrNotLoaded = errors.New("Error: Model or scaler not loaded.")

// Service holds the artifacts loaded once at startup. It is read-only afterwards.
type Service struct {
	Model  *model.GradientBoostedTrees
	Scaler *stats.RobustScaler
	Schema pipeline.Schema
}

// LoadService loads the model and the scaler. A missing artifact is logged and leaves
// the service running without it.
func LoadService(paths config.Paths) *Service {
	s := &Service{Schema: pipeline.DiabetesSchema()}
	m, err := model.Load(paths.ModelOutput)
	if err != nil {
		logging.Log.WithError(err).Error("Error loading model artifact")
	} else {
		s.Model = m
	}
	sc, err := stats.LoadScaler(paths.Scaler)
	if err != nil {
		logging.Log.WithError(err).Error("Error loading scaler artifact")
	} else {
		s.Scaler = sc
	}
	if s.Ready() {
		logging.Log.Info("Model and scaler loaded successfully")
	}
	return s
}

// Ready reports whether both artifacts are available.
func (s *Service) Ready() bool { return s.Model != nil && s.Scaler != nil }

// Result is one prediction.
type Result struct {
	Class       int
	Probability float64 // p(y=1)
}

// Confidence is the probability of the predicted class, in percent.
func (r Result) Confidence() float64 {
	if r.Class == 1 {
		return r.Probability * 100
	}
	return (1 - r.Probability) * 100
}

func (r Result) Label() string {
	if r.Class == 1 {
		return "Diabetic"
	}
	return "Not Diabetic"
}

func (r Result) String() string {
	return fmt.Sprintf("Prediction: %s (Confidence: %.2f%%)", r.Label(), r.Confidence())
}

// ParseForm reads every raw feature by name. Missing, non-numeric and non-finite values
// are input errors.
func (s *Service) ParseForm(form url.Values) (map[string]float64, error) {
	out := make(map[string]float64, len(s.Schema.Raw))
	for _, name := range s.Schema.Raw {
		raw := strings.TrimSpace(form.Get(name))
		if raw == "" {
			return nil, errs.New(errs.KindInput, fmt.Sprintf("missing value for %s", name), nil)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errs.New(errs.KindInput, fmt.Sprintf("could not convert %s value %q to a number", name, raw), err)
		}
		out[name] = v
	}
	return out, nil
}

// Predict derives the interaction features exactly as training does, scales and classifies.
func (s *Service) Predict(input map[string]float64) (Result, error) {
	if !s.Ready() {
		return Result{}, ErrNotLoaded
	}
	row := make([]float64, len(s.Schema.Raw))
	for i, name := range s.Schema.Raw {
		v, ok := input[name]
		if !ok {
			return Result{}, errs.New(errs.KindInput, fmt.Sprintf("missing value for %s", name), nil)
		}
		row[i] = v
	}
	f, err := data.NewFrame(append([]string(nil), s.Schema.Raw...), [][]float64{row})
	if err != nil {
		return Result{}, err
	}
	if f, err = dataprep.AddInteractions(f, s.Schema.Interactions); err != nil {
		return Result{}, err
	}
	if f, err = s.Scaler.Transform(f); err != nil {
		return Result{}, err
	}
	features := s.Model.FeatureNames()
	if len(features) == 0 {
		features = s.Schema.FeatureNames()
	}
	if f, err = f.Select(features...); err != nil {
		return Result{}, err
	}

	p := s.Model.PredictProba(f.Rows)[0]
	return Result{Class: model.BinaryPredFromProba([]float64{p}, 0.5)[0], Probability: p}, nil
}

// userMessage strips the source location from input errors.
func userMessage(err error) string {
	var e *errs.Error
	if errors.As(err, &e) && e.Kind == errs.KindInput {
		return e.Msg
	}
	return err.Error()
}
