package model

import (
	"fmt"
	"sort"
)

// Params are the boosting hyperparameters. Names follow the LightGBM scikit-learn wrapper.
type Params struct {
	NEstimators     int
	NumLeaves       int
	MaxDepth        int // <= 0 means unlimited
	LearningRate    float64
	ColsampleByTree float64
	Subsample       float64
	RegAlpha        float64
	RegLambda       float64
	MinChildSamples int
	MinChildWeight  float64
	MinSplitGain    float64
	ScalePosWeight  float64
	MaxBin          int
	RandomState     int64
}

// DefaultParams mirrors the LightGBM defaults.
func DefaultParams() Params {
	return Params{
		NEstimators:     100,
		NumLeaves:       31,
		MaxDepth:        -1,
		LearningRate:    0.1,
		ColsampleByTree: 1,
		Subsample:       1,
		MinChildSamples: 20,
		MinChildWeight:  1e-3,
		ScalePosWeight:  1,
		MaxBin:          255,
		RandomState:     42,
	}
}

// Option functional config
type Option func(*Params)

func WithNEstimators(n int) Option         { return func(p *Params) { p.NEstimators = n } }
func WithNumLeaves(n int) Option           { return func(p *Params) { p.NumLeaves = n } }
func WithMaxDepth(d int) Option            { return func(p *Params) { p.MaxDepth = d } }
func WithLearningRate(lr float64) Option   { return func(p *Params) { p.LearningRate = lr } }
func WithScalePosWeight(w float64) Option  { return func(p *Params) { p.ScalePosWeight = w } }
func WithMinChildSamples(n int) Option     { return func(p *Params) { p.MinChildSamples = n } }
func WithRandomState(seed int64) Option    { return func(p *Params) { p.RandomState = seed } }
func WithColsampleByTree(f float64) Option { return func(p *Params) { p.ColsampleByTree = f } }
func WithSubsample(f float64) Option       { return func(p *Params) { p.Subsample = f } }

// Set assigns a hyperparameter by its snake_case name. Integer parameters are truncated.
func (p *Params) Set(name string, v float64) error {
	switch name {
	case "n_estimators":
		p.NEstimators = int(v)
	case "num_leaves":
		p.NumLeaves = int(v)
	case "max_depth":
		p.MaxDepth = int(v)
	case "learning_rate":
		p.LearningRate = v
	case "colsample_bytree":
		p.ColsampleByTree = v
	case "subsample":
		p.Subsample = v
	case "reg_alpha":
		p.RegAlpha = v
	case "reg_lambda":
		p.RegLambda = v
	case "min_child_samples":
		p.MinChildSamples = int(v)
	case "min_child_weight":
		p.MinChildWeight = v
	case "min_split_gain":
		p.MinSplitGain = v
	case "scale_pos_weight":
		p.ScalePosWeight = v
	case "max_bin":
		p.MaxBin = int(v)
	case "random_state":
		p.RandomState = int64(v)
	default:
		return fmt.Errorf("model: unknown parameter %q", name)
	}
	return nil
}

// Map returns every parameter keyed by its snake_case name.
func (p Params) Map() map[string]float64 {
	return map[string]float64{
		"n_estimators":      float64(p.NEstimators),
		"num_leaves":        float64(p.NumLeaves),
		"max_depth":         float64(p.MaxDepth),
		"learning_rate":     p.LearningRate,
		"colsample_bytree":  p.ColsampleByTree,
		"subsample":         p.Subsample,
		"reg_alpha":         p.RegAlpha,
		"reg_lambda":        p.RegLambda,
		"min_child_samples": float64(p.MinChildSamples),
		"min_child_weight":  p.MinChildWeight,
		"min_split_gain":    p.MinSplitGain,
		"scale_pos_weight":  p.ScalePosWeight,
		"max_bin":           float64(p.MaxBin),
		"random_state":      float64(p.RandomState),
	}
}

// ParamNames lists the keys of Map in sorted order.
func ParamNames() []string {
	names := make([]string, 0, 14)
	for k := range DefaultParams().Map() {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Validate rejects settings the booster cannot train with.
func (p Params) Validate() error {
	switch {
	case p.NEstimators < 1:
		return fmt.Errorf("model: n_estimators must be positive, got %d", p.NEstimators)
	case p.NumLeaves < 2:
		return fmt.Errorf("model: num_leaves must be at least 2, got %d", p.NumLeaves)
	case p.LearningRate <= 0:
		return fmt.Errorf("model: learning_rate must be positive, got %v", p.LearningRate)
	case p.ColsampleByTree <= 0 || p.ColsampleByTree > 1:
		return fmt.Errorf("model: colsample_bytree must be in (0, 1], got %v", p.ColsampleByTree)
	case p.Subsample <= 0 || p.Subsample > 1:
		return fmt.Errorf("model: subsample must be in (0, 1], got %v", p.Subsample)
	case p.RegAlpha < 0 || p.RegLambda < 0:
		return fmt.Errorf("model: reg_alpha and reg_lambda must not be negative")
	case p.MinChildSamples < 1:
		return fmt.Errorf("model: min_child_samples must be positive, got %d", p.MinChildSamples)
	case p.ScalePosWeight <= 0:
		return fmt.Errorf("model: scale_pos_weight must be positive, got %v", p.ScalePosWeight)
	case p.MaxBin < 2 || p.MaxBin > 256:
		return fmt.Errorf("model: max_bin must be in [2, 256], got %d", p.MaxBin)
	}
	return nil
}
