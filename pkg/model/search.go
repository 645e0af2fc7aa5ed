package model

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"diabetesml/pkg/loader"
	"diabetesml/pkg/logging"
)

// Distribution draws one hyperparameter value.
type Distribution interface {
	Sample(rnd *rand.Rand) float64
}

// RandInt draws integers uniformly from [Low, High).
type RandInt struct{ Low, High int }

func (d RandInt) Sample(rnd *rand.Rand) float64 {
	return float64(d.Low + rnd.Intn(d.High-d.Low))
}

// Uniform draws floats uniformly from [Loc, Loc+Scale).
type Uniform struct{ Loc, Scale float64 }

func (d Uniform) Sample(rnd *rand.Rand) float64 { return d.Loc + rnd.Float64()*d.Scale }

// Choice picks one of Values with equal probability.
type Choice struct{ Values []float64 }

func (d Choice) Sample(rnd *rand.Rand) float64 { return d.Values[rnd.Intn(len(d.Values))] }

// Scorer rates predicted probabilities against labels; higher is better.
type Scorer func(yTrue []int, proba []float64) float64

// ScorerByName resolves the scoring names accepted in configuration.
func ScorerByName(name string) (Scorer, error) {
	switch name {
	case "f1":
		return func(y []int, p []float64) float64 {
			_, _, f1 := PrecisionRecallF1(y, BinaryPredFromProba(p, 0.5))
			return f1
		}, nil
	case "accuracy":
		return func(y []int, p []float64) float64 { return Accuracy(y, BinaryPredFromProba(p, 0.5)) }, nil
	case "precision":
		return func(y []int, p []float64) float64 {
			prec, _, _ := PrecisionRecallF1(y, BinaryPredFromProba(p, 0.5))
			return prec
		}, nil
	case "recall":
		return func(y []int, p []float64) float64 {
			_, rec, _ := PrecisionRecallF1(y, BinaryPredFromProba(p, 0.5))
			return rec
		}, nil
	case "roc_auc":
		return ROCAUC, nil
	case "neg_log_loss":
		return func(y []int, p []float64) float64 { return -LogLoss(y, p) }, nil
	}
	return nil, fmt.Errorf("model: unknown scoring %q", name)
}

// RandomizedSearch samples NIter parameter sets, scores each with stratified K-fold
// cross-validation and refits the best one on all rows.
type RandomizedSearch struct {
	Base          Params
	Distributions map[string]Distribution
	NIter         int
	CV            int
	Scoring       string
	RandomState   int64
	NJobs         int // <= 0 uses every CPU
}

// Candidate is one sampled configuration and its fold scores.
type Candidate struct {
	Sample map[string]float64
	Params Params
	Scores []float64
	Mean   float64
	Std    float64
}

// SearchResult holds the refit winner and every evaluated candidate in sampling order.
type SearchResult struct {
	Best       *GradientBoostedTrees
	BestIndex  int
	BestScore  float64
	BestParams Params
	Candidates []Candidate
}

// Sample draws the candidate parameter sets. Names are visited in sorted order so the
// draws depend only on RandomState.
func (s *RandomizedSearch) Sample() ([]Candidate, error) {
	names := make([]string, 0, len(s.Distributions))
	for name := range s.Distributions {
		names = append(names, name)
	}
	sort.Strings(names)

	rnd := rand.New(rand.NewSource(s.RandomState))
	out := make([]Candidate, s.NIter)
	for i := range out {
		p := s.Base
		sample := make(map[string]float64, len(names))
		for _, name := range names {
			v := s.Distributions[name].Sample(rnd)
			if err := p.Set(name, v); err != nil {
				return nil, err
			}
			sample[name] = v
		}
		out[i] = Candidate{Sample: sample, Params: p}
	}
	return out, nil
}

// Fit runs the search. X rows must follow features, which is stored on the refit model.
func (s *RandomizedSearch) Fit(ctx context.Context, X [][]float64, y []int, features []string) (*SearchResult, error) {
	if s.NIter < 1 {
		return nil, errors.New("search: n_iter must be positive")
	}
	if len(X) != len(y) {
		return nil, errors.New("search: X and y length mismatch")
	}
	scorer, err := ScorerByName(s.Scoring)
	if err != nil {
		return nil, err
	}
	folds, err := loader.StratifiedKFold(y, s.CV)
	if err != nil {
		return nil, err
	}
	candidates, err := s.Sample()
	if err != nil {
		return nil, err
	}

	jobs := s.NJobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	logging.Log.WithFields(logrus.Fields{
		"candidates": len(candidates),
		"folds":      len(folds),
		"jobs":       jobs,
		"scoring":    s.Scoring,
	}).Info("Starting randomized search")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c := &candidates[i]
			scores, err := crossValidate(gctx, c.Params, X, y, folds, scorer)
			if err != nil {
				return fmt.Errorf("candidate %d: %w", i, err)
			}
			c.Scores = scores
			c.Mean, c.Std = stat.PopMeanStdDev(scores, nil)
			logging.Log.WithFields(logrus.Fields{"candidate": i, "mean_score": c.Mean}).Debug("Candidate evaluated")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	best := -1
	bestScore := math.Inf(-1)
	for i, c := range candidates {
		mean := c.Mean
		if math.IsNaN(mean) {
			continue
		}
		if best < 0 || mean > bestScore {
			best, bestScore = i, mean
		}
	}
	if best < 0 {
		return nil, errors.New("search: no candidate produced a finite score")
	}

	m := &GradientBoostedTrees{Params: candidates[best].Params, Features: append([]string(nil), features...)}
	if err := m.Fit(X, y); err != nil {
		return nil, fmt.Errorf("refit best candidate: %w", err)
	}
	logging.Log.WithFields(logrus.Fields{"best_index": best, "best_score": bestScore}).Info("Randomized search finished")

	return &SearchResult{
		Best:       m,
		BestIndex:  best,
		BestScore:  bestScore,
		BestParams: candidates[best].Params,
		Candidates: candidates,
	}, nil
}

func crossValidate(ctx context.Context, p Params, X [][]float64, y []int, folds [][]int, scorer Scorer) ([]float64, error) {
	scores := make([]float64, len(folds))
	for k, test := range folds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		train := loader.Complement(len(X), test)
		m := &GradientBoostedTrees{Params: p}
		if err := m.Fit(pickRows(X, train), pickLabels(y, train)); err != nil {
			return nil, err
		}
		scores[k] = scorer(pickLabels(y, test), m.PredictProba(pickRows(X, test)))
	}
	return scores, nil
}

func pickRows(X [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for k, i := range idx {
		out[k] = X[i]
	}
	return out
}

func pickLabels(y []int, idx []int) []int {
	out := make([]int, len(idx))
	for k, i := range idx {
		out[k] = y[i]
	}
	return out
}
