package model

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
)

// GradientBoostedTrees is a binary log-loss boosting classifier with histogram-based,
// leaf-wise tree growth.
type GradientBoostedTrees struct {
	Params    Params
	Features  []string // column order the model was fit on; optional
	InitScore float64
	Trees     []Tree
}

// NewGradientBoostedTrees returns a classifier with DefaultParams adjusted by opts.
func NewGradientBoostedTrees(opts ...Option) *GradientBoostedTrees {
	p := DefaultParams()
	for _, o := range opts {
		o(&p)
	}
	return &GradientBoostedTrees{Params: p}
}

// FeatureNames returns the column order the model expects.
func (m *GradientBoostedTrees) FeatureNames() []string { return m.Features }

// Fitted reports whether the model has been trained or loaded.
func (m *GradientBoostedTrees) Fitted() bool { return len(m.Trees) > 0 }

// Fit trains on X (n x p) and 0/1 labels y. Missing values must be math.NaN().
// The same Params and data always produce the same trees.
func (m *GradientBoostedTrees) Fit(X [][]float64, y []int) error {
	if err := m.Params.Validate(); err != nil {
		return err
	}
	n := len(X)
	if n == 0 {
		return errors.New("gbdt: empty X")
	}
	if len(y) != n {
		return errors.New("gbdt: X and y length mismatch")
	}
	p := len(X[0])
	if p == 0 {
		return errors.New("gbdt: X has no features")
	}
	for i := range X {
		if len(X[i]) != p {
			return errors.New("gbdt: inconsistent number of features in X rows")
		}
	}
	if len(m.Features) != 0 && len(m.Features) != p {
		return fmt.Errorf("gbdt: %d feature names for %d columns", len(m.Features), p)
	}
	for i, lab := range y {
		if lab != 0 && lab != 1 {
			return fmt.Errorf("gbdt: label at row %d is %d, want 0 or 1", i, lab)
		}
	}

	params := m.Params
	rnd := rand.New(rand.NewSource(params.RandomState))
	mapper := newBinMapper(X, params.MaxBin)
	bins := mapper.apply(X)

	weight := make([]float64, n)
	var sw, swy float64
	for i, lab := range y {
		w := 1.0
		if lab == 1 {
			w = params.ScalePosWeight
		}
		weight[i] = w
		sw += w
		swy += w * float64(lab)
	}
	m.InitScore = Logit(swy / sw)

	score := make([]float64, n)
	for i := range score {
		score[i] = m.InitScore
	}
	grad := make([]float64, n)
	hess := make([]float64, n)

	allRows := make([]int, n)
	for i := range allRows {
		allRows[i] = i
	}
	allFeatures := make([]int, p)
	for j := range allFeatures {
		allFeatures[j] = j
	}
	nRows := max(1, int(float64(n)*params.Subsample))
	nFeatures := max(1, int(float64(p)*params.ColsampleByTree+0.5))

	m.Trees = make([]Tree, 0, params.NEstimators)
	for range params.NEstimators {
		logisticGradients(y, weight, score, grad, hess)

		rows := allRows
		if nRows < n {
			rows = sampleSorted(rnd, n, nRows)
		}
		features := allFeatures
		if nFeatures < p {
			features = sampleSorted(rnd, p, nFeatures)
		}

		b := &treeBuilder{params: &params, mapper: mapper, bins: bins, grad: grad, hess: hess, features: features}
		tree := b.build(rows)
		for i, row := range X {
			score[i] += tree.predict(row)
		}
		m.Trees = append(m.Trees, tree)
	}
	return nil
}

func sampleSorted(rnd *rand.Rand, n, k int) []int {
	idx := rnd.Perm(n)[:k]
	sort.Ints(idx)
	return idx
}

// DecisionFunction returns the raw log-odds per row.
func (m *GradientBoostedTrees) DecisionFunction(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, row := range X {
		s := m.InitScore
		for t := range m.Trees {
			s += m.Trees[t].predict(row)
		}
		out[i] = s
	}
	return out
}

// PredictProba returns p(y=1) per row.
func (m *GradientBoostedTrees) PredictProba(X [][]float64) []float64 {
	out := m.DecisionFunction(X)
	for i, s := range out {
		out[i] = Sigmoid(s)
	}
	return out
}

// Predict labels rows 1 when p(y=1) > 0.5.
func (m *GradientBoostedTrees) Predict(X [][]float64) []int {
	return BinaryPredFromProba(m.PredictProba(X), 0.5)
}

// gbdtState is the gob payload of a trained model.
type gbdtState struct {
	Params    Params
	Features  []string
	InitScore float64
	Trees     []Tree
}

// MarshalBinary implements encoding.BinaryMarshaler using gob.
func (m *GradientBoostedTrees) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	st := gbdtState{Params: m.Params, Features: m.Features, InitScore: m.InitScore, Trees: m.Trees}
	if err := gob.NewEncoder(&buf).Encode(st); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler using gob.
func (m *GradientBoostedTrees) UnmarshalBinary(data []byte) error {
	var st gbdtState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&st); err != nil {
		return err
	}
	for ti, t := range st.Trees {
		if err := t.check(); err != nil {
			return fmt.Errorf("gbdt: tree %d: %w", ti, err)
		}
	}
	m.Params, m.Features, m.InitScore, m.Trees = st.Params, st.Features, st.InitScore, st.Trees
	return nil
}

// check verifies child links so prediction cannot loop or index out of range.
func (t *Tree) check() error {
	if len(t.Nodes) == 0 {
		return errors.New("no nodes")
	}
	for i, n := range t.Nodes {
		if n.Leaf {
			continue
		}
		if n.Left <= i || n.Right <= i || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d has invalid children", i)
		}
		if n.Feature < 0 || math.IsNaN(n.Threshold) {
			return fmt.Errorf("node %d has invalid split", i)
		}
	}
	return nil
}

// Save writes the model to path, creating parent directories.
func (m *GradientBoostedTrees) Save(path string) error {
	b, err := m.MarshalBinary()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// Load reads a model written by Save.
func Load(path string) (*GradientBoostedTrees, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m := &GradientBoostedTrees{}
	if err := m.UnmarshalBinary(b); err != nil {
		return nil, fmt.Errorf("decode model %s: %w", path, err)
	}
	if !m.Fitted() {
		return nil, errors.New("gbdt: model file holds no trees")
	}
	return m, nil
}
