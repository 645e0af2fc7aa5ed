package stats

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"diabetesml/pkg/data"
)

// ErrNotFitted is returned when a scaler is used before Fit.
var ErrNotFitted = errors.New("stats: scaler is not fitted")

// RobustScaler centers each column on its median and divides by its interquartile range.
// A zero IQR scales by 1 so constant columns are only centered.
type RobustScaler struct {
	Columns []string
	Center  []float64
	Scale   []float64

	QuantileLow  float64
	QuantileHigh float64
}

// NewRobustScaler scales the named columns with the 25-75 quantile range.
func NewRobustScaler(columns []string) *RobustScaler {
	return &RobustScaler{
		Columns:      append([]string(nil), columns...),
		QuantileLow:  25,
		QuantileHigh: 75,
	}
}

// Fitted reports whether Fit has run.
func (s *RobustScaler) Fitted() bool {
	return len(s.Center) == len(s.Columns) && len(s.Center) > 0
}

// Fit learns median and IQR per column from f.
func (s *RobustScaler) Fit(f *data.Frame) error {
	center := make([]float64, len(s.Columns))
	scale := make([]float64, len(s.Columns))
	for j, name := range s.Columns {
		col, err := f.Column(name)
		if err != nil {
			return err
		}
		center[j] = Median(col)
		iqr := Percentile(col, s.QuantileHigh) - Percentile(col, s.QuantileLow)
		if iqr == 0 {
			iqr = 1
		}
		scale[j] = iqr
	}
	s.Center, s.Scale = center, scale
	return nil
}

// Transform returns a scaled copy of f. Columns not managed by the scaler are copied as is.
func (s *RobustScaler) Transform(f *data.Frame) (*data.Frame, error) {
	if !s.Fitted() {
		return nil, ErrNotFitted
	}
	out := f.Clone()
	for k, name := range s.Columns {
		j := out.Index(name)
		if j < 0 {
			return nil, fmt.Errorf("stats: no column %q", name)
		}
		for _, row := range out.Rows {
			row[j] = (row[j] - s.Center[k]) / s.Scale[k]
		}
	}
	return out, nil
}

// FitTransform fits on f and scales it.
func (s *RobustScaler) FitTransform(f *data.Frame) (*data.Frame, error) {
	if err := s.Fit(f); err != nil {
		return nil, err
	}
	return s.Transform(f)
}

// MarshalBinary implements encoding.BinaryMarshaler using gob.
func (s *RobustScaler) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(s.Columns); err != nil {
		return nil, err
	}
	if err := enc.Encode(s.Center); err != nil {
		return nil, err
	}
	if err := enc.Encode(s.Scale); err != nil {
		return nil, err
	}
	if err := enc.Encode([2]float64{s.QuantileLow, s.QuantileHigh}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler using gob.
func (s *RobustScaler) UnmarshalBinary(b []byte) error {
	dec := gob.NewDecoder(bytes.NewReader(b))
	if err := dec.Decode(&s.Columns); err != nil {
		return err
	}
	if err := dec.Decode(&s.Center); err != nil {
		return err
	}
	if err := dec.Decode(&s.Scale); err != nil {
		return err
	}
	var q [2]float64
	if err := dec.Decode(&q); err != nil {
		return err
	}
	s.QuantileLow, s.QuantileHigh = q[0], q[1]
	return nil
}

// SaveScaler writes a fitted scaler to path.
func SaveScaler(path string, s *RobustScaler) error {
	if !s.Fitted() {
		return ErrNotFitted
	}
	b, err := s.MarshalBinary()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// LoadScaler reads a scaler written by SaveScaler.
func LoadScaler(path string) (*RobustScaler, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s := &RobustScaler{}
	if err := s.UnmarshalBinary(b); err != nil {
		return nil, fmt.Errorf("decode scaler %s: %w", path, err)
	}
	if !s.Fitted() {
		return nil, ErrNotFitted
	}
	return s, nil
}
