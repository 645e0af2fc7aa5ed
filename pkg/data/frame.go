package data

import "fmt"

// Frame is a small row-major table of float64 values with named columns.
type Frame struct {
	Columns []string
	Rows    [][]float64
}

// NewFrame builds a frame, checking that every row matches the header width.
func NewFrame(columns []string, rows [][]float64) (*Frame, error) {
	for i, r := range rows {
		if len(r) != len(columns) {
			return nil, fmt.Errorf("frame: row %d has %d values, want %d", i, len(r), len(columns))
		}
	}
	return &Frame{Columns: columns, Rows: rows}, nil
}

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.Rows) }

// Index returns the position of column name or -1.
func (f *Frame) Index(name string) int {
	for i, c := range f.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Has reports whether the frame has a column called name.
func (f *Frame) Has(name string) bool { return f.Index(name) >= 0 }

// Column returns a copy of the named column.
func (f *Frame) Column(name string) ([]float64, error) {
	j := f.Index(name)
	if j < 0 {
		return nil, fmt.Errorf("frame: no column %q", name)
	}
	out := make([]float64, len(f.Rows))
	for i, row := range f.Rows {
		out[i] = row[j]
	}
	return out, nil
}

// Clone deep-copies the frame.
func (f *Frame) Clone() *Frame {
	out := &Frame{Columns: append([]string(nil), f.Columns...), Rows: make([][]float64, len(f.Rows))}
	for i, row := range f.Rows {
		out.Rows[i] = append([]float64(nil), row...)
	}
	return out
}

// Select returns a new frame with only the named columns, in the given order.
func (f *Frame) Select(names ...string) (*Frame, error) {
	idx := make([]int, len(names))
	for k, n := range names {
		j := f.Index(n)
		if j < 0 {
			return nil, fmt.Errorf("frame: no column %q", n)
		}
		idx[k] = j
	}
	out := &Frame{Columns: append([]string(nil), names...), Rows: make([][]float64, len(f.Rows))}
	for i, row := range f.Rows {
		sel := make([]float64, len(idx))
		for k, j := range idx {
			sel[k] = row[j]
		}
		out.Rows[i] = sel
	}
	return out, nil
}

// Drop returns a new frame without the named columns. Unknown names are ignored.
func (f *Frame) Drop(names ...string) *Frame {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	keep := make([]string, 0, len(f.Columns))
	for _, c := range f.Columns {
		if !drop[c] {
			keep = append(keep, c)
		}
	}
	out, _ := f.Select(keep...)
	return out
}

// Rename returns a copy whose column names are mapped through fn.
func (f *Frame) Rename(fn func(string) string) *Frame {
	out := f.Clone()
	for i, c := range out.Columns {
		out.Columns[i] = fn(c)
	}
	return out
}

// AddColumn appends a column in place.
func (f *Frame) AddColumn(name string, values []float64) error {
	if f.Has(name) {
		return fmt.Errorf("frame: column %q already exists", name)
	}
	if len(values) != len(f.Rows) {
		return fmt.Errorf("frame: column %q has %d values, frame has %d rows", name, len(values), len(f.Rows))
	}
	f.Columns = append(f.Columns, name)
	for i := range f.Rows {
		f.Rows[i] = append(f.Rows[i], values[i])
	}
	return nil
}

// SplitTarget separates the feature columns from the target column.
func (f *Frame) SplitTarget(target string) (*Frame, []float64, error) {
	y, err := f.Column(target)
	if err != nil {
		return nil, nil, err
	}
	return f.Drop(target), y, nil
}

// Join appends the target column back onto the features.
func Join(x *Frame, target string, y []float64) (*Frame, error) {
	out := x.Clone()
	if err := out.AddColumn(target, y); err != nil {
		return nil, err
	}
	return out, nil
}

// Labels converts a 0/1 target column to ints.
func Labels(y []float64) ([]int, error) {
	out := make([]int, len(y))
	for i, v := range y {
		switch v {
		case 0:
			out[i] = 0
		case 1:
			out[i] = 1
		default:
			return nil, fmt.Errorf("label at row %d is %v, want 0 or 1", i, v)
		}
	}
	return out, nil
}
