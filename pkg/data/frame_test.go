package data

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadWriteCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "frame.csv")
	in := &Frame{
		Columns: []string{"Glucose", "BMI", "Outcome"},
		Rows: [][]float64{
			{148, 33.6, 1},
			{85, math.NaN(), 0},
			{183, 23.3, 1},
		},
	}
	require.NoError(t, WriteCSV(path, in))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Glucose,BMI,Outcome\n148,33.6,1\n85,,0\n183,23.3,1\n", string(raw))

	out, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, in.Columns, out.Columns)
	assert.True(t, math.IsNaN(out.Rows[1][1]))
	assert.Equal(t, 33.6, out.Rows[0][1])
}

func TestReadCSVRejectsText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("A,B\n1,x\n"), 0o644))

	_, err := ReadCSV(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `column "B"`)
}

func TestReadCSVMissingMarkers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "na.csv")
	require.NoError(t, os.WriteFile(path, []byte("A,B,C\nNA,NaN,\n"), 0o644))

	f, err := ReadCSV(path)
	require.NoError(t, err)
	for _, v := range f.Rows[0] {
		assert.True(t, math.IsNaN(v))
	}
}

func TestFrameSelectDropSplit(t *testing.T) {
	f, err := NewFrame([]string{"a", "b", "y"}, [][]float64{{1, 2, 0}, {3, 4, 1}})
	require.NoError(t, err)

	sel, err := f.Select("b", "a")
	require.NoError(t, err)
	if diff := cmp.Diff([][]float64{{2, 1}, {4, 3}}, sel.Rows); diff != "" {
		t.Errorf("Select rows mismatch (-want +got):\n%s", diff)
	}

	x, y, err := f.SplitTarget("y")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, x.Columns)
	assert.Equal(t, []float64{0, 1}, y)
	assert.Equal(t, []string{"a", "b", "y"}, f.Columns, "source frame must be untouched")

	joined, err := Join(x, "y", y)
	require.NoError(t, err)
	assert.Equal(t, f.Rows, joined.Rows)

	_, err = f.Select("missing")
	assert.Error(t, err)
}

func TestFrameRenameAndAddColumn(t *testing.T) {
	f, err := NewFrame([]string{"a b"}, [][]float64{{1}, {2}})
	require.NoError(t, err)

	r := f.Rename(func(s string) string { return "x" })
	assert.Equal(t, []string{"x"}, r.Columns)
	assert.Equal(t, []string{"a b"}, f.Columns)

	require.NoError(t, r.AddColumn("z", []float64{5, 6}))
	assert.Equal(t, []float64{2, 6}, r.Rows[1])
	assert.Error(t, r.AddColumn("z", []float64{5, 6}))
	assert.Error(t, r.AddColumn("w", []float64{5}))
}

func TestNewFrameWidthMismatch(t *testing.T) {
	_, err := NewFrame([]string{"a", "b"}, [][]float64{{1}})
	assert.Error(t, err)
}

func TestLabels(t *testing.T) {
	got, err := Labels([]float64{0, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 1}, got)

	_, err = Labels([]float64{2})
	assert.Error(t, err)
}
