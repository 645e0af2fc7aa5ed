package data

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
)

// ReadRecords reads a CSV file verbatim: the header row and every data row.
func ReadRecords(path string) (header []string, rows [][]string, err error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	reader := csv.NewReader(bufio.NewReader(file))
	all, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("read %s: no header row", path)
	}
	return all[0], all[1:], nil
}

// WriteRecords writes header and rows to path, creating parent directories.
func WriteRecords(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		return err
	}
	if err := writer.WriteAll(rows); err != nil {
		return err
	}
	return file.Close()
}

// ReadCSV loads a numeric CSV into a Frame. Empty, "NA" and "NaN" cells become NaN.
func ReadCSV(path string) (*Frame, error) {
	header, rows, err := ReadRecords(path)
	if err != nil {
		return nil, err
	}
	f := &Frame{Columns: append([]string(nil), header...), Rows: make([][]float64, len(rows))}
	for i, rec := range rows {
		if len(rec) != len(header) {
			return nil, fmt.Errorf("read %s: row %d has %d fields, header has %d", path, i+1, len(rec), len(header))
		}
		row := make([]float64, len(rec))
		for j, s := range rec {
			v, err := ParseCell(s)
			if err != nil {
				return nil, fmt.Errorf("read %s: row %d column %q: %w", path, i+1, header[j], err)
			}
			row[j] = v
		}
		f.Rows[i] = row
	}
	return f, nil
}

// WriteCSV writes f with a header row; NaN cells are written empty.
func WriteCSV(path string, f *Frame) error {
	rows := make([][]string, len(f.Rows))
	for i, row := range f.Rows {
		rec := make([]string, len(row))
		for j, v := range row {
			rec[j] = FormatCell(v)
		}
		rows[i] = rec
	}
	return WriteRecords(path, f.Columns, rows)
}

// IsMissing reports whether a raw cell denotes a missing value.
func IsMissing(s string) bool {
	return s == "" || s == "NA" || s == "NaN" || s == "nan"
}

// ParseCell converts one CSV cell to float64, mapping missing markers to NaN.
func ParseCell(s string) (float64, error) {
	if IsMissing(s) {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

// FormatCell is the inverse of ParseCell with the shortest exact representation.
func FormatCell(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
