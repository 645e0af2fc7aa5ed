package dataprep

import (
	"regexp"

	"diabetesml/pkg/data"
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// SanitizeName strips every character the booster does not accept in feature names.
func SanitizeName(name string) string {
	return unsafeName.ReplaceAllString(name, "")
}

// SanitizeColumns returns a copy of f with sanitized column names.
func SanitizeColumns(f *data.Frame) *data.Frame {
	return f.Rename(SanitizeName)
}

// IndexColumns are the headers a CSV writer leaves behind for a row index.
var IndexColumns = []string{"Unnamed: 0", ""}

// DropIndexColumns removes stray row-index columns and reports whether any was present.
func DropIndexColumns(f *data.Frame) (*data.Frame, bool) {
	found := false
	for _, c := range IndexColumns {
		if f.Has(c) {
			found = true
		}
	}
	if !found {
		return f, false
	}
	return f.Drop(IndexColumns...), true
}
