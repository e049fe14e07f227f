// =============================================================================
// rdeconv - SmartTable Module
// =============================================================================
//
// SmartTable descriptors (smarttable_*.csv / .tsv / .xlsx, living in
// inputdata/) describe one tile per data row. The file's first row holds
// human-readable display labels; the second row holds the actual column
// paths (basic/..., custom/..., sample/..., meta/..., inputdataN); data
// starts on the third row. At least one declared column must use one of
// the five recognized prefixes, or the file is rejected outright as not a
// valid descriptor.
//
// =============================================================================

package smarttable

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var validPrefixes = []string{"basic/", "custom/", "sample/", "meta/", "inputdata"}

// Table is a parsed SmartTable descriptor.
type Table struct {
	path   string
	header []string
	rows   [][]string
}

// Load reads and validates the descriptor at path.
func Load(path string) (*Table, error) {
	if err := validateFile(path); err != nil {
		return nil, err
	}

	var all [][]string
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		all, err = readXLSX(path)
	case ".csv":
		all, err = readDelimited(path, ',')
	case ".tsv":
		all, err = readDelimited(path, '\t')
	default:
		return nil, fmt.Errorf("unsupported smarttable format: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read smarttable file %s: %w", path, err)
	}
	if len(all) < 2 {
		return nil, fmt.Errorf("smarttable file %s is missing its header row", path)
	}

	header := all[1]
	if !hasRecognizedColumn(header) {
		return nil, fmt.Errorf(
			"smarttable file %s declares no column with a recognized prefix (%s)",
			path, strings.Join(validPrefixes, ", "),
		)
	}

	var dataRows [][]string
	if len(all) > 2 {
		dataRows = all[2:]
	}

	return &Table{path: path, header: header, rows: dataRows}, nil
}

func validateFile(path string) error {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return fmt.Errorf("smarttable file does not exist: %s", path)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".csv", ".tsv":
	default:
		return fmt.Errorf("unsupported smarttable file format: %s", path)
	}
	if !strings.HasPrefix(filepath.Base(path), "smarttable_") {
		return fmt.Errorf("smarttable file does not follow the smarttable_ naming convention: %s", path)
	}
	return nil
}

func hasRecognizedColumn(header []string) bool {
	for _, col := range header {
		for _, prefix := range validPrefixes {
			if strings.HasPrefix(col, prefix) {
				return true
			}
		}
	}
	return false
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets found")
	}
	return f.GetRows(sheets[0])
}

func readDelimited(path string, delim rune) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = delim
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

// Row is one SmartTable data row.
type Row struct {
	header []string
	cells  []string
}

// Rows returns every data row of the descriptor, in file order.
func (t *Table) Rows() ([]Row, error) {
	rows := make([]Row, 0, len(t.rows))
	for _, cells := range t.rows {
		if isBlank(cells) {
			continue
		}
		rows = append(rows, Row{header: t.header, cells: cells})
	}
	return rows, nil
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ColumnPatch returns the row's basic/custom/sample/meta columns as an
// invoice column-path patch (the inputdata* columns are excluded - they
// are resolved separately via ResolveInputFiles).
func (r Row) ColumnPatch() map[string]string {
	patch := make(map[string]string)
	for i, col := range r.header {
		if col == "" || strings.HasPrefix(col, "inputdata") {
			continue
		}
		value := ""
		if i < len(r.cells) {
			value = r.cells[i]
		}
		patch[col] = value
	}
	return patch
}

// ResolveInputFiles maps every non-empty inputdataN cell in row to an
// existing file: the cell value is slash-normalized, joined onto
// inputDataDir as a relative path, and kept only if that file exists.
// Cells naming no existing file are dropped; no suffix matching is done.
func ResolveInputFiles(row Row, inputDataDir string) []string {
	var resolved []string
	for i, col := range row.header {
		if !strings.HasPrefix(col, "inputdata") {
			continue
		}
		if i >= len(row.cells) {
			continue
		}
		rel := strings.TrimSpace(row.cells[i])
		if rel == "" {
			continue
		}
		if match, ok := findByRelativePath(rel, inputDataDir); ok {
			resolved = append(resolved, match)
		}
	}
	return resolved
}

// RawFileRefs returns every non-empty inputdataN cell's raw string value,
// unresolved. Used as a fallback lookup key (e.g. against an expanded
// archive's contents) when ResolveInputFiles cannot find the reference
// directly under inputDataDir.
func (r Row) RawFileRefs() []string {
	var refs []string
	for i, col := range r.header {
		if !strings.HasPrefix(col, "inputdata") {
			continue
		}
		if i >= len(r.cells) {
			continue
		}
		if rel := strings.TrimSpace(r.cells[i]); rel != "" {
			refs = append(refs, rel)
		}
	}
	return refs
}

func findByRelativePath(relPath, inputDataDir string) (string, bool) {
	normalized := strings.Trim(filepath.ToSlash(relPath), "/")
	candidate := filepath.Join(inputDataDir, filepath.FromSlash(normalized))
	if _, err := os.Stat(candidate); err == nil {
		return candidate, true
	}
	return "", false
}
