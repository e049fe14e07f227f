// =============================================================================
// rdeconv - ExcelInvoice Module
// =============================================================================
//
// Reads a *_excel_invoice.xlsx workbook: row 1 holds human-readable column
// labels, row 2 holds the machine column-path header (basic/dataName,
// custom/measurementType, sample/generalAttributes/term1, meta/temperature,
// ...), and every row after that is one tile's column patch. Blank rows
// are skipped.
//
// =============================================================================

package excelinvoice

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	labelRowIndex  = 0
	headerRowIndex = 1
	dataStartIndex = 2
)

// ReadRows reads every data row of path's first sheet into a column-path
// -> cell-value map, in row order.
func ReadRows(path string) ([]map[string]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open excel invoice %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("excel invoice %s has no sheets", path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(rows) <= headerRowIndex {
		return nil, fmt.Errorf("excel invoice %s is missing its header row", path)
	}

	header := rows[headerRowIndex]

	var result []map[string]string
	for i := dataStartIndex; i < len(rows); i++ {
		row := rows[i]
		if isRowEmpty(row) {
			continue
		}
		patch := make(map[string]string, len(header))
		for col, columnPath := range header {
			if columnPath == "" {
				continue
			}
			value := ""
			if col < len(row) {
				value = row[col]
			}
			patch[columnPath] = value
		}
		result = append(result, patch)
	}

	return result, nil
}

func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}
