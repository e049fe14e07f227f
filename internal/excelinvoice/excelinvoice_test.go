package excelinvoice

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildTestWorkbook(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]string{
		{"Data Name", "Owner"},
		{"basic/dataName", "basic/dataOwnerId"},
		{"sample-1.txt", "owner-1"},
		{"", ""},
		{"sample-2.txt", "owner-2"},
	}
	for r, row := range rows {
		for c, value := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, f.SetCellValue(sheet, cell, value))
		}
	}
	path := filepath.Join(t.TempDir(), "batch_excel_invoice.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestReadRowsSkipsBlankRows(t *testing.T) {
	path := buildTestWorkbook(t)
	rows, err := ReadRows(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "sample-1.txt", rows[0]["basic/dataName"])
	assert.Equal(t, "owner-2", rows[1]["basic/dataOwnerId"])
}
