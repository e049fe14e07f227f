package classify

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/rdeconv/internal/rdeconfig"
	"github.com/ginjaninja78/rdeconv/internal/rdepath"
)

func setupInputData(t *testing.T, files map[string]string) rdepath.InputPaths {
	t.Helper()
	root := t.TempDir()
	inputData := filepath.Join(root, "inputdata")
	require.NoError(t, os.MkdirAll(inputData, 0o755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(inputData, name), []byte(content), 0o644))
	}
	return rdepath.InputPaths{InputData: inputData}
}

func emptyConfig() *rdeconfig.Config { return &rdeconfig.Config{} }

func TestClassifySelectsInvoiceByDefault(t *testing.T) {
	in := setupInputData(t, map[string]string{"sample.dat": "x"})
	result, err := Classify(in, emptyConfig(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, ModeInvoice, result.Mode)
	require.Len(t, result.Tiles, 1)
	assert.Len(t, result.Tiles[0].InputFiles, 1)
}

func TestClassifyExcelInvoiceTakesPriority(t *testing.T) {
	in := setupInputData(t, map[string]string{
		"sample.dat":             "x",
		"batch_excel_invoice.xlsx": "not really xlsx but suffix is what matters for grouping",
	})
	group, err := scanInputData(in.InputData)
	require.NoError(t, err)
	assert.Equal(t, ModeExcelInvoice, selectMode(group, emptyConfig()))
}

func TestClassifyMultiDataTileConfigYieldsOneTilePerFile(t *testing.T) {
	in := setupInputData(t, map[string]string{
		"a.dat": "1",
		"b.dat": "2",
	})
	cfg := &rdeconfig.Config{System: rdeconfig.SystemConfig{ExtendedMode: "MultiDataTile"}}
	result, err := Classify(in, cfg, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, ModeMultiDataTile, result.Mode)
	assert.Len(t, result.Tiles, 2)
}

func TestClassifySmartTableDetectedWhenPresent(t *testing.T) {
	in := setupInputData(t, map[string]string{
		"smarttable_batch.csv": "Data Name,Owner\nbasic/dataName,basic/dataOwnerId\nsample-1.txt,owner-1\n",
	})
	result, err := Classify(in, emptyConfig(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, ModeSmartTable, result.Mode)
	require.Len(t, result.Tiles, 1)
	assert.Equal(t, "sample-1.txt", result.Tiles[0].RowPatch["basic/dataName"])
}

func TestClassifyMultiDataTileEmptyInputYieldsOneTile(t *testing.T) {
	in := setupInputData(t, map[string]string{})
	cfg := &rdeconfig.Config{System: rdeconfig.SystemConfig{ExtendedMode: "MultiDataTile"}}
	result, err := Classify(in, cfg, t.TempDir())
	require.NoError(t, err)
	require.Len(t, result.Tiles, 1)
	assert.Empty(t, result.Tiles[0].InputFiles)
}

func writeEmptyZip(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, zip.NewWriter(f).Close())
}

func TestClassifyRDEFormatZeroFileArchiveYieldsZeroTilesAndReport(t *testing.T) {
	in := setupInputData(t, map[string]string{})
	writeEmptyZip(t, filepath.Join(in.InputData, "rdeformat_empty.zip"))

	cfg := &rdeconfig.Config{System: rdeconfig.SystemConfig{ExtendedMode: "rdeformat"}}
	result, err := Classify(in, cfg, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, ModeRDEFormat, result.Mode)
	assert.Empty(t, result.Tiles)
	require.NotNil(t, result.Report)
	require.True(t, result.Report.HasErrors())
	assert.Contains(t, result.Report.Items[0].Path, "rdeformat_empty.zip")
}
