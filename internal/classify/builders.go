// =============================================================================
// rdeconv - Tile Builders Module
// =============================================================================
//
// One builder function per mode, selected through the tileBuilders
// dispatch table below rather than a chained conditional.
//
// =============================================================================

package classify

import (
	"path/filepath"
	"strings"

	"github.com/ginjaninja78/rdeconv/internal/archive"
	"github.com/ginjaninja78/rdeconv/internal/excelinvoice"
	"github.com/ginjaninja78/rdeconv/internal/rdeconfig"
	"github.com/ginjaninja78/rdeconv/internal/rdeerr"
	"github.com/ginjaninja78/rdeconv/internal/rdepath"
	"github.com/ginjaninja78/rdeconv/internal/smarttable"
)

// tileBuilder returns the mode's tiles plus an optional report of
// boundary conditions the caller should surface even though tiling itself
// succeeded (a zero-file archive, for instance, yields zero tiles rather
// than an error).
type tileBuilder func(in rdepath.InputPaths, group *rdepath.FileGroup, cfg *rdeconfig.Config, ea *expandedArchives, scratchRoot string) ([]TileUnit, *rdeerr.ValidationReport, error)

var tileBuilders = map[Mode]tileBuilder{
	ModeInvoice:       buildInvoiceTiles,
	ModeExcelInvoice:  buildExcelInvoiceTiles,
	ModeMultiDataTile: buildMultiDataTileTiles,
	ModeRDEFormat:     buildRDEFormatTiles,
	ModeSmartTable:    buildSmartTableTiles,
}

// buildInvoiceTiles produces exactly one tile holding every non-archive
// input plus the contents of any archive, in classifier order.
func buildInvoiceTiles(_ rdepath.InputPaths, group *rdepath.FileGroup, _ *rdeconfig.Config, ea *expandedArchives, _ string) ([]TileUnit, *rdeerr.ValidationReport, error) {
	all := append(append([]string{}, group.RawFiles...), archiveFiles(ea)...)
	all = append(all, group.OtherFiles...)
	return []TileUnit{{Index: 0, InputFiles: all}}, nil, nil
}

func archiveFiles(ea *expandedArchives) []string {
	if ea == nil {
		return nil
	}
	return ea.All
}

// inputdataPrefix is the SmartTable/ExcelInvoice column convention for a
// cell that names a file under inputdata/ rather than an invoice field.
const inputdataPrefix = "inputdata"

// splitRow separates a row's file-reference columns (inputdataN) from its
// invoice column patch.
func splitRow(row map[string]string) (patch map[string]string, fileRefs []string) {
	patch = make(map[string]string, len(row))
	for col, value := range row {
		if strings.HasPrefix(col, inputdataPrefix) {
			if value != "" {
				fileRefs = append(fileRefs, value)
			}
			continue
		}
		patch[col] = value
	}
	return patch, fileRefs
}

// buildExcelInvoiceTiles reads every row of the batch's *_excel_invoice.xlsx
// workbook(s) and produces one tile per row, carrying that row's column
// patch. When a row names files via inputdataN columns those are resolved
// against inputdata/ and any expanded archive; otherwise every shared
// input file (raw files plus archive contents) is handed to every tile.
func buildExcelInvoiceTiles(in rdepath.InputPaths, group *rdepath.FileGroup, _ *rdeconfig.Config, ea *expandedArchives, _ string) ([]TileUnit, *rdeerr.ValidationReport, error) {
	shared := append(append([]string{}, group.RawFiles...), archiveFiles(ea)...)

	var tiles []TileUnit
	index := 0
	for _, workbook := range group.ExcelInvoices {
		rows, err := excelinvoice.ReadRows(workbook)
		if err != nil {
			return nil, nil, err
		}
		for _, row := range rows {
			patch, refs := splitRow(row)
			inputFiles := shared
			if len(refs) > 0 {
				inputFiles = resolveFileRefs(refs, in.InputData, ea)
			}
			tiles = append(tiles, TileUnit{
				Index:        index,
				InputFiles:   inputFiles,
				RowPatch:     patch,
				AlwaysDivide: true,
			})
			index++
		}
	}
	if len(tiles) == 0 {
		tiles = []TileUnit{{Index: 0, InputFiles: shared, AlwaysDivide: true}}
	}
	return tiles, nil, nil
}

func resolveFileRefs(refs []string, inputDataDir string, ea *expandedArchives) []string {
	var resolved []string
	for _, ref := range refs {
		if match, ok := resolveFileRef(ref, inputDataDir, ea); ok {
			resolved = append(resolved, match)
		}
	}
	return resolved
}

// buildMultiDataTileTiles assigns each top-level input file its own tile.
// An input bundle with no files still yields a single empty tile so
// downstream validators run and report the missing-input condition.
func buildMultiDataTileTiles(_ rdepath.InputPaths, group *rdepath.FileGroup, _ *rdeconfig.Config, ea *expandedArchives, _ string) ([]TileUnit, *rdeerr.ValidationReport, error) {
	all := append(append([]string{}, group.RawFiles...), archiveFiles(ea)...)
	all = append(all, group.OtherFiles...)
	if len(all) == 0 {
		return []TileUnit{{Index: 0, AlwaysDivide: true}}, nil, nil
	}
	tiles := make([]TileUnit, 0, len(all))
	for i, f := range all {
		tiles = append(tiles, TileUnit{Index: i, InputFiles: []string{f}, AlwaysDivide: true})
	}
	return tiles, nil, nil
}

// rdeformatZipPrefix names the archives RDEFormat mode looks for. When at
// least one rdeformat_*.zip is present, other zips in the bundle are
// ignored by this mode; when none is, every zip in the bundle is expanded
// as an RDEFormat archive.
const rdeformatZipPrefix = "rdeformat_"

// rdeformatDirNames lists the directory names an rdeformat archive lays
// out, each copied verbatim into the matching tile output subtree by
// pipeline.RawCopier's copy-only mode.
var rdeformatDirNames = []string{"raw", "nonshared_raw", "structured", "meta", "main_image", "other_image", "logs"}

// buildRDEFormatTiles expands each rdeformat_*.zip archive in the bundle
// and produces one tile per archive, pointing it at the scratch directory
// the archive was expanded into. An archive that expands to zero files
// contributes no tile at all - it is reported as a missing-input item
// instead of a tile with an empty InputFiles list, so RawCopier's
// copy-only mode never runs against a directory that was never populated.
func buildRDEFormatTiles(_ rdepath.InputPaths, group *rdepath.FileGroup, _ *rdeconfig.Config, _ *expandedArchives, scratchRoot string) ([]TileUnit, *rdeerr.ValidationReport, error) {
	var archives []string
	for _, z := range group.ZipFiles {
		if strings.HasPrefix(filepath.Base(z), rdeformatZipPrefix) {
			archives = append(archives, z)
		}
	}
	if len(archives) == 0 {
		archives = group.ZipFiles
	}
	if len(archives) == 0 {
		return []TileUnit{{Index: 0, AlwaysDivide: true}}, nil, nil
	}

	var tiles []TileUnit
	var report *rdeerr.ValidationReport
	for _, zipPath := range archives {
		dir := filepath.Join(scratchRoot, "rdeformat", filepath.Base(zipPath))
		files, err := archive.Expand(zipPath, dir)
		if err != nil {
			return nil, nil, err
		}
		if len(files) == 0 {
			if report == nil {
				report = &rdeerr.ValidationReport{}
			}
			report.Add(zipPath, rdeerr.KindMissing, "archive expanded to zero files")
			continue
		}
		tiles = append(tiles, TileUnit{
			Index:        len(tiles),
			InputFiles:   files,
			ExpandedRoot: dir,
			AlwaysDivide: true,
		})
	}
	return tiles, report, nil
}

// buildSmartTableTiles reads the batch's smarttable_*.{csv,tsv,xlsx}
// descriptor and produces one tile per data row, resolving each row's
// inputdata/ column references against the files actually present.
func buildSmartTableTiles(in rdepath.InputPaths, group *rdepath.FileGroup, _ *rdeconfig.Config, ea *expandedArchives, _ string) ([]TileUnit, *rdeerr.ValidationReport, error) {
	var descriptorPath string
	for _, f := range group.OtherFiles {
		if isSmartTableDescriptor(f) {
			descriptorPath = f
			break
		}
	}
	if descriptorPath == "" {
		return nil, nil, nil
	}

	table, err := smarttable.Load(descriptorPath)
	if err != nil {
		return nil, nil, err
	}

	rows, err := table.Rows()
	if err != nil {
		return nil, nil, err
	}

	tiles := make([]TileUnit, 0, len(rows))
	for i, row := range rows {
		inputFiles := smarttable.ResolveInputFiles(row, in.InputData)
		if ea != nil {
			for _, ref := range row.RawFileRefs() {
				if match, ok := resolveFileRef(ref, in.InputData, ea); ok {
					inputFiles = appendUnique(inputFiles, match)
				}
			}
		}
		tiles = append(tiles, TileUnit{
			Index:         i,
			InputFiles:    inputFiles,
			RowPatch:      row.ColumnPatch(),
			SourceRowFile: filepath.Base(descriptorPath),
			AlwaysDivide:  true,
		})
	}
	return tiles, nil, nil
}

func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}
