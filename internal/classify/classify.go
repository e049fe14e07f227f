// =============================================================================
// rdeconv - Input Classifier Module
// =============================================================================
//
// Classify inspects the input bundle (inputdata/, invoice/, tasksupport/)
// and decides which of the five supported modes governs the run, then
// builds the TileUnit list that mode implies. Mode selection follows a
// fixed priority list, checked top to bottom - the first match wins:
//
//   1. any input file name ends with "_excel_invoice.xlsx"  -> ExcelInvoice
//   2. system.extended_mode == "MultiDataTile"               -> MultiDataTile
//   3. system.extended_mode == "rdeformat"                   -> RDEFormat
//   4. a smarttable_*.{csv,tsv,xlsx} descriptor is present    -> SmartTable
//   5. otherwise                                              -> Invoice
//
// Tile construction itself is mode-specific and lives in per-mode builder
// functions selected through a dispatch table, not a chained switch.
//
// =============================================================================

package classify

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ginjaninja78/rdeconv/internal/archive"
	"github.com/ginjaninja78/rdeconv/internal/rdeconfig"
	"github.com/ginjaninja78/rdeconv/internal/rdeerr"
	"github.com/ginjaninja78/rdeconv/internal/rdepath"
)

// Mode identifies which of the five supported processing modes a run uses.
type Mode string

const (
	ModeInvoice       Mode = "invoice"
	ModeExcelInvoice  Mode = "excelinvoice"
	ModeMultiDataTile Mode = "multidatatile"
	ModeRDEFormat     Mode = "rdeformat"
	ModeSmartTable    Mode = "smarttable"
)

// TileUnit is one dataset unit produced by classification: its input
// files, and - for row-driven modes - the column patch to apply to the
// base invoice.
type TileUnit struct {
	Index         int
	InputFiles    []string
	RowPatch      map[string]string
	SourceRowFile string // SmartTable only: base name of the descriptor file the row came from
	AlwaysDivide  bool

	// ExpandedRoot is set for RDEFormat-mode tiles: the scratch directory
	// holding that tile's already-structured archive contents
	// (raw/, meta/, structured/, invoice/invoice.json, ...).
	ExpandedRoot string
}

// expandedArchives indexes every file extracted from the bundle's zip
// inputs, keyed for the two ways a row or tile rule needs to look them up:
// the flattened, order-preserving list (Invoice mode) and by base name
// (ExcelInvoice/SmartTable file-reference columns).
type expandedArchives struct {
	All        []string
	ByBaseName map[string][]string
}

func expandArchiveInputs(group *rdepath.FileGroup, scratchRoot string) (*expandedArchives, error) {
	ea := &expandedArchives{ByBaseName: map[string][]string{}}
	for i, zipPath := range group.ZipFiles {
		dir := filepath.Join(scratchRoot, fmt.Sprintf("zip_%04d", i))
		files, err := archive.Expand(zipPath, dir)
		if err != nil {
			return nil, err
		}
		ea.All = append(ea.All, files...)
		for _, f := range files {
			base := filepath.Base(f)
			ea.ByBaseName[base] = append(ea.ByBaseName[base], f)
		}
	}
	return ea, nil
}

// resolveFileRef locates ref (an inputdataN cell value) among the files
// actually present: first as a path relative to inputDataDir, falling
// back to a base-name match within any expanded archive.
func resolveFileRef(ref, inputDataDir string, ea *expandedArchives) (string, bool) {
	normalized := strings.Trim(filepath.ToSlash(ref), "/")
	if normalized != "" {
		candidate := filepath.Join(inputDataDir, filepath.FromSlash(normalized))
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}
	if ea == nil {
		return "", false
	}
	if matches, ok := ea.ByBaseName[filepath.Base(ref)]; ok && len(matches) > 0 {
		return matches[0], true
	}
	return "", false
}

// ClassifyResult is the outcome of Classify: the selected mode, the tiles
// it produced, and any boundary-condition report the tile builder raised
// without failing the run outright (e.g. an rdeformat archive that
// expanded to zero files).
type ClassifyResult struct {
	Mode   Mode
	Tiles  []TileUnit
	Report *rdeerr.ValidationReport
}

// Classify selects a mode for in/cfg and builds its tiles. scratchRoot
// hosts any archive expansion this run needs; callers typically pass a
// tile-0 temp/ directory or an os.MkdirTemp result.
func Classify(in rdepath.InputPaths, cfg *rdeconfig.Config, scratchRoot string) (*ClassifyResult, error) {
	group, err := scanInputData(in.InputData)
	if err != nil {
		return nil, err
	}

	mode := selectMode(group, cfg)

	var ea *expandedArchives
	if mode != ModeRDEFormat && len(group.ZipFiles) > 0 {
		ea, err = expandArchiveInputs(group, scratchRoot)
		if err != nil {
			return nil, err
		}
	}

	builder, ok := tileBuilders[mode]
	if !ok {
		panic("classify: no tile builder registered for mode " + string(mode))
	}

	tiles, report, err := builder(in, group, cfg, ea, scratchRoot)
	if err != nil {
		return nil, err
	}

	// The per-mode "always divide" rule only distinguishes tiles within a
	// batch of more than one; a lone tile (e.g. a single-row ExcelInvoice)
	// writes top-level just like plain Invoice mode.
	if len(tiles) == 1 {
		tiles[0].AlwaysDivide = false
	}

	return &ClassifyResult{Mode: mode, Tiles: tiles, Report: report}, nil
}

// selectMode applies the fixed priority order documented above.
func selectMode(group *rdepath.FileGroup, cfg *rdeconfig.Config) Mode {
	if len(group.ExcelInvoices) > 0 {
		return ModeExcelInvoice
	}
	if cfg.IsMultiDataTile() {
		return ModeMultiDataTile
	}
	if cfg.IsRDEFormat() {
		return ModeRDEFormat
	}
	if hasSmartTableDescriptor(group) {
		return ModeSmartTable
	}
	return ModeInvoice
}

func hasSmartTableDescriptor(group *rdepath.FileGroup) bool {
	for _, f := range group.OtherFiles {
		if isSmartTableDescriptor(f) {
			return true
		}
	}
	return false
}

func isSmartTableDescriptor(path string) bool {
	name := filepath.Base(path)
	if !strings.HasPrefix(name, "smarttable_") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".tsv", ".xlsx":
		return true
	default:
		return false
	}
}

// scanInputData lists inputdata/ and buckets every entry into a FileGroup,
// sorted lexicographically within each bucket for deterministic tiling.
func scanInputData(inputDataDir string) (*rdepath.FileGroup, error) {
	entries, err := os.ReadDir(inputDataDir)
	if err != nil {
		return nil, err
	}

	group := &rdepath.FileGroup{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(inputDataDir, entry.Name())
		switch {
		case strings.HasSuffix(strings.ToLower(entry.Name()), "_excel_invoice.xlsx"):
			group.ExcelInvoices = append(group.ExcelInvoices, path)
		case strings.ToLower(filepath.Ext(entry.Name())) == ".zip":
			group.ZipFiles = append(group.ZipFiles, path)
		case isSmartTableDescriptor(path):
			group.OtherFiles = append(group.OtherFiles, path)
		default:
			group.RawFiles = append(group.RawFiles, path)
		}
	}

	sort.Strings(group.RawFiles)
	sort.Strings(group.ZipFiles)
	sort.Strings(group.ExcelInvoices)
	sort.Strings(group.OtherFiles)

	return group, nil
}
