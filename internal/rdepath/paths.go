// =============================================================================
// rdeconv - Path & FileGroup Module
// =============================================================================
//
// This module holds the on-disk layout contract: where input is read from,
// where each tile's output subtree lives, and how raw input files are
// grouped by kind before classification decides what to do with them.
//
// DIRECTORY LAYOUT (per run):
//   inputdata/       - raw submission (including any *_excel_invoice.xlsx), read-only
//   invoice/          - caller-provided invoice.json
//   tasksupport/      - rdeconfig.yaml, invoice schema, metadata-def.json
//
// DIRECTORY LAYOUT (per tile, under the configured output root):
//   raw/, nonshared_raw/, structured/, main_image/, other_image/, meta/,
//   thumbnail/, logs/, invoice/, temp/
//
// Tile 0 writes directly under the output root; tiles at index >= 1 (and
// every tile of a multi-tile ExcelInvoice/MultiDataTile/SmartTable/RDEFormat
// run, tile 0 included) write under divided/{index:04d}/ instead. A run
// that yields a single tile writes directly under the output root.
//
// =============================================================================

package rdepath

import (
	"fmt"
	"os"
	"path/filepath"
)

// InputPaths locates the three read-only input roots for a run.
type InputPaths struct {
	InputData   string
	Invoice     string
	TaskSupport string
}

// OutputPaths locates every writable directory/file belonging to one tile.
type OutputPaths struct {
	Raw               string
	NonsharedRaw      string
	Struct            string
	MainImage         string
	OtherImage        string
	Meta              string
	Thumbnail         string
	Logs              string
	Invoice           string
	InvoiceSchemaJSON string
	InvoiceOrg        string
	Temp              string
	Attachment        string

	// SmartTableRowFile is set only for SmartTable-derived tiles:
	// raw/<descriptor file name>, where RawCopier puts the descriptor copy
	// when smarttable.save_table_file is set.
	SmartTableRowFile string
}

// FileGroup buckets the raw entries found under InputData by kind.
type FileGroup struct {
	RawFiles      []string
	ZipFiles      []string
	ExcelInvoices []string
	OtherFiles    []string
}

// AllFiles returns every grouped file in a stable, deterministic order:
// raw files first, then zips, then excel invoices, then anything else.
func (g FileGroup) AllFiles() []string {
	all := make([]string, 0, len(g.RawFiles)+len(g.ZipFiles)+len(g.ExcelInvoices)+len(g.OtherFiles))
	all = append(all, g.RawFiles...)
	all = append(all, g.ZipFiles...)
	all = append(all, g.ExcelInvoices...)
	all = append(all, g.OtherFiles...)
	return all
}

// NewInputPaths builds an InputPaths rooted at root, using the standard
// inputdata/invoice/tasksupport layout.
func NewInputPaths(root string) InputPaths {
	return InputPaths{
		InputData:   filepath.Join(root, "inputdata"),
		Invoice:     filepath.Join(root, "invoice"),
		TaskSupport: filepath.Join(root, "tasksupport"),
	}
}

// TileOutputRoot computes the output subtree root for a tile: the output
// root itself for tile 0 of a plain Invoice-mode run, or
// divided/{index:04d} otherwise. digit sets the zero-pad width and
// startNumber offsets the printed index (both configured via
// multidata_tile.*).
func TileOutputRoot(outputRoot string, index int, alwaysDivide bool, digit, startNumber int) string {
	if index == 0 && !alwaysDivide {
		return outputRoot
	}
	if digit <= 0 {
		digit = 4
	}
	format := fmt.Sprintf("%%0%dd", digit)
	return filepath.Join(outputRoot, "divided", fmt.Sprintf(format, index+startNumber))
}

// DirFor returns the output directory for one of the recognized
// rdeformat subdirectory names, used when transplanting an already
// -structured RDEFormat archive tree into a tile's output paths.
func (p OutputPaths) DirFor(name string) string {
	switch name {
	case "raw":
		return p.Raw
	case "nonshared_raw":
		return p.NonsharedRaw
	case "structured":
		return p.Struct
	case "meta":
		return p.Meta
	case "main_image":
		return p.MainImage
	case "other_image":
		return p.OtherImage
	case "logs":
		return p.Logs
	case "thumbnail":
		return p.Thumbnail
	case "attachment":
		return p.Attachment
	default:
		return ""
	}
}

// NewOutputPaths derives the full OutputPaths for a tile rooted at
// tileRoot (as returned by TileOutputRoot).
func NewOutputPaths(tileRoot string) OutputPaths {
	return OutputPaths{
		Raw:               filepath.Join(tileRoot, "raw"),
		NonsharedRaw:      filepath.Join(tileRoot, "nonshared_raw"),
		Struct:            filepath.Join(tileRoot, "structured"),
		MainImage:         filepath.Join(tileRoot, "main_image"),
		OtherImage:        filepath.Join(tileRoot, "other_image"),
		Meta:              filepath.Join(tileRoot, "meta"),
		Thumbnail:         filepath.Join(tileRoot, "thumbnail"),
		Logs:              filepath.Join(tileRoot, "logs"),
		Invoice:           filepath.Join(tileRoot, "invoice", "invoice.json"),
		InvoiceSchemaJSON: filepath.Join(tileRoot, "invoice", "invoice.schema.json"),
		InvoiceOrg:         filepath.Join(tileRoot, "invoice", "invoice_org.json"),
		Temp:              filepath.Join(tileRoot, "temp"),
		Attachment:        filepath.Join(tileRoot, "attachment"),
	}
}

// EnsureDirs creates every directory an OutputPaths references, idempotently.
func (p OutputPaths) EnsureDirs() error {
	dirs := []string{
		p.Raw, p.NonsharedRaw, p.Struct, p.MainImage, p.OtherImage,
		p.Meta, p.Thumbnail, p.Logs, filepath.Dir(p.Invoice), p.Temp, p.Attachment,
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure dir %s: %w", dir, err)
		}
	}
	return nil
}
