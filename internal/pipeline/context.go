// =============================================================================
// rdeconv - Tile Pipeline Module
// =============================================================================
//
// A Context carries everything one tile's processors read and write:
// its classification inputs, its output locations, the invoice lineage
// (the original invoice_org plus the tile's own evolving copy), and the
// row data a row-driven mode (ExcelInvoice/SmartTable) supplies. Context
// is never shared across tiles - the dispatcher builds one per TileUnit.
//
// =============================================================================

package pipeline

import (
	"github.com/ginjaninja78/rdeconv/internal/classify"
	"github.com/ginjaninja78/rdeconv/internal/invoice"
	"github.com/ginjaninja78/rdeconv/internal/rdeconfig"
	"github.com/ginjaninja78/rdeconv/internal/rdepath"
	"github.com/ginjaninja78/rdeconv/internal/rdeschema"
	"github.com/ginjaninja78/rdeconv/internal/userfunc"
)

// Status reports where a tile stands as its processors run.
type Status string

const (
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Context is threaded through every processor in a tile's sequence.
type Context struct {
	Mode        classify.Mode
	Config      *rdeconfig.Config
	InputPaths  rdepath.InputPaths
	OutputPaths rdepath.OutputPaths
	TileIndex   int

	Tile   classify.TileUnit
	Schema *rdeschema.Schema
	MetaDef *rdeschema.MetadataDefinition

	// InvoiceOrg is the caller-supplied base invoice, read-only for the
	// whole run.
	InvoiceOrg invoice.Document

	// Invoice is the tile's own evolving copy. Initializer populates it;
	// later processors mutate it in place.
	Invoice invoice.Document

	// Metadata accumulates meta/<name> columns (SmartTable/ExcelInvoice),
	// cast to their metadata-def type and split into constant/variable
	// entries. Nil when the tile's row carried no meta/ columns.
	Metadata *rdeschema.Metadata

	// DatasetFunc is the user callback invoked by UserDatasetFunction, nil
	// when the caller registered none.
	DatasetFunc userfunc.DatasetFunc

	Status Status
	Errors []error
}

// Fail records err and transitions the tile to Failed.
func (c *Context) Fail(err error) {
	c.Errors = append(c.Errors, err)
	c.Status = StatusFailed
}

// RawFileName returns the tile's first input file's base name, or "" for
// an empty tile.
func (c *Context) RawFileName() string {
	if len(c.Tile.InputFiles) == 0 {
		return ""
	}
	return baseName(c.Tile.InputFiles[0])
}

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			return path[i+1:]
		}
	}
	return path
}
