// =============================================================================
// rdeconv - User Dataset Callback Module
// =============================================================================
//
// DatasetPaths is the facade handed to the caller-supplied DatasetFunc at
// the end of a tile's pipeline: every path the tile wrote to, plus the
// row data (when the tile came from a SmartTable descriptor) and the
// tile's finalized invoice document. Mirrors the original's
// RdeDatasetPaths bundle.
//
// =============================================================================

package userfunc

import (
	"github.com/ginjaninja78/rdeconv/internal/invoice"
	"github.com/ginjaninja78/rdeconv/internal/rdepath"
)

// DatasetPaths is passed to DatasetFunc once a tile's standard processors
// have all run.
type DatasetPaths struct {
	InputPaths    rdepath.InputPaths
	OutputPaths   rdepath.OutputPaths
	SmartTableRow map[string]string // the tile's row patch (SmartTable and ExcelInvoice rows); nil in other modes
	Invoice       invoice.Document
}

// DatasetFunc is the user-supplied callback invoked once per tile. A
// returned error marks the tile Failed.
type DatasetFunc func(paths *DatasetPaths) error
