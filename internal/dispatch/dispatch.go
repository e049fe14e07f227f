// =============================================================================
// rdeconv - Mode Dispatcher Module
// =============================================================================
//
// Run is the top of the processing pipeline: it classifies the input
// bundle, selects the processor sequence for the resulting mode from a
// static dispatch table, then executes that sequence against every tile
// in index order. The run always completes: one tile's failure records a
// failed WorkflowStatus and the dispatcher advances to the next tile,
// unless the host cancels ctx or a FatalError surfaces.
//
// =============================================================================

package dispatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/ginjaninja78/rdeconv/internal/classify"
	"github.com/ginjaninja78/rdeconv/internal/invoice"
	"github.com/ginjaninja78/rdeconv/internal/pipeline"
	"github.com/ginjaninja78/rdeconv/internal/rdeconfig"
	"github.com/ginjaninja78/rdeconv/internal/rdeerr"
	"github.com/ginjaninja78/rdeconv/internal/rdepath"
	"github.com/ginjaninja78/rdeconv/internal/rdeschema"
	"github.com/ginjaninja78/rdeconv/internal/userfunc"
)

// Outcome is the terminal state of one tile, or of the run as a whole.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// WorkflowStatus reports one tile's outcome, in the order tiles were
// constructed by the classifier.
type WorkflowStatus struct {
	TileIndex int
	Mode      classify.Mode
	Outcome   Outcome
	Error     error
}

// Result aggregates every tile's WorkflowStatus plus the run's overall
// outcome: Failed if any tile failed or was skipped, or the classifier
// itself reported a boundary condition (e.g. a zero-file archive);
// Success otherwise.
type Result struct {
	Mode           classify.Mode
	Statuses       []WorkflowStatus
	OverallOutcome Outcome
	Report         *rdeerr.ValidationReport
}

// Options carries everything a tile's pipeline needs beyond what
// Classify itself produces: the output root tiles write under, the
// parsed schema/metadata-def, the caller-supplied base invoice, and an
// optional user dataset callback.
type Options struct {
	OutputRoot  string
	Schema      *rdeschema.Schema
	MetaDef     *rdeschema.MetadataDefinition
	InvoiceOrg  invoice.Document
	DatasetFunc userfunc.DatasetFunc
}

// processorSequence returns the ordered Processor list for mode, selected
// from the static mode -> sequence dispatch table (§4.C7), not a chained
// conditional: only the Initializer and RawCopier's copy-only toggle vary
// by mode, so the table lives here as a small switch rather than five
// separately maintained slices.
func processorSequence(mode classify.Mode, cfg *rdeconfig.Config) []pipeline.Processor {
	var initializer pipeline.Processor
	switch mode {
	case classify.ModeExcelInvoice, classify.ModeSmartTable:
		initializer = pipeline.ApplyRowInitializer{}
	case classify.ModeRDEFormat:
		initializer = pipeline.NoOpInitializer{}
	default: // ModeInvoice, ModeMultiDataTile
		initializer = pipeline.CopyFromInvoiceOrgInitializer{}
	}

	return []pipeline.Processor{
		initializer,
		pipeline.MagicVariableSubstitutor{},
		pipeline.Validator{},
		pipeline.MetadataSaver{},
		pipeline.RawCopier{CopyOnly: mode == classify.ModeRDEFormat},
		pipeline.DescriptionUpdater{},
		pipeline.ThumbnailGenerator{},
		pipeline.StructuredInvoiceSaver{SaveStructuredCopy: cfg.System.SaveInvoiceToStructured},
		pipeline.UserDatasetFunction{},
	}
}

// Run classifies in per cfg, then executes the standard tile pipeline
// over every resulting tile in index order. ctx is checked at each tile
// boundary only - there are no suspension points within a tile; once
// cancelled, every remaining tile is recorded Skipped without running any
// processor.
func Run(ctx context.Context, in rdepath.InputPaths, cfg *rdeconfig.Config, opts Options) (*Result, error) {
	// Each run gets its own scratch subdirectory so concurrent Run calls
	// sharing the same OutputRoot (--roots) never race over archive
	// expansion paths.
	scratchRoot := filepath.Join(opts.OutputRoot, "temp", "classify", uuid.NewString())
	defer os.RemoveAll(scratchRoot)

	classified, err := classify.Classify(in, cfg, scratchRoot)
	if err != nil {
		var cfgErr *rdeerr.ConfigError
		if errors.As(err, &cfgErr) {
			return nil, &rdeerr.FatalError{Err: err}
		}
		return nil, err
	}

	result := &Result{Mode: classified.Mode, OverallOutcome: OutcomeSuccess, Report: classified.Report}
	if classified.Report != nil && classified.Report.HasErrors() {
		result.OverallOutcome = OutcomeFailed
	}
	steps := processorSequence(classified.Mode, cfg)

	cancelled := false
	for _, tile := range classified.Tiles {
		if !cancelled && ctx.Err() != nil {
			cancelled = true
		}
		if cancelled {
			result.Statuses = append(result.Statuses, WorkflowStatus{
				TileIndex: tile.Index, Mode: classified.Mode, Outcome: OutcomeSkipped,
			})
			result.OverallOutcome = OutcomeFailed
			continue
		}

		tileRoot := rdepath.TileOutputRoot(opts.OutputRoot, tile.Index, tile.AlwaysDivide, cfg.DividedDirDigit(), cfg.DividedDirStartNumber())
		outPaths := rdepath.NewOutputPaths(tileRoot)
		if tile.SourceRowFile != "" {
			outPaths.SmartTableRowFile = filepath.Join(outPaths.Raw, tile.SourceRowFile)
		}
		if err := outPaths.EnsureDirs(); err != nil {
			return nil, err
		}

		pctx := &pipeline.Context{
			Mode:        classified.Mode,
			Config:      cfg,
			InputPaths:  in,
			OutputPaths: outPaths,
			TileIndex:   tile.Index,
			Tile:        tile,
			Schema:      opts.Schema,
			MetaDef:     opts.MetaDef,
			InvoiceOrg:  opts.InvoiceOrg,
			DatasetFunc: opts.DatasetFunc,
		}

		pipeline.Run(pctx, steps)

		status := WorkflowStatus{TileIndex: tile.Index, Mode: classified.Mode}
		switch pctx.Status {
		case pipeline.StatusSuccess:
			status.Outcome = OutcomeSuccess
		default:
			status.Outcome = OutcomeFailed
			result.OverallOutcome = OutcomeFailed
			if len(pctx.Errors) > 0 {
				status.Error = pctx.Errors[len(pctx.Errors)-1]
			}
			var fatal *rdeerr.FatalError
			if !cfg.IgnoreErrorsEnabled() && errors.As(status.Error, &fatal) {
				cancelled = true
			}
		}
		result.Statuses = append(result.Statuses, status)
	}

	return result, nil
}
