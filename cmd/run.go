// =============================================================================
// rdeconv - Run Command
// =============================================================================
//
// This file defines the 'run' command, which is the main command for
// structuring a submission tree. It orchestrates the full pipeline: load
// config/schema/invoice, classify, and execute the tile pipeline through
// internal/dispatch.
//
// COMMAND USAGE:
//   rdeconv run [flags]
//
// FLAGS:
//   --input    : Root directory holding inputdata/, invoice/, tasksupport/
//   --output   : Root directory tiles are written under
//   --roots    : Process multiple independent input roots (one worker per root)
//
// PROCESSING PIPELINE:
//   1. Load rdeconfig.yaml, invoice.schema.json, metadata-def.json
//   2. Load the caller-supplied invoice_org document, or generate a
//      skeleton from the schema when invoice/invoice.json is absent
//   3. Set up the per-run log file
//   4. Hand everything to dispatch.Run, which classifies and drives the
//      tile pipeline
//   5. Report per-tile outcomes and exit with the appropriate status code
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/rdeconv/internal/dispatch"
	"github.com/ginjaninja78/rdeconv/internal/invoice"
	"github.com/ginjaninja78/rdeconv/internal/rdeconfig"
	"github.com/ginjaninja78/rdeconv/internal/rdelog"
	"github.com/ginjaninja78/rdeconv/internal/rdepath"
	"github.com/ginjaninja78/rdeconv/internal/rdeschema"
)

// usageError marks an error that should exit 2 (usage/config/schema
// problem) rather than 1 (tile failure). processRoot returns one instead
// of calling os.Exit directly so that, under --roots, one root's bad
// config doesn't kill sibling roots still mid-flight in another goroutine.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// errTilesFailed marks a root that completed but had at least one
// failed or skipped tile (exit 1).
var errTilesFailed = errors.New("one or more tiles failed")

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// inputRoot is the root directory holding inputdata/, invoice/, tasksupport/.
var inputRoot string

// outputRoot is the root directory tiles are written under.
var outputRoot string

// extraRoots names additional independent input roots to process in the
// same invocation, each on its own worker goroutine - one goroutine per
// root, since a single root's tiles must run single-threaded.
var extraRoots []string

// =============================================================================
// RUN COMMAND DEFINITION
// =============================================================================

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Structure a submission tree into a validated dataset tree",
	Long: `The run command loads rdeconfig.yaml, the invoice schema, and the caller's
invoice_org document, classifies the input bundle under --input, and drives
the resulting tiles through the structuring pipeline.

Each root is processed as a single sequential run: tiles within one root
share invoice lineage and a strict index order, so they are never run
concurrently with each other. --roots lets the same invocation process
several independent roots at once, one worker per root.

On successful processing:
  - Every tile's output tree is written under --output (divided/{i:04d}/
    for batches of more than one tile)
  - A per-run log file is written to <output>/logs/

On error:
  - A tile's failure is recorded but does not stop the remaining tiles in
    that root, unless system.ignore_errors is false and the failure is fatal`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline()
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&inputRoot, "input", ".", "Root directory holding inputdata/, invoice/, tasksupport/")
	runCmd.Flags().StringVar(&outputRoot, "output", "data", "Root directory tiles are written under")
	runCmd.Flags().StringSliceVar(&extraRoots, "roots", nil, "Additional independent input roots to process in this invocation")
}

// runPipeline is the main function that orchestrates the structuring
// pipeline, across one root or several. Each root's error is collected
// rather than exiting the process immediately, so a bad config in one
// --roots entry doesn't cut off siblings still processing in another
// goroutine; the exit code reflects the worst outcome across all roots.
func runPipeline() error {
	roots := append([]string{inputRoot}, extraRoots...)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var errs []error
	if len(roots) == 1 {
		errs = []error{processRoot(ctx, roots[0])}
	} else {
		errs = make([]error, len(roots))
		var wg sync.WaitGroup
		for i, root := range roots {
			wg.Add(1)
			go func(i int, root string) {
				defer wg.Done()
				errs[i] = processRoot(ctx, root)
			}(i, root)
		}
		wg.Wait()
	}

	exitCode := 0
	for _, err := range errs {
		if err == nil {
			continue
		}
		fmt.Fprintf(os.Stderr, "%v\n", err)
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			exitCode = 2
		} else if exitCode < 1 {
			exitCode = 1
		}
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
	return nil
}

// resolveConfigPath honors an absolute --config override as-is; a relative
// one (including the default) is resolved under the root being processed,
// so a --config override still applies per-root across --roots.
func resolveConfigPath(root string) string {
	if filepath.IsAbs(configFile) {
		return configFile
	}
	return filepath.Join(root, configFile)
}

// loadOrGenerateInvoiceOrg loads the caller-supplied invoice_org document.
// When invoice/invoice.json is absent, it falls back to generating a
// skeleton from the schema rather than treating the missing file as fatal,
// since the Initializer step (internal/pipeline) accepts either source.
func loadOrGenerateInvoiceOrg(in rdepath.InputPaths, schema *rdeschema.Schema) (invoice.Document, error) {
	path := filepath.Join(in.Invoice, "invoice.json")
	doc, err := invoice.LoadDocument(path)
	if err == nil {
		return doc, nil
	}
	if os.IsNotExist(err) {
		return invoice.GenerateFromSchema(schema, true, false), nil
	}
	return nil, err
}

// processRoot runs the full pipeline for a single input root.
func processRoot(ctx context.Context, root string) error {
	startTime := time.Now()
	fmt.Printf("=== rdeconv: %s ===\n", root)

	in := rdepath.NewInputPaths(root)

	cfg, err := rdeconfig.LoadConfig(resolveConfigPath(root))
	if err != nil {
		return &usageError{fmt.Errorf("configuration error: %w", err)}
	}

	schema, err := rdeschema.LoadInvoiceSchema(filepath.Join(in.TaskSupport, "invoice.schema.json"))
	if err != nil {
		return &usageError{fmt.Errorf("schema error: %w", err)}
	}

	var metaDef *rdeschema.MetadataDefinition
	metaDefPath := filepath.Join(in.TaskSupport, "metadata-def.json")
	if _, statErr := os.Stat(metaDefPath); statErr == nil {
		metaDef, err = rdeschema.LoadMetadataDefinition(metaDefPath)
		if err != nil {
			return &usageError{fmt.Errorf("metadata definition error: %w", err)}
		}
	}

	invoiceOrg, err := loadOrGenerateInvoiceOrg(in, schema)
	if err != nil {
		return &usageError{fmt.Errorf("invoice error: %w", err)}
	}

	logger, err := rdelog.Setup(filepath.Join(outputRoot, "logs"), cfg, startTime, verbose)
	if err != nil {
		return fmt.Errorf("set up logging: %w", err)
	}
	defer logger.Close()

	result, err := dispatch.Run(ctx, in, cfg, dispatch.Options{
		OutputRoot: outputRoot,
		Schema:     schema,
		MetaDef:    metaDef,
		InvoiceOrg: invoiceOrg,
	})
	if err != nil {
		logger.Error().Err(err).Msg("run aborted")
		return err
	}

	if result.Report != nil && result.Report.HasErrors() {
		for _, item := range result.Report.Items {
			fmt.Printf("  classify: %s: %s\n", item.Path, item.Detail)
		}
	}

	for _, status := range result.Statuses {
		switch status.Outcome {
		case dispatch.OutcomeSuccess:
			fmt.Printf("  tile %04d: ok\n", status.TileIndex)
		case dispatch.OutcomeSkipped:
			fmt.Printf("  tile %04d: skipped\n", status.TileIndex)
		default:
			fmt.Printf("  tile %04d: failed: %v\n", status.TileIndex, status.Error)
			if status.Error != nil {
				rdelog.LogPipelineError(logger.Logger, cfg, status.TileIndex, "dispatch", status.Error)
			}
		}
	}

	elapsed := time.Since(startTime)
	fmt.Printf("--- %s complete in %s (%d tile(s)) ---\n", root, elapsed, len(result.Statuses))

	if result.OverallOutcome != dispatch.OutcomeSuccess {
		return errTilesFailed
	}
	return nil
}
