// =============================================================================
// rdeconv - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands (like 'run', 'validate') are
// attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (rdeconv)
//   ├── runCmd (rdeconv run)
//   ├── validateCmd (rdeconv validate)
//   └── versionCmd (rdeconv version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (e.g., --config, --verbose)
//   2. Initializing the configuration and logging systems, deferred to
//      each subcommand since the input/output roots aren't known here
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// configFile holds the path to rdeconfig.yaml, resolved relative to the
// input root unless given as an absolute path. Can be overridden with --config.
var configFile string

// verbose enables debug-level logging on the console sink.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "rdeconv",
	Short: "Structure heterogeneous experimental-data submissions into a validated dataset tree",

	Long: `rdeconv ingests a heterogeneous experimental-data submission - raw files,
Excel-based batch invoices, or tabular SmartTable batch descriptors - and
produces a normalized, validated, per-dataset directory tree suitable for
registration in a research-data repository.

Key Features:
  - Mode-dispatched classification (Invoice, ExcelInvoice, MultiDataTile,
    RDEFormat, SmartTable)
  - Zip-slip-safe archive expansion and deterministic tile grouping
  - Schema-driven invoice generation and validation
  - Magic-variable substitution against file and invoice metadata

Example Usage:
  rdeconv run                      # Process the input tree rooted at the cwd
  rdeconv run --config ./my.yaml   # Use a custom rdeconfig.yaml
  rdeconv validate                 # Validate configuration/schema only`,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute adds all child commands to the root command and sets flags
// appropriately. It is called by main.main() exactly once.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&configFile,
		"config",
		"tasksupport/rdeconfig.yaml",
		"Path to rdeconfig.yaml",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug-level console logging",
	)
}
