// =============================================================================
// rdeconv - Validate Command
// =============================================================================
//
// This file defines the 'validate' command: load rdeconfig.yaml, the
// invoice schema, and the metadata definition (if present) without writing
// anything, reporting the first error encountered.
//
// COMMAND USAGE:
//   rdeconv validate [flags]
//
// EXIT CODES:
//   0 - configuration and schema are valid
//   2 - configuration or schema error
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/rdeconv/internal/rdeconfig"
	"github.com/ginjaninja78/rdeconv/internal/rdeschema"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and schema without processing",
	Long: `The validate command loads rdeconfig.yaml, invoice.schema.json, and
metadata-def.json (if present) under --input/tasksupport, reporting the
first error encountered instead of running the pipeline.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate()
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVar(&inputRoot, "input", ".", "Root directory holding tasksupport/")
}

func runValidate() error {
	in := filepath.Join(inputRoot, "tasksupport")

	if _, err := rdeconfig.LoadConfig(resolveConfigPath(inputRoot)); err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(2)
	}
	fmt.Println("rdeconfig.yaml: ok")

	if _, err := rdeschema.LoadInvoiceSchema(filepath.Join(in, "invoice.schema.json")); err != nil {
		fmt.Fprintf(os.Stderr, "schema error: %v\n", err)
		os.Exit(2)
	}
	fmt.Println("invoice.schema.json: ok")

	metaDefPath := filepath.Join(in, "metadata-def.json")
	if _, statErr := os.Stat(metaDefPath); statErr == nil {
		if _, err := rdeschema.LoadMetadataDefinition(metaDefPath); err != nil {
			fmt.Fprintf(os.Stderr, "metadata definition error: %v\n", err)
			os.Exit(2)
		}
		fmt.Println("metadata-def.json: ok")
	}

	fmt.Println("configuration is valid")
	return nil
}
