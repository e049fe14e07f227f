// =============================================================================
// rdeconv - Main Entry Point
// =============================================================================
//
// This is the main entry point for the rdeconv CLI application. It
// initializes the Cobra CLI framework and delegates command execution to
// the cmd package.
//
// USAGE:
//   rdeconv run        - Execute the structuring pipeline over an input tree
//   rdeconv validate   - Validate configuration/schema without processing
//   rdeconv version    - Display the application version
//
// ARCHITECTURE:
//   This application follows a modular design where:
//   - cmd/           : Contains all CLI command definitions (Cobra)
//   - internal/      : Contains core business logic (not for external import)
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/rdeconv/cmd"
)

// main is the entry point of the application.
// It simply calls the Execute function from the cmd package, which
// initializes and runs the Cobra CLI.
func main() {
	cmd.Execute()
}
