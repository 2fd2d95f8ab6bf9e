// =============================================================================
// Fish Reports - Main Entry Point
// =============================================================================
//
// Entry point of the Fish Reports CLI. All command definitions live in
// the cmd package; business logic lives under internal/.
//
//	cmd/          CLI command definitions (Cobra)
//	internal/     pipeline components (not for external import)
//	pkg/          shared utilities
//
// =============================================================================

package main

import (
	"fishreports/cmd"
)

func main() {
	cmd.Execute()
}
