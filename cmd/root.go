// =============================================================================
// Fish Reports - Root Command
// =============================================================================
//
// Root of the Cobra CLI. Commands:
//   fishreports process   - run the full batch
//   fishreports version   - print version information
//
// Global flags: --config (YAML configuration path), --verbose (debug
// logging).
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// cfgFile holds the path to the configuration file, overridable with
// --config.
var cfgFile string

// verbose enables debug logging.
var verbose bool

// rootCmd is the base command all subcommands attach to.
var rootCmd = &cobra.Command{
	Use:   "fishreports",
	Short: "Fish Reports - fill per-license report templates from a shipment export",
	Long: `Fish Reports automates the periodic shipment reporting workflow:

  1. Load the raw shipment export (XLSX or CSV) and drop invalid rows
  2. Aggregate line items per (document-reference, address) group
  3. Locate the pre-existing report template for each business license
  4. Overwrite the reference, weight, package, address and date cells
  5. Write the filled-in copies to the output directory

Paths and tunables come from a YAML configuration file that also remembers
the last-used paths between runs.

Example usage:
  fishreports process --source ./exports/shipments.xlsx
  fishreports process --config ./my-config.yaml --verbose`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the configuration file",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}
