// =============================================================================
// Fish Reports - Process Command
// =============================================================================
//
// The 'process' command runs the whole batch: load, filter, aggregate,
// match templates, replace fields, summarize. Path flags override the
// configuration file for one-off runs and are persisted back as the new
// last-used paths.
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"fishreports/internal/config"
	"fishreports/internal/logging"
	"fishreports/internal/workflow"
)

// Path overrides; empty means "use the configured value".
var (
	sourceFile      string
	intermediateDir string
	reportsDir      string
	outputDir       string
	dryRun          bool
)

// processCmd represents the 'process' command.
var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run the shipment report batch",
	Long: `Process loads the shipment export, aggregates it into one record per
(document-reference, address) group, locates the report template for each
business license, fills the templates in, and writes the copies to the
output directory.

Licenses without a matching template are reported and skipped; they never
abort the batch. The output directory is cleared of stale files before any
report is written.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess()
	},
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringVar(&sourceFile, "source", "", "Shipment export file (.xlsx/.xlsm/.csv)")
	processCmd.Flags().StringVar(&intermediateDir, "intermediate", "", "Directory for the intermediate workbook")
	processCmd.Flags().StringVar(&reportsDir, "reports", "", "Directory tree of report templates")
	processCmd.Flags().StringVar(&outputDir, "output", "", "Directory for filled-in reports")
	processCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Stop after writing the intermediate file")
}

// runProcess wires configuration, logging and the workflow together.
func runProcess() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if sourceFile != "" {
		cfg.SourceFile = sourceFile
	}
	if intermediateDir != "" {
		cfg.IntermediateDir = intermediateDir
	}
	if reportsDir != "" {
		cfg.ReportsDir = reportsDir
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if cfg.SourceFile == "" {
		return fmt.Errorf("no source file configured; pass --source or set source_file in %s", cfgFile)
	}

	log, err := logging.New(cfg.LogLevel, verbose)
	if err != nil {
		return err
	}
	defer log.Sync()

	// Remember the effective paths for the next invocation.
	if err := cfg.Save(cfgFile); err != nil {
		log.Sugar().Warnf("could not persist configuration: %v", err)
	}

	wf := workflow.New(cfg, log)
	wf.DryRun = dryRun
	result := wf.Run()

	printSummary(result)
	if !result.Success() {
		return fmt.Errorf("run failed in step %s: %w", result.State, result.Err)
	}
	return nil
}

// printSummary prints the end-of-run block to stdout.
func printSummary(result workflow.Result) {
	s := result.Stats
	fmt.Println("\n=== Processing Complete ===")
	fmt.Printf("Rows loaded:       %d\n", s.RowsLoaded)
	fmt.Printf("Rows removed:      %d\n", s.RowsRemoved)
	fmt.Printf("Report groups:     %d\n", s.Groups)
	fmt.Printf("Total packages:    %.2f\n", s.TotalPackages)
	fmt.Printf("Total weight (kg): %.2f\n", s.TotalWeightKG)
	fmt.Printf("Licenses:          %d\n", s.Licenses)
	fmt.Printf("Files written:     %d\n", s.FilesWritten)
	if len(s.Unprocessed) > 0 {
		fmt.Printf("Unprocessed licenses (%d):\n", len(s.Unprocessed))
		for _, lic := range s.Unprocessed {
			fmt.Printf("  ✗ %s\n", lic)
		}
	}
	if result.SummaryPath != "" {
		fmt.Printf("Summary file:      %s\n", result.SummaryPath)
	}
}
