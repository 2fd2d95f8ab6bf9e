// =============================================================================
// Fish Reports - Version Command
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the application version, overridable at build time with
// -ldflags "-X fishreports/cmd.Version=...".
var Version = "1.0.0"

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("fishreports version %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
