package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

const version = "1.0.0"

// configPath is bound to the persistent -c/--config flag and read by every
// command that touches a run.
var configPath string

var rootCmd = &cobra.Command{
	Use:   "pmjrunner",
	Short: "Resumable sequential job runner",
	Long: `pmjrunner executes a configured sequence of shell steps, recording every
status transition on disk so an interrupted run can be restarted from where
it stopped or have a single step re-executed.`,
}

func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "pmjrunner.yaml", "Path to the run configuration file")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(restartCmd)
	rootCmd.AddCommand(redoCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(historyCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pmjrunner %s\n", version)
	},
}
