package cli

import (
	"github.com/spf13/cobra"
)

var startForce bool

var startCmd = &cobra.Command{
	Use:          "start",
	Short:        "Start a new run from step 1",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, cleanup, err := newEngine()
		if err != nil {
			return err
		}
		defer cleanup()
		return eng.Start(cmd.Context(), startForce)
	},
}

func init() {
	startCmd.Flags().BoolVar(&startForce, "force", false, "Start even if the state record says a run is active")
}
