package cli

import (
	"github.com/spf13/cobra"
)

var restartForce bool

var restartCmd = &cobra.Command{
	Use:          "restart",
	Short:        "Resume the existing run, skipping steps that already succeeded",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, cleanup, err := newEngine()
		if err != nil {
			return err
		}
		defer cleanup()
		return eng.Restart(cmd.Context(), restartForce)
	},
}

func init() {
	restartCmd.Flags().BoolVar(&restartForce, "force", false, "Restart even if the state record says a run is active")
}
