package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/genebarker/pmjrunner/internal/engine"
)

var redoForce bool

var redoCmd = &cobra.Command{
	Use:          "redo <step>",
	Short:        "Re-execute one step of the existing run, then continue",
	Example:      "pmjrunner redo 3",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		step, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("%w: step must be a number, got %q", engine.ErrPrecondition, args[0])
		}
		eng, cleanup, err := newEngine()
		if err != nil {
			return err
		}
		defer cleanup()
		return eng.Redo(cmd.Context(), step, redoForce)
	},
}

func init() {
	redoCmd.Flags().BoolVar(&redoForce, "force", false, "Redo even if the state record says a run is active")
}
