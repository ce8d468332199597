package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/genebarker/pmjrunner/internal/config"
	"github.com/genebarker/pmjrunner/internal/run"
)

var historyCmd = &cobra.Command{
	Use:          "history",
	Short:        "List retained run directories and their outcomes",
	SilenceUsage: true,
	RunE:         runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ws := run.NewWorkspace(cfg.WorkDir)
	ids, err := ws.Runs()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Println("No runs found.")
		return nil
	}

	current := 0
	if st, err := run.NewStore(cfg.WorkDir).Load(); err == nil {
		current = st.RunID
	}

	fmt.Printf("Runs: %d retained (rotation %d)\n\n", len(ids), cfg.Rotation)
	fmt.Printf("%-8s %-10s %s\n", "Run", "Steps", "Last update")
	for _, id := range ids {
		recs, err := run.NewLedger(ws.RunDir(id)).Records()
		if err != nil {
			fmt.Printf("%-8s %-10s unreadable: %v\n", fmt.Sprintf("%06d", id), "?", err)
			continue
		}
		succeeded := 0
		var last time.Time
		for _, r := range recs {
			if r.Status == run.StepSucceeded {
				succeeded++
			}
			if r.UpdatedAt.After(last) {
				last = r.UpdatedAt
			}
		}
		marker := ""
		if id == current {
			marker = " *"
		}
		fmt.Printf("%-8s %-10s %s%s\n",
			fmt.Sprintf("%06d", id),
			fmt.Sprintf("%d/%d", succeeded, len(recs)),
			last.Format("2006-01-02 15:04:05"), marker)
	}
	if current != 0 {
		fmt.Println("\n* current run")
	}
	return nil
}
