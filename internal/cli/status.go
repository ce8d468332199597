package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/genebarker/pmjrunner/internal/config"
	"github.com/genebarker/pmjrunner/internal/run"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4D96FF"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6BCB77"))
	badStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	busyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD93D"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

var statusCmd = &cobra.Command{
	Use:          "status",
	Short:        "Show the current run and its step ledger",
	SilenceUsage: true,
	RunE:         runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	st, err := run.NewStore(cfg.WorkDir).Load()
	if err != nil {
		if errors.Is(err, run.ErrNotFound) {
			fmt.Println("No run found. Use `pmjrunner start` to begin one.")
			return nil
		}
		return err
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("%s — run %d", cfg.RunName, st.RunID)))
	fmt.Printf("State:   %s\n", styleFor(string(st.Status)).Render(string(st.Status)))
	fmt.Printf("Step:    %d (%s), attempt %d\n", st.CurrentStep, st.StepName, st.Attempt)
	fmt.Printf("Updated: %s\n", st.UpdatedAt.Format(time.RFC3339))

	recs, err := run.NewLedger(run.NewWorkspace(cfg.WorkDir).RunDir(st.RunID)).Records()
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		return nil
	}

	fmt.Println()
	fmt.Println(mutedStyle.Render(fmt.Sprintf("%-6s %-24s %-12s %s", "Step", "Name", "Status", "Updated")))
	for _, rec := range recs {
		// Pad before styling so ANSI codes don't skew the columns.
		status := styleFor(string(rec.Status)).Render(fmt.Sprintf("%-12s", rec.Status))
		fmt.Printf("%-6d %-24s %s %s\n", rec.Step, rec.Name, status, rec.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func styleFor(status string) lipgloss.Style {
	switch status {
	case string(run.StatusSucceeded):
		return okStyle
	case string(run.StatusFailed), string(run.StepBlocked):
		return badStyle
	case string(run.StatusRunning), string(run.StepValidating):
		return busyStyle
	default:
		return mutedStyle
	}
}
