package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/genebarker/pmjrunner/internal/assets"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter configuration file",
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("Config already exists: %s\n", configPath)
		return nil
	}

	if err := os.WriteFile(configPath, assets.StarterConfig(), 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("Created %s\n", configPath)
	fmt.Println("Edit run_name, work_dir, and the step list before starting a run.")
	return nil
}
