package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/genebarker/pmjrunner/internal/config"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check pmjrunner prerequisites and configuration",
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	allOK := true

	check := func(label string, ok bool, hint string) {
		if ok {
			fmt.Printf("✅ %s\n", label)
		} else {
			fmt.Printf("❌ %s — %s\n", label, hint)
			allOK = false
		}
	}

	// 1. shell
	_, err := exec.LookPath("sh")
	check("sh available", err == nil, "install a POSIX shell")

	// 2. config
	cfg, cfgErr := config.Load(configPath)
	check(fmt.Sprintf("config loadable (%s)", configPath), cfgErr == nil, fmt.Sprintf("%v", cfgErr))

	if cfgErr == nil {
		// 3. working directory
		probe := filepath.Join(cfg.WorkDir, ".pmjrunner-doctor")
		werr := os.WriteFile(probe, []byte("ok"), 0644)
		if werr == nil {
			os.Remove(probe)
		}
		check("work_dir writable", werr == nil, fmt.Sprintf("grant write access to %s", cfg.WorkDir))

		// 4. notification settings
		if len(cfg.Subscribers) > 0 {
			check("smtp.host set", cfg.SMTP.Host != "", "set smtp.host to deliver notifications")
			check("smtp.from set", cfg.SMTP.From != "", "set smtp.from to deliver notifications")
			if cfg.SMTP.Username != "" {
				check(fmt.Sprintf("%s set", cfg.SMTP.PasswordEnv), cfg.SMTP.Password() != "",
					fmt.Sprintf("export %s for SMTP authentication", cfg.SMTP.PasswordEnv))
			}
		} else {
			fmt.Println("   no subscribers configured; notifications disabled")
		}
	}

	fmt.Println()
	if allOK {
		fmt.Println("All checks passed. pmjrunner is ready.")
	} else {
		fmt.Println("Some checks failed. Fix the issues above before starting a run.")
	}
	return nil
}
