package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/genebarker/pmjrunner/internal/config"
	"github.com/genebarker/pmjrunner/internal/engine"
	"github.com/genebarker/pmjrunner/internal/executor"
	plog "github.com/genebarker/pmjrunner/internal/log"
	"github.com/genebarker/pmjrunner/internal/notify"
	"github.com/genebarker/pmjrunner/internal/run"
)

// newEngine is the shared construction path for start, restart, and redo.
// The returned cleanup closes the diagnostic log file.
func newEngine() (*engine.Engine, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	logFile := openLogFile(cfg.WorkDir)
	var extra io.Writer
	if logFile != nil {
		extra = logFile
	}
	plog.Init(cfg.LogLevel, extra)
	cleanup := func() {
		if logFile != nil {
			logFile.Close()
		}
	}

	eng := &engine.Engine{
		Config:    cfg,
		Store:     run.NewStore(cfg.WorkDir),
		Workspace: run.NewWorkspace(cfg.WorkDir),
		Runner:    executor.ShellRunner{},
		Notifier:  buildNotifier(cfg),
		Display:   engine.NewDisplay(),
	}
	return eng, cleanup, nil
}

// buildNotifier selects the SMTP notifier when subscribers are configured,
// otherwise the silent no-op.
func buildNotifier(cfg *config.Config) notify.Notifier {
	if len(cfg.Subscribers) == 0 {
		return notify.Nop{}
	}
	return &notify.Mailer{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		From:     cfg.SMTP.From,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password(),
		To:       cfg.Subscribers,
	}
}

func openLogFile(workDir string) *os.File {
	f, err := os.OpenFile(filepath.Join(workDir, "pmjrunner.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil
	}
	return f
}
