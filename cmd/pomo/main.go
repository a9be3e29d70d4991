// Command pomo is a terminal pomodoro timer with a task list.
//
// Usage:
//
//	pomo [-config path] [-data-dir dir] [-debug]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"pomo-cli/app"
	"pomo-cli/assistant"
	"pomo-cli/config"
	"pomo-cli/sound"
	"pomo-cli/store"
	"pomo-cli/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "pomo: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config.yaml (default: user config dir)")
	dataDir := flag.String("data-dir", "", "directory for state.json and pomo.log")
	debug := flag.Bool("debug", false, "log at debug level")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *debug {
		cfg.LogLevel = slog.LevelDebug
	}

	dir, err := cfg.ResolveDataDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	logFile, err := os.OpenFile(config.LogPath(dir), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	logger := slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: cfg.LogLevel}))

	st, status, err := store.Open(config.StatePath(dir), logger.With("component", "store"))
	if err != nil {
		return err
	}
	state := st.LoadState()
	logger.Info("starting", "dataDir", dir, "tasks", len(state.Tasks), "sessions", state.CompletedWorkSessions)

	svc := app.NewService(state, st, logger.With("component", "app"), app.WithSaveInterval(cfg.SaveInterval))
	ctrl := app.NewController(svc, st, state.BreakResume, sound.NewBell(os.Stderr), logger.With("component", "controller"))

	client := assistant.NewClient(newGenerator(cfg, logger), logger.With("component", "assistant"),
		assistant.WithHistoryLimit(cfg.Assistant.HistoryLimit),
		assistant.WithTimeout(cfg.Assistant.Timeout),
	)

	m := tui.NewModel(ctrl, status,
		tui.WithAssistant(client, state.Chat, st),
		tui.WithLogger(logger.With("component", "tui")),
	)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("run program: %w", err)
	}
	ctrl.Flush()
	logger.Info("exiting")
	return nil
}

// newGenerator returns nil when no API key is set; the assistant then
// answers with its canned messages.
func newGenerator(cfg config.Config, logger *slog.Logger) assistant.Generator {
	key := cfg.APIKey()
	if key == "" {
		logger.Info("assistant disabled", "env", cfg.Assistant.APIKeyEnv)
		return nil
	}
	gen, err := assistant.NewGemini(context.Background(), key, cfg.Assistant.Model)
	if err != nil {
		logger.Warn("assistant unavailable", "err", err)
		return nil
	}
	return gen
}
