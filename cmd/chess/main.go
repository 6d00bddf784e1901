// Package main runs a chess game in the terminal against a UCI engine.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"chesscore/internal/cli"
	"chesscore/internal/config"
	"chesscore/internal/engine"
	"chesscore/internal/game"
	"chesscore/internal/logging"
	clitransport "chesscore/internal/transport/cli"

	"github.com/chzyer/readline"
	"go.uber.org/zap"
	"golang.org/x/term"
)

func main() {
	var (
		configFile = flag.String("config", "", "Path to YAML config file")
		envFile    = flag.String("env", ".env", "Path to .env file")
		enginePath = flag.String("engine", "", "UCI engine binary (overrides config)")
		theme      = flag.String("color", "", "Board theme: off, brown, green, gray (default brown on a terminal)")
	)
	flag.Parse()

	cfg, err := config.Load(*configFile, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		os.Exit(1)
	}
	if *enginePath != "" {
		cfg.Engine.Path = *enginePath
	}

	// Logs would interleave with the board, so they only go to a file
	logger := zap.NewNop()
	if cfg.Logs.File != "" {
		logger, err = logging.New(cfg.Logs.Level, cfg.Logs.Style, cfg.Logs.File)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
			os.Exit(1)
		}
	}
	defer logger.Sync()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		HistoryFile:     ".chess_history",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	view := cli.New(rl, rl.Stdout())
	selected := cli.ColorTheme(*theme)
	if selected == "" {
		selected = cli.ThemeOff
		if term.IsTerminal(int(os.Stdout.Fd())) {
			selected = cli.ThemeBrown
		}
	}
	if err := view.SetTheme(selected); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		os.Exit(1)
	}

	launcher := cfg.Launcher()
	engineCfg := cfg.EngineConfig()
	handler := clitransport.New(view, clitransport.Options{
		Defaults: cfg.GameDefaults(),
		NewEngine: func() game.Mover {
			return engine.New(launcher, engineCfg, logger.Named("engine"))
		},
		Logger: logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	view.ShowWelcome()
	handler.Run(ctx)
}
