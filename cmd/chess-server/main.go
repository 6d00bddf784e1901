// Package main serves chess games over a JSON API, with engine turns
// played by a pool of UCI engine processes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chesscore/internal/config"
	"chesscore/internal/engine"
	"chesscore/internal/game"
	"chesscore/internal/logging"
	"chesscore/internal/service"
	"chesscore/internal/transport/http"

	"go.uber.org/zap"
)

const gracefulShutdownTimeout = 5 * time.Second

func main() {
	var (
		configFile = flag.String("config", "", "Path to YAML config file")
		envFile    = flag.String("env", ".env", "Path to .env file")
		apiHost    = flag.String("api-host", "", "API server host (overrides config)")
		apiPort    = flag.Int("api-port", 0, "API server port (overrides config)")
		dev        = flag.Bool("dev", false, "Development mode (console logs, access log, relaxed rate limits)")
		pidPath    = flag.String("pid", "", "Optional path to write PID file")
		pidLock    = flag.Bool("pid-lock", false, "Lock PID file to allow only one instance (requires -pid)")
	)
	flag.Parse()

	if err := run(*configFile, *envFile, *apiHost, *apiPort, *dev, *pidPath, *pidLock); err != nil {
		fmt.Fprintf(os.Stderr, "chess-server: %v\n", err)
		os.Exit(1)
	}
}

func run(configFile, envFile, host string, port int, dev bool, pidPath string, pidLock bool) error {
	cfg, err := config.Load(configFile, envFile)
	if err != nil {
		return err
	}
	if host != "" {
		cfg.Server.Host = host
	}
	if port != 0 {
		cfg.Server.Port = port
	}
	if pidPath != "" {
		cfg.Server.PIDFile = pidPath
	}
	if dev {
		cfg.Logs.Style = "console"
		cfg.Logs.Level = "debug"
		cfg.Server.RateLimit *= 2
	}
	if pidLock && cfg.Server.PIDFile == "" {
		return errors.New("-pid-lock requires a PID file path")
	}

	logger, err := logging.New(cfg.Logs.Level, cfg.Logs.Style, cfg.Logs.File)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Server.PIDFile != "" {
		cleanup, err := managePIDFile(cfg.Server.PIDFile, pidLock)
		if err != nil {
			return fmt.Errorf("manage PID file: %w", err)
		}
		defer cleanup()
		logger.Info("PID file created", zap.String("path", cfg.Server.PIDFile), zap.Bool("lock", pidLock))
	}

	launcher := cfg.Launcher()
	engineCfg := cfg.EngineConfig()
	engineLog := logger.Named("engine")
	svc := service.New(service.Options{
		Defaults: cfg.GameDefaults(),
		NewEngine: func() game.Mover {
			return engine.New(launcher, engineCfg, engineLog)
		},
		Workers:     cfg.Engine.Workers,
		WaitTimeout: cfg.Server.WaitTimeout,
		Logger:      logger.Named("service"),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go svc.RunClockLoop(ctx, cfg.Server.ClockInterval)

	app := http.NewFiberApp(svc, http.Options{
		RateLimit:      cfg.Server.RateLimit,
		CORSOrigins:    cfg.Server.CORSOrigins,
		TrustedProxies: cfg.Server.TrustedProxies,
		AccessLog:      dev,
		WaitTimeout:    cfg.Server.WaitTimeout,
		Logger:         logger.Named("http"),
	})

	addr := cfg.Addr()
	listenErr := make(chan error, 1)
	go func() {
		logger.Info("chess API server starting",
			zap.String("addr", addr),
			zap.String("engine", cfg.Engine.Path),
			zap.Duration("move_time", cfg.Engine.MoveTime),
			zap.Int("rate_limit", cfg.Server.RateLimit))
		listenErr <- app.Listen(addr)
	}()

	select {
	case <-ctx.Done():
	case err := <-listenErr:
		if err != nil {
			_ = svc.Close(gracefulShutdownTimeout)
			return fmt.Errorf("listen: %w", err)
		}
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	var errs []error
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := svc.Close(gracefulShutdownTimeout); err != nil {
		errs = append(errs, fmt.Errorf("service shutdown: %w", err))
	}

	logger.Info("server exited")
	return errors.Join(errs...)
}
