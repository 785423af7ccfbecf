// Package cmd drives the process lifecycle: config load, bootstrap, signal
// handling, and the bot run loop.
package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	coreconfig "github.com/m3rciful/bloodlife/core/config"
	"github.com/m3rciful/bloodlife/core/logger"
	coretelegram "github.com/m3rciful/bloodlife/core/telegram"
)

// Options describe how to load configuration and bootstrap the bot.
type Options struct {
	ConfigEnvVar      string
	DefaultConfigPath string

	// Bootstrap initializes infrastructure and returns the bot run options.
	Bootstrap func(cfg *coreconfig.Config) (coretelegram.RunOptions, error)

	ShutdownLogger func() error
	RunTelegram    func(ctx context.Context, opts coretelegram.RunOptions) error
}

// Run loads configuration, bootstraps the app, and starts the bot runtime.
func Run(opts Options) error {
	if opts.Bootstrap == nil {
		return fmt.Errorf("cmd: Bootstrap is required")
	}

	env := opts.ConfigEnvVar
	if env == "" {
		env = "CONFIG_PATH"
	}
	cfgPath := os.Getenv(env)
	if cfgPath == "" {
		cfgPath = opts.DefaultConfigPath
	}
	if cfgPath == "" {
		return fmt.Errorf("cmd: config path not provided via %s or DefaultConfigPath", env)
	}

	log.Printf("loading config: %s", cfgPath)
	cfg, err := coreconfig.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("cmd: failed to load config: %w", err)
	}

	startedAt := time.Now()
	runOpts, err := opts.Bootstrap(cfg)
	if err != nil {
		return fmt.Errorf("cmd: bootstrap failed: %w", err)
	}
	runOpts.Config = cfg

	shutdownLogger := opts.ShutdownLogger
	if shutdownLogger == nil {
		shutdownLogger = logger.Shutdown
	}
	defer func() {
		if err := shutdownLogger(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info(ctx, "app", "ready",
		slog.Duration("startup_duration", logger.Took(startedAt)),
	)

	run := opts.RunTelegram
	if run == nil {
		run = coretelegram.RunTelegram
	}
	err = run(ctx, runOpts)

	logger.Info(context.Background(), "app", "shutdown")
	return err
}
