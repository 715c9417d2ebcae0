// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/chatdsj/chatdsj/lib/config"
	"github.com/chatdsj/chatdsj/lib/process"
	"github.com/chatdsj/chatdsj/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath  string
		logLevel    string
		checkConfig bool
		showVersion bool
	)

	flagSet := pflag.NewFlagSet("chatdsj", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "path to chatdsj.yaml (default: $"+config.ConfigEnvVar+", else defaults plus environment)")
	flagSet.StringVar(&logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")
	flagSet.BoolVar(&checkConfig, "check-config", false, "validate the configuration and exit")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return process.UsageError(err)
	}
	if flagSet.NArg() > 0 {
		return process.UsageError(fmt.Errorf("unexpected argument: %s", flagSet.Arg(0)))
	}

	if showVersion {
		fmt.Printf("chatdsj %s\n", version.Full())
		return nil
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.LoadCredentials(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if checkConfig {
		fmt.Printf("configuration ok (environment %s)\n", cfg.Environment)
		return nil
	}
	if err := cfg.EnsurePaths(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.Logging, os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	service, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer service.Close()

	return service.Serve(ctx)
}

// loadConfig prefers an explicit --config, then $CHATDSJ_CONFIG, and
// otherwise runs from defaults plus environment variables.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	if os.Getenv(config.ConfigEnvVar) != "" {
		return config.Load()
	}
	return config.LoadEnvironment()
}
