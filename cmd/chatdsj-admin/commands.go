// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/chatdsj/chatdsj/cmd/chatdsj-admin/cli"
	"github.com/chatdsj/chatdsj/lib/codec"
	"github.com/chatdsj/chatdsj/lib/config"
	"github.com/chatdsj/chatdsj/lib/process"
	"github.com/chatdsj/chatdsj/lib/service"
	"github.com/chatdsj/chatdsj/lib/version"
)

func root(env *environment) *cli.Command {
	return &cli.Command{
		Name:    "chatdsj-admin",
		Summary: "Inspect and operate a running ChatDSJ service",
		Description: "Inspect and operate a running ChatDSJ service over its admin socket,\n" +
			"and manage the encrypted credentials file.",
		Subcommands: []*cli.Command{
			statusCommand(env),
			usageCommand(env),
			resetUsageCommand(env),
			metricsCommand(env),
			channelsCommand(env),
			keygenCommand(env),
			sealCredentialsCommand(env),
			versionCommand(env),
		},
		Examples: []cli.Example{
			{Description: "Check that the bot and its dependencies are up", Command: "chatdsj-admin status"},
			{Description: "Show token spend as JSON", Command: "chatdsj-admin usage --json"},
		},
	}
}

// socketParams are the flags shared by every command that talks to
// the admin socket.
type socketParams struct {
	socketPath string
	configPath string
	json       bool
	raw        bool
	noColor    bool
}

func (params *socketParams) bind(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&params.socketPath, "socket", "", "admin socket path (default: admin.socket_path from the config)")
	flagSet.StringVarP(&params.configPath, "config", "c", "", "path to chatdsj.yaml (default: $"+config.ConfigEnvVar+", else built-in defaults)")
	flagSet.BoolVar(&params.json, "json", false, "print the reply as JSON")
	flagSet.BoolVar(&params.raw, "raw", false, "print the reply in CBOR diagnostic notation")
	flagSet.BoolVar(&params.noColor, "no-color", false, "disable colors")
}

func (params *socketParams) resolveSocket() (string, error) {
	if params.socketPath != "" {
		return params.socketPath, nil
	}
	cfg, err := loadConfig(params.configPath)
	if err != nil {
		return "", err
	}
	if cfg.Admin.SocketPath == "" {
		return "", errors.New("admin.socket_path is empty in the configuration; pass --socket")
	}
	return cfg.Admin.SocketPath, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	if os.Getenv(config.ConfigEnvVar) != "" {
		return config.Load()
	}
	return config.LoadEnvironment()
}

// call sends action and handles --json and --raw itself. It reports
// handled=false when the caller should decode into result and render
// tables; result has then been filled in.
func (params *socketParams) call(ctx context.Context, env *environment, action string, fields map[string]any, result any) (handled bool, err error) {
	if params.json && params.raw {
		return true, process.UsageError(errors.New("--json and --raw are mutually exclusive"))
	}
	socketPath, err := params.resolveSocket()
	if err != nil {
		return true, err
	}

	raw, err := service.NewServiceClient(socketPath).CallRaw(ctx, action, fields)
	if err != nil {
		return true, diagnoseSocketError(err, socketPath)
	}

	switch {
	case params.raw:
		diagnostic, err := codec.Diagnose(raw)
		if err != nil {
			return true, fmt.Errorf("decoding %s reply: %w", action, err)
		}
		fmt.Fprintln(env.stdout, diagnostic)
		return true, nil
	case params.json:
		var generic any
		if err := codec.Unmarshal(raw, &generic); err != nil {
			return true, fmt.Errorf("decoding %s reply: %w", action, err)
		}
		return true, params.printer(env).json(generic)
	}

	if err := codec.Unmarshal(raw, result); err != nil {
		return true, fmt.Errorf("decoding %s reply: %w", action, err)
	}
	return false, nil
}

func (params *socketParams) printer(env *environment) *printer {
	return newPrinter(env.stdout, params.noColor, env.now())
}

// diagnoseSocketError adds a hint for the usual reasons the socket
// cannot be reached. Service-side failures pass through unchanged.
func diagnoseSocketError(err error, socketPath string) error {
	var serviceErr *service.ServiceError
	switch {
	case errors.As(err, &serviceErr):
		return err
	case errors.Is(err, syscall.ENOENT), errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("%w\n\nNothing is listening on %s. Is chatdsj running, and is admin.socket_path the same for both?", err, socketPath)
	case errors.Is(err, syscall.EACCES), errors.Is(err, syscall.EPERM):
		return fmt.Errorf("%w\n\nThe admin socket only accepts connections from the user the service runs as.", err)
	}
	return err
}

// expectNoArgs rejects positional arguments for commands that take none.
func expectNoArgs(args []string) error {
	if len(args) > 0 {
		return process.UsageError(fmt.Errorf("unexpected argument: %s", args[0]))
	}
	return nil
}

func versionCommand(env *environment) *cli.Command {
	return &cli.Command{
		Name:    "version",
		Summary: "Print version information",
		Run: func(ctx context.Context, args []string) error {
			if err := expectNoArgs(args); err != nil {
				return err
			}
			fmt.Fprintf(env.stdout, "chatdsj-admin %s\n", version.Full())
			return nil
		},
	}
}
