// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"github.com/chatdsj/chatdsj/lib/process"
)

func isUsageError(err error) bool {
	var exitErr *process.ExitError
	return errors.As(err, &exitErr) && exitErr.Code == 2
}

func TestExecuteDispatchesToSubcommand(t *testing.T) {
	var called string
	root := &Command{
		Name: "chatdsj-admin",
		Subcommands: []*Command{
			{Name: "status", Run: func(ctx context.Context, args []string) error { called = "status"; return nil }},
			{Name: "usage", Run: func(ctx context.Context, args []string) error { called = "usage"; return nil }},
		},
	}

	if err := root.Execute(context.Background(), []string{"usage"}, &bytes.Buffer{}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if called != "usage" {
		t.Errorf("dispatched to %q, want usage", called)
	}
}

func TestExecuteParsesFlags(t *testing.T) {
	var limit int
	var received []string
	command := &Command{
		Name: "channels",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("channels", pflag.ContinueOnError)
			flagSet.IntVar(&limit, "limit", 0, "maximum channels")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			received = args
			return nil
		},
	}

	if err := command.Execute(context.Background(), []string{"--limit", "5", "extra"}, &bytes.Buffer{}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if limit != 5 {
		t.Errorf("limit = %d, want 5", limit)
	}
	if len(received) != 1 || received[0] != "extra" {
		t.Errorf("args = %v, want [extra]", received)
	}
}

func TestExecuteUnknownCommandSuggests(t *testing.T) {
	root := &Command{
		Name: "chatdsj-admin",
		Subcommands: []*Command{
			{Name: "status", Run: func(ctx context.Context, args []string) error { return nil }},
			{Name: "channels", Run: func(ctx context.Context, args []string) error { return nil }},
		},
	}

	err := root.Execute(context.Background(), []string{"chanels"}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("expected an error for an unknown command")
	}
	if !strings.Contains(err.Error(), `did you mean "channels"`) {
		t.Errorf("error = %q, want a suggestion", err)
	}
	if !isUsageError(err) {
		t.Errorf("error %v should carry exit status 2", err)
	}
}

func TestExecuteUnknownFlagSuggests(t *testing.T) {
	command := &Command{
		Name: "metrics",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("metrics", pflag.ContinueOnError)
			flagSet.Bool("reset", false, "reset after reading")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error { return nil },
	}

	err := command.Execute(context.Background(), []string{"--rest"}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "did you mean --reset?") {
		t.Errorf("error = %v, want a --reset suggestion", err)
	}
	if !isUsageError(err) {
		t.Errorf("error %v should carry exit status 2", err)
	}
}

func TestExecuteHelp(t *testing.T) {
	root := &Command{
		Name:    "chatdsj-admin",
		Summary: "Operate a running ChatDSJ service",
		Subcommands: []*Command{
			{Name: "status", Summary: "Show service status"},
		},
		Examples: []Example{{Description: "Check the service", Command: "chatdsj-admin status"}},
	}

	var output bytes.Buffer
	if err := root.Execute(context.Background(), []string{"--help"}, &output); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for _, want := range []string{"Operate a running ChatDSJ service", "status", "Show service status", "# Check the service"} {
		if !strings.Contains(output.String(), want) {
			t.Errorf("help missing %q:\n%s", want, output.String())
		}
	}
}

func TestExecuteSubcommandRequired(t *testing.T) {
	root := &Command{
		Name:        "chatdsj-admin",
		Subcommands: []*Command{{Name: "status"}},
	}

	var output bytes.Buffer
	err := root.Execute(context.Background(), nil, &output)
	if err == nil || !isUsageError(err) {
		t.Errorf("error = %v, want a usage error", err)
	}
	if !strings.Contains(output.String(), "Commands:") {
		t.Error("help should be printed when the subcommand is missing")
	}
}

func TestExecuteSubcommandHelpShowsPath(t *testing.T) {
	root := &Command{
		Name: "chatdsj-admin",
		Subcommands: []*Command{
			{
				Name: "channels",
				Flags: func() *pflag.FlagSet {
					flagSet := pflag.NewFlagSet("channels", pflag.ContinueOnError)
					flagSet.Int("limit", 0, "maximum channels")
					return flagSet
				},
				Run: func(ctx context.Context, args []string) error { return nil },
			},
		},
	}

	var output bytes.Buffer
	if err := root.Execute(context.Background(), []string{"channels", "--help"}, &output); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(output.String(), "chatdsj-admin channels [flags]") {
		t.Errorf("usage line missing command path:\n%s", output.String())
	}
	if !strings.Contains(output.String(), "--limit") {
		t.Errorf("flags missing from help:\n%s", output.String())
	}
}
