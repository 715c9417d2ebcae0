// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/pflag"

	"github.com/chatdsj/chatdsj/cmd/chatdsj-admin/cli"
	"github.com/chatdsj/chatdsj/lib/ipc"
)

func statusCommand(env *environment) *cli.Command {
	var params socketParams
	return &cli.Command{
		Name:    "status",
		Summary: "Show service build, identity, and dependency health",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("status", pflag.ContinueOnError)
			params.bind(flagSet)
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if err := expectNoArgs(args); err != nil {
				return err
			}
			var status ipc.StatusResponse
			if handled, err := params.call(ctx, env, ipc.ActionStatus, nil, &status); handled {
				return err
			}
			renderStatus(params.printer(env), status)
			return nil
		},
	}
}

func renderStatus(p *printer, status ipc.StatusResponse) {
	p.section(fmt.Sprintf("ChatDSJ %s", status.Build["version"]))
	p.fields([]field{
		{"Commit", status.Build["commit"]},
		{"Built", status.Build["build_time"]},
		{"Go", status.Build["go"]},
		{"Environment", status.Environment},
		{"Bot user", status.BotUserID},
		{"Model", status.Model},
		{"Started", p.relative(status.StartedAt)},
		{"Queued mentions", fmt.Sprint(status.QueuedEvents)},
		{"Active channels", fmt.Sprint(status.Channels)},
	})

	p.blank()
	p.section("Services")
	names := make([]string, 0, len(status.Services))
	for name := range status.Services {
		names = append(names, name)
	}
	slices.Sort(names)
	entries := make([]field, 0, len(names))
	for _, name := range names {
		entries = append(entries, field{name, p.availability(status.Services[name])})
	}
	p.fields(entries)
}
