// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/pflag"

	"github.com/chatdsj/chatdsj/bot"
	"github.com/chatdsj/chatdsj/cmd/chatdsj-admin/cli"
	"github.com/chatdsj/chatdsj/lib/ipc"
	"github.com/chatdsj/chatdsj/lib/process"
)

func channelsCommand(env *environment) *cli.Command {
	var (
		params socketParams
		limit  int
	)
	return &cli.Command{
		Name:    "channels",
		Summary: "List channel activity, most recent first",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("channels", pflag.ContinueOnError)
			params.bind(flagSet)
			flagSet.IntVarP(&limit, "limit", "n", 20, "maximum channels to show (0 for all)")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if err := expectNoArgs(args); err != nil {
				return err
			}
			if limit < 0 {
				return process.UsageError(fmt.Errorf("--limit must not be negative"))
			}
			var fields map[string]any
			if limit > 0 {
				fields = map[string]any{"limit": limit}
			}
			var response ipc.ChannelsResponse
			if handled, err := params.call(ctx, env, ipc.ActionChannels, fields, &response); handled {
				return err
			}
			renderChannels(params.printer(env), response)
			return nil
		},
	}
}

func renderChannels(p *printer, response ipc.ChannelsResponse) {
	if len(response.Channels) == 0 {
		p.note("No channel activity since the service started.")
		return
	}
	rows := make([][]string, 0, len(response.Channels))
	for _, activity := range response.Channels {
		rows = append(rows, []string{
			activity.Channel,
			fmt.Sprint(activity.MessageCount),
			fmt.Sprint(activity.UserCount),
			truncate(topReactions(activity)),
			p.relative(activity.LastActivity),
		})
	}
	p.table([]string{"Channel", "Mentions", "Users", "Reactions", "Last activity"}, rows)
	if len(response.Channels) < response.Total {
		p.note("Showing %d of %d channels. Use --limit 0 to see all.", len(response.Channels), response.Total)
	}
}

// topReactions lists reactions by count, then name: ":tada: 3, :+1: 1".
func topReactions(activity bot.ChannelActivity) string {
	names := slices.SortedFunc(maps.Keys(activity.Reactions), func(a, b string) int {
		if order := cmp.Compare(activity.Reactions[b], activity.Reactions[a]); order != 0 {
			return order
		}
		return strings.Compare(a, b)
	})
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf(":%s: %d", name, activity.Reactions[name]))
	}
	return strings.Join(parts, ", ")
}
