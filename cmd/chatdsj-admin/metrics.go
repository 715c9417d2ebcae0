// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/spf13/pflag"

	"github.com/chatdsj/chatdsj/cmd/chatdsj-admin/cli"
	"github.com/chatdsj/chatdsj/lib/ipc"
	"github.com/chatdsj/chatdsj/lib/metrics"
)

func metricsCommand(env *environment) *cli.Command {
	var (
		params socketParams
		reset  bool
	)
	return &cli.Command{
		Name:    "metrics",
		Summary: "Show operation timings, API calls, and errors",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("metrics", pflag.ContinueOnError)
			params.bind(flagSet)
			flagSet.BoolVar(&reset, "reset", false, "clear the counters after reading them")
			return flagSet
		},
		Examples: []cli.Example{
			{Description: "Take a reading and start a fresh window", Command: "chatdsj-admin metrics --reset"},
		},
		Run: func(ctx context.Context, args []string) error {
			if err := expectNoArgs(args); err != nil {
				return err
			}
			var fields map[string]any
			if reset {
				fields = map[string]any{"reset": true}
			}
			var response ipc.MetricsResponse
			if handled, err := params.call(ctx, env, ipc.ActionMetrics, fields, &response); handled {
				return err
			}
			p := params.printer(env)
			renderMetrics(p, response.Summary)
			if response.Reset {
				p.blank()
				p.note("Counters were reset after this reading.")
			}
			return nil
		},
	}
}

func renderMetrics(p *printer, summary metrics.Summary) {
	p.section("Metrics")
	p.fields([]field{
		{"Window", (time.Duration(summary.SinceResetSeconds) * time.Second).String()},
		{"API calls", fmt.Sprintf("%s (%.1f/min)", count(summary.TotalAPICalls), summary.APICallsPerMinute)},
		{"Errors", count(summary.TotalErrors)},
		{"Error rate", percent(summary.ErrorRate)},
	})

	if len(summary.ExecutionTimes) > 0 {
		rows := make([][]string, 0, len(summary.ExecutionTimes))
		for _, category := range slices.Sorted(maps.Keys(summary.ExecutionTimes)) {
			timing := summary.ExecutionTimes[category]
			rows = append(rows, []string{
				category,
				fmt.Sprint(timing.Count),
				milliseconds(timing.Mean),
				milliseconds(timing.Median),
				milliseconds(timing.P95),
				milliseconds(timing.P99),
				milliseconds(timing.Max),
			})
		}
		p.blank()
		p.table([]string{"Operation", "Count", "Mean", "Median", "P95", "P99", "Max"}, rows)
	}

	if len(summary.APICalls) > 0 || len(summary.Errors) > 0 {
		rows := make([][]string, 0, len(summary.APICalls)+len(summary.Errors))
		for _, name := range slices.Sorted(maps.Keys(summary.APICalls)) {
			rows = append(rows, []string{name, "calls", count(summary.APICalls[name])})
		}
		for _, name := range slices.Sorted(maps.Keys(summary.Errors)) {
			rows = append(rows, []string{name, p.bad.Render("errors"), count(summary.Errors[name])})
		}
		p.blank()
		p.table([]string{"Category", "Kind", "Count"}, rows)
	}
}
