// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/pflag"

	"github.com/chatdsj/chatdsj/cmd/chatdsj-admin/cli"
	"github.com/chatdsj/chatdsj/lib/completion"
	"github.com/chatdsj/chatdsj/lib/ipc"
)

func usageCommand(env *environment) *cli.Command {
	var params socketParams
	return &cli.Command{
		Name:    "usage",
		Summary: "Show accumulated token usage and estimated cost",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("usage", pflag.ContinueOnError)
			params.bind(flagSet)
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if err := expectNoArgs(args); err != nil {
				return err
			}
			var usage completion.LedgerSnapshot
			if handled, err := params.call(ctx, env, ipc.ActionUsage, nil, &usage); handled {
				return err
			}
			renderUsage(params.printer(env), "Usage", usage)
			return nil
		},
	}
}

func resetUsageCommand(env *environment) *cli.Command {
	var params socketParams
	return &cli.Command{
		Name:    "reset-usage",
		Summary: "Zero the usage ledger and print the totals it held",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("reset-usage", pflag.ContinueOnError)
			params.bind(flagSet)
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if err := expectNoArgs(args); err != nil {
				return err
			}
			var reset ipc.ResetUsageResponse
			if handled, err := params.call(ctx, env, ipc.ActionResetUsage, nil, &reset); handled {
				return err
			}
			p := params.printer(env)
			renderUsage(p, "Usage before reset", reset.Previous)
			p.blank()
			p.note("The ledger now starts from zero.")
			return nil
		},
	}
}

func renderUsage(p *printer, title string, usage completion.LedgerSnapshot) {
	p.section(title)
	p.fields([]field{
		{"Since", p.relative(usage.Since)},
		{"Requests", fmt.Sprintf("%s (%s succeeded, %s failed)",
			count(usage.Requests), count(usage.Successes), count(usage.Failures))},
		{"Attempts", fmt.Sprintf("%s (%s failed)", count(usage.Attempts), count(usage.AttemptFailures))},
		{"Prompt tokens", count(usage.PromptTokens)},
		{"Completion tokens", count(usage.CompletionTokens)},
		{"Total tokens", count(usage.TotalTokens)},
		{"Estimated cost", dollars(usage.EstimatedCostUSD)},
	})
	if len(usage.Models) == 0 {
		return
	}

	models := make([]string, 0, len(usage.Models))
	for model := range usage.Models {
		models = append(models, model)
	}
	slices.Sort(models)
	rows := make([][]string, 0, len(models))
	for _, model := range models {
		modelUsage := usage.Models[model]
		rows = append(rows, []string{
			model,
			count(modelUsage.Requests),
			count(modelUsage.PromptTokens),
			count(modelUsage.CompletionTokens),
			dollars(modelUsage.CostUSD),
		})
	}
	p.blank()
	p.table([]string{"Model", "Requests", "Prompt", "Completion", "Cost"}, rows)
}
