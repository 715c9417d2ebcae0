// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the small command-tree framework behind chatdsj-admin.
//
// A [Command] has a name, an optional [pflag.FlagSet] factory, and
// either a Run function or nested Subcommands. [Command.Execute]
// routes the first positional argument to a subcommand, parses flags,
// and prints help with examples. Unknown commands and flags get a
// "did you mean" suggestion when an existing name is within edit
// distance 3. Parse and routing failures are wrapped with
// [process.UsageError] so the binary exits with status 2.
package cli
