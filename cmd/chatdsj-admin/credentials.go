// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/pflag"

	"github.com/chatdsj/chatdsj/cmd/chatdsj-admin/cli"
	"github.com/chatdsj/chatdsj/lib/process"
	"github.com/chatdsj/chatdsj/lib/sealed"
)

func keygenCommand(env *environment) *cli.Command {
	var output string
	return &cli.Command{
		Name:    "keygen",
		Summary: "Generate an age identity for the credentials file",
		Description: "Generate an age x25519 identity. The private key is written to --output\n" +
			"(mode 0600, never overwritten); the public key is printed for use with\n" +
			"seal-credentials --recipient.",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("keygen", pflag.ContinueOnError)
			flagSet.StringVarP(&output, "output", "o", "", "identity file to create (required)")
			return flagSet
		},
		Examples: []cli.Example{
			{Description: "Create the service identity", Command: "chatdsj-admin keygen --output /etc/chatdsj/identity.txt"},
		},
		Run: func(ctx context.Context, args []string) error {
			if err := expectNoArgs(args); err != nil {
				return err
			}
			if output == "" {
				return process.UsageError(errors.New("--output is required"))
			}
			keypair, err := sealed.GenerateKeypair()
			if err != nil {
				return err
			}
			identity := fmt.Sprintf("# public key: %s\n%s\n", keypair.PublicKey, keypair.PrivateKey)
			if err := writeNewFile(output, []byte(identity)); err != nil {
				return err
			}
			fmt.Fprintln(env.stdout, keypair.PublicKey)
			return nil
		},
	}
}

func sealCredentialsCommand(env *environment) *cli.Command {
	var (
		recipients []string
		output     string
	)
	return &cli.Command{
		Name:    "seal-credentials",
		Summary: "Encrypt a YAML map of secrets into a credentials file",
		Description: "Encrypt a flat YAML map of secrets (SLACK_BOT_TOKEN, SLACK_SIGNING_SECRET,\n" +
			"OPENAI_API_KEY, ANTHROPIC_API_KEY) to one or more age recipients. The input\n" +
			"is a file argument, or stdin when the argument is omitted or \"-\".",
		Usage: "chatdsj-admin seal-credentials --recipient age1... --output FILE [INPUT]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("seal-credentials", pflag.ContinueOnError)
			flagSet.StringArrayVarP(&recipients, "recipient", "r", nil, "age public key to encrypt to (repeatable)")
			flagSet.StringVarP(&output, "output", "o", "", "credentials file to write (required)")
			return flagSet
		},
		Examples: []cli.Example{
			{
				Description: "Seal for the service and an operator's recovery key",
				Command:     "chatdsj-admin seal-credentials -r age1service... -r age1operator... -o credentials.age secrets.yaml",
			},
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 1 {
				return process.UsageError(fmt.Errorf("unexpected argument: %s", args[1]))
			}
			if output == "" {
				return process.UsageError(errors.New("--output is required"))
			}
			if len(recipients) == 0 {
				return process.UsageError(errors.New("at least one --recipient is required"))
			}

			var plaintext []byte
			var err error
			if len(args) == 0 || args[0] == "-" {
				plaintext, err = io.ReadAll(env.stdin)
			} else {
				plaintext, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("reading secrets: %w", err)
			}

			credentials, err := sealed.ParseCredentials(plaintext)
			if err != nil {
				return err
			}
			if len(credentials) == 0 {
				return errors.New("no secrets in the input")
			}
			sealedBytes, err := sealed.SealCredentials(credentials, recipients)
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, sealedBytes, 0o600); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}

			names := make([]string, 0, len(credentials))
			for name := range credentials {
				names = append(names, name)
			}
			slices.Sort(names)
			fmt.Fprintf(env.stdout, "sealed %d secrets to %d recipients in %s\n", len(names), len(recipients), output)
			for _, name := range names {
				fmt.Fprintf(env.stdout, "  %s\n", name)
			}
			return nil
		},
	}
}

// writeNewFile creates path with mode 0600, failing if it exists.
func writeNewFile(path string, data []byte) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return file.Close()
}
