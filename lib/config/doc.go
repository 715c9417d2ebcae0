// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the ChatDSJ
// service and its admin CLI.
//
// Configuration is loaded from a single file specified by either the
// CHATDSJ_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). Without a file, [LoadEnvironment] starts from
// [Default]. In every case a small set of environment variables
// (SLACK_BOT_TOKEN, SLACK_SIGNING_SECRET, OPENAI_API_KEY,
// ANTHROPIC_API_KEY, OPENAI_MODEL, LOG_LEVEL, ENVIRONMENT, ...) is
// applied on top, since that is how chat bots are usually deployed.
//
// The file supports environment-specific sections (development,
// testing, production) that override base values when
// [Config].Environment matches. Production requires the Slack and LLM
// secrets; they may come from an age-encrypted credentials file via
// [Config.LoadCredentials].
//
// Path fields support ${HOME} and ${VAR:-default} expansion.
package config
