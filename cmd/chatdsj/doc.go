// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

// Chatdsj is the ChatDSJ Slack bot service.
//
// It serves the Slack Events API webhook and answers app_mention
// events: nickname and todo commands go to the SQLite user memory,
// "summarize <url>" fetches and summarizes the page, and everything
// else is answered by the configured language model with the channel
// or thread history as context.
//
// On startup:
//  1. Loads configuration from --config, $CHATDSJ_CONFIG, or the
//     defaults plus environment variables, then decrypts the optional
//     age credentials file.
//  2. Discovers the bot's user ID with auth.test unless configured.
//  3. Opens the user memory database. A database that cannot be
//     opened disables memory features instead of stopping the bot.
//  4. Serves HTTP: POST /slack/events, GET /healthz, GET /stats, and in
//     development and testing POST /test-completion.
//  5. Serves the admin socket (status, usage, reset-usage, metrics,
//     channels) for chatdsj-admin, restricted to the same user.
//
// On SIGINT or SIGTERM the HTTP server drains, queued mentions finish
// (bounded by dispatcher.event_timeout), and the database is closed.
package main
