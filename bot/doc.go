// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

// Package bot turns Slack mentions into replies.
//
// [Handler] is the entry point for one app_mention event. It strips
// mentions from the text, acknowledges the user with an ephemeral
// message, and routes the prompt by [intent.Classify]: nickname
// changes and todo commands go to user memory, "summarize <url>"
// goes to the content summarizer, and everything else goes through
// [Pipeline].
//
// [Pipeline.Respond] is the conversation path: it selects channel and
// thread history, merges it, resolves author names, formats the
// transcript, builds the per-user context, and asks the completion
// client for a reply. The reply is rendered from Markdown to Slack
// mrkdwn. When the completion client gives up the user sees a fixed
// fallback sentence instead of an error.
//
// [Dispatcher] runs handlers on a bounded worker pool so the webhook
// can acknowledge Slack immediately, and [ChannelStats] keeps the
// per-channel activity counters shown by /stats and the admin socket.
package bot
