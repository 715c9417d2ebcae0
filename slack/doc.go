// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

// Package slack is the bot's Slack transport: a minimal Web API client
// and the Events API webhook.
//
// [Client] covers the handful of Web API methods the bot uses:
// conversations.history and conversations.replies (cursor paginated),
// users.info, auth.test, chat.postMessage, and chat.postEphemeral.
// Every call waits on a client-side token bucket, and HTTP 429
// responses are retried after the server's Retry-After delay. Slack's
// ok:false responses become [*APIError].
//
// [EventHandler] verifies request signatures (v0 HMAC-SHA256 over
// "v0:<timestamp>:<body>" with a five minute replay window), answers
// url_verification challenges, drops redelivered event IDs, and hands
// app_mention events (and reactions to the bot's own messages) to
// callbacks. It acknowledges every valid request immediately; the
// callbacks must not block.
package slack
