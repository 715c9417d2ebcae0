// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

// Package llm provides a provider-agnostic interface for chat
// completion APIs.
//
// The primary abstraction is [Provider]. Implementations translate
// between the role-tagged [Message] sequence used throughout the bot
// and each vendor's wire format:
//   - [OpenAI]: the Chat Completions API (/v1/chat/completions), and
//     any server that speaks the same format (Azure OpenAI, vLLM,
//     Ollama, LiteLLM proxies)
//   - [Anthropic]: Claude models via the Messages API (/v1/messages)
//
// [Router] selects a provider by model-name prefix so a single
// completion client can serve both families.
//
// All HTTP requests go through a caller-supplied [http.Client]. Retry,
// backoff, and per-attempt timeouts are the caller's concern; a
// provider makes exactly one HTTP request per Complete call.
package llm
