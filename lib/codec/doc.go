// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR encoding configuration shared by the
// admin socket server and the chatdsj-admin client.
//
// JSON is used for external interfaces (Slack, LLM providers, the
// /stats endpoint, CLI --json output). CBOR is used on the admin Unix
// socket. Both sides import this package so they encode identically.
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
//
// Types that appear both on the socket and in JSON output carry only
// `json` tags; fxamacker/cbor reads them as a fallback. Never put both
// `cbor` and `json` tags on the same field.
package codec
