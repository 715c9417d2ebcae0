// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

// Package ipc defines the CBOR-encoded message types for the admin
// Unix socket. Both cmd/chatdsj and cmd/chatdsj-admin import this
// package so the wire types are defined once rather than mirrored.
//
// Every request is a CBOR map with an "action" field (one of the
// Action constants) plus the action's own fields. Responses use the
// [service.Response] envelope; the data field holds the type named
// next to each action.
package ipc
