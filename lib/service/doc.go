// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

// Package service provides the listener scaffolding shared by the
// chatdsj binary and its admin CLI:
//
//   - [HTTPServer]: TCP HTTP listener with readiness signalling and
//     graceful shutdown, used for the Slack webhook and status routes.
//   - [SocketServer]: one-request-per-connection CBOR protocol on a
//     Unix socket with action dispatch. The socket is mode 0600 and
//     [SocketServer.RestrictToOwner] also checks SO_PEERCRED on Linux.
//   - [ServiceClient]: the matching client.
//
// Binaries compose these in their own run() function rather than
// subclassing a framework.
package service
