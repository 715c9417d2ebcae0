// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [SocketPath] returns a Unix socket path inside a short directory
// under the system temp dir. Socket paths are limited to 108 bytes
// (sun_path), and t.TempDir() embeds the full test name, which
// overflows for long table-test names.
//
// [WaitForFile] spins until a path exists, for servers that signal
// readiness by creating their socket.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// safety valve so tests do not need their own time.After calls. They
// are the only place tests wait on the wall clock.
package testutil
