// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides the binary entrypoint helper shared by
// chatdsj and chatdsj-admin: [Fatal] reports an error from run() on
// stderr, where the structured logger may not exist yet, and exits
// non-zero.
package process
