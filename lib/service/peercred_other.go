// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package service

import "net"

func peerUID(*net.UnixConn) (int, error) {
	return 0, errPeerCredentialsUnsupported
}
