// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package service

import "errors"

var errPeerCredentialsUnsupported = errors.New("peer credentials not supported on this platform")
