// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// SocketPath returns path/name in a fresh short-named temporary
// directory that is removed when the test completes.
func SocketPath(t testing.TB, name string) string {
	t.Helper()
	directory, err := os.MkdirTemp("", "chatdsj-*")
	if err != nil {
		t.Fatalf("creating socket directory: %v", err)
	}
	t.Cleanup(func() {
		_ = os.RemoveAll(directory)
	})
	return filepath.Join(directory, name)
}

// WaitForFile returns once path exists, or fails the test when the
// test context ends first.
func WaitForFile(t testing.TB, path string) {
	t.Helper()
	for {
		if _, err := os.Stat(path); err == nil {
			return
		}
		if t.Context().Err() != nil {
			t.Fatalf("%s did not appear before the test context ended", path)
		}
		runtime.Gosched()
	}
}
