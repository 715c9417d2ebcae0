// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"strings"
	"testing"
)

func TestInfoDefaults(t *testing.T) {
	if got := Info(); got != "0.1.0-dev (unknown, unknown)" {
		t.Errorf("Info() = %q", got)
	}
	if !strings.HasPrefix(Full(), Info()+"\n  Go: ") {
		t.Errorf("Full() = %q", Full())
	}
	fields := Fields()
	if fields["version"] != Version || fields["commit"] != "unknown" {
		t.Errorf("Fields() = %v", fields)
	}
}
