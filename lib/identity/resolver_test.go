// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/chatdsj/chatdsj/lib/clock"
)

type fakeLookup struct {
	mu       sync.Mutex
	profiles map[string]Profile
	fail     bool
	calls    map[string]int
}

func (lookup *fakeLookup) UserProfile(ctx context.Context, userID string) (Profile, error) {
	lookup.mu.Lock()
	defer lookup.mu.Unlock()
	if lookup.calls == nil {
		lookup.calls = make(map[string]int)
	}
	lookup.calls[userID]++
	if lookup.fail {
		return Profile{}, errors.New("platform unavailable")
	}
	profile, ok := lookup.profiles[userID]
	if !ok {
		return Profile{}, errors.New("user_not_found")
	}
	return profile, nil
}

func (lookup *fakeLookup) callCount(userID string) int {
	lookup.mu.Lock()
	defer lookup.mu.Unlock()
	return lookup.calls[userID]
}

func (lookup *fakeLookup) setFail(fail bool) {
	lookup.mu.Lock()
	defer lookup.mu.Unlock()
	lookup.fail = fail
}

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestProfileNamePreference(t *testing.T) {
	t.Parallel()

	tests := []struct {
		profile Profile
		want    string
	}{
		{Profile{ID: "U1", DisplayName: "ally", RealName: "Alice Smith", Handle: "alice"}, "ally"},
		{Profile{ID: "U1", DisplayName: "  ", RealName: "Alice Smith", Handle: "alice"}, "Alice Smith"},
		{Profile{ID: "U1", Handle: "alice"}, "alice"},
		{Profile{ID: "U1"}, "User U1"},
	}
	for _, test := range tests {
		if got := test.profile.Name(); got != test.want {
			t.Errorf("Name(%+v) = %q, want %q", test.profile, got, test.want)
		}
	}
}

func TestResolveCachesSuccess(t *testing.T) {
	t.Parallel()

	lookup := &fakeLookup{profiles: map[string]Profile{"U1": {ID: "U1", RealName: "Alice"}}}
	resolver := NewResolver(Config{Lookup: lookup, Logger: quietLogger})

	for range 3 {
		if got := resolver.Resolve(context.Background(), "U1"); got != "Alice" {
			t.Fatalf("Resolve = %q, want Alice", got)
		}
	}
	if calls := lookup.callCount("U1"); calls != 1 {
		t.Errorf("lookup called %d times, want 1", calls)
	}
	if profile, ok := resolver.cached("U1"); !ok || profile.RealName != "Alice" {
		t.Errorf("cached(U1) = %+v, %v; want cached profile", profile, ok)
	}
}

func TestResolveDoesNotCacheFailures(t *testing.T) {
	t.Parallel()

	lookup := &fakeLookup{profiles: map[string]Profile{"U1": {ID: "U1", DisplayName: "ally"}}, fail: true}
	resolver := NewResolver(Config{Lookup: lookup, Logger: quietLogger})

	if got := resolver.Resolve(context.Background(), "U1"); got != "User U1" {
		t.Errorf("Resolve during outage = %q, want fallback", got)
	}
	if got := resolver.Resolve(context.Background(), "U1"); got != "User U1" {
		t.Errorf("second Resolve during outage = %q, want fallback", got)
	}
	if calls := lookup.callCount("U1"); calls != 2 {
		t.Errorf("lookup called %d times during outage, want 2", calls)
	}

	lookup.setFail(false)
	if got := resolver.Resolve(context.Background(), "U1"); got != "ally" {
		t.Errorf("Resolve after recovery = %q, want ally", got)
	}
	if _, ok := resolver.cached("U1"); !ok {
		t.Error("profile not cached after recovery")
	}
}

func TestResolveNegativeTTL(t *testing.T) {
	t.Parallel()

	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	lookup := &fakeLookup{fail: true}
	resolver := NewResolver(Config{
		Lookup:      lookup,
		NegativeTTL: time.Minute,
		Clock:       fake,
		Logger:      quietLogger,
	})

	resolver.Resolve(context.Background(), "U7")
	resolver.Resolve(context.Background(), "U7")
	if calls := lookup.callCount("U7"); calls != 1 {
		t.Fatalf("lookup called %d times within TTL, want 1", calls)
	}

	fake.Advance(time.Minute)
	resolver.Resolve(context.Background(), "U7")
	if calls := lookup.callCount("U7"); calls != 2 {
		t.Errorf("lookup called %d times after TTL, want 2", calls)
	}
}

func TestResolveNegativeEntriesBounded(t *testing.T) {
	t.Parallel()

	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	lookup := &fakeLookup{fail: true}
	resolver := NewResolver(Config{
		Lookup:      lookup,
		NegativeTTL: time.Minute,
		Clock:       fake,
		Logger:      quietLogger,
	})
	ctx := context.Background()

	for i := range maxNegativeEntries + 10 {
		resolver.Resolve(ctx, fmt.Sprintf("U%d", i))
	}
	if got := len(resolver.failures); got != maxNegativeEntries {
		t.Fatalf("failures = %d entries, want cap %d", got, maxNegativeEntries)
	}
	// A user that did not fit is looked up again rather than suppressed.
	overflow := fmt.Sprintf("U%d", maxNegativeEntries+5)
	resolver.Resolve(ctx, overflow)
	if calls := lookup.callCount(overflow); calls != 2 {
		t.Errorf("overflow user looked up %d times, want 2", calls)
	}

	// Once the window passes, the next write sweeps every expired entry.
	fake.Advance(time.Minute)
	resolver.Resolve(ctx, "U-late")
	if got := len(resolver.failures); got != 1 {
		t.Errorf("failures after sweep = %d entries, want 1", got)
	}
}

func TestResolveAll(t *testing.T) {
	t.Parallel()

	lookup := &fakeLookup{profiles: map[string]Profile{
		"U1": {ID: "U1", DisplayName: "ally"},
		"U2": {ID: "U2", Handle: "bob"},
	}}
	resolver := NewResolver(Config{Lookup: lookup, Logger: quietLogger})

	names := resolver.ResolveAll(context.Background(), []string{"U1", "U2", "U1", "U3"})
	want := map[string]string{"U1": "ally", "U2": "bob", "U3": "User U3"}
	for userID, name := range want {
		if names[userID] != name {
			t.Errorf("names[%s] = %q, want %q", userID, names[userID], name)
		}
	}
	if calls := lookup.callCount("U1"); calls != 1 {
		t.Errorf("U1 looked up %d times, want 1", calls)
	}
}
