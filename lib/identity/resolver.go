// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

// Package identity maps opaque chat user IDs to human-readable display
// names, memoizing successful lookups for the life of the process.
package identity

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chatdsj/chatdsj/lib/clock"
)

// Profile is the subset of a chat user profile used to name people.
type Profile struct {
	ID          string
	DisplayName string
	RealName    string
	Handle      string
	IsBot       bool
}

// Name returns the preferred human-readable name for the profile:
// display name, then real name, then handle, then a synthesized
// "User <id>".
func (profile Profile) Name() string {
	for _, candidate := range []string{profile.DisplayName, profile.RealName, profile.Handle} {
		if name := strings.TrimSpace(candidate); name != "" {
			return name
		}
	}
	return FallbackName(profile.ID)
}

// FallbackName is the name used when no profile information is
// available for userID.
func FallbackName(userID string) string {
	return "User " + userID
}

// ProfileLookup fetches a user profile from the chat platform.
type ProfileLookup interface {
	UserProfile(ctx context.Context, userID string) (Profile, error)
}

// Config configures a Resolver.
type Config struct {
	// Lookup is the platform profile source. Required.
	Lookup ProfileLookup

	// NegativeTTL, when positive, suppresses repeat lookups for a user
	// whose lookup failed within the last NegativeTTL. Zero retries
	// every call, so a transient outage never pins a user to the
	// fallback name.
	NegativeTTL time.Duration

	// Clock drives NegativeTTL expiry. Nil uses clock.Real().
	Clock clock.Clock

	// Logger receives lookup failures. Nil uses slog.Default().
	Logger *slog.Logger
}

// maxNegativeEntries caps the failed-lookup set. Expired entries are
// swept when a write finds the set full.
const maxNegativeEntries = 1024

// Resolver caches display names by user ID. Entries are never
// invalidated: a renamed user keeps their old name until restart. The
// lookup itself runs without holding the cache lock, so a slow
// platform call for one user does not block resolution of others.
type Resolver struct {
	lookup      ProfileLookup
	negativeTTL time.Duration
	clock       clock.Clock
	logger      *slog.Logger

	mu       sync.Mutex
	profiles map[string]Profile
	failures map[string]time.Time
}

// NewResolver creates a Resolver. Panics if config.Lookup is nil.
func NewResolver(config Config) *Resolver {
	if config.Lookup == nil {
		panic("identity: NewResolver requires a ProfileLookup")
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Resolver{
		lookup:      config.Lookup,
		negativeTTL: config.NegativeTTL,
		clock:       config.Clock,
		logger:      config.Logger,
		profiles:    make(map[string]Profile),
		failures:    make(map[string]time.Time),
	}
}

// Resolve returns the display name for userID. A cache hit returns
// immediately; a miss performs one platform lookup and caches the
// full profile. A failed lookup returns FallbackName(userID) and is
// not cached.
func (resolver *Resolver) Resolve(ctx context.Context, userID string) string {
	if profile, ok := resolver.cached(userID); ok {
		return profile.Name()
	}
	if resolver.recentlyFailed(userID) {
		return FallbackName(userID)
	}

	profile, err := resolver.lookup.UserProfile(ctx, userID)
	if err != nil {
		resolver.logger.Warn("user profile lookup failed",
			"user", userID,
			"error", err,
		)
		resolver.recordFailure(userID)
		return FallbackName(userID)
	}
	if profile.ID == "" {
		profile.ID = userID
	}

	resolver.mu.Lock()
	resolver.profiles[userID] = profile
	delete(resolver.failures, userID)
	resolver.mu.Unlock()

	return profile.Name()
}

// ResolveAll resolves every ID in userIDs and returns the names keyed
// by ID.
func (resolver *Resolver) ResolveAll(ctx context.Context, userIDs []string) map[string]string {
	names := make(map[string]string, len(userIDs))
	for _, userID := range userIDs {
		if _, done := names[userID]; done {
			continue
		}
		names[userID] = resolver.Resolve(ctx, userID)
	}
	return names
}

func (resolver *Resolver) cached(userID string) (Profile, bool) {
	resolver.mu.Lock()
	defer resolver.mu.Unlock()
	profile, ok := resolver.profiles[userID]
	return profile, ok
}

func (resolver *Resolver) recentlyFailed(userID string) bool {
	if resolver.negativeTTL <= 0 {
		return false
	}
	resolver.mu.Lock()
	defer resolver.mu.Unlock()
	failedAt, ok := resolver.failures[userID]
	if !ok {
		return false
	}
	if resolver.clock.Now().Sub(failedAt) >= resolver.negativeTTL {
		delete(resolver.failures, userID)
		return false
	}
	return true
}

func (resolver *Resolver) recordFailure(userID string) {
	if resolver.negativeTTL <= 0 {
		return
	}
	now := resolver.clock.Now()
	resolver.mu.Lock()
	defer resolver.mu.Unlock()
	if len(resolver.failures) >= maxNegativeEntries {
		for failedID, failedAt := range resolver.failures {
			if now.Sub(failedAt) >= resolver.negativeTTL {
				delete(resolver.failures, failedID)
			}
		}
	}
	// Full of live entries: the user is looked up again next time.
	if len(resolver.failures) >= maxNegativeEntries {
		return
	}
	resolver.failures[userID] = now
}
