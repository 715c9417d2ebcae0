// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source so that retry
// backoff, cache expiry, and webhook replay windows can be tested
// without wall-clock sleeps.
//
// Production code holds a Clock field and is constructed with Real().
// Tests construct Fake() and drive time forward explicitly:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go client.Complete(ctx, request) // backs off on fake.After
//	fake.WaitForTimers(1)            // wait until the backoff registers
//	fake.Advance(time.Second)        // release it deterministically
package clock
