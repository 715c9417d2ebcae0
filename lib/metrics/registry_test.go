// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/chatdsj/chatdsj/lib/clock"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestRegistry() (*Registry, *clock.FakeClock) {
	fake := clock.Fake(epoch)
	return NewRegistry(fake, slog.New(slog.NewTextHandler(io.Discard, nil))), fake
}

func TestTrackRecordsElapsedTime(t *testing.T) {
	t.Parallel()

	registry, fake := newTestRegistry()
	stop := registry.Track("llm_completion")
	fake.Advance(250 * time.Millisecond)
	stop()

	timing, ok := registry.Summary().ExecutionTimes["llm_completion"]
	if !ok {
		t.Fatal("no timing recorded for llm_completion")
	}
	if timing.Count != 1 || timing.Mean != 250 {
		t.Errorf("timing = %+v, want one 250ms sample", timing)
	}
}

func TestSamplesAreBounded(t *testing.T) {
	t.Parallel()

	registry, _ := newTestRegistry()
	for index := 0; index < maxSamples+500; index++ {
		registry.ObserveDuration("op", time.Duration(index)*time.Millisecond)
	}

	timing := registry.Summary().ExecutionTimes["op"]
	if timing.Count != maxSamples {
		t.Errorf("count = %d, want %d", timing.Count, maxSamples)
	}
	// Only the most recent samples survive.
	if timing.Min != 500 {
		t.Errorf("min = %v, want 500", timing.Min)
	}
}

func TestPercentilesNeedEnoughSamples(t *testing.T) {
	t.Parallel()

	registry, _ := newTestRegistry()
	for index := 1; index <= 19; index++ {
		registry.ObserveDuration("op", time.Duration(index)*time.Millisecond)
	}
	if timing := registry.Summary().ExecutionTimes["op"]; timing.P95 != 0 {
		t.Errorf("P95 with 19 samples = %v, want 0", timing.P95)
	}

	registry.ObserveDuration("op", 20*time.Millisecond)
	timing := registry.Summary().ExecutionTimes["op"]
	if timing.P95 != 20 {
		t.Errorf("P95 with 20 samples = %v, want 20", timing.P95)
	}
	if timing.Median != 10.5 {
		t.Errorf("Median = %v, want 10.5", timing.Median)
	}
	if timing.P99 != 0 {
		t.Errorf("P99 with 20 samples = %v, want 0", timing.P99)
	}
}

func TestErrorRate(t *testing.T) {
	t.Parallel()

	registry, fake := newTestRegistry()
	for range 4 {
		registry.CountAPICall("slack_api")
	}
	registry.CountAPICall("llm_api")
	registry.CountError("slack_api")
	fake.Advance(time.Minute)

	summary := registry.Summary()
	if summary.TotalAPICalls != 5 || summary.TotalErrors != 1 {
		t.Fatalf("totals = %d calls, %d errors; want 5, 1", summary.TotalAPICalls, summary.TotalErrors)
	}
	if summary.ErrorRate != 0.2 {
		t.Errorf("ErrorRate = %v, want 0.2", summary.ErrorRate)
	}
	if summary.APICallsPerMinute != 5 {
		t.Errorf("APICallsPerMinute = %v, want 5", summary.APICallsPerMinute)
	}
	if summary.SinceResetSeconds != 60 {
		t.Errorf("SinceResetSeconds = %v, want 60", summary.SinceResetSeconds)
	}
}

func TestReset(t *testing.T) {
	t.Parallel()

	registry, _ := newTestRegistry()
	registry.CountAPICall("llm_api")
	registry.ObserveDuration("op", time.Millisecond)
	registry.Reset()

	summary := registry.Summary()
	if summary.TotalAPICalls != 0 || len(summary.ExecutionTimes) != 0 {
		t.Errorf("summary after Reset = %+v, want empty", summary)
	}
}

func TestNilRegistryIsNoOp(t *testing.T) {
	t.Parallel()

	var registry *Registry
	registry.CountAPICall("x")
	registry.CountError("x")
	registry.Track("x")()
	registry.Reset()
	if summary := registry.Summary(); summary.TotalAPICalls != 0 {
		t.Errorf("nil registry summary = %+v", summary)
	}
}
