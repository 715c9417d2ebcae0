// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics records execution times, API call counts, and error
// counts for the running bot.
//
// A single [Registry] is constructed at startup and passed to every
// component that reports into it. All methods are safe for concurrent
// use, and a nil *Registry is a valid no-op sink so components can
// treat metrics as optional.
package metrics

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/chatdsj/chatdsj/lib/clock"
)

const (
	// maxSamples is the number of recent execution times kept per
	// category. Older samples are discarded.
	maxSamples = 1000

	// slowThreshold is the execution time above which Track logs a
	// warning.
	slowThreshold = time.Second

	// p95MinSamples and p99MinSamples are the sample counts below
	// which the respective percentile is not reported.
	p95MinSamples = 20
	p99MinSamples = 100
)

// Registry accumulates metrics in memory.
type Registry struct {
	clock  clock.Clock
	logger *slog.Logger

	mu        sync.Mutex
	timings   map[string][]float64
	apiCalls  map[string]int64
	errors    map[string]int64
	lastReset time.Time
}

// NewRegistry creates an empty Registry. Nil arguments select the real
// clock and slog.Default().
func NewRegistry(c clock.Clock, logger *slog.Logger) *Registry {
	if c == nil {
		c = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}
	registry := &Registry{clock: c, logger: logger}
	registry.resetLocked()
	return registry
}

// ObserveDuration records one execution time for category.
func (registry *Registry) ObserveDuration(category string, duration time.Duration) {
	if registry == nil {
		return
	}
	milliseconds := float64(duration) / float64(time.Millisecond)

	registry.mu.Lock()
	samples := append(registry.timings[category], milliseconds)
	if len(samples) > maxSamples {
		samples = append(samples[:0:0], samples[len(samples)-maxSamples:]...)
	}
	registry.timings[category] = samples
	registry.mu.Unlock()
}

// Track starts timing category and returns the function that stops
// the timer:
//
//	defer registry.Track("llm_completion")()
//
// Executions slower than one second are logged.
func (registry *Registry) Track(category string) func() {
	if registry == nil {
		return func() {}
	}
	start := registry.clock.Now()
	return func() {
		elapsed := registry.clock.Now().Sub(start)
		registry.ObserveDuration(category, elapsed)
		if elapsed > slowThreshold {
			registry.logger.Warn("slow execution",
				"category", category,
				"duration", elapsed,
			)
		}
	}
}

// CountAPICall records one call to an external service.
func (registry *Registry) CountAPICall(service string) {
	if registry == nil {
		return
	}
	registry.mu.Lock()
	registry.apiCalls[service]++
	registry.mu.Unlock()
}

// CountError records one error in category.
func (registry *Registry) CountError(category string) {
	if registry == nil {
		return
	}
	registry.mu.Lock()
	registry.errors[category]++
	registry.mu.Unlock()
}

// Reset discards every recorded metric.
func (registry *Registry) Reset() {
	if registry == nil {
		return
	}
	registry.mu.Lock()
	registry.resetLocked()
	registry.mu.Unlock()
	registry.logger.Info("metrics reset")
}

func (registry *Registry) resetLocked() {
	registry.timings = make(map[string][]float64)
	registry.apiCalls = make(map[string]int64)
	registry.errors = make(map[string]int64)
	registry.lastReset = registry.clock.Now()
}

// TimingSummary describes the recorded execution times of one
// category, in milliseconds. P95 is zero until 20 samples exist, P99
// until 100.
type TimingSummary struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min_ms"`
	Max    float64 `json:"max_ms"`
	Mean   float64 `json:"mean_ms"`
	Median float64 `json:"median_ms"`
	P95    float64 `json:"p95_ms,omitempty"`
	P99    float64 `json:"p99_ms,omitempty"`
}

// Summary is a point-in-time copy of the registry.
type Summary struct {
	SinceResetSeconds float64                  `json:"time_since_reset_seconds"`
	TotalAPICalls     int64                    `json:"total_api_calls"`
	TotalErrors       int64                    `json:"total_errors"`
	ErrorRate         float64                  `json:"error_rate"`
	APICallsPerMinute float64                  `json:"api_calls_per_minute"`
	ExecutionTimes    map[string]TimingSummary `json:"execution_times"`
	APICalls          map[string]int64         `json:"api_calls"`
	Errors            map[string]int64         `json:"errors"`
}

// Summary returns a consistent snapshot of every metric. A nil
// registry returns an empty summary.
func (registry *Registry) Summary() Summary {
	summary := Summary{
		ExecutionTimes: make(map[string]TimingSummary),
		APICalls:       make(map[string]int64),
		Errors:         make(map[string]int64),
	}
	if registry == nil {
		return summary
	}

	registry.mu.Lock()
	timings := make(map[string][]float64, len(registry.timings))
	for category, samples := range registry.timings {
		timings[category] = append([]float64(nil), samples...)
	}
	for service, count := range registry.apiCalls {
		summary.APICalls[service] = count
		summary.TotalAPICalls += count
	}
	for category, count := range registry.errors {
		summary.Errors[category] = count
		summary.TotalErrors += count
	}
	elapsed := registry.clock.Now().Sub(registry.lastReset)
	registry.mu.Unlock()

	for category, samples := range timings {
		if len(samples) > 0 {
			summary.ExecutionTimes[category] = summarizeTimings(samples)
		}
	}

	summary.SinceResetSeconds = elapsed.Seconds()
	if summary.TotalAPICalls > 0 {
		summary.ErrorRate = float64(summary.TotalErrors) / float64(summary.TotalAPICalls)
	}
	if elapsed > 0 {
		summary.APICallsPerMinute = float64(summary.TotalAPICalls) / elapsed.Minutes()
	}
	return summary
}

// summarizeTimings sorts samples in place and computes its summary.
func summarizeTimings(samples []float64) TimingSummary {
	sort.Float64s(samples)
	count := len(samples)

	total := 0.0
	for _, sample := range samples {
		total += sample
	}

	median := samples[count/2]
	if count%2 == 0 {
		median = (samples[count/2-1] + samples[count/2]) / 2
	}

	summary := TimingSummary{
		Count:  count,
		Min:    samples[0],
		Max:    samples[count-1],
		Mean:   total / float64(count),
		Median: median,
	}
	if count >= p95MinSamples {
		summary.P95 = samples[count*95/100]
	}
	if count >= p99MinSamples {
		summary.P99 = samples[count*99/100]
	}
	return summary
}
