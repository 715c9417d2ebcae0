// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package completion

import (
	"sync"
	"time"

	"github.com/chatdsj/chatdsj/lib/clock"
)

// Usage is the token consumption and estimated cost of one completion.
type Usage struct {
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
	TotalTokens      int64   `json:"total_tokens"`
	CostUSD          float64 `json:"cost_usd"`
}

// ModelUsage is the accumulated usage of one model.
type ModelUsage struct {
	Requests         int64   `json:"requests"`
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
	CostUSD          float64 `json:"cost_usd"`
}

// LedgerSnapshot is a point-in-time copy of a Ledger.
type LedgerSnapshot struct {
	PromptTokens     int64   `json:"total_prompt_tokens"`
	CompletionTokens int64   `json:"total_completion_tokens"`
	TotalTokens      int64   `json:"total_tokens"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`

	// Requests counts logical completion requests. Successes and
	// Failures each count at most once per request, so Requests ==
	// Successes + Failures once no request is in flight.
	Requests  int64 `json:"requests_made"`
	Successes int64 `json:"successful_requests"`
	Failures  int64 `json:"failed_requests"`

	// Attempts counts remote calls, including retries, and
	// AttemptFailures the calls that returned an error.
	Attempts        int64 `json:"attempts"`
	AttemptFailures int64 `json:"failed_attempts"`

	Models map[string]ModelUsage `json:"models"`

	// Since is when the ledger was created or last reset.
	Since time.Time `json:"since"`
}

// Ledger accumulates completion usage across the process. Every
// update is applied under one mutex, and Snapshot copies the whole
// ledger under the same mutex, so readers never observe a torn state.
// The lock is held only for arithmetic; no I/O or sleeping happens
// while it is held.
type Ledger struct {
	clock clock.Clock

	mu    sync.Mutex
	state LedgerSnapshot
}

// NewLedger creates an empty Ledger. A nil clock uses clock.Real().
func NewLedger(c clock.Clock) *Ledger {
	if c == nil {
		c = clock.Real()
	}
	ledger := &Ledger{clock: c}
	ledger.state = ledger.emptyState()
	return ledger
}

func (ledger *Ledger) emptyState() LedgerSnapshot {
	return LedgerSnapshot{
		Models: make(map[string]ModelUsage),
		Since:  ledger.clock.Now(),
	}
}

// BeginRequest records the start of a logical request.
func (ledger *Ledger) BeginRequest() {
	ledger.mu.Lock()
	ledger.state.Requests++
	ledger.mu.Unlock()
}

// RecordAttempt records one remote call about to be issued.
func (ledger *Ledger) RecordAttempt() {
	ledger.mu.Lock()
	ledger.state.Attempts++
	ledger.mu.Unlock()
}

// RecordAttemptFailure records one remote call that failed.
func (ledger *Ledger) RecordAttemptFailure() {
	ledger.mu.Lock()
	ledger.state.AttemptFailures++
	ledger.mu.Unlock()
}

// RecordSuccess records a request that completed with usage against
// model.
func (ledger *Ledger) RecordSuccess(model string, usage Usage) {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()

	ledger.state.Successes++
	ledger.state.PromptTokens += usage.PromptTokens
	ledger.state.CompletionTokens += usage.CompletionTokens
	ledger.state.TotalTokens += usage.TotalTokens
	ledger.state.EstimatedCostUSD += usage.CostUSD

	perModel := ledger.state.Models[model]
	perModel.Requests++
	perModel.PromptTokens += usage.PromptTokens
	perModel.CompletionTokens += usage.CompletionTokens
	perModel.CostUSD += usage.CostUSD
	ledger.state.Models[model] = perModel
}

// RecordFailure records a request that ended without a response.
func (ledger *Ledger) RecordFailure() {
	ledger.mu.Lock()
	ledger.state.Failures++
	ledger.mu.Unlock()
}

// Snapshot returns a consistent copy of the ledger.
func (ledger *Ledger) Snapshot() LedgerSnapshot {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	return ledger.copyLocked()
}

// Reset zeroes the ledger and returns its final state before the
// reset. This is the only way counters ever decrease.
func (ledger *Ledger) Reset() LedgerSnapshot {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	previous := ledger.copyLocked()
	ledger.state = ledger.emptyState()
	return previous
}

func (ledger *Ledger) copyLocked() LedgerSnapshot {
	snapshot := ledger.state
	snapshot.Models = make(map[string]ModelUsage, len(ledger.state.Models))
	for model, usage := range ledger.state.Models {
		snapshot.Models[model] = usage
	}
	return snapshot
}
