// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package completion

import (
	"time"

	"github.com/chatdsj/chatdsj/lib/llm"
)

// state is a position in the per-request state machine:
//
//	PREPARING -> ATTEMPTING <-> BACKING_OFF
//	             ATTEMPTING -> SUCCEEDED | FAILED
//	             BACKING_OFF -> FAILED (context ended)
type state int

const (
	statePreparing state = iota
	stateAttempting
	stateBackingOff
	stateSucceeded
	stateFailed
)

func (s state) String() string {
	switch s {
	case statePreparing:
		return "preparing"
	case stateAttempting:
		return "attempting"
	case stateBackingOff:
		return "backing_off"
	case stateSucceeded:
		return "succeeded"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s state) terminal() bool {
	return s == stateSucceeded || s == stateFailed
}

// requestRun carries one request through the state machine.
type requestRun struct {
	request      Request
	maxAttempts  int
	initialDelay time.Duration

	state    state
	attempt  int
	messages []llm.Message
	lastErr  error
	result   *Result
}
