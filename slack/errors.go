// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package slack

import (
	"errors"
	"fmt"
	"time"
)

// APIError is a failed Web API call: either an ok:false response, in
// which case Code is Slack's error string, or a non-2xx HTTP status.
//
//	var apiErr *slack.APIError
//	if errors.As(err, &apiErr) && apiErr.Code == slack.ErrCodeChannelNotFound { ... }
type APIError struct {
	Method     string
	Code       string
	StatusCode int

	// RetryAfter is the delay Slack requested on a rate-limited
	// response.
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("slack: %s: %s (HTTP %d, retry after %s)", e.Method, e.Code, e.StatusCode, e.RetryAfter)
	}
	return fmt.Sprintf("slack: %s: %s (HTTP %d)", e.Method, e.Code, e.StatusCode)
}

// IsRateLimited reports whether Slack rejected the call for rate.
func (e *APIError) IsRateLimited() bool {
	return e.Code == ErrCodeRateLimited || e.StatusCode == 429
}

// Slack error codes the bot reacts to.
const (
	ErrCodeRateLimited     = "ratelimited"
	ErrCodeChannelNotFound = "channel_not_found"
	ErrCodeNotInChannel    = "not_in_channel"
	ErrCodeUserNotFound    = "user_not_found"
	ErrCodeInvalidAuth     = "invalid_auth"
	ErrCodeThreadNotFound  = "thread_not_found"
)

// IsError reports whether err is an *APIError with the given code.
func IsError(err error, code string) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}
