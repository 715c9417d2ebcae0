// Copyright 2026 The ChatDSJ Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ExitError carries a specific exit status out of run(). The admin CLI
// uses status 2 for usage errors so scripts can tell them apart from
// a service that is down.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

// UsageError wraps err with exit status 2.
func UsageError(err error) error {
	return &ExitError{Code: 2, Err: err}
}

// Fatal writes "error: err" to stderr and exits. The status is 1 unless
// err wraps an *ExitError. Use it in main() for errors from run(),
// where the structured logger may not be initialized.
func Fatal(err error) {
	os.Exit(report(os.Stderr, err))
}

func report(writer io.Writer, err error) int {
	fmt.Fprintf(writer, "error: %v\n", err)
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Code > 0 {
		return exitErr.Code
	}
	return 1
}
