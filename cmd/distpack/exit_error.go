// SPDX-License-Identifier: MPL-2.0

package main

import "fmt"

// Process exit codes. Zero means every local artifact was produced, even
// when publishing was skipped or failed best-effort.
const (
	// ExitFailure covers unexpected errors in the main sequence.
	ExitFailure = 1
	// ExitUsage covers usage-class failures: missing or malformed
	// metadata, an empty source root, bad flags.
	ExitUsage = 2
)

// ExitError signals a non-zero exit code without forcing os.Exit in RunE handlers.
type ExitError struct {
	Code int
	Err  error
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}
