// Copyright 2026 The Beacon Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// Exit codes with a fixed meaning across commands.
const (
	// ExitFailure is a generic failure.
	ExitFailure = 1

	// ExitUnreachable means the orchestrator could not be reached.
	ExitUnreachable = 2

	// ExitNotFound means discovery found nothing or no update exists.
	ExitNotFound = 3
)

// ExitError makes main exit with Code without printing the error. The
// command has already written its own output; a non-zero exit is a
// valid outcome (no orchestrator found, no update available) rather
// than a failure to report.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCode returns the exit code. main checks for this method to tell
// a handled non-zero exit from an error to display.
func (e *ExitError) ExitCode() int {
	return e.Code
}
