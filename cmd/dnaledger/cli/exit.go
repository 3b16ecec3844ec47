// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// Exit codes shared by the dnaledger binaries.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// ExitError signals a non-zero exit code. With an empty Message nothing
// extra is printed: the command is expected to have already written
// its own output. Verification commands use it to exit 1 for a report
// whose verdict is INVALID.
//
// Errors carrying an exit code are turned into a process exit by
// lib/process.Exit.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// ExitCode returns the exit code.
func (e *ExitError) ExitCode() int {
	return e.Code
}

// UsageError reports a malformed command line. Its message is printed
// and the process exits with [ExitUsage].
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return e.Message
}

// ExitCode returns [ExitUsage].
func (e *UsageError) ExitCode() int {
	return ExitUsage
}

// Usagef returns a [UsageError] with a formatted message.
func Usagef(format string, args ...any) error {
	return &UsageError{Message: fmt.Sprintf(format, args...)}
}
