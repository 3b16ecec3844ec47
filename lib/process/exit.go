// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ExitCoder is implemented by errors that carry a specific exit code.
type ExitCoder interface {
	ExitCode() int
}

// Exit terminates the process according to err. A nil error exits 0.
// An error implementing ExitCoder exits with its code; its message is
// printed only when non-empty, since commands that already reported
// their outcome return a silent exit error. Any other error is printed
// and exits 1.
func Exit(err error) {
	os.Exit(Report(os.Stderr, err))
}

// Report writes err to w the way Exit does and returns the exit code
// Exit would use.
func Report(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	var coder ExitCoder
	if errors.As(err, &coder) {
		if message := err.Error(); message != "" {
			fmt.Fprintf(w, "error: %s\n", message)
		}
		return coder.ExitCode()
	}
	fmt.Fprintf(w, "error: %v\n", err)
	return 1
}
