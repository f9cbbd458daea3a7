// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// exitCoder is implemented by errors that carry their own exit status.
type exitCoder interface {
	ExitCode() int
}

// Fatal writes "error: err" to stderr and exits with status 1, or
// exits silently with the error's own ExitCode when it has one.
func Fatal(err error) {
	os.Exit(Report(os.Stderr, err))
}

// Report writes err to w the way Fatal does and returns the exit
// status Fatal would use. An error carrying an exit code prints
// nothing: the command that returned it has written its own output.
func Report(w io.Writer, err error) int {
	var coder exitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	fmt.Fprintf(w, "error: %v\n", err)
	return 1
}
