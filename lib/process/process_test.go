// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

type codedError struct{ code int }

func (e *codedError) Error() string { return fmt.Sprintf("exit %d", e.code) }
func (e *codedError) ExitCode() int { return e.code }

func TestReport(t *testing.T) {
	var buffer bytes.Buffer
	if code := Report(&buffer, errors.New("socket not found")); code != 1 {
		t.Errorf("code = %d, want 1", code)
	}
	if got := buffer.String(); got != "error: socket not found\n" {
		t.Errorf("output = %q", got)
	}

	buffer.Reset()
	wrapped := fmt.Errorf("verify: %w", &codedError{code: 2})
	if code := Report(&buffer, wrapped); code != 2 {
		t.Errorf("code = %d, want 2", code)
	}
	if buffer.Len() != 0 {
		t.Errorf("coded error printed %q, want nothing", buffer.String())
	}
}
