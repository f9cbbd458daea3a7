// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
)

// ReadKeyFile reads a key of exactly size bytes from path. The file
// may hold the raw key bytes or their hex encoding (optionally
// followed by a newline); hex is detected by length after trimming.
func ReadKeyFile(path string, size int) (*Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading key file %s: %w", path, err)
	}
	defer Zero(data)

	if len(data) == size {
		return NewFromBytes(data)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) != size*2 {
		return nil, fmt.Errorf("key file %s holds %d bytes, want %d raw or %d hex", path, len(data), size, size*2)
	}
	decoded := make([]byte, size)
	if _, err := hex.Decode(decoded, trimmed); err != nil {
		Zero(decoded)
		return nil, fmt.Errorf("key file %s: invalid hex: %w", path, err)
	}
	return NewFromBytes(decoded)
}

// ReadFromPath reads a secret from a file path, or from stdin if path
// is "-". Surrounding whitespace is trimmed. Empty secrets are an
// error.
func ReadFromPath(path string) (*Buffer, error) {
	var data []byte
	if path == "-" {
		scanner := bufio.NewScanner(os.Stdin)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return nil, fmt.Errorf("reading stdin: %w", err)
			}
			return nil, fmt.Errorf("stdin is empty")
		}
		data = scanner.Bytes()
	} else {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, err
		}
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		Zero(data)
		return nil, fmt.Errorf("secret is empty")
	}
	buffer, err := NewFromBytes(trimmed)
	Zero(data)
	if err != nil {
		return nil, err
	}
	return buffer, nil
}
