// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package contentstore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/bureau-foundation/custody/lib/digest"
)

var (
	// ErrNotFound is returned by Get when no blob exists for a key.
	ErrNotFound = errors.New("content not found")

	// ErrEmptyContent is returned by Put for zero-length data.
	ErrEmptyContent = errors.New("content is empty")

	// ErrInvalidKey is returned for keys that could escape the store
	// directory or were not produced by this package.
	ErrInvalidKey = errors.New("invalid content key")

	// ErrTooLarge is returned by Put for data over the store's blob
	// size limit.
	ErrTooLarge = errors.New("content exceeds the blob size limit")

	// ErrCorrupt is returned by Get when a blob cannot be decoded or
	// authenticated.
	ErrCorrupt = errors.New("content blob corrupt")
)

// Store persists evidence bytes.
type Store interface {
	// Put stores data and returns its key, content hash, and size.
	// The key embeds the extension of originalFilename.
	Put(ctx context.Context, data []byte, originalFilename string) (PutResult, error)

	// Get returns the bytes stored under key.
	Get(ctx context.Context, key string) ([]byte, error)

	// Hash returns the content hash of data as 64 lowercase hex
	// characters.
	Hash(data []byte) string
}

// PutResult describes a stored blob.
type PutResult struct {
	Key  string `json:"key"`
	Hash string `json:"hash"`
	Size int64  `json:"size"`
}

// Hash returns the content-domain BLAKE3 hash of data in hex.
func Hash(data []byte) string {
	return digest.Sum(digest.Content, data).String()
}

// keyTimeLayout is the timestamp prefix of every key.
const keyTimeLayout = "20060102_150405"

// maxExtensionLength bounds the extension carried into a key.
const maxExtensionLength = 16

// NewKey builds a storage key of the form
// "<YYYYmmdd_HHMMSS>_<8 hex><ext>" from the given time, random suffix,
// and original filename. The extension is lower-cased and dropped when
// it contains anything other than letters and digits.
func NewKey(now time.Time, suffix, originalFilename string) string {
	return now.UTC().Format(keyTimeLayout) + "_" + suffix + keyExtension(originalFilename)
}

func keyExtension(originalFilename string) string {
	extension := strings.ToLower(filepath.Ext(originalFilename))
	if len(extension) < 2 || len(extension) > maxExtensionLength {
		return ""
	}
	for _, r := range extension[1:] {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return ""
		}
	}
	return extension
}

// ValidateKey checks that key has the shape produced by [NewKey].
func ValidateKey(key string) error {
	if key == "" || strings.ContainsAny(key, "/\\\x00") || strings.Contains(key, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	// timestamp(15) + "_" + suffix(8)
	const minimum = len(keyTimeLayout) + 1 + 8
	if len(key) < minimum || key[len(keyTimeLayout)] != '_' {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if _, err := time.Parse(keyTimeLayout, key[:len(keyTimeLayout)]); err != nil {
		return fmt.Errorf("%w: %q has no timestamp prefix", ErrInvalidKey, key)
	}
	return nil
}

// randomSuffix returns 8 random lowercase hex characters.
func randomSuffix() string {
	var buffer [4]byte
	if _, err := rand.Read(buffer[:]); err != nil {
		panic("contentstore: crypto/rand failed: " + err.Error())
	}
	return hex.EncodeToString(buffer[:])
}
