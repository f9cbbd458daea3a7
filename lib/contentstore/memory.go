// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package contentstore

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/bureau-foundation/custody/lib/clock"
)

// MemoryStore keeps blobs in memory. Safe for concurrent use.
type MemoryStore struct {
	clock clock.Clock

	mu    sync.RWMutex
	blobs map[string][]byte
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store. A nil clock defaults to
// clock.Real().
func NewMemoryStore(c clock.Clock) *MemoryStore {
	if c == nil {
		c = clock.Real()
	}
	return &MemoryStore{clock: c, blobs: make(map[string][]byte)}
}

// Hash returns the content hash of data.
func (s *MemoryStore) Hash(data []byte) string { return Hash(data) }

// Put copies data into the store.
func (s *MemoryStore) Put(ctx context.Context, data []byte, originalFilename string) (PutResult, error) {
	if len(data) == 0 {
		return PutResult{}, ErrEmptyContent
	}
	if err := ctx.Err(); err != nil {
		return PutResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := NewKey(s.clock.Now(), randomSuffix(), originalFilename)
	for s.blobs[key] != nil {
		key = NewKey(s.clock.Now(), randomSuffix(), originalFilename)
	}
	s.blobs[key] = bytes.Clone(data)
	return PutResult{Key: key, Hash: Hash(data), Size: int64(len(data))}, nil
}

// Get returns a copy of the bytes stored under key.
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return bytes.Clone(data), nil
}

// Overwrite replaces the bytes under an existing key without touching
// any recorded hash. It models tampering with stored evidence.
func (s *MemoryStore) Overwrite(key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[key]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	s.blobs[key] = bytes.Clone(data)
	return nil
}

// Remove deletes the blob under key, modeling storage loss.
func (s *MemoryStore) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
}

// Len returns the number of stored blobs.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
