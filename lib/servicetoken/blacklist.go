// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package servicetoken

import (
	"sync"
	"time"
)

// Blacklist is a set of revoked token IDs. Safe for concurrent use.
//
// Each entry remembers its token's natural expiry so Cleanup can drop
// it once Verify would reject the token anyway.
type Blacklist struct {
	mu      sync.RWMutex
	entries map[string]time.Time
}

// NewBlacklist creates an empty blacklist.
func NewBlacklist() *Blacklist {
	return &Blacklist{entries: make(map[string]time.Time)}
}

// Revoke adds a token ID. tokenExpiresAt is when the entry may be
// cleaned up.
func (b *Blacklist) Revoke(tokenID string, tokenExpiresAt time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if existing, ok := b.entries[tokenID]; ok && existing.After(tokenExpiresAt) {
		return
	}
	b.entries[tokenID] = tokenExpiresAt
}

// IsRevoked reports whether a token ID has been revoked.
func (b *Blacklist) IsRevoked(tokenID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, exists := b.entries[tokenID]
	return exists
}

// Cleanup removes entries whose token has expired at now and returns
// the number removed.
func (b *Blacklist) Cleanup(now time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	removed := 0
	for tokenID, expiresAt := range b.entries {
		if !now.Before(expiresAt) {
			delete(b.entries, tokenID)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries.
func (b *Blacklist) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

func unixTime(seconds int64) time.Time {
	return time.Unix(seconds, 0).UTC()
}
