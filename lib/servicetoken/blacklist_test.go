// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package servicetoken

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestBlacklistRevokeAndCheck(t *testing.T) {
	blacklist := NewBlacklist()
	blacklist.Revoke("token-1", epoch.Add(5*time.Minute))

	if !blacklist.IsRevoked("token-1") {
		t.Error("token-1 should be revoked")
	}
	if blacklist.IsRevoked("token-2") {
		t.Error("token-2 should not be revoked")
	}
	if blacklist.Len() != 1 {
		t.Errorf("Len = %d, want 1", blacklist.Len())
	}
}

func TestBlacklistCleanup(t *testing.T) {
	blacklist := NewBlacklist()
	blacklist.Revoke("token-1", epoch)
	blacklist.Revoke("token-2", epoch.Add(5*time.Minute))
	blacklist.Revoke("token-3", epoch.Add(10*time.Minute))

	if removed := blacklist.Cleanup(epoch.Add(5 * time.Minute)); removed != 2 {
		t.Errorf("Cleanup removed %d, want 2", removed)
	}
	if !blacklist.IsRevoked("token-3") {
		t.Error("token-3 should still be revoked")
	}
	if blacklist.Len() != 1 {
		t.Errorf("Len = %d, want 1", blacklist.Len())
	}
}

func TestBlacklistKeepsLaterExpiry(t *testing.T) {
	blacklist := NewBlacklist()
	blacklist.Revoke("token-1", epoch.Add(time.Hour))
	blacklist.Revoke("token-1", epoch)

	blacklist.Cleanup(epoch.Add(time.Minute))
	if !blacklist.IsRevoked("token-1") {
		t.Error("a second revocation with an earlier expiry shortened the entry")
	}
}

func TestBlacklistConcurrent(t *testing.T) {
	blacklist := NewBlacklist()
	var wg sync.WaitGroup
	for i := range 32 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			blacklist.Revoke(fmt.Sprintf("token-%d", i), epoch.Add(time.Minute))
		}()
		go func() {
			defer wg.Done()
			blacklist.IsRevoked(fmt.Sprintf("token-%d", i))
		}()
	}
	wg.Wait()
	if blacklist.Len() != 32 {
		t.Errorf("Len = %d, want 32", blacklist.Len())
	}
}
