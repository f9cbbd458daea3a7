// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package servicetoken

import (
	"errors"
	"testing"
)

func TestRevocationRoundTrip(t *testing.T) {
	public, private := testKeypair(t)
	first, second := testToken(), testToken()
	second.ID = "eeff00112233aabb"

	request := RevocationFor("badge reported lost", epoch.Unix(), first, second)
	signed, err := SignRevocation(private, request)
	if err != nil {
		t.Fatalf("SignRevocation: %v", err)
	}
	decoded, err := VerifyRevocation(public, signed)
	if err != nil {
		t.Fatalf("VerifyRevocation: %v", err)
	}
	if len(decoded.Entries) != 2 {
		t.Fatalf("Entries length = %d, want 2", len(decoded.Entries))
	}
	if decoded.Entries[1].TokenID != "eeff00112233aabb" || decoded.Entries[1].ExpiresAt != second.ExpiresAt {
		t.Errorf("Entries[1] = %+v", decoded.Entries[1])
	}
	if decoded.Reason != "badge reported lost" || decoded.IssuedAt != epoch.Unix() {
		t.Errorf("decoded = %+v", decoded)
	}

	blacklist := NewBlacklist()
	if applied := decoded.Apply(blacklist); applied != 2 {
		t.Errorf("Apply = %d, want 2", applied)
	}
	if !blacklist.IsRevoked(first.ID) || !blacklist.IsRevoked(second.ID) {
		t.Error("applied revocation did not blacklist both tokens")
	}
	blacklist.Cleanup(first.Expires())
	if blacklist.Len() != 0 {
		t.Errorf("entries survived their token expiry: %d", blacklist.Len())
	}
}

func TestRevocationRejections(t *testing.T) {
	public, private := testKeypair(t)
	otherPublic, _ := testKeypair(t)

	if _, err := SignRevocation(private, &RevocationRequest{}); !errors.Is(err, ErrRevocationNoEntries) {
		t.Errorf("SignRevocation(empty): got %v, want ErrRevocationNoEntries", err)
	}

	signed, err := SignRevocation(private, RevocationFor("", epoch.Unix(), testToken()))
	if err != nil {
		t.Fatalf("SignRevocation: %v", err)
	}
	if _, err := VerifyRevocation(otherPublic, signed); !errors.Is(err, ErrRevocationBadSig) {
		t.Errorf("wrong key: got %v, want ErrRevocationBadSig", err)
	}
	if _, err := VerifyRevocation(public, signed[:signatureSize]); !errors.Is(err, ErrRevocationTooShort) {
		t.Errorf("truncated: got %v, want ErrRevocationTooShort", err)
	}

	// A token is not a revocation even though both are signed by the
	// same key.
	tokenBytes, err := Mint(private, testToken())
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if _, err := VerifyRevocation(public, tokenBytes); err == nil {
		t.Error("VerifyRevocation accepted a token")
	}
}
