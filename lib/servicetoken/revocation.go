// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package servicetoken

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/bureau-foundation/custody/lib/codec"
)

// RevocationEntry identifies one token to revoke and when its
// blacklist entry may be dropped (the token's natural expiry).
type RevocationEntry struct {
	TokenID   string `cbor:"1,keyasint"`
	ExpiresAt int64  `cbor:"2,keyasint"`
}

// RevocationRequest is the payload of a signed revocation message.
type RevocationRequest struct {
	Entries []RevocationEntry `cbor:"1,keyasint"`

	// IssuedAt is a Unix timestamp in seconds.
	IssuedAt int64 `cbor:"2,keyasint"`

	// Reason is recorded in the service log.
	Reason string `cbor:"3,keyasint,omitempty"`
}

// Errors returned by VerifyRevocation.
var (
	ErrRevocationTooShort  = errors.New("servicetoken: revocation data too short for signature")
	ErrRevocationBadSig    = errors.New("servicetoken: invalid revocation signature")
	ErrRevocationNoEntries = errors.New("servicetoken: revocation request has no entries")
)

// RevocationFor returns a request revoking the given tokens.
func RevocationFor(reason string, issuedAt int64, tokens ...*Token) *RevocationRequest {
	request := &RevocationRequest{IssuedAt: issuedAt, Reason: reason}
	for _, token := range tokens {
		request.Entries = append(request.Entries, RevocationEntry{TokenID: token.ID, ExpiresAt: token.ExpiresAt})
	}
	return request
}

// SignRevocation signs a revocation request with the token signing
// key. The wire format mirrors tokens.
func SignRevocation(privateKey ed25519.PrivateKey, request *RevocationRequest) ([]byte, error) {
	if len(request.Entries) == 0 {
		return nil, ErrRevocationNoEntries
	}
	payload, err := codec.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("servicetoken: encoding revocation request: %w", err)
	}
	return appendSignature(privateKey, payload), nil
}

// VerifyRevocation checks the signature on a revocation request and
// decodes it.
func VerifyRevocation(publicKey ed25519.PublicKey, data []byte) (*RevocationRequest, error) {
	payload, err := splitSigned(publicKey, data, ErrRevocationTooShort, ErrRevocationBadSig)
	if err != nil {
		return nil, err
	}
	var request RevocationRequest
	if err := codec.Unmarshal(payload, &request); err != nil {
		return nil, fmt.Errorf("servicetoken: decoding revocation request: %w", err)
	}
	if len(request.Entries) == 0 {
		return nil, ErrRevocationNoEntries
	}
	for index, entry := range request.Entries {
		if entry.TokenID == "" {
			return nil, fmt.Errorf("servicetoken: revocation entry %d has no token id", index)
		}
	}
	return &request, nil
}

// Apply adds every entry of request to blacklist and returns how many
// were added.
func (r *RevocationRequest) Apply(blacklist *Blacklist) int {
	for _, entry := range r.Entries {
		blacklist.Revoke(entry.TokenID, unixTime(entry.ExpiresAt))
	}
	return len(r.Entries)
}
