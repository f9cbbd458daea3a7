// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package servicetoken

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bureau-foundation/custody/lib/codec"
	"github.com/bureau-foundation/custody/lib/schema/custody"
)

// signatureSize is the fixed size of an Ed25519 signature.
const signatureSize = ed25519.SignatureSize // 64 bytes

// Audience is the audience of tokens accepted by the custody service.
const Audience = "custody"

// DefaultTTL is the lifetime of a token minted without an explicit TTL.
const DefaultTTL = 8 * time.Hour

// Token is the CBOR-encoded payload of a custody service token.
type Token struct {
	// Subject is the stable identifier of the caller (a badge
	// number, staff id, or similar). It becomes Actor.ID.
	Subject string `cbor:"1,keyasint"`

	// Role decides what the caller may do.
	Role custody.Role `cbor:"2,keyasint"`

	// Name is the display name recorded in ledger events.
	Name string `cbor:"3,keyasint"`

	// Audience is the service this token is scoped to.
	Audience string `cbor:"4,keyasint"`

	// ID is a unique token identifier (hex string), used for
	// revocation.
	ID string `cbor:"5,keyasint"`

	// IssuedAt and ExpiresAt are Unix timestamps in seconds.
	IssuedAt  int64 `cbor:"6,keyasint"`
	ExpiresAt int64 `cbor:"7,keyasint"`
}

// Errors returned by Verify and related functions.
var (
	ErrTokenTooShort    = errors.New("servicetoken: token too short for signature")
	ErrInvalidSignature = errors.New("servicetoken: invalid Ed25519 signature")
	ErrTokenExpired     = errors.New("servicetoken: token has expired")
	ErrAudienceMismatch = errors.New("servicetoken: audience does not match")
	ErrTokenRevoked     = errors.New("servicetoken: token has been revoked")
	ErrInvalidClaims    = errors.New("servicetoken: invalid token claims")
)

// Actor returns the custody actor the token identifies.
func (t *Token) Actor() custody.Actor {
	return custody.Actor{ID: t.Subject, Role: t.Role, Name: t.Name}
}

// Expires returns ExpiresAt as a time.
func (t *Token) Expires() time.Time {
	return time.Unix(t.ExpiresAt, 0).UTC()
}

func (t *Token) validate() error {
	if strings.TrimSpace(t.Subject) == "" {
		return fmt.Errorf("%w: subject is empty", ErrInvalidClaims)
	}
	if err := t.Actor().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidClaims, err)
	}
	if t.ID == "" {
		return fmt.Errorf("%w: id is empty", ErrInvalidClaims)
	}
	if t.ExpiresAt <= t.IssuedAt {
		return fmt.Errorf("%w: expires_at %d is not after issued_at %d", ErrInvalidClaims, t.ExpiresAt, t.IssuedAt)
	}
	return nil
}

// Claims are the caller-supplied fields of a token to issue.
type Claims struct {
	Subject string
	Role    custody.Role
	Name    string
}

// Issue builds a token for claims with a fresh ID, valid from now for
// ttl (DefaultTTL if zero), and signs it.
func Issue(privateKey ed25519.PrivateKey, claims Claims, ttl time.Duration, now time.Time) (*Token, []byte, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	var id [16]byte
	if _, err := rand.Read(id[:]); err != nil {
		return nil, nil, fmt.Errorf("servicetoken: generating token id: %w", err)
	}
	token := &Token{
		Subject:   claims.Subject,
		Role:      claims.Role,
		Name:      claims.Name,
		Audience:  Audience,
		ID:        hex.EncodeToString(id[:]),
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	}
	tokenBytes, err := Mint(privateKey, token)
	if err != nil {
		return nil, nil, err
	}
	return token, tokenBytes, nil
}

// Mint signs a Token and returns the raw wire-format bytes: the CBOR
// payload followed by the 64-byte Ed25519 signature.
func Mint(privateKey ed25519.PrivateKey, token *Token) ([]byte, error) {
	if err := token.validate(); err != nil {
		return nil, err
	}
	payload, err := codec.Marshal(token)
	if err != nil {
		return nil, fmt.Errorf("servicetoken: encoding token payload: %w", err)
	}
	return appendSignature(privateKey, payload), nil
}

// Verify splits the raw token bytes, verifies the signature, decodes
// the payload, and checks claims and expiry.
//
// The caller should additionally check the audience and consult a
// Blacklist; VerifyForService does the former.
func Verify(publicKey ed25519.PublicKey, tokenBytes []byte) (*Token, error) {
	return VerifyAt(publicKey, tokenBytes, time.Now())
}

// VerifyAt is like Verify but takes the time used for the expiry check.
func VerifyAt(publicKey ed25519.PublicKey, tokenBytes []byte, now time.Time) (*Token, error) {
	payload, err := splitSigned(publicKey, tokenBytes, ErrTokenTooShort, ErrInvalidSignature)
	if err != nil {
		return nil, err
	}

	var token Token
	if err := codec.Unmarshal(payload, &token); err != nil {
		return nil, fmt.Errorf("servicetoken: decoding token payload: %w", err)
	}
	if err := token.validate(); err != nil {
		return nil, err
	}
	if now.Unix() >= token.ExpiresAt {
		return nil, ErrTokenExpired
	}
	return &token, nil
}

// VerifyForService is Verify with an audience check.
func VerifyForService(publicKey ed25519.PublicKey, tokenBytes []byte, expectedAudience string) (*Token, error) {
	return VerifyForServiceAt(publicKey, tokenBytes, expectedAudience, time.Now())
}

// VerifyForServiceAt is like VerifyForService but accepts an explicit time.
func VerifyForServiceAt(publicKey ed25519.PublicKey, tokenBytes []byte, expectedAudience string, now time.Time) (*Token, error) {
	token, err := VerifyAt(publicKey, tokenBytes, now)
	if err != nil {
		return nil, err
	}
	if token.Audience != expectedAudience {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrAudienceMismatch, token.Audience, expectedAudience)
	}
	return token, nil
}

// EncodeString returns the unpadded base64url form of raw token bytes,
// as carried in Authorization headers and token files.
func EncodeString(tokenBytes []byte) string {
	return base64.RawURLEncoding.EncodeToString(tokenBytes)
}

// DecodeString reverses EncodeString. Surrounding whitespace and
// trailing padding are ignored.
func DecodeString(s string) ([]byte, error) {
	s = strings.TrimRight(strings.TrimSpace(s), "=")
	if s == "" {
		return nil, fmt.Errorf("servicetoken: empty token")
	}
	tokenBytes, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("servicetoken: decoding token: %w", err)
	}
	return tokenBytes, nil
}

func appendSignature(privateKey ed25519.PrivateKey, payload []byte) []byte {
	signature := ed25519.Sign(privateKey, payload)
	result := make([]byte, len(payload)+signatureSize)
	copy(result, payload)
	copy(result[len(payload):], signature)
	return result
}

func splitSigned(publicKey ed25519.PublicKey, data []byte, tooShort, badSignature error) ([]byte, error) {
	if len(data) <= signatureSize {
		return nil, tooShort
	}
	splitPoint := len(data) - signatureSize
	payload := data[:splitPoint]
	if !ed25519.Verify(publicKey, payload, data[splitPoint:]) {
		return nil, badSignature
	}
	return payload, nil
}
