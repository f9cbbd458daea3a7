// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bureau-foundation/custody/lib/clock"
	"github.com/bureau-foundation/custody/lib/servicetoken"
)

// KindUnauthenticated is the error kind of requests whose token is
// missing, invalid, expired, or revoked.
const KindUnauthenticated = "unauthenticated"

// ErrUnauthenticated wraps every authentication failure.
var ErrUnauthenticated = errors.New("unauthenticated")

// AuthConfig verifies service tokens presented by callers.
type AuthConfig struct {
	// PublicKey verifies token and revocation signatures.
	PublicKey ed25519.PublicKey

	// Audience is the audience tokens must carry.
	Audience string

	// Blacklist holds revoked token IDs. Required.
	Blacklist *servicetoken.Blacklist

	// Clock is used for expiry checks. Defaults to clock.Real().
	Clock clock.Clock
}

// Authenticate verifies raw token bytes and returns the token.
func (c *AuthConfig) Authenticate(tokenBytes []byte) (*servicetoken.Token, error) {
	if len(tokenBytes) == 0 {
		return nil, fmt.Errorf("%w: missing token field", ErrUnauthenticated)
	}
	token, err := servicetoken.VerifyForServiceAt(c.PublicKey, tokenBytes, c.Audience, c.now())
	if err != nil {
		if errors.Is(err, servicetoken.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token expired", ErrUnauthenticated)
		}
		return nil, fmt.Errorf("%w: token verification failed: %v", ErrUnauthenticated, err)
	}
	if c.Blacklist != nil && c.Blacklist.IsRevoked(token.ID) {
		return nil, fmt.Errorf("%w: token revoked", ErrUnauthenticated)
	}
	return token, nil
}

// AuthenticateRequest authenticates the bearer token of an HTTP
// request. The Authorization header carries the unpadded base64url
// form of the token bytes.
func (c *AuthConfig) AuthenticateRequest(request *http.Request) (*servicetoken.Token, error) {
	tokenBytes, err := BearerToken(request)
	if err != nil {
		return nil, err
	}
	return c.Authenticate(tokenBytes)
}

// Revoke verifies a signed revocation request, applies it to the
// blacklist, and drops entries that have since expired.
func (c *AuthConfig) Revoke(signed []byte) (*servicetoken.RevocationRequest, error) {
	request, err := servicetoken.VerifyRevocation(c.PublicKey, signed)
	if err != nil {
		return nil, fmt.Errorf("revocation verification failed: %w", err)
	}
	request.Apply(c.Blacklist)
	c.Blacklist.Cleanup(c.now())
	return request, nil
}

func (c *AuthConfig) now() time.Time {
	if c.Clock == nil {
		return clock.Real().Now()
	}
	return c.Clock.Now()
}

// BearerToken extracts the token bytes from an "Authorization: Bearer"
// header.
func BearerToken(request *http.Request) ([]byte, error) {
	header := request.Header.Get("Authorization")
	if header == "" {
		return nil, fmt.Errorf("%w: missing token field", ErrUnauthenticated)
	}
	scheme, value, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return nil, fmt.Errorf("%w: Authorization header is not a bearer token", ErrUnauthenticated)
	}
	tokenBytes, err := servicetoken.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	return tokenBytes, nil
}
