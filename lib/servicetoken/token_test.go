// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package servicetoken

import (
	"crypto/ed25519"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/custody/lib/schema/custody"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testKeypair(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	public, private, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	return public, private
}

func testToken() *Token {
	return &Token{
		Subject:   "badge-4471",
		Role:      custody.RolePolice,
		Name:      "Officer Diaz",
		Audience:  Audience,
		ID:        "a1b2c3d4e5f6",
		IssuedAt:  epoch.Add(-5 * time.Minute).Unix(),
		ExpiresAt: epoch.Add(5 * time.Minute).Unix(),
	}
}

func TestMintAndVerify(t *testing.T) {
	public, private := testKeypair(t)

	tokenBytes, err := Mint(private, testToken())
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if len(tokenBytes) <= signatureSize {
		t.Fatalf("token too short: %d bytes", len(tokenBytes))
	}

	verified, err := VerifyAt(public, tokenBytes, epoch)
	if err != nil {
		t.Fatalf("VerifyAt: %v", err)
	}
	if *verified != *testToken() {
		t.Errorf("verified = %+v, want %+v", verified, testToken())
	}

	actor := verified.Actor()
	want := custody.Actor{ID: "badge-4471", Role: custody.RolePolice, Name: "Officer Diaz"}
	if actor != want {
		t.Errorf("Actor = %+v, want %+v", actor, want)
	}
	if !verified.Expires().Equal(epoch.Add(5 * time.Minute)) {
		t.Errorf("Expires = %v", verified.Expires())
	}
}

func TestVerifyTamperedPayload(t *testing.T) {
	public, private := testKeypair(t)
	tokenBytes, err := Mint(private, testToken())
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	tokenBytes[0] ^= 0xFF
	if _, err := VerifyAt(public, tokenBytes, epoch); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("VerifyAt tampered token: got %v, want ErrInvalidSignature", err)
	}
}

func TestVerifyWrongKey(t *testing.T) {
	_, private := testKeypair(t)
	otherPublic, _ := testKeypair(t)
	tokenBytes, err := Mint(private, testToken())
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if _, err := VerifyAt(otherPublic, tokenBytes, epoch); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("VerifyAt with wrong key: got %v, want ErrInvalidSignature", err)
	}
}

func TestVerifyAtExpiry(t *testing.T) {
	public, private := testKeypair(t)
	token := testToken()
	tokenBytes, err := Mint(private, token)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	expiresAt := token.Expires()

	if _, err := VerifyAt(public, tokenBytes, expiresAt.Add(-time.Second)); err != nil {
		t.Errorf("before expiry: %v", err)
	}
	if _, err := VerifyAt(public, tokenBytes, expiresAt); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("at expiry: got %v, want ErrTokenExpired", err)
	}
	if _, err := VerifyAt(public, tokenBytes, expiresAt.Add(time.Hour)); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("after expiry: got %v, want ErrTokenExpired", err)
	}
}

func TestVerifyTooShort(t *testing.T) {
	public, _ := testKeypair(t)
	if _, err := Verify(public, make([]byte, signatureSize)); !errors.Is(err, ErrTokenTooShort) {
		t.Errorf("signature-only token: got %v, want ErrTokenTooShort", err)
	}
	if _, err := Verify(public, nil); !errors.Is(err, ErrTokenTooShort) {
		t.Errorf("nil token: got %v, want ErrTokenTooShort", err)
	}
}

func TestMintRejectsInvalidClaims(t *testing.T) {
	_, private := testKeypair(t)
	tests := []struct {
		name   string
		mutate func(*Token)
	}{
		{"empty subject", func(token *Token) { token.Subject = "" }},
		{"unknown role", func(token *Token) { token.Role = "janitor" }},
		{"empty name", func(token *Token) { token.Name = " " }},
		{"empty id", func(token *Token) { token.ID = "" }},
		{"expires before issued", func(token *Token) { token.ExpiresAt = token.IssuedAt }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			token := testToken()
			test.mutate(token)
			if _, err := Mint(private, token); !errors.Is(err, ErrInvalidClaims) {
				t.Errorf("Mint: got %v, want ErrInvalidClaims", err)
			}
		})
	}
}

func TestVerifyForServiceAudience(t *testing.T) {
	public, private := testKeypair(t)

	tokenBytes, err := Mint(private, testToken())
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if _, err := VerifyForServiceAt(public, tokenBytes, Audience, epoch); err != nil {
		t.Errorf("matching audience: %v", err)
	}

	other := testToken()
	other.Audience = "records"
	otherBytes, err := Mint(private, other)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	_, err = VerifyForServiceAt(public, otherBytes, Audience, epoch)
	if !errors.Is(err, ErrAudienceMismatch) {
		t.Fatalf("mismatched audience: got %v, want ErrAudienceMismatch", err)
	}
	if !strings.Contains(err.Error(), `"records"`) {
		t.Errorf("error %q should name the token's audience", err)
	}
}

func TestIssue(t *testing.T) {
	public, private := testKeypair(t)

	token, tokenBytes, err := Issue(private, Claims{
		Subject: "staff-19",
		Role:    custody.RoleJudge,
		Name:    "Judge Okafor",
	}, 0, epoch)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if token.Audience != Audience {
		t.Errorf("Audience = %q, want %q", token.Audience, Audience)
	}
	if got := token.Expires().Sub(epoch); got != DefaultTTL {
		t.Errorf("TTL = %v, want %v", got, DefaultTTL)
	}
	if len(token.ID) != 32 {
		t.Errorf("ID = %q, want 32 hex characters", token.ID)
	}
	verified, err := VerifyForServiceAt(public, tokenBytes, Audience, epoch)
	if err != nil {
		t.Fatalf("VerifyForServiceAt: %v", err)
	}
	if verified.ID != token.ID {
		t.Errorf("verified ID = %q, want %q", verified.ID, token.ID)
	}

	second, _, err := Issue(private, Claims{Subject: "staff-19", Role: custody.RoleJudge, Name: "Judge Okafor"}, time.Minute, epoch)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if second.ID == token.ID {
		t.Error("two issued tokens share an ID")
	}
	if _, _, err := Issue(private, Claims{Subject: "x", Role: "janitor", Name: "x"}, 0, epoch); !errors.Is(err, ErrInvalidClaims) {
		t.Errorf("Issue with unknown role: got %v, want ErrInvalidClaims", err)
	}
}

func TestEncodeString(t *testing.T) {
	_, private := testKeypair(t)
	tokenBytes, err := Mint(private, testToken())
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	encoded := EncodeString(tokenBytes)
	if strings.ContainsAny(encoded, "+/=") {
		t.Errorf("encoded token %q is not unpadded base64url", encoded)
	}
	decoded, err := DecodeString("  " + encoded + "\n")
	if err != nil {
		t.Fatalf("DecodeString: %v", err)
	}
	if string(decoded) != string(tokenBytes) {
		t.Error("DecodeString did not return the minted bytes")
	}
	if _, err := DecodeString(""); err == nil {
		t.Error("DecodeString(\"\") succeeded")
	}
	if _, err := DecodeString("not base64!"); err == nil {
		t.Error("DecodeString of garbage succeeded")
	}
}
