// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package servicetoken implements Ed25519-signed bearer tokens that
// carry the identity of a custody service caller.
//
// The custody engine decides authorization by role alone and trusts the
// actor it is handed. This package is where that actor comes from: an
// operator mints a token naming a subject, a role, and a display name,
// and the service verifies the signature, audience, expiry, and
// revocation status before turning the token into an actor.
//
// # Wire format
//
// A token is raw bytes: a CBOR payload followed by a 64-byte Ed25519
// signature over the payload.
//
//	[CBOR payload bytes] [64-byte Ed25519 signature]
//
// The split point is always len(token) - 64. Over HTTP and in token
// files the bytes are carried as unpadded base64url (see
// [EncodeString]).
//
// # Revocation
//
// A [Blacklist] holds revoked token IDs until the tokens would have
// expired anyway. Revocations arrive as [RevocationRequest] messages
// signed with the same key that mints tokens, so only the token issuer
// can revoke.
package servicetoken
