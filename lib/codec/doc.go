// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the standard CBOR encoding configuration for
// the custody service.
//
// Two serialization formats are used, with a clear boundary:
//
//   - JSON for external interfaces: the HTTP API and CLI --json output.
//   - CBOR for everything internal: the ledger hash preimages, the
//     journal file, the service socket protocol, actor tokens, and
//     sealed export bundles.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items. The
// ledger depends on this property. An event hash is computed over the
// CBOR encoding of the event, so the same logical event must always
// produce identical bytes or re-verification of the chain would fail.
//
// # Struct Tag Rules
//
//   - `cbor` tag: the type is only ever serialized as CBOR (journal
//     frames, token payloads, hash preimages).
//   - `json` tag: the type may be serialized as both JSON and CBOR.
//     fxamacker/cbor v2 reads `json` tags when `cbor` tags are absent,
//     so one tag controls field naming for both formats.
//
// Never put both tags on the same field.
package codec
