// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ledger keeps the append-only, hash-linked event chain of
// every evidence item.
//
// Each chain starts with exactly one created event. Every event's hash
// covers its content and the previous event's hash, so altering,
// removing, or reordering any event breaks the links after it;
// [Ledger.AuditChain] and [VerifyEvents] detect this. Timestamps never
// decrease within a chain. Every event also carries a tx_ref, a
// ledger-unique opaque reference usable as a receipt.
//
// Appends to one chain are serialized by that chain's mutex; appends
// to different chains proceed in parallel. A ledger-wide mutex guards
// only chain creation, the tx_ref index, and the nonce.
//
// An optional [Journal] receives every event before it is committed in
// memory. The journal is an audit artifact for offline verification
// with [ReadJournal]; the ledger never reads it back.
package ledger
