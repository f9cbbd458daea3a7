// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package custody implements the evidence chain-of-custody engine.
//
// The [Engine] owns the evidence records and orchestrates the content
// store, the ledger, and the access-log index. Every operation takes an
// authenticated [custodyschema.Actor]; the engine decides by role
// whether the actor may perform it, and every state change (and every
// full-record read) is recorded in the ledger before the record is
// updated.
//
// Locking: a map-level RWMutex guards insertion and lookup only. Each
// record has its own RWMutex; mutations hold the write lock across
// their whole read-check-ledger-update sequence, and audited reads hold
// the read lock across their ledger append, so readers always see a
// record and the ledger in agreement. Operations on different evidence
// ids never wait on each other beyond the map lookup.
//
// Errors wrap the sentinels [ErrNotFound], [ErrUnauthorized],
// [ErrValidation], [ErrStorageUnavailable], and [ErrLedgerWrite];
// [Kind] maps an error to its wire name. An integrity mismatch is not
// an error: it is a successful verification with a negative result.
package custody
