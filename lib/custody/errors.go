// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package custody

import "errors"

var (
	// ErrNotFound is returned for an unknown evidence id or tx_ref.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized is returned when the actor's role does not
	// permit the operation, or the actor is not a valid actor.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation is returned for malformed requests and for
	// operations the evidence's state does not permit.
	ErrValidation = errors.New("validation failed")

	// ErrStorageUnavailable is returned when the content store cannot
	// accept or return bytes. Verification reports this as a result
	// instead.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrLedgerWrite is returned when the ledger refuses an event.
	// The operation had no effect.
	ErrLedgerWrite = errors.New("ledger write failed")
)

// Wire names of error kinds.
const (
	KindNotFound           = "not_found"
	KindUnauthorized       = "unauthorized"
	KindValidation         = "validation"
	KindStorageUnavailable = "storage_unavailable"
	KindLedgerWrite        = "ledger_write"
	KindInternal           = "internal"
)

// Kind returns the wire name of err's kind, or "" for nil.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrStorageUnavailable):
		return KindStorageUnavailable
	case errors.Is(err, ErrLedgerWrite):
		return KindLedgerWrite
	default:
		return KindInternal
	}
}
