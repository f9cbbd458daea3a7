// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package custody

import (
	"context"
	"fmt"

	custodyschema "github.com/bureau-foundation/custody/lib/schema/custody"
)

// VerifyIntegrity recomputes the content hash of the stored bytes and
// compares it with the hash anchored at registration. Any valid actor
// may verify, any number of times.
//
// A readable file always yields a verified event and an updated
// record: a match sets status verified and integrity_verified true, a
// mismatch clears integrity_verified and leaves status alone. When the
// bytes cannot be read the result's Outcome is storage_unavailable, no
// event is recorded, and the record is untouched; this is reported in
// the result, not as an error.
func (e *Engine) VerifyIntegrity(ctx context.Context, id string, actor custodyschema.Actor) (custodyschema.VerificationResult, error) {
	if err := validateActor(actor); err != nil {
		return custodyschema.VerificationResult{}, err
	}
	r, err := e.lookup(id)
	if err != nil {
		return custodyschema.VerificationResult{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.evidence
	if current.Status.Terminal() {
		return custodyschema.VerificationResult{}, fmt.Errorf("%w: evidence %s is %s", ErrValidation, id, current.Status)
	}
	result := custodyschema.VerificationResult{
		EvidenceID:   id,
		Filename:     current.OriginalFilename,
		OriginalHash: current.ContentHash,
	}

	data, err := e.store.Get(ctx, current.StoredFilename)
	if err != nil {
		e.logger.Warn("evidence content unavailable for verification",
			"evidence_id", id,
			"key", current.StoredFilename,
			"error", err,
		)
		result.Outcome = custodyschema.OutcomeStorageUnavailable
		result.Message = "Evidence file not available"
		result.Error = err.Error()
		result.VerifiedAt = e.clock.Now().UTC()
		return result, nil
	}

	outcome, err := e.ledger.Verify(ctx, id, e.store.Hash(data), actor)
	if err != nil {
		return custodyschema.VerificationResult{}, fmt.Errorf("%w: %v", ErrLedgerWrite, err)
	}
	e.mirror(ctx, outcome.Event)

	updated := current
	updated.IntegrityVerified = outcome.Matched
	if outcome.Matched && current.Status.CanTransition(custodyschema.StatusVerified) {
		updated.Status = custodyschema.StatusVerified
	}
	updated.TxRef = outcome.Event.TxRef
	updated.UpdatedAt = outcome.Event.Timestamp
	r.evidence = updated

	result.Matched = outcome.Matched
	result.OriginalHash = outcome.OriginalHash
	result.CurrentHash = outcome.CandidateHash
	result.TxRef = outcome.Event.TxRef
	result.VerifiedAt = outcome.Event.Timestamp
	if outcome.Matched {
		result.Outcome = custodyschema.OutcomeMatch
		result.Message = custodyschema.MessageMatch
	} else {
		result.Outcome = custodyschema.OutcomeMismatch
		result.Message = custodyschema.MessageMismatch
		e.logger.Warn("integrity mismatch",
			"evidence_id", id,
			"original_hash", outcome.OriginalHash,
			"current_hash", outcome.CandidateHash,
			"tx_ref", outcome.Event.TxRef,
		)
	}
	return result, nil
}
