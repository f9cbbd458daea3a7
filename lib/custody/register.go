// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package custody

import (
	"context"
	"errors"
	"fmt"

	"github.com/bureau-foundation/custody/lib/contentstore"
	"github.com/bureau-foundation/custody/lib/ledger"
	custodyschema "github.com/bureau-foundation/custody/lib/schema/custody"
)

// maxIDAttempts bounds evidence id regeneration on collision.
const maxIDAttempts = 8

// Register stores a new evidence file and opens its chain with a
// created event. Only police and forensic_lab actors may register. Two
// registrations of identical bytes produce two evidence items.
func (e *Engine) Register(ctx context.Context, request custodyschema.RegisterRequest, actor custodyschema.Actor) (custodyschema.Evidence, error) {
	if err := validateActor(actor); err != nil {
		return custodyschema.Evidence{}, err
	}
	if !actor.Role.CanUpload() {
		return custodyschema.Evidence{}, fmt.Errorf("%w: role %s may not register evidence", ErrUnauthorized, actor.Role)
	}
	if err := request.Validate(); err != nil {
		return custodyschema.Evidence{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	stored, err := e.store.Put(ctx, request.Data, request.OriginalFilename)
	if errors.Is(err, contentstore.ErrTooLarge) {
		return custodyschema.Evidence{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err != nil {
		return custodyschema.Evidence{}, fmt.Errorf("%w: storing %s: %v", ErrStorageUnavailable, request.OriginalFilename, err)
	}

	for range maxIDAttempts {
		id := custodyschema.NewEvidenceID()
		if e.idTaken(id) {
			continue
		}
		event, err := e.ledger.Record(ctx, ledger.Entry{
			EvidenceID:  id,
			Kind:        custodyschema.EventCreated,
			Actor:       actor,
			Detail:      "Evidence uploaded: " + request.OriginalFilename,
			ContentHash: stored.Hash,
		})
		if errors.Is(err, ledger.ErrChainState) {
			// Another registration claimed this id first.
			continue
		}
		if err != nil {
			e.logger.Error("registration ledger write failed; stored content is orphaned",
				"key", stored.Key,
				"error", err,
			)
			return custodyschema.Evidence{}, fmt.Errorf("%w: %v", ErrLedgerWrite, err)
		}

		evidence := custodyschema.Evidence{
			ID:                id,
			CaseID:            request.CaseID,
			StoredFilename:    stored.Key,
			OriginalFilename:  request.OriginalFilename,
			EvidenceType:      request.EvidenceType,
			Description:       request.Description,
			Notes:             request.Notes,
			ContentHash:       stored.Hash,
			Size:              stored.Size,
			Custodian:         actor.Custodian(),
			Status:            custodyschema.StatusRegistered,
			IntegrityVerified: true,
			CreatedTx:         event.TxRef,
			TxRef:             event.TxRef,
			CreatedAt:         event.Timestamp,
			UpdatedAt:         event.Timestamp,
		}
		// Mirror before publishing so the created row precedes any
		// row another caller writes for this id.
		e.mirror(ctx, event)
		if !e.publish(&record{evidence: evidence}) {
			// The ledger accepted the created event, so no other
			// record can hold this id.
			return custodyschema.Evidence{}, fmt.Errorf("evidence id %s published twice", id)
		}
		e.logger.Info("evidence registered",
			"evidence_id", id,
			"case_id", request.CaseID,
			"actor_role", string(actor.Role),
			"size", stored.Size,
			"tx_ref", event.TxRef,
		)
		return evidence, nil
	}
	return custodyschema.Evidence{}, fmt.Errorf("could not allocate an evidence id after %d attempts", maxIDAttempts)
}
