// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package custody

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/custody/lib/ledger"
	custodyschema "github.com/bureau-foundation/custody/lib/schema/custody"
)

// TransferCustody hands an evidence item to a new custodian. Only an
// actor whose role equals the current custodian's role may transfer.
// Concurrent transfers of one item serialize: each observes the
// custodian left by the one before it.
func (e *Engine) TransferCustody(ctx context.Context, id string, request custodyschema.TransferRequest, actor custodyschema.Actor) (custodyschema.Evidence, error) {
	if err := validateActor(actor); err != nil {
		return custodyschema.Evidence{}, err
	}
	if err := request.Validate(); err != nil {
		return custodyschema.Evidence{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	r, err := e.lookup(id)
	if err != nil {
		return custodyschema.Evidence{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.evidence
	if current.Status.Terminal() {
		return custodyschema.Evidence{}, fmt.Errorf("%w: evidence %s is %s", ErrValidation, id, current.Status)
	}
	if actor.Role != current.Custodian.Role {
		return custodyschema.Evidence{}, fmt.Errorf("%w: only the current custodian (%s) may transfer %s",
			ErrUnauthorized, current.Custodian.Role, id)
	}
	recipient := request.Recipient()
	if recipient == current.Custodian {
		return custodyschema.Evidence{}, fmt.Errorf("%w: %s already holds %s", ErrValidation, recipient, id)
	}
	if !current.Status.CanTransition(custodyschema.StatusTransferred) {
		return custodyschema.Evidence{}, fmt.Errorf("%w: %s cannot move from %s to %s",
			ErrValidation, id, current.Status, custodyschema.StatusTransferred)
	}

	event, err := e.commit(ctx, ledger.Entry{
		EvidenceID: id,
		Kind:       custodyschema.EventTransferred,
		Actor:      actor,
		ToRole:     recipient.Role,
		ToName:     recipient.Name,
		Reason:     request.Reason,
		Notes:      request.Notes,
		Detail: fmt.Sprintf("Custody transferred from %s to %s: %s",
			current.Custodian.Role, recipient.Role, request.Reason),
	})
	if err != nil {
		return custodyschema.Evidence{}, err
	}

	updated := current
	updated.Custodian = recipient
	updated.Status = custodyschema.StatusTransferred
	updated.TxRef = event.TxRef
	updated.UpdatedAt = event.Timestamp
	r.evidence = updated

	e.logger.Info("custody transferred",
		"evidence_id", id,
		"from_role", string(current.Custodian.Role),
		"to_role", string(recipient.Role),
		"tx_ref", event.TxRef,
	)
	return updated, nil
}
