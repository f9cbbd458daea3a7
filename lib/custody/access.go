// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package custody

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/bureau-foundation/custody/lib/ledger"
	custodyschema "github.com/bureau-foundation/custody/lib/schema/custody"
)

// Access returns the full evidence record and records an accessed
// event. Any valid actor may read.
func (e *Engine) Access(ctx context.Context, id string, actor custodyschema.Actor) (custodyschema.AccessResult, error) {
	if err := validateActor(actor); err != nil {
		return custodyschema.AccessResult{}, err
	}
	r, err := e.lookup(id)
	if err != nil {
		return custodyschema.AccessResult{}, err
	}

	// The read lock keeps writers out until the accessed event is
	// committed, so the returned record is the one that was audited.
	r.mu.RLock()
	defer r.mu.RUnlock()
	event, err := e.commit(ctx, ledger.Entry{
		EvidenceID: id,
		Kind:       custodyschema.EventAccessed,
		Actor:      actor,
		Detail:     "Evidence viewed by " + actor.Name,
	})
	if err != nil {
		return custodyschema.AccessResult{}, err
	}
	return custodyschema.AccessResult{Evidence: r.evidence, Event: event}, nil
}

// Get is Access: every full-record read is audited.
func (e *Engine) Get(ctx context.Context, id string, actor custodyschema.Actor) (custodyschema.AccessResult, error) {
	return e.Access(ctx, id, actor)
}

// List returns summaries of the evidence matching filter, ordered by
// creation time then id. Listing records no ledger event; summaries
// omit hashes, storage keys, and notes.
func (e *Engine) List(ctx context.Context, filter custodyschema.ListFilter, actor custodyschema.Actor) ([]custodyschema.Summary, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	if err := filter.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	summaries := []custodyschema.Summary{}
	for _, r := range e.snapshot() {
		r.mu.RLock()
		evidence := r.evidence
		r.mu.RUnlock()
		if filter.Matches(evidence) {
			summaries = append(summaries, evidence.Summary())
		}
	}
	slices.SortFunc(summaries, func(a, b custodyschema.Summary) int {
		if order := a.CreatedAt.Compare(b.CreatedAt); order != 0 {
			return order
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return summaries, nil
}

// Events returns the raw ledger chain of an evidence item. No event is
// recorded.
func (e *Engine) Events(ctx context.Context, id string, actor custodyschema.Actor) ([]custodyschema.LedgerEvent, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	if _, err := e.lookup(id); err != nil {
		return nil, err
	}
	return e.ledger.EventsFor(id), nil
}

// History returns the custody timeline of an evidence item with the
// result of a full chain audit. No event is recorded.
func (e *Engine) History(ctx context.Context, id string, actor custodyschema.Actor) (custodyschema.CustodyHistory, error) {
	if err := validateActor(actor); err != nil {
		return custodyschema.CustodyHistory{}, err
	}
	if _, err := e.lookup(id); err != nil {
		return custodyschema.CustodyHistory{}, err
	}

	events := e.ledger.EventsFor(id)
	history := custodyschema.CustodyHistory{
		EvidenceID:  id,
		Timeline:    make([]custodyschema.TimelineItem, 0, len(events)),
		ChainIntact: true,
	}
	for _, event := range events {
		history.Timeline = append(history.Timeline, custodyschema.TimelineItemFor(event))
	}
	if len(events) > 0 {
		history.HeadHash = events[len(events)-1].Hash
	}
	if err := e.ledger.AuditChain(id); err != nil {
		history.ChainIntact = false
		e.logger.Error("ledger chain audit failed", "evidence_id", id, "error", err)
	}
	return history, nil
}

// LookupTx returns the ledger event identified by a tx_ref.
func (e *Engine) LookupTx(ctx context.Context, txRef string, actor custodyschema.Actor) (custodyschema.LedgerEvent, error) {
	if err := validateActor(actor); err != nil {
		return custodyschema.LedgerEvent{}, err
	}
	event, ok := e.ledger.Lookup(txRef)
	if !ok {
		return custodyschema.LedgerEvent{}, fmt.Errorf("%w: tx_ref %s", ErrNotFound, txRef)
	}
	return event, nil
}
