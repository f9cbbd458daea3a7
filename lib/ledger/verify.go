// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/custody/lib/schema/custody"
)

// VerifyOutcome is the result of [Ledger.Verify].
type VerifyOutcome struct {
	Matched       bool
	OriginalHash  string
	CandidateHash string
	Event         custody.LedgerEvent
}

// Verify compares candidateHash with the content hash anchored by the
// chain's created event and records a verified event carrying the
// result. Later events never replace the anchor.
func (l *Ledger) Verify(ctx context.Context, evidenceID, candidateHash string, actor custody.Actor) (VerifyOutcome, error) {
	original, ok := l.anchor(evidenceID)
	if !ok {
		return VerifyOutcome{}, fmt.Errorf("%w: %s", ErrNoChain, evidenceID)
	}

	matched := candidateHash == original
	detail := custody.DetailMismatch
	if matched {
		detail = custody.DetailMatch
	}
	event, err := l.Record(ctx, Entry{
		EvidenceID:  evidenceID,
		Kind:        custody.EventVerified,
		Actor:       actor,
		Detail:      detail,
		ContentHash: candidateHash,
		Matched:     &matched,
	})
	if err != nil {
		return VerifyOutcome{}, err
	}
	return VerifyOutcome{
		Matched:       matched,
		OriginalHash:  original,
		CandidateHash: candidateHash,
		Event:         event,
	}, nil
}

// anchor returns the content hash of the created event.
func (l *Ledger) anchor(evidenceID string) (string, bool) {
	c := l.lookupChain(evidenceID)
	if c == nil {
		return "", false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.events) == 0 {
		return "", false
	}
	return c.events[0].ContentHash, true
}

// AuditChain recomputes every hash and link of one chain.
func (l *Ledger) AuditChain(evidenceID string) error {
	events := l.EventsFor(evidenceID)
	if len(events) == 0 {
		return fmt.Errorf("%w: %s", ErrNoChain, evidenceID)
	}
	return auditChain(evidenceID, events)
}

// AuditAll audits every chain and returns the first failure.
func (l *Ledger) AuditAll() error {
	for id := range l.chainsSnapshot() {
		events := l.EventsFor(id)
		if len(events) == 0 {
			continue
		}
		if err := auditChain(id, events); err != nil {
			return err
		}
	}
	return nil
}

// VerifyEvents audits events decoded from a journal. Events are
// grouped by evidence id in the order given; each group must form a
// complete chain from sequence 0. tx_refs must be unique across all
// groups.
func VerifyEvents(events []custody.LedgerEvent) error {
	groups := make(map[string][]custody.LedgerEvent)
	var order []string
	seen := make(map[string]string, len(events))
	for _, event := range events {
		if previous, duplicate := seen[event.TxRef]; duplicate {
			return fmt.Errorf("%w: tx_ref %s appears in %s and %s#%d",
				ErrChainBroken, event.TxRef, previous, event.EvidenceID, event.Sequence)
		}
		seen[event.TxRef] = fmt.Sprintf("%s#%d", event.EvidenceID, event.Sequence)
		if _, ok := groups[event.EvidenceID]; !ok {
			order = append(order, event.EvidenceID)
		}
		groups[event.EvidenceID] = append(groups[event.EvidenceID], event)
	}
	for _, id := range order {
		if err := auditChain(id, groups[id]); err != nil {
			return err
		}
	}
	return nil
}

func auditChain(evidenceID string, events []custody.LedgerEvent) error {
	prevHash := custody.ZeroHash
	for index, event := range events {
		broken := func(format string, args ...any) error {
			return fmt.Errorf("%w: %s sequence %d: %s", ErrChainBroken, evidenceID, index, fmt.Sprintf(format, args...))
		}
		if event.EvidenceID != evidenceID {
			return broken("event belongs to %s", event.EvidenceID)
		}
		if event.Sequence != uint64(index) {
			return broken("sequence field is %d", event.Sequence)
		}
		if (index == 0) != (event.Kind == custody.EventCreated) {
			return broken("%s event out of place", event.Kind)
		}
		if event.PrevHash != prevHash {
			return broken("prev_hash %s does not link to %s", event.PrevHash, prevHash)
		}
		if index > 0 && event.Timestamp.Before(events[index-1].Timestamp) {
			return broken("timestamp %s precedes previous event", event.Timestamp)
		}
		if !ValidTxRef(event.TxRef) {
			return broken("malformed tx_ref %q", event.TxRef)
		}
		computed, err := HashEvent(event)
		if err != nil {
			return broken("%v", err)
		}
		if computed != event.Hash {
			return broken("hash %s does not match content (recomputed %s)", event.Hash, computed)
		}
		prevHash = event.Hash
	}
	return nil
}
