// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/bureau-foundation/custody/lib/clock"
	"github.com/bureau-foundation/custody/lib/schema/custody"
)

var (
	// ErrNoChain is returned for an evidence id with no events.
	ErrNoChain = errors.New("no ledger chain for evidence")

	// ErrChainState is returned when an event would violate the
	// created-first rule: the first event of a chain must be created,
	// and created may appear only once.
	ErrChainState = errors.New("event not permitted in chain state")

	// ErrChainBroken is returned by chain audits when a hash, link,
	// sequence, or timestamp check fails.
	ErrChainBroken = errors.New("ledger chain broken")

	// ErrJournal wraps journal open, write, and read failures.
	ErrJournal = errors.New("ledger journal")

	// ErrInvalidEntry is returned for entries missing required fields.
	ErrInvalidEntry = errors.New("invalid ledger entry")
)

// Config configures a [Ledger].
type Config struct {
	// Clock stamps events. Defaults to clock.Real().
	Clock clock.Clock

	// Journal, when non-nil, receives every event before commit. The
	// ledger does not close it.
	Journal *Journal

	// Logger defaults to a discard logger.
	Logger *slog.Logger
}

// Entry is the caller-supplied content of a new event. The ledger
// fills in identity, sequence, timestamp, hashes, and tx_ref.
type Entry struct {
	EvidenceID  string
	Kind        custody.EventKind
	Actor       custody.Actor
	ToRole      custody.Role
	ToName      string
	Reason      string
	Notes       string
	Detail      string
	ContentHash string
	Matched     *bool
}

func (e Entry) validate() error {
	if e.EvidenceID == "" {
		return fmt.Errorf("%w: evidence id is empty", ErrInvalidEntry)
	}
	if !e.Kind.Valid() {
		return fmt.Errorf("%w: unknown event kind %q", ErrInvalidEntry, e.Kind)
	}
	if err := e.Actor.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	switch e.Kind {
	case custody.EventCreated:
		if e.ContentHash == "" {
			return fmt.Errorf("%w: created event has no content hash", ErrInvalidEntry)
		}
	case custody.EventTransferred:
		if !e.ToRole.Valid() || e.ToName == "" {
			return fmt.Errorf("%w: transfer event has no valid recipient", ErrInvalidEntry)
		}
	case custody.EventVerified:
		if e.Matched == nil {
			return fmt.Errorf("%w: verified event has no result", ErrInvalidEntry)
		}
	}
	return nil
}

// Ledger holds every evidence chain in memory. Safe for concurrent
// use.
type Ledger struct {
	clock   clock.Clock
	journal *Journal
	logger  *slog.Logger

	// mu guards chains, txIndex, and nonce. It is never held while
	// waiting for a chain's mutex.
	mu      sync.Mutex
	chains  map[string]*chain
	txIndex map[string]location
	nonce   uint64
}

type chain struct {
	mu     sync.RWMutex
	events []custody.LedgerEvent
}

type location struct {
	evidenceID string
	sequence   uint64
}

// New returns an empty ledger.
func New(config Config) *Ledger {
	ledger := &Ledger{
		clock:   config.Clock,
		journal: config.Journal,
		logger:  config.Logger,
		chains:  make(map[string]*chain),
		txIndex: make(map[string]location),
	}
	if ledger.clock == nil {
		ledger.clock = clock.Real()
	}
	if ledger.logger == nil {
		ledger.logger = slog.New(slog.DiscardHandler)
	}
	return ledger
}

// Record appends a new event to the chain of entry.EvidenceID and
// returns it. The event is visible to readers only after Record
// returns successfully; on error nothing is committed.
func (l *Ledger) Record(ctx context.Context, entry Entry) (custody.LedgerEvent, error) {
	if err := entry.validate(); err != nil {
		return custody.LedgerEvent{}, err
	}
	if err := ctx.Err(); err != nil {
		return custody.LedgerEvent{}, err
	}

	c, err := l.chainFor(entry.EvidenceID, entry.Kind == custody.EventCreated)
	if err != nil {
		return custody.LedgerEvent{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	sequence := uint64(len(c.events))
	if sequence == 0 && entry.Kind != custody.EventCreated {
		return custody.LedgerEvent{}, fmt.Errorf("%w: first event of %s must be created, got %s",
			ErrChainState, entry.EvidenceID, entry.Kind)
	}
	if sequence > 0 && entry.Kind == custody.EventCreated {
		return custody.LedgerEvent{}, fmt.Errorf("%w: %s already has a created event",
			ErrChainState, entry.EvidenceID)
	}

	timestamp := l.clock.Now().UTC()
	prevHash := custody.ZeroHash
	if sequence > 0 {
		last := c.events[sequence-1]
		if last.Timestamp.After(timestamp) {
			timestamp = last.Timestamp
		}
		prevHash = last.Hash
	}

	event := custody.LedgerEvent{
		EventID:     uuid.NewString(),
		EvidenceID:  entry.EvidenceID,
		Sequence:    sequence,
		Kind:        entry.Kind,
		ActorRole:   entry.Actor.Role,
		ActorName:   entry.Actor.Name,
		ToRole:      entry.ToRole,
		ToName:      entry.ToName,
		Reason:      entry.Reason,
		Notes:       entry.Notes,
		Detail:      entry.Detail,
		ContentHash: entry.ContentHash,
		Matched:     copyBool(entry.Matched),
		Timestamp:   timestamp,
		PrevHash:    prevHash,
	}
	hash, err := HashEvent(event)
	if err != nil {
		return custody.LedgerEvent{}, err
	}
	event.Hash = hash

	txRef, err := l.reserveTxRef(event.Hash, timestamp, location{entry.EvidenceID, sequence})
	if err != nil {
		return custody.LedgerEvent{}, err
	}
	event.TxRef = txRef

	if l.journal != nil {
		if err := l.journal.Append(event); err != nil {
			l.releaseTxRef(txRef)
			l.logger.Error("journal append failed",
				"evidence_id", entry.EvidenceID,
				"kind", string(entry.Kind),
				"error", err,
			)
			return custody.LedgerEvent{}, err
		}
	}

	c.events = append(c.events, event)
	l.logger.Debug("ledger event recorded",
		"evidence_id", event.EvidenceID,
		"sequence", event.Sequence,
		"kind", string(event.Kind),
		"tx_ref", event.TxRef,
	)
	return copyEvent(event), nil
}

// EventsFor returns a copy of the chain for evidenceID in order. An
// unknown id yields an empty slice.
func (l *Ledger) EventsFor(evidenceID string) []custody.LedgerEvent {
	c := l.lookupChain(evidenceID)
	if c == nil {
		return []custody.LedgerEvent{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	events := make([]custody.LedgerEvent, len(c.events))
	for i, event := range c.events {
		events[i] = copyEvent(event)
	}
	return events
}

// Head returns the hash of the last event in the chain and whether the
// chain has any events.
func (l *Ledger) Head(evidenceID string) (string, bool) {
	c := l.lookupChain(evidenceID)
	if c == nil {
		return "", false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.events) == 0 {
		return "", false
	}
	return c.events[len(c.events)-1].Hash, true
}

// Lookup returns the event identified by txRef.
func (l *Ledger) Lookup(txRef string) (custody.LedgerEvent, bool) {
	l.mu.Lock()
	where, ok := l.txIndex[txRef]
	c := l.chains[where.evidenceID]
	l.mu.Unlock()
	if !ok || c == nil {
		return custody.LedgerEvent{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	// A reserved tx_ref whose event has not been committed yet is
	// not visible.
	if where.sequence >= uint64(len(c.events)) {
		return custody.LedgerEvent{}, false
	}
	return copyEvent(c.events[where.sequence]), true
}

// chainFor returns the chain for evidenceID, creating an empty one
// when create is set.
func (l *Ledger) chainFor(evidenceID string, create bool) (*chain, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.chains[evidenceID]
	if ok {
		return c, nil
	}
	if !create {
		return nil, fmt.Errorf("%w: %s has no created event", ErrChainState, evidenceID)
	}
	c = &chain{}
	l.chains[evidenceID] = c
	return c, nil
}

func (l *Ledger) lookupChain(evidenceID string) *chain {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.chains[evidenceID]
}

// chainsSnapshot returns the chains keyed by evidence id.
func (l *Ledger) chainsSnapshot() map[string]*chain {
	l.mu.Lock()
	defer l.mu.Unlock()
	snapshot := make(map[string]*chain, len(l.chains))
	for id, c := range l.chains {
		snapshot[id] = c
	}
	return snapshot
}

func copyBool(value *bool) *bool {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}

func copyEvent(event custody.LedgerEvent) custody.LedgerEvent {
	event.Matched = copyBool(event.Matched)
	return event
}
