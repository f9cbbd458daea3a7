// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package custody

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/custody/lib/clock"
	"github.com/bureau-foundation/custody/lib/contentstore"
	"github.com/bureau-foundation/custody/lib/ledger"
	custodyschema "github.com/bureau-foundation/custody/lib/schema/custody"
)

// AccessLog receives a copy of every committed ledger event.
// *accesslog.Log implements it.
type AccessLog interface {
	Append(ctx context.Context, entry custodyschema.AccessLogEntry) (custodyschema.AccessLogEntry, error)
}

// Config holds the collaborators of an [Engine].
type Config struct {
	// Store holds evidence bytes. Required.
	Store contentstore.Store

	// Ledger records every event. Required.
	Ledger *ledger.Ledger

	// AccessLog is optional.
	AccessLog AccessLog

	// Clock defaults to clock.Real().
	Clock clock.Clock

	// Logger defaults to a discard logger.
	Logger *slog.Logger
}

// Engine is the custody engine. Safe for concurrent use.
type Engine struct {
	store     contentstore.Store
	ledger    *ledger.Ledger
	accessLog AccessLog
	clock     clock.Clock
	logger    *slog.Logger

	mu      sync.RWMutex
	records map[string]*record
}

// record is one evidence item. mu guards evidence.
type record struct {
	mu       sync.RWMutex
	evidence custodyschema.Evidence
}

// New returns an engine with no evidence.
func New(config Config) (*Engine, error) {
	if config.Store == nil {
		return nil, fmt.Errorf("custody engine: Store is required")
	}
	if config.Ledger == nil {
		return nil, fmt.Errorf("custody engine: Ledger is required")
	}
	engine := &Engine{
		store:     config.Store,
		ledger:    config.Ledger,
		accessLog: config.AccessLog,
		clock:     config.Clock,
		logger:    config.Logger,
		records:   make(map[string]*record),
	}
	if engine.clock == nil {
		engine.clock = clock.Real()
	}
	if engine.logger == nil {
		engine.logger = slog.New(slog.DiscardHandler)
	}
	return engine, nil
}

// Len returns the number of registered evidence items.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.records)
}

// Checkpoint returns the ledger's current Merkle checkpoint.
func (e *Engine) Checkpoint() ledger.Checkpoint {
	return e.ledger.Checkpoint()
}

func (e *Engine) lookup(id string) (*record, error) {
	e.mu.RLock()
	r, ok := e.records[id]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: evidence %s", ErrNotFound, id)
	}
	return r, nil
}

// publish inserts a newly registered record. Returns false if the id
// is already taken.
func (e *Engine) publish(r *record) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, taken := e.records[r.evidence.ID]; taken {
		return false
	}
	e.records[r.evidence.ID] = r
	return true
}

func (e *Engine) idTaken(id string) bool {
	e.mu.RLock()
	_, taken := e.records[id]
	e.mu.RUnlock()
	if taken {
		return true
	}
	_, hasChain := e.ledger.Head(id)
	return hasChain
}

func (e *Engine) snapshot() []*record {
	e.mu.RLock()
	defer e.mu.RUnlock()
	records := make([]*record, 0, len(e.records))
	for _, r := range e.records {
		records = append(records, r)
	}
	return records
}

// commit appends entry to the ledger and mirrors the committed event
// to the access log.
func (e *Engine) commit(ctx context.Context, entry ledger.Entry) (custodyschema.LedgerEvent, error) {
	event, err := e.ledger.Record(ctx, entry)
	if err != nil {
		return custodyschema.LedgerEvent{}, fmt.Errorf("%w: %v", ErrLedgerWrite, err)
	}
	e.mirror(ctx, event)
	return event, nil
}

// mirror copies event into the access log. Failures are logged; the
// ledger is authoritative.
func (e *Engine) mirror(ctx context.Context, event custodyschema.LedgerEvent) {
	if e.accessLog == nil {
		return
	}
	if _, err := e.accessLog.Append(ctx, custodyschema.AccessLogEntryFor(event)); err != nil {
		e.logger.Warn("access log mirror failed",
			"evidence_id", event.EvidenceID,
			"tx_ref", event.TxRef,
			"error", err,
		)
	}
}

func validateActor(actor custodyschema.Actor) error {
	if err := actor.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return nil
}
