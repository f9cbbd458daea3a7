// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package custody

import (
	"fmt"
	"time"
)

// EventKind classifies a ledger event.
type EventKind string

const (
	EventCreated     EventKind = "created"
	EventAccessed    EventKind = "accessed"
	EventTransferred EventKind = "transferred"
	EventVerified    EventKind = "verified"
)

// Valid reports whether k is a known event kind.
func (k EventKind) Valid() bool {
	switch k {
	case EventCreated, EventAccessed, EventTransferred, EventVerified:
		return true
	}
	return false
}

func (k EventKind) String() string { return string(k) }

// ZeroHash is the prev_hash of the first event in every chain.
const ZeroHash = "0000000000000000000000000000000000000000000000000000000000000000"

// LedgerEvent is one immutable entry in an evidence item's chain.
//
// Hash covers every field except Hash and TxRef. PrevHash is the Hash
// of the event at Sequence-1, or [ZeroHash] at sequence 0.
type LedgerEvent struct {
	EventID    string    `json:"event_id"`
	EvidenceID string    `json:"evidence_id"`
	Sequence   uint64    `json:"sequence"`
	Kind       EventKind `json:"kind"`
	ActorRole  Role      `json:"actor_role"`
	ActorName  string    `json:"actor_name"`

	// ToRole, ToName, Reason and Notes describe a transfer.
	ToRole Role   `json:"to_role,omitempty"`
	ToName string `json:"to_name,omitempty"`
	Reason string `json:"reason,omitempty"`
	Notes  string `json:"notes,omitempty"`

	Detail string `json:"detail"`

	// ContentHash is the anchor hash on created events and the
	// recomputed candidate on verified events.
	ContentHash string `json:"content_hash,omitempty"`

	// Matched is set on verified events only.
	Matched *bool `json:"matched,omitempty"`

	Timestamp time.Time `json:"timestamp"`
	PrevHash  string    `json:"prev_hash"`
	Hash      string    `json:"hash"`
	TxRef     string    `json:"tx_ref"`
}

// Unsealed returns a copy of e with Hash and TxRef cleared: the value
// that the event hash is computed over.
func (e LedgerEvent) Unsealed() LedgerEvent {
	e.Hash = ""
	e.TxRef = ""
	if e.Matched != nil {
		matched := *e.Matched
		e.Matched = &matched
	}
	return e
}

func (e LedgerEvent) String() string {
	return fmt.Sprintf("%s#%d %s by %s (%s)", e.EvidenceID, e.Sequence, e.Kind, e.ActorName, e.ActorRole)
}

// AccessLogEntry mirrors one ledger write for operational queries. It
// is a secondary index; the ledger is authoritative.
type AccessLogEntry struct {
	ID         int64     `json:"id"`
	EvidenceID string    `json:"evidence_id"`
	EventKind  EventKind `json:"event_kind"`
	ActorRole  Role      `json:"actor_role"`
	ActorName  string    `json:"actor_name"`
	Detail     string    `json:"detail"`
	Timestamp  time.Time `json:"timestamp"`
	TxRef      string    `json:"tx_ref"`
}

// AccessLogEntryFor builds the access-log row mirroring event.
func AccessLogEntryFor(event LedgerEvent) AccessLogEntry {
	return AccessLogEntry{
		EvidenceID: event.EvidenceID,
		EventKind:  event.Kind,
		ActorRole:  event.ActorRole,
		ActorName:  event.ActorName,
		Detail:     event.Detail,
		Timestamp:  event.Timestamp,
		TxRef:      event.TxRef,
	}
}

// TimelineItem is one row of a custody history.
type TimelineItem struct {
	Event     EventKind `json:"event"`
	ActorRole Role      `json:"actor_role"`
	ActorName string    `json:"actor_name"`
	Details   string    `json:"details"`
	Timestamp time.Time `json:"timestamp"`
	Hash      string    `json:"hash"`
	TxRef     string    `json:"tx_ref"`
}

// TimelineItemFor projects a ledger event into a timeline row. For
// transfers the actor columns name the recipient and the details are
// the transfer reason; for verifications the details are "match" or
// "mismatch".
func TimelineItemFor(event LedgerEvent) TimelineItem {
	item := TimelineItem{
		Event:     event.Kind,
		ActorRole: event.ActorRole,
		ActorName: event.ActorName,
		Details:   event.Detail,
		Timestamp: event.Timestamp,
		Hash:      event.Hash,
		TxRef:     event.TxRef,
	}
	switch event.Kind {
	case EventTransferred:
		item.ActorRole = event.ToRole
		item.ActorName = event.ToName
		item.Details = event.Reason
	case EventVerified:
		if event.Matched != nil && *event.Matched {
			item.Details = DetailMatch
		} else {
			item.Details = DetailMismatch
		}
	}
	return item
}

// CustodyHistory is the ordered timeline of an evidence item.
type CustodyHistory struct {
	EvidenceID  string         `json:"evidence_id"`
	Timeline    []TimelineItem `json:"timeline"`
	ChainIntact bool           `json:"chain_intact"`
	HeadHash    string         `json:"head_hash"`
}

// Verification outcomes.
const (
	OutcomeMatch              = "match"
	OutcomeMismatch           = "mismatch"
	OutcomeStorageUnavailable = "storage_unavailable"
)

// Verification detail strings recorded on verified events.
const (
	DetailMatch    = "match"
	DetailMismatch = "mismatch"
)

// Verification messages.
const (
	MessageMatch    = "Integrity verified - hash matches"
	MessageMismatch = "INTEGRITY ALERT - hash mismatch detected"
)

// VerificationResult reports one integrity check. Outcome is
// [OutcomeStorageUnavailable] when the stored bytes could not be read;
// in that case no ledger event was written and TxRef is empty.
type VerificationResult struct {
	EvidenceID   string    `json:"evidence_id"`
	Filename     string    `json:"filename"`
	Outcome      string    `json:"outcome"`
	Matched      bool      `json:"matched"`
	OriginalHash string    `json:"original_hash"`
	CurrentHash  string    `json:"current_hash,omitempty"`
	TxRef        string    `json:"tx_ref,omitempty"`
	Message      string    `json:"message"`
	Error        string    `json:"error,omitempty"`
	VerifiedAt   time.Time `json:"verified_at"`
}
