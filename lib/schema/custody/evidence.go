// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package custody

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EvidenceIDPrefix starts every evidence identifier.
const EvidenceIDPrefix = "EVD-"

// Evidence is a registered evidence item. Values returned by the
// engine are copies; mutating them has no effect on engine state.
type Evidence struct {
	ID               string    `json:"id"`
	CaseID           string    `json:"case_id"`
	StoredFilename   string    `json:"stored_filename"`
	OriginalFilename string    `json:"original_filename"`
	EvidenceType     string    `json:"evidence_type"`
	Description      string    `json:"description"`
	Notes            string    `json:"notes,omitempty"`
	ContentHash      string    `json:"content_hash"`
	Size             int64     `json:"size"`
	Custodian        Custodian `json:"custodian"`
	Status           Status    `json:"status"`

	// IntegrityVerified is true until a verification observes a hash
	// mismatch, and true again after a later match.
	IntegrityVerified bool `json:"integrity_verified"`

	// CreatedTx is the tx_ref of the created event. TxRef is the
	// tx_ref of the most recent mutating event.
	CreatedTx string `json:"created_tx"`
	TxRef     string `json:"tx_ref"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary returns the list projection of e.
func (e Evidence) Summary() Summary {
	return Summary{
		ID:                e.ID,
		CaseID:            e.CaseID,
		EvidenceType:      e.EvidenceType,
		OriginalFilename:  e.OriginalFilename,
		Status:            e.Status,
		Custodian:         e.Custodian,
		IntegrityVerified: e.IntegrityVerified,
		CreatedAt:         e.CreatedAt,
	}
}

// Summary is the unaudited list view of an evidence item. It carries no
// content hash, stored filename, or notes.
type Summary struct {
	ID                string    `json:"id"`
	CaseID            string    `json:"case_id"`
	EvidenceType      string    `json:"evidence_type"`
	OriginalFilename  string    `json:"original_filename"`
	Status            Status    `json:"status"`
	Custodian         Custodian `json:"custodian"`
	IntegrityVerified bool      `json:"integrity_verified"`
	CreatedAt         time.Time `json:"created_at"`
}

// NewEvidenceID returns "EVD-" followed by eight upper-case hex digits
// taken from a random UUID.
func NewEvidenceID() string {
	id := uuid.New()
	return EvidenceIDPrefix + strings.ToUpper(hex.EncodeToString(id[:4]))
}

// ValidateEvidenceID checks the shape of an evidence identifier.
func ValidateEvidenceID(id string) error {
	rest, ok := strings.CutPrefix(id, EvidenceIDPrefix)
	if !ok || len(rest) != 8 {
		return fmt.Errorf("evidence id %q is not of the form %sXXXXXXXX", id, EvidenceIDPrefix)
	}
	for _, r := range rest {
		if !(r >= '0' && r <= '9' || r >= 'A' && r <= 'F') {
			return fmt.Errorf("evidence id %q contains non-hex character %q", id, r)
		}
	}
	return nil
}
