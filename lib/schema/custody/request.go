// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package custody

import (
	"fmt"
	"strings"
)

// RegisterRequest carries a new evidence file and its metadata.
type RegisterRequest struct {
	Data             []byte `json:"data"`
	OriginalFilename string `json:"original_filename"`
	CaseID           string `json:"case_id"`
	EvidenceType     string `json:"evidence_type"`
	Description      string `json:"description"`
	Notes            string `json:"notes,omitempty"`
}

// Validate checks required fields. It does not consider the actor.
func (r RegisterRequest) Validate() error {
	if len(r.Data) == 0 {
		return fmt.Errorf("evidence file is empty")
	}
	if err := requireFields(map[string]string{
		"original_filename": r.OriginalFilename,
		"case_id":           r.CaseID,
		"evidence_type":     r.EvidenceType,
		"description":       r.Description,
	}, "original_filename", "case_id", "evidence_type", "description"); err != nil {
		return err
	}
	if strings.ContainsAny(r.OriginalFilename, "/\\\x00") {
		return fmt.Errorf("original_filename %q must be a bare file name", r.OriginalFilename)
	}
	return nil
}

// TransferRequest moves custody to a new holder.
type TransferRequest struct {
	ToRole Role   `json:"to_role"`
	ToName string `json:"to_name"`
	Reason string `json:"reason"`
	Notes  string `json:"notes,omitempty"`
}

// Validate checks the recipient and reason.
func (r TransferRequest) Validate() error {
	if !r.ToRole.Valid() {
		return fmt.Errorf("to_role %q is not a known role", r.ToRole)
	}
	return requireFields(map[string]string{
		"to_name": r.ToName,
		"reason":  r.Reason,
	}, "to_name", "reason")
}

// Recipient returns the custodian the transfer moves to.
func (r TransferRequest) Recipient() Custodian {
	return Custodian{Role: r.ToRole, Name: r.ToName}
}

// ListFilter narrows a listing. Zero fields match everything.
type ListFilter struct {
	CaseID    string `json:"case_id,omitempty"`
	Custodian Role   `json:"custodian,omitempty"`
	Status    Status `json:"status,omitempty"`
}

// Validate rejects unknown roles and statuses.
func (f ListFilter) Validate() error {
	if f.Custodian != "" && !f.Custodian.Valid() {
		return fmt.Errorf("custodian filter %q is not a known role", f.Custodian)
	}
	if f.Status != "" && !f.Status.Valid() {
		return fmt.Errorf("status filter %q is not a known status", f.Status)
	}
	return nil
}

// Matches reports whether e passes the filter.
func (f ListFilter) Matches(e Evidence) bool {
	if f.CaseID != "" && e.CaseID != f.CaseID {
		return false
	}
	if f.Custodian != "" && e.Custodian.Role != f.Custodian {
		return false
	}
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	return true
}

// Search result limits.
const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
)

// SearchRequest asks for evidence ranked by relevance to Query. The
// embedded filter narrows the candidates before ranking.
type SearchRequest struct {
	Query string `json:"query"`

	// Limit defaults to DefaultSearchLimit.
	Limit int `json:"limit,omitempty"`

	ListFilter
}

// Validate requires a query and a limit within range.
func (r SearchRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return fmt.Errorf("query is required")
	}
	if r.Limit < 0 || r.Limit > MaxSearchLimit {
		return fmt.Errorf("limit must be between 0 and %d, got %d", MaxSearchLimit, r.Limit)
	}
	return r.ListFilter.Validate()
}

// SearchHit is one ranked search result.
type SearchHit struct {
	Summary Summary `json:"summary"`
	Score   float64 `json:"score"`
}

// ExportRequest asks for a sealed copy of an evidence item for an
// external recipient.
type ExportRequest struct {
	// Recipients are age public keys ("age1...").
	Recipients []string `json:"recipients"`
	Purpose    string   `json:"purpose"`
}

// Validate checks that a purpose and at least one recipient are given.
func (r ExportRequest) Validate() error {
	if strings.TrimSpace(r.Purpose) == "" {
		return fmt.Errorf("purpose is required")
	}
	if len(r.Recipients) == 0 {
		return fmt.Errorf("at least one recipient is required")
	}
	for index, recipient := range r.Recipients {
		if strings.TrimSpace(recipient) == "" {
			return fmt.Errorf("recipient %d is empty", index)
		}
	}
	return nil
}

// ExportBundle is the plaintext of an export before sealing.
type ExportBundle struct {
	Evidence Evidence      `json:"evidence"`
	Content  []byte        `json:"content"`
	Events   []LedgerEvent `json:"events"`
	Purpose  string        `json:"purpose"`
}

// ExportResult is a sealed export and the tx_ref of the access event
// that recorded it.
type ExportResult struct {
	EvidenceID string `json:"evidence_id"`
	Bundle     []byte `json:"bundle"`
	TxRef      string `json:"tx_ref"`
}

// AccessResult is a full evidence read and the event that audited it.
type AccessResult struct {
	Evidence Evidence    `json:"evidence"`
	Event    LedgerEvent `json:"event"`
}

// requireFields returns an error naming the first empty field in order.
func requireFields(values map[string]string, order ...string) error {
	for _, name := range order {
		if strings.TrimSpace(values[name]) == "" {
			return fmt.Errorf("%s is required", name)
		}
	}
	return nil
}
