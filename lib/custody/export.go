// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package custody

import (
	"context"
	"fmt"
	"strings"

	"github.com/bureau-foundation/custody/lib/codec"
	"github.com/bureau-foundation/custody/lib/ledger"
	custodyschema "github.com/bureau-foundation/custody/lib/schema/custody"
	"github.com/bureau-foundation/custody/lib/sealed"
)

// Export packages an evidence item (record, content, and chain) as a
// CBOR bundle sealed to external age recipients, for sharing with
// another jurisdiction. Only the current custodian may export. The
// export is recorded as an accessed event; the bundle's chain ends at
// the event before it.
func (e *Engine) Export(ctx context.Context, id string, request custodyschema.ExportRequest, actor custodyschema.Actor) (custodyschema.ExportResult, error) {
	if err := validateActor(actor); err != nil {
		return custodyschema.ExportResult{}, err
	}
	if err := request.Validate(); err != nil {
		return custodyschema.ExportResult{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if _, err := sealed.ParseRecipients(request.Recipients); err != nil {
		return custodyschema.ExportResult{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	r, err := e.lookup(id)
	if err != nil {
		return custodyschema.ExportResult{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	evidence := r.evidence
	if actor.Role != evidence.Custodian.Role {
		return custodyschema.ExportResult{}, fmt.Errorf("%w: only the current custodian (%s) may export %s",
			ErrUnauthorized, evidence.Custodian.Role, id)
	}

	content, err := e.store.Get(ctx, evidence.StoredFilename)
	if err != nil {
		return custodyschema.ExportResult{}, fmt.Errorf("%w: reading %s: %v", ErrStorageUnavailable, id, err)
	}
	bundle, err := codec.Marshal(custodyschema.ExportBundle{
		Evidence: evidence,
		Content:  content,
		Events:   e.ledger.EventsFor(id),
		Purpose:  strings.TrimSpace(request.Purpose),
	})
	if err != nil {
		return custodyschema.ExportResult{}, fmt.Errorf("encoding export bundle: %w", err)
	}
	sealedBundle, err := sealed.Seal(bundle, request.Recipients)
	if err != nil {
		return custodyschema.ExportResult{}, fmt.Errorf("sealing export bundle: %w", err)
	}

	event, err := e.commit(ctx, ledger.Entry{
		EvidenceID: id,
		Kind:       custodyschema.EventAccessed,
		Actor:      actor,
		Detail:     "Evidence exported: " + strings.TrimSpace(request.Purpose),
	})
	if err != nil {
		return custodyschema.ExportResult{}, err
	}
	e.logger.Info("evidence exported",
		"evidence_id", id,
		"recipients", len(request.Recipients),
		"tx_ref", event.TxRef,
	)
	return custodyschema.ExportResult{EvidenceID: id, Bundle: sealedBundle, TxRef: event.TxRef}, nil
}

// OpenExport decrypts and decodes a sealed export bundle.
func OpenExport(sealedBundle []byte, keypair *sealed.Keypair) (custodyschema.ExportBundle, error) {
	plaintext, err := sealed.Open(sealedBundle, keypair.PrivateKey)
	if err != nil {
		return custodyschema.ExportBundle{}, err
	}
	defer plaintext.Close()
	var bundle custodyschema.ExportBundle
	if err := codec.Unmarshal(plaintext.Bytes(), &bundle); err != nil {
		return custodyschema.ExportBundle{}, fmt.Errorf("decoding export bundle: %w", err)
	}
	return bundle, nil
}
