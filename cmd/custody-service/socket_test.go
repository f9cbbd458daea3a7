// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bureau-foundation/custody/lib/custody"
	"github.com/bureau-foundation/custody/lib/ledger"
	custodyschema "github.com/bureau-foundation/custody/lib/schema/custody"
	"github.com/bureau-foundation/custody/lib/sealed"
	"github.com/bureau-foundation/custody/lib/service"
	"github.com/bureau-foundation/custody/lib/servicetoken"
)

func registerFields(data, caseID string) map[string]any {
	return map[string]any{
		"data":              []byte(data),
		"original_filename": "knife.jpg",
		"case_id":           caseID,
		"evidence_type":     "photo",
		"description":       "Knife recovered at the scene",
	}
}

func requireKind(t *testing.T, err error, kind string) {
	t.Helper()
	var serviceErr *service.ServiceError
	if !errors.As(err, &serviceErr) {
		t.Fatalf("error = %v, want *service.ServiceError with kind %q", err, kind)
	}
	if serviceErr.Kind != kind {
		t.Fatalf("kind = %q (%s), want %q", serviceErr.Kind, serviceErr.Message, kind)
	}
}

func TestSocketCustodyRoundTrip(t *testing.T) {
	h := newTestHarness(t)
	h.serve(t)
	ctx := context.Background()

	officer := h.client(t, custodyschema.RolePolice, "Officer Diaz")
	analyst := h.client(t, custodyschema.RoleForensicLab, "Dr. Okafor")

	var evidence custodyschema.Evidence
	if err := officer.Call(ctx, "register", registerFields("knife photo", "CASE-1"), &evidence); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := custodyschema.ValidateEvidenceID(evidence.ID); err != nil {
		t.Fatalf("register returned bad id: %v", err)
	}
	if evidence.Custodian.Name != "Officer Diaz" {
		t.Errorf("Custodian = %v, want the token's actor", evidence.Custodian)
	}

	var hits []custodyschema.SearchHit
	err := analyst.Call(ctx, "search", map[string]any{"query": "knife", "case_id": "CASE-1"}, &hits)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || hits[0].Summary.ID != evidence.ID {
		t.Errorf("search = %+v, want %s", hits, evidence.ID)
	}

	var transferred custodyschema.Evidence
	err = officer.Call(ctx, "transfer", map[string]any{
		"id":      evidence.ID,
		"to_role": custodyschema.RoleForensicLab,
		"to_name": "Dr. Okafor",
		"reason":  "Fingerprint analysis",
	}, &transferred)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if transferred.Status != custodyschema.StatusTransferred {
		t.Errorf("Status = %s, want %s", transferred.Status, custodyschema.StatusTransferred)
	}

	var result custodyschema.VerificationResult
	if err := analyst.Call(ctx, "verify", map[string]any{"id": evidence.ID}, &result); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !result.Matched || result.Outcome != custodyschema.OutcomeMatch {
		t.Errorf("verify = %+v, want a match", result)
	}

	var history custodyschema.CustodyHistory
	if err := analyst.Call(ctx, "history", map[string]any{"id": evidence.ID}, &history); err != nil {
		t.Fatalf("history: %v", err)
	}
	if !history.ChainIntact {
		t.Error("ChainIntact = false")
	}
	wantEvents := []custodyschema.EventKind{
		custodyschema.EventCreated,
		custodyschema.EventTransferred,
		custodyschema.EventVerified,
	}
	if len(history.Timeline) != len(wantEvents) {
		t.Fatalf("timeline has %d rows, want %d", len(history.Timeline), len(wantEvents))
	}
	for i, want := range wantEvents {
		if history.Timeline[i].Event != want {
			t.Errorf("timeline[%d] = %s, want %s", i, history.Timeline[i].Event, want)
		}
	}

	var event custodyschema.LedgerEvent
	if err := analyst.Call(ctx, "tx", map[string]any{"tx_ref": result.TxRef}, &event); err != nil {
		t.Fatalf("tx: %v", err)
	}
	if event.Kind != custodyschema.EventVerified || event.EvidenceID != evidence.ID {
		t.Errorf("tx lookup = %v", event)
	}

	var checkpoint ledger.Checkpoint
	if err := analyst.Call(ctx, "checkpoint", nil, &checkpoint); err != nil {
		t.Fatalf("checkpoint: %v", err)
	}
	if checkpoint.Chains != 1 || checkpoint.Events != 3 {
		t.Errorf("checkpoint = %+v, want 1 chain with 3 events", checkpoint)
	}
}

func TestSocketStatusIsUnauthenticated(t *testing.T) {
	h := newTestHarness(t)
	h.serve(t)
	h.clock.Advance(90 * time.Second)

	var status statusResponse
	client := service.NewServiceClientFromToken(h.socketPath, nil)
	if err := client.Call(context.Background(), "status", nil, &status); err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.UptimeSeconds != 90 {
		t.Errorf("UptimeSeconds = %v, want 90", status.UptimeSeconds)
	}
	if status.Build.Version == "" {
		t.Error("Build.Version is empty")
	}

	err := client.Call(context.Background(), "list", nil, nil)
	requireKind(t, err, service.KindUnauthenticated)
}

func TestSocketErrorKinds(t *testing.T) {
	h := newTestHarness(t)
	h.serve(t)
	ctx := context.Background()

	officer := h.client(t, custodyschema.RolePolice, "Officer Diaz")
	judge := h.client(t, custodyschema.RoleJudge, "Judge Amari")

	requireKind(t, judge.Call(ctx, "register", registerFields("x", "CASE-1"), nil), custody.KindUnauthorized)
	requireKind(t, officer.Call(ctx, "show", map[string]any{"id": "EVD-00000000"}, nil), custody.KindNotFound)
	requireKind(t, officer.Call(ctx, "register", registerFields("", "CASE-1"), nil), custody.KindValidation)

	var evidence custodyschema.Evidence
	if err := officer.Call(ctx, "register", registerFields("bytes", "CASE-1"), &evidence); err != nil {
		t.Fatalf("register: %v", err)
	}
	h.store.Remove(evidence.StoredFilename)
	requireKind(t, officer.Call(ctx, "export", map[string]any{
		"id":         evidence.ID,
		"recipients": []string{"not-an-age-key"},
		"purpose":    "court",
	}, nil), custody.KindValidation)

	var result custodyschema.VerificationResult
	if err := officer.Call(ctx, "verify", map[string]any{"id": evidence.ID}, &result); err != nil {
		t.Fatalf("verify with missing bytes: %v", err)
	}
	if result.Outcome != custodyschema.OutcomeStorageUnavailable {
		t.Errorf("Outcome = %q, want %q", result.Outcome, custodyschema.OutcomeStorageUnavailable)
	}
}

func TestSocketRevokedTokenIsRejected(t *testing.T) {
	h := newTestHarness(t)
	h.serve(t)
	ctx := context.Background()

	token, tokenBytes, err := servicetoken.Issue(h.privateKey, servicetoken.Claims{
		Subject: "badge-9",
		Role:    custodyschema.RolePolice,
		Name:    "Officer Lee",
	}, time.Hour, h.clock.Now())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	client := service.NewServiceClientFromToken(h.socketPath, tokenBytes)
	if err := client.Call(ctx, "list", nil, nil); err != nil {
		t.Fatalf("list before revocation: %v", err)
	}

	revocation, err := servicetoken.SignRevocation(h.privateKey, servicetoken.RevocationFor("badge lost", h.clock.Now().Unix(), token))
	if err != nil {
		t.Fatalf("SignRevocation: %v", err)
	}
	var revoked struct {
		Revoked int `cbor:"revoked"`
	}
	anonymous := service.NewServiceClientFromToken(h.socketPath, nil)
	if err := anonymous.Call(ctx, "revoke-tokens", map[string]any{"revocation": revocation}, &revoked); err != nil {
		t.Fatalf("revoke-tokens: %v", err)
	}
	if revoked.Revoked != 1 {
		t.Errorf("revoked = %d, want 1", revoked.Revoked)
	}

	requireKind(t, client.Call(ctx, "list", nil, nil), service.KindUnauthenticated)
}

func TestSocketExportAndAudit(t *testing.T) {
	h := newTestHarness(t)
	h.serve(t)
	ctx := context.Background()

	officer := h.client(t, custodyschema.RolePolice, "Officer Diaz")
	var evidence custodyschema.Evidence
	if err := officer.Call(ctx, "register", registerFields("ledger of payments", "CASE-3"), &evidence); err != nil {
		t.Fatalf("register: %v", err)
	}

	keypair, err := sealed.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	defer keypair.Close()

	var exported custodyschema.ExportResult
	err = officer.Call(ctx, "export", map[string]any{
		"id":         evidence.ID,
		"recipients": []string{keypair.PublicKey},
		"purpose":    "Defense discovery",
	}, &exported)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	bundle, err := custody.OpenExport(exported.Bundle, keypair)
	if err != nil {
		t.Fatalf("OpenExport: %v", err)
	}
	if string(bundle.Content) != "ledger of payments" {
		t.Errorf("bundle content = %q", bundle.Content)
	}

	var audit auditResponse
	if err := officer.Call(ctx, "audit", map[string]any{"evidence_id": evidence.ID}, &audit); err != nil {
		t.Fatalf("audit: %v", err)
	}
	if len(audit.Entries) != 2 {
		t.Fatalf("audit has %d entries, want 2 (created, accessed)", len(audit.Entries))
	}
	if audit.Entries[1].EventKind != custodyschema.EventAccessed {
		t.Errorf("entries[1].EventKind = %s, want accessed", audit.Entries[1].EventKind)
	}
	if audit.Entries[1].TxRef != exported.TxRef {
		t.Errorf("entries[1].TxRef = %s, want %s", audit.Entries[1].TxRef, exported.TxRef)
	}
	if audit.Total != 2 {
		t.Errorf("Total = %d, want 2", audit.Total)
	}

	requireKind(t, officer.Call(ctx, "audit", map[string]any{}, nil), custody.KindValidation)
	requireKind(t, officer.Call(ctx, "audit", map[string]any{"role": "janitor"}, nil), custody.KindValidation)
}
