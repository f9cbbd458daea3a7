// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/custody/lib/codec"
	"github.com/bureau-foundation/custody/lib/custody"
	"github.com/bureau-foundation/custody/lib/ledger"
	custodyschema "github.com/bureau-foundation/custody/lib/schema/custody"
	"github.com/bureau-foundation/custody/lib/service"
	"github.com/bureau-foundation/custody/lib/servicetoken"
	"github.com/bureau-foundation/custody/lib/version"
)

// registerActions registers all socket API actions on the server.
//
// "status" is unauthenticated and reveals nothing about evidence.
// Every other action requires a valid custody token, and the actor
// recorded in the ledger is the one the token names.
func (s *CustodyService) registerActions(server *service.SocketServer) {
	server.Handle("status", s.handleStatus)

	server.HandleAuth("register", s.handleRegister)
	server.HandleAuth("show", s.handleShow)
	server.HandleAuth("access", s.handleAccess)
	server.HandleAuth("list", s.handleList)
	server.HandleAuth("transfer", s.handleTransfer)
	server.HandleAuth("verify", s.handleVerify)
	server.HandleAuth("events", s.handleEvents)
	server.HandleAuth("history", s.handleHistory)
	server.HandleAuth("search", s.handleSearch)
	server.HandleAuth("export", s.handleExport)
	server.HandleAuth("checkpoint", s.handleCheckpoint)
	server.HandleAuth("tx", s.handleTx)
	server.HandleAuth("audit", s.handleAudit)

	server.RegisterRevocationHandler()
}

// --- Request types ---
//
// The "action" and "token" fields are handled by the socket server.

type evidenceRequest struct {
	ID string `cbor:"id"`
}

type transferRequest struct {
	ID     string             `cbor:"id"`
	ToRole custodyschema.Role `cbor:"to_role"`
	ToName string             `cbor:"to_name"`
	Reason string             `cbor:"reason"`
	Notes  string             `cbor:"notes,omitempty"`
}

type exportRequest struct {
	ID         string   `cbor:"id"`
	Recipients []string `cbor:"recipients"`
	Purpose    string   `cbor:"purpose"`
}

type txRequest struct {
	TxRef string `cbor:"tx_ref"`
}

// auditRequest selects access-log rows by evidence id or by actor
// role. Exactly one must be set.
type auditRequest struct {
	EvidenceID string             `cbor:"evidence_id,omitempty"`
	Role       custodyschema.Role `cbor:"role,omitempty"`
}

// --- Response types ---

type statusResponse struct {
	UptimeSeconds float64             `cbor:"uptime_seconds"`
	Build         version.BuildReport `cbor:"build"`
}

type auditResponse struct {
	Entries []custodyschema.AccessLogEntry `cbor:"entries"`
	Total   int64                          `cbor:"total"`
}

func decodeRequest(raw []byte, target any) error {
	if err := codec.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("%w: invalid request: %v", custody.ErrValidation, err)
	}
	return nil
}

func (s *CustodyService) handleStatus(ctx context.Context, raw []byte) (any, error) {
	return statusResponse{
		UptimeSeconds: s.clock.Now().Sub(s.startedAt).Seconds(),
		Build:         version.Report(),
	}, nil
}

func (s *CustodyService) handleRegister(ctx context.Context, token *servicetoken.Token, raw []byte) (any, error) {
	var request custodyschema.RegisterRequest
	if err := decodeRequest(raw, &request); err != nil {
		return nil, err
	}
	return s.engine.Register(ctx, request, token.Actor())
}

func (s *CustodyService) handleShow(ctx context.Context, token *servicetoken.Token, raw []byte) (any, error) {
	var request evidenceRequest
	if err := decodeRequest(raw, &request); err != nil {
		return nil, err
	}
	return s.engine.Get(ctx, request.ID, token.Actor())
}

func (s *CustodyService) handleAccess(ctx context.Context, token *servicetoken.Token, raw []byte) (any, error) {
	var request evidenceRequest
	if err := decodeRequest(raw, &request); err != nil {
		return nil, err
	}
	return s.engine.Access(ctx, request.ID, token.Actor())
}

func (s *CustodyService) handleList(ctx context.Context, token *servicetoken.Token, raw []byte) (any, error) {
	var filter custodyschema.ListFilter
	if err := decodeRequest(raw, &filter); err != nil {
		return nil, err
	}
	summaries, err := s.engine.List(ctx, filter, token.Actor())
	if err != nil {
		return nil, err
	}
	if summaries == nil {
		summaries = []custodyschema.Summary{}
	}
	return summaries, nil
}

func (s *CustodyService) handleSearch(ctx context.Context, token *servicetoken.Token, raw []byte) (any, error) {
	var request custodyschema.SearchRequest
	if err := decodeRequest(raw, &request); err != nil {
		return nil, err
	}
	hits, err := s.engine.Search(ctx, request, token.Actor())
	if err != nil {
		return nil, err
	}
	if hits == nil {
		hits = []custodyschema.SearchHit{}
	}
	return hits, nil
}

func (s *CustodyService) handleTransfer(ctx context.Context, token *servicetoken.Token, raw []byte) (any, error) {
	var request transferRequest
	if err := decodeRequest(raw, &request); err != nil {
		return nil, err
	}
	return s.engine.TransferCustody(ctx, request.ID, custodyschema.TransferRequest{
		ToRole: request.ToRole,
		ToName: request.ToName,
		Reason: request.Reason,
		Notes:  request.Notes,
	}, token.Actor())
}

func (s *CustodyService) handleVerify(ctx context.Context, token *servicetoken.Token, raw []byte) (any, error) {
	var request evidenceRequest
	if err := decodeRequest(raw, &request); err != nil {
		return nil, err
	}
	return s.engine.VerifyIntegrity(ctx, request.ID, token.Actor())
}

func (s *CustodyService) handleEvents(ctx context.Context, token *servicetoken.Token, raw []byte) (any, error) {
	var request evidenceRequest
	if err := decodeRequest(raw, &request); err != nil {
		return nil, err
	}
	return s.engine.Events(ctx, request.ID, token.Actor())
}

func (s *CustodyService) handleHistory(ctx context.Context, token *servicetoken.Token, raw []byte) (any, error) {
	var request evidenceRequest
	if err := decodeRequest(raw, &request); err != nil {
		return nil, err
	}
	return s.engine.History(ctx, request.ID, token.Actor())
}

func (s *CustodyService) handleExport(ctx context.Context, token *servicetoken.Token, raw []byte) (any, error) {
	var request exportRequest
	if err := decodeRequest(raw, &request); err != nil {
		return nil, err
	}
	return s.engine.Export(ctx, request.ID, custodyschema.ExportRequest{
		Recipients: request.Recipients,
		Purpose:    request.Purpose,
	}, token.Actor())
}

func (s *CustodyService) handleCheckpoint(ctx context.Context, token *servicetoken.Token, raw []byte) (any, error) {
	return s.checkpoint(), nil
}

func (s *CustodyService) handleTx(ctx context.Context, token *servicetoken.Token, raw []byte) (any, error) {
	var request txRequest
	if err := decodeRequest(raw, &request); err != nil {
		return nil, err
	}
	return s.engine.LookupTx(ctx, request.TxRef, token.Actor())
}

func (s *CustodyService) handleAudit(ctx context.Context, token *servicetoken.Token, raw []byte) (any, error) {
	var request auditRequest
	if err := decodeRequest(raw, &request); err != nil {
		return nil, err
	}
	return s.audit(ctx, request)
}

// checkpoint returns the ledger's Merkle checkpoint.
func (s *CustodyService) checkpoint() ledger.Checkpoint {
	return s.engine.Checkpoint()
}

// audit queries the access log. The log is a mirror of the ledger, so
// an unconfigured log is reported as unavailable storage.
func (s *CustodyService) audit(ctx context.Context, request auditRequest) (auditResponse, error) {
	if s.accessLog == nil {
		return auditResponse{}, fmt.Errorf("%w: access log is not configured", custody.ErrStorageUnavailable)
	}
	if (request.EvidenceID == "") == (request.Role == "") {
		return auditResponse{}, fmt.Errorf("%w: exactly one of evidence_id or role is required", custody.ErrValidation)
	}

	var (
		entries []custodyschema.AccessLogEntry
		err     error
	)
	if request.EvidenceID != "" {
		entries, err = s.accessLog.ForEvidence(ctx, request.EvidenceID)
	} else {
		if !request.Role.Valid() {
			return auditResponse{}, fmt.Errorf("%w: role %q is not a known role", custody.ErrValidation, request.Role)
		}
		entries, err = s.accessLog.ByActorRole(ctx, request.Role)
	}
	if err != nil {
		return auditResponse{}, fmt.Errorf("%w: %v", custody.ErrStorageUnavailable, err)
	}
	total, err := s.accessLog.Count(ctx)
	if err != nil {
		return auditResponse{}, fmt.Errorf("%w: %v", custody.ErrStorageUnavailable, err)
	}
	if entries == nil {
		entries = []custodyschema.AccessLogEntry{}
	}
	return auditResponse{Entries: entries, Total: total}, nil
}
