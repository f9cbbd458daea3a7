// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/bureau-foundation/custody/lib/custody"
	custodyschema "github.com/bureau-foundation/custody/lib/schema/custody"
	"github.com/bureau-foundation/custody/lib/service"
	"github.com/bureau-foundation/custody/lib/version"
)

// uploadMemory is how much of a multipart upload is buffered in memory
// before spilling to temporary files. The body itself is bounded by
// the HTTP server.
const uploadMemory = 8 << 20

// actionHandler serves one authenticated route. The returned value is
// written as JSON with the returned status code.
type actionHandler func(request *http.Request, actor custodyschema.Actor) (any, int, error)

// httpHandler returns the JSON API.
func (s *CustodyService) httpHandler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	mux.Handle("POST /api/evidence/upload", s.authenticated(s.httpUpload))
	mux.Handle("GET /api/evidence/{$}", s.authenticated(s.httpList))
	mux.Handle("GET /api/evidence/search", s.authenticated(s.httpSearch))
	mux.Handle("GET /api/evidence/{id}", s.authenticated(s.httpAccess))
	mux.Handle("POST /api/evidence/{id}/access", s.authenticated(s.httpAccess))
	mux.Handle("POST /api/evidence/{id}/transfer", s.authenticated(s.httpTransfer))
	mux.Handle("POST /api/evidence/{id}/verify", s.authenticated(s.httpVerify))
	mux.Handle("POST /api/evidence/{id}/export", s.authenticated(s.httpExport))
	mux.Handle("GET /api/evidence/{id}/history", s.authenticated(s.httpHistory))
	mux.Handle("GET /api/evidence/{id}/events", s.authenticated(s.httpEvents))
	mux.Handle("GET /api/tx/{tx_ref}", s.authenticated(s.httpTx))
	mux.Handle("GET /api/checkpoint", s.authenticated(s.httpCheckpoint))

	return mux
}

func (s *CustodyService) handleHealth(writer http.ResponseWriter, request *http.Request) {
	writeJSON(writer, http.StatusOK, map[string]any{
		"status":         "healthy",
		"uptime_seconds": s.clock.Now().Sub(s.startedAt).Seconds(),
		"build":          version.Report(),
	})
}

// authenticated verifies the bearer token and passes the actor it
// names to handler.
func (s *CustodyService) authenticated(handler actionHandler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		token, err := s.auth.AuthenticateRequest(request)
		if err != nil {
			s.writeError(writer, request, err)
			return
		}
		result, status, err := handler(request, token.Actor())
		if err != nil {
			s.writeError(writer, request, err)
			return
		}
		writeJSON(writer, status, result)
	})
}

func (s *CustodyService) httpUpload(request *http.Request, actor custodyschema.Actor) (any, int, error) {
	if err := request.ParseMultipartForm(uploadMemory); err != nil {
		return nil, 0, fmt.Errorf("%w: parsing upload: %v", custody.ErrValidation, err)
	}
	file, header, err := request.FormFile("file")
	if err != nil {
		return nil, 0, fmt.Errorf("%w: no file uploaded", custody.ErrValidation)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: reading upload: %v", custody.ErrValidation, err)
	}

	evidence, err := s.engine.Register(request.Context(), custodyschema.RegisterRequest{
		Data:             data,
		OriginalFilename: header.Filename,
		CaseID:           request.FormValue("case_id"),
		EvidenceType:     request.FormValue("evidence_type"),
		Description:      request.FormValue("description"),
		Notes:            request.FormValue("notes"),
	}, actor)
	if err != nil {
		return nil, 0, err
	}
	return evidence, http.StatusCreated, nil
}

func (s *CustodyService) httpList(request *http.Request, actor custodyschema.Actor) (any, int, error) {
	query := request.URL.Query()
	summaries, err := s.engine.List(request.Context(), custodyschema.ListFilter{
		CaseID:    query.Get("case_id"),
		Custodian: custodyschema.Role(query.Get("custodian")),
		Status:    custodyschema.Status(query.Get("status")),
	}, actor)
	if err != nil {
		return nil, 0, err
	}
	if summaries == nil {
		summaries = []custodyschema.Summary{}
	}
	return summaries, http.StatusOK, nil
}

func (s *CustodyService) httpSearch(request *http.Request, actor custodyschema.Actor) (any, int, error) {
	query := request.URL.Query()
	search := custodyschema.SearchRequest{
		Query: query.Get("q"),
		ListFilter: custodyschema.ListFilter{
			CaseID:    query.Get("case_id"),
			Custodian: custodyschema.Role(query.Get("custodian")),
			Status:    custodyschema.Status(query.Get("status")),
		},
	}
	if limit := query.Get("limit"); limit != "" {
		parsed, err := strconv.Atoi(limit)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: limit %q is not a number", custody.ErrValidation, limit)
		}
		search.Limit = parsed
	}
	hits, err := s.engine.Search(request.Context(), search, actor)
	if err != nil {
		return nil, 0, err
	}
	if hits == nil {
		hits = []custodyschema.SearchHit{}
	}
	return hits, http.StatusOK, nil
}

func (s *CustodyService) httpAccess(request *http.Request, actor custodyschema.Actor) (any, int, error) {
	result, err := s.engine.Access(request.Context(), request.PathValue("id"), actor)
	return result, http.StatusOK, err
}

func (s *CustodyService) httpTransfer(request *http.Request, actor custodyschema.Actor) (any, int, error) {
	var body custodyschema.TransferRequest
	if err := decodeJSON(request, &body); err != nil {
		return nil, 0, err
	}
	evidence, err := s.engine.TransferCustody(request.Context(), request.PathValue("id"), body, actor)
	return evidence, http.StatusOK, err
}

func (s *CustodyService) httpVerify(request *http.Request, actor custodyschema.Actor) (any, int, error) {
	result, err := s.engine.VerifyIntegrity(request.Context(), request.PathValue("id"), actor)
	if err != nil {
		return nil, 0, err
	}
	if result.Outcome == custodyschema.OutcomeStorageUnavailable {
		return result, http.StatusServiceUnavailable, nil
	}
	return result, http.StatusOK, nil
}

func (s *CustodyService) httpExport(request *http.Request, actor custodyschema.Actor) (any, int, error) {
	var body custodyschema.ExportRequest
	if err := decodeJSON(request, &body); err != nil {
		return nil, 0, err
	}
	result, err := s.engine.Export(request.Context(), request.PathValue("id"), body, actor)
	return result, http.StatusOK, err
}

func (s *CustodyService) httpHistory(request *http.Request, actor custodyschema.Actor) (any, int, error) {
	history, err := s.engine.History(request.Context(), request.PathValue("id"), actor)
	return history, http.StatusOK, err
}

func (s *CustodyService) httpEvents(request *http.Request, actor custodyschema.Actor) (any, int, error) {
	events, err := s.engine.Events(request.Context(), request.PathValue("id"), actor)
	return events, http.StatusOK, err
}

func (s *CustodyService) httpTx(request *http.Request, actor custodyschema.Actor) (any, int, error) {
	event, err := s.engine.LookupTx(request.Context(), request.PathValue("tx_ref"), actor)
	return event, http.StatusOK, err
}

func (s *CustodyService) httpCheckpoint(request *http.Request, actor custodyschema.Actor) (any, int, error) {
	return s.checkpoint(), http.StatusOK, nil
}

func decodeJSON(request *http.Request, target any) error {
	decoder := json.NewDecoder(request.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", custody.ErrValidation, err)
	}
	return nil
}

// statusFor maps an error kind to an HTTP status code.
func statusFor(kind string) int {
	switch kind {
	case service.KindUnauthenticated:
		return http.StatusUnauthorized
	case custody.KindNotFound:
		return http.StatusNotFound
	case custody.KindUnauthorized:
		return http.StatusForbidden
	case custody.KindValidation:
		return http.StatusBadRequest
	case custody.KindStorageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func (s *CustodyService) writeError(writer http.ResponseWriter, request *http.Request, err error) {
	kind := custody.Kind(err)
	if errors.Is(err, service.ErrUnauthenticated) {
		kind = service.KindUnauthenticated
	}
	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		s.logger.Error("http request failed",
			"method", request.Method,
			"path", request.URL.Path,
			"kind", kind,
			"error", err,
		)
	}
	writeJSON(writer, status, errorBody{Error: err.Error(), Kind: kind})
}

func writeJSON(writer http.ResponseWriter, status int, value any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	json.NewEncoder(writer).Encode(value)
}
