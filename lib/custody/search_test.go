// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package custody

import (
	"context"
	"errors"
	"testing"

	custodyschema "github.com/bureau-foundation/custody/lib/schema/custody"
)

func TestSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	register := func(description, evidenceType, filename, caseID string) custodyschema.Evidence {
		t.Helper()
		evidence, err := f.engine.Register(ctx, custodyschema.RegisterRequest{
			Data:             []byte(description),
			OriginalFilename: filename,
			CaseID:           caseID,
			EvidenceType:     evidenceType,
			Description:      description,
			Notes:            "fingerprint pending",
		}, officer)
		if err != nil {
			t.Fatalf("Register: %v", err)
		}
		return evidence
	}
	window := register("Broken rear window", "photo", "window.jpg", "CASE-2026-114")
	glass := register("Glass shards below the window", "physical", "glass.txt", "CASE-2026-114")
	statement := register("Bank statement for March", "document", "statement.pdf", "CASE-2026-220")
	before := f.engine.Checkpoint().Events

	hits, err := f.engine.Search(ctx, custodyschema.SearchRequest{Query: "window"}, judge)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 || hits[0].Summary.ID != window.ID || hits[1].Summary.ID != glass.ID {
		t.Fatalf("Search(window) = %+v, want %s then %s", hits, window.ID, glass.ID)
	}
	if hits[0].Score <= hits[1].Score {
		t.Errorf("scores %f, %f not descending", hits[0].Score, hits[1].Score)
	}

	hits, err = f.engine.Search(ctx, custodyschema.SearchRequest{Query: "220"}, judge)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].Summary.ID != statement.ID {
		t.Errorf("Search(220) = %+v, want only %s", hits, statement.ID)
	}

	filtered := custodyschema.SearchRequest{Query: "window", ListFilter: custodyschema.ListFilter{CaseID: "CASE-2026-220"}}
	if hits, err := f.engine.Search(ctx, filtered, judge); err != nil || len(hits) != 0 {
		t.Errorf("filtered Search = %+v, %v, want no hits", hits, err)
	}

	if hits, err := f.engine.Search(ctx, custodyschema.SearchRequest{Query: "fingerprint"}, judge); err != nil || len(hits) != 0 {
		t.Errorf("Search matched notes: %+v, %v", hits, err)
	}

	if hits, err := f.engine.Search(ctx, custodyschema.SearchRequest{Query: "window", Limit: 1}, judge); err != nil || len(hits) != 1 {
		t.Errorf("limited Search = %+v, %v, want 1 hit", hits, err)
	}

	if after := f.engine.Checkpoint().Events; after != before {
		t.Errorf("Search recorded events: %d before, %d after", before, after)
	}
}

func TestSearchValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, request := range []custodyschema.SearchRequest{
		{Query: "  "},
		{Query: "window", Limit: custodyschema.MaxSearchLimit + 1},
		{Query: "window", ListFilter: custodyschema.ListFilter{Status: "lost"}},
	} {
		if _, err := f.engine.Search(ctx, request, judge); !errors.Is(err, ErrValidation) {
			t.Errorf("Search(%+v) error = %v, want ErrValidation", request, err)
		}
	}
	anonymous := custodyschema.Actor{Role: custodyschema.RoleJudge}
	if _, err := f.engine.Search(ctx, custodyschema.SearchRequest{Query: "window"}, anonymous); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Search by invalid actor: %v, want ErrUnauthorized", err)
	}
}
