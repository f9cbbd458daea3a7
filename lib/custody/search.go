// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package custody

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/custody/lib/bm25"
	custodyschema "github.com/bureau-foundation/custody/lib/schema/custody"
)

// Field weights for evidence search.
const (
	weightDescription = 3
	weightType        = 2
	weightFilename    = 2
	weightCase        = 2
)

// Search ranks evidence by relevance of its description, type,
// original filename, and case id to the query. Like List it records no
// event and returns summaries only. Notes are not searched.
func (e *Engine) Search(ctx context.Context, request custodyschema.SearchRequest, actor custodyschema.Actor) ([]custodyschema.SearchHit, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	if err := request.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit := request.Limit
	if limit == 0 {
		limit = custodyschema.DefaultSearchLimit
	}

	summaries := make(map[string]custodyschema.Summary)
	var documents []bm25.Document
	for _, r := range e.snapshot() {
		r.mu.RLock()
		evidence := r.evidence
		r.mu.RUnlock()
		if !request.ListFilter.Matches(evidence) {
			continue
		}
		summaries[evidence.ID] = evidence.Summary()
		documents = append(documents, bm25.Document{
			ID: evidence.ID,
			Fields: []bm25.Field{
				{Text: evidence.Description, Weight: weightDescription},
				{Text: evidence.EvidenceType, Weight: weightType},
				{Text: evidence.OriginalFilename, Weight: weightFilename},
				{Text: evidence.CaseID, Weight: weightCase},
			},
		})
	}

	results := bm25.New(documents).Search(request.Query, limit)
	hits := make([]custodyschema.SearchHit, len(results))
	for i, result := range results {
		hits[i] = custodyschema.SearchHit{Summary: summaries[result.ID], Score: result.Score}
	}
	return hits, nil
}
