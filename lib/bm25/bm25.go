// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bm25

import (
	"cmp"
	"math"
	"regexp"
	"slices"
	"strings"
)

// Okapi parameters. epsilon floors the IDF of terms present in nearly
// every document.
const (
	k1      = 1.2
	b       = 0.75
	epsilon = 0.25
)

// minTokenLength drops one-character tokens such as "a" and "x".
const minTokenLength = 2

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// Field is one weighted piece of document text. Fields with a
// non-positive weight are not indexed.
type Field struct {
	Text   string
	Weight int
}

// Document is an indexed item. ID is returned in results and is not
// itself searchable.
type Document struct {
	ID     string
	Fields []Field
}

// Result is a scored match. Higher scores rank first.
type Result struct {
	ID    string
	Score float64
}

type posting struct {
	terms  map[string]int
	length int
}

// Index is a BM25 index over a fixed document set.
type Index struct {
	ids           []string
	postings      []posting
	averageLength float64
	idf           map[string]float64
}

// New indexes documents.
func New(documents []Document) *Index {
	index := &Index{
		ids:      make([]string, len(documents)),
		postings: make([]posting, len(documents)),
		idf:      make(map[string]float64),
	}

	containing := make(map[string]int)
	total := 0
	for i, document := range documents {
		terms := make(map[string]int)
		length := 0
		for _, field := range document.Fields {
			if field.Weight <= 0 {
				continue
			}
			for _, token := range Tokenize(field.Text) {
				terms[token] += field.Weight
				length += field.Weight
			}
		}
		for term := range terms {
			containing[term]++
		}
		index.ids[i] = document.ID
		index.postings[i] = posting{terms: terms, length: length}
		total += length
	}
	if len(documents) == 0 {
		return index
	}
	index.averageLength = float64(total) / float64(len(documents))

	count := float64(len(documents))
	for term, n := range containing {
		idf := math.Log(1 + (count-float64(n)+0.5)/(float64(n)+0.5))
		if idf < 0 {
			idf = epsilon
		}
		index.idf[term] = idf
	}
	return index
}

// Len returns the number of indexed documents.
func (index *Index) Len() int {
	return len(index.ids)
}

// Search returns up to limit matches for query, best first. Equal
// scores are ordered by ID. A limit of zero or less returns every
// match. A query with no usable tokens matches nothing.
func (index *Index) Search(query string, limit int) []Result {
	tokens := Tokenize(query)
	if len(tokens) == 0 || index.averageLength == 0 {
		return nil
	}

	var results []Result
	for i := range index.postings {
		if score := index.score(i, tokens); score > 0 {
			results = append(results, Result{ID: index.ids[i], Score: score})
		}
	}
	slices.SortFunc(results, func(x, y Result) int {
		if order := cmp.Compare(y.Score, x.Score); order != 0 {
			return order
		}
		return cmp.Compare(x.ID, y.ID)
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// score is sum over query terms of
// idf * tf*(k1+1) / (tf + k1*(1 - b + b*len/avglen)).
func (index *Index) score(document int, tokens []string) float64 {
	p := index.postings[document]
	normalized := k1 * (1 - b + b*float64(p.length)/index.averageLength)

	var score float64
	for _, token := range tokens {
		frequency := float64(p.terms[token])
		if frequency == 0 {
			continue
		}
		score += index.idf[token] * frequency * (k1 + 1) / (frequency + normalized)
	}
	return score
}

// Tokenize lower-cases text and splits it into alphanumeric runs of
// at least two characters. "CASE-2026-114" yields "case", "2026",
// and "114".
func Tokenize(text string) []string {
	matches := tokenPattern.FindAllString(strings.ToLower(text), -1)
	tokens := matches[:0]
	for _, match := range matches {
		if len(match) >= minTokenLength {
			tokens = append(tokens, match)
		}
	}
	if len(tokens) == 0 {
		return nil
	}
	return tokens
}
