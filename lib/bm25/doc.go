// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package bm25 ranks documents against free-text queries with Okapi
// BM25. The custody engine uses it to search evidence descriptions,
// types, filenames, and case ids.
//
// A field's weight repeats its tokens in the composite document, so a
// weight-3 description term counts three times as much as a weight-1
// term. An [Index] is immutable once built and safe for concurrent
// searches.
package bm25
