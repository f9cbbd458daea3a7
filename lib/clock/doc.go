// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Every component that stamps records (ledger events, evidence
// timestamps, content-store keys, token expiry) takes a Clock instead
// of calling time.Now directly. Production code passes Real(); tests
// pass Fake() and move time explicitly with Advance or Set, which
// makes timestamp ordering assertions deterministic.
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	ledger := ledger.New(ledger.Config{Clock: c})
//	c.Advance(time.Second)
package clock
