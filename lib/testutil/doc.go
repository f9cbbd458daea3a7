// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [SocketDir] creates a short temporary directory in /tmp for Unix
// domain sockets; t.TempDir() paths can exceed the 108-byte sun_path
// limit. [RequireReceive] and [RequireClosed] wrap the select-with-
// timeout pattern so tests never block forever on a channel.
// [UniqueID] returns monotonically increasing identifiers for test
// disambiguation.
//
// All helpers call t.Fatalf on failure.
package testutil
