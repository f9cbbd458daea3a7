// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package custody defines the domain and wire types of the evidence
// chain-of-custody service: roles and actors, the evidence record and
// its status machine, ledger events, access-log rows, history
// projections, and the request/response structures carried by the
// socket and HTTP surfaces.
//
// Struct tags are JSON tags. The CBOR codec in lib/codec honours them,
// so one set of field names serves the HTTP surface, the socket
// protocol, the journal, and event hashing.
//
// This package depends on no other custody packages.
package custody
