// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// custody-service is the evidence chain-of-custody service. It holds
// the custody engine in memory and serves it on two surfaces:
//
//   - a CBOR Unix socket (one request per connection, the same
//     protocol as every lib/service socket), used by the custody CLI
//   - an optional JSON HTTP API under /api/evidence/, for browser and
//     scripted clients
//
// Both surfaces authenticate callers with Ed25519 service tokens
// signed by the keypair in paths.state. The keypair is generated on
// first start; "custody token mint" issues tokens from the same
// directory.
//
// The ledger journal and the SQLite access log are write-side audit
// artifacts. The service does not replay them at startup: every start
// begins with an empty custody engine.
//
// Usage:
//
//	custody-service --config /etc/custody/custody.yaml
package main
