// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package service provides the transport scaffolding of the custody
// service: a CBOR request-response server on a Unix socket, its
// client, an HTTP server with graceful shutdown, token authentication
// shared by both surfaces, and the standard logger.
//
// Each socket connection carries exactly one request and one response.
// A request is a CBOR map with an "action" field and, for
// authenticated actions, a "token" field holding raw service token
// bytes. A response is a [Response] envelope.
//
// Services compose these pieces in their own main function; the
// package provides building blocks, not a runtime.
package service
