// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// custody is the operator CLI for the evidence custody service.
//
// Evidence commands talk to a running custody-service over its Unix
// socket and authenticate with a token file minted by "custody token
// mint". Token, journal, and key commands work directly on the files
// named in the service configuration and need no running service.
//
// Output is a styled table on a terminal, plain aligned text when
// piped, and JSON with --json.
package main
