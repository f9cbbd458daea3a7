// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the small command framework behind the custody CLI:
// a tree of [Command] values dispatched by name, pflag flag sets
// created on demand, structured help, and typo suggestions for unknown
// commands and flags.
package cli
