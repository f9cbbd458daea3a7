// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds key material in memory outside the Go heap.
//
// [Buffer] allocates with mmap(MAP_ANONYMOUS), locks the pages with
// mlock so they never reach swap, and marks them MADV_DONTDUMP so they
// are excluded from core dumps. Close zeroes, unlocks, and unmaps. The
// custody service keeps the content-store master key and decrypted
// age identities in Buffers for the lifetime of their use.
//
// [ReadKeyFile] loads a fixed-size key from disk in either raw or hex
// form; [ReadFromPath] loads a variable-length secret (an age identity
// line) from a file or stdin.
//
// Depends on golang.org/x/sys/unix only.
package secret
