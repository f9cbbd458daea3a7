// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package contentstore holds the bytes of registered evidence files.
//
// A [Store] accepts raw bytes and returns a storage key and the
// content hash of exactly those bytes. [FileStore] keeps one blob per
// key on disk, compressed with zstd or LZ4 when that shrinks the data
// and optionally sealed with XChaCha20-Poly1305 under a per-blob key
// derived from a master key. [MemoryStore] keeps bytes in a map and is
// used by tests and by services started without a store directory.
//
// Content hashes are always computed over the uncompressed plaintext,
// so the hash recorded at registration can be recomputed from what
// [Store.Get] returns regardless of how the blob was encoded.
package contentstore
