// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package digest provides domain-separated BLAKE3 hashing for custody
// data: evidence content hashes, ledger event hashes, transaction
// references, and Merkle checkpoints over chain heads.
//
// Every hash is computed in BLAKE3 keyed mode. The key is the ASCII
// name of the domain zero-padded to 32 bytes, so identical bytes hash
// differently in different domains and the keys stay readable in a
// hex dump.
package digest

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Size is the length of every digest in bytes.
const Size = 32

// Hash is a 32-byte BLAKE3 digest.
type Hash [Size]byte

// Domain is a 32-byte BLAKE3 key naming a hash context.
type Domain [Size]byte

// NewDomain builds a Domain from its ASCII name. Panics if the name
// does not fit in 32 bytes; domains are package-level constants.
func NewDomain(name string) Domain {
	if len(name) == 0 || len(name) > Size {
		panic(fmt.Sprintf("digest: domain name %q must be 1-%d bytes", name, Size))
	}
	var domain Domain
	copy(domain[:], name)
	return domain
}

// Domains used by the custody service. Changing any of these
// invalidates every hash previously computed in that domain.
var (
	Content    = NewDomain("custody.evidence.content")
	Event      = NewDomain("custody.ledger.event")
	TxRef      = NewDomain("custody.ledger.txref")
	Checkpoint = NewDomain("custody.ledger.checkpoint")
)

// Sum returns the keyed hash of data in domain.
func Sum(domain Domain, data []byte) Hash {
	hasher := newHasher(domain)
	hasher.Write(data)
	var result Hash
	copy(result[:], hasher.Sum(nil))
	return result
}

// MerkleRoot computes a binary Merkle tree over leaves and returns its
// root. Adjacent pairs are concatenated and hashed in domain; an odd
// node at the end of a level is promoted unchanged rather than
// duplicated. A single leaf is its own root. Returns the zero Hash for
// no leaves.
func MerkleRoot(domain Domain, leaves []Hash) Hash {
	if len(leaves) == 0 {
		return Hash{}
	}
	hasher := newHasher(domain)
	var combined [2 * Size]byte

	level := make([]Hash, len(leaves))
	copy(level, leaves)
	for len(level) > 1 {
		next := make([]Hash, (len(level)+1)/2)
		for i := 0; i+1 < len(level); i += 2 {
			copy(combined[:Size], level[i][:])
			copy(combined[Size:], level[i+1][:])
			hasher.Reset()
			hasher.Write(combined[:])
			copy(next[i/2][:], hasher.Sum(nil))
		}
		if len(level)%2 == 1 {
			next[len(next)-1] = level[len(level)-1]
		}
		level = next
	}
	return level[0]
}

// String returns the lowercase hex form of h.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is all zero bytes.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// Parse decodes a 64-character hex string.
func Parse(s string) (Hash, error) {
	var hash Hash
	if len(s) != 2*Size {
		return hash, fmt.Errorf("digest %q is %d characters, want %d", s, len(s), 2*Size)
	}
	if _, err := hex.Decode(hash[:], []byte(s)); err != nil {
		return hash, fmt.Errorf("parsing digest: %w", err)
	}
	return hash, nil
}

func newHasher(domain Domain) *blake3.Hasher {
	hasher, err := blake3.NewKeyed(domain[:])
	if err != nil {
		// NewKeyed only rejects keys that are not 32 bytes.
		panic("digest: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	return hasher
}
