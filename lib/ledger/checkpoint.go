// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"slices"
	"strconv"
	"time"

	"github.com/bureau-foundation/custody/lib/digest"
	"github.com/bureau-foundation/custody/lib/schema/custody"
)

// Checkpoint summarizes the whole ledger in one hash. Two ledgers with
// the same chains produce the same Root; any change to any event
// changes it.
type Checkpoint struct {
	Root   string    `json:"root"`
	Chains int       `json:"chains"`
	Events int       `json:"events"`
	At     time.Time `json:"at"`
}

// Checkpoint computes a Merkle root over the head hash of every chain,
// ordered by evidence id. Each leaf binds the evidence id and chain
// length to the head so that heads cannot be shuffled between ids.
func (l *Ledger) Checkpoint() Checkpoint {
	chains := l.chainsSnapshot()
	heads := make(map[string]chainHead, len(chains))
	for id, c := range chains {
		c.mu.RLock()
		if length := len(c.events); length > 0 {
			heads[id] = chainHead{length: length, hash: c.events[length-1].Hash}
		}
		c.mu.RUnlock()
	}
	return checkpointOf(heads, l.clock.Now().UTC())
}

// CheckpointEvents computes the checkpoint of a flat event list, such
// as the contents of a journal. Events of one chain must appear in
// sequence order. The result equals Ledger.Checkpoint for a ledger
// holding exactly these events.
func CheckpointEvents(events []custody.LedgerEvent, at time.Time) Checkpoint {
	heads := make(map[string]chainHead)
	for _, event := range events {
		head := heads[event.EvidenceID]
		head.length++
		head.hash = event.Hash
		heads[event.EvidenceID] = head
	}
	return checkpointOf(heads, at.UTC())
}

type chainHead struct {
	length int
	hash   string
}

func checkpointOf(heads map[string]chainHead, at time.Time) Checkpoint {
	ids := make([]string, 0, len(heads))
	for id := range heads {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	checkpoint := Checkpoint{Root: custody.ZeroHash, At: at}
	if len(ids) == 0 {
		return checkpoint
	}
	leaves := make([]digest.Hash, 0, len(ids))
	for _, id := range ids {
		head := heads[id]
		leaves = append(leaves, checkpointLeaf(id, head.length, head.hash))
		checkpoint.Chains++
		checkpoint.Events += head.length
	}
	checkpoint.Root = digest.MerkleRoot(digest.Checkpoint, leaves).String()
	return checkpoint
}

func checkpointLeaf(evidenceID string, length int, head string) digest.Hash {
	buffer := make([]byte, 0, len(evidenceID)+len(head)+24)
	buffer = append(buffer, evidenceID...)
	buffer = append(buffer, 0)
	buffer = strconv.AppendInt(buffer, int64(length), 10)
	buffer = append(buffer, 0)
	buffer = append(buffer, head...)
	return digest.Sum(digest.Checkpoint, buffer)
}
