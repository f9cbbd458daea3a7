// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"time"

	"github.com/bureau-foundation/custody/lib/codec"
	"github.com/bureau-foundation/custody/lib/digest"
	"github.com/bureau-foundation/custody/lib/schema/custody"
)

// HashEvent returns the event-domain hash of event with Hash and TxRef
// excluded, as 64 lowercase hex characters.
func HashEvent(event custody.LedgerEvent) (string, error) {
	encoded, err := codec.Marshal(event.Unsealed())
	if err != nil {
		return "", fmt.Errorf("encoding event for hashing: %w", err)
	}
	return digest.Sum(digest.Event, encoded).String(), nil
}

// TxRefLength is the length of a tx_ref: "0x" and 32 hex characters.
const TxRefLength = 2 + 32

var txRefPattern = regexp.MustCompile(`^0x[0-9a-f]{32}$`)

// ValidTxRef reports whether s has the shape of a tx_ref.
func ValidTxRef(s string) bool {
	return txRefPattern.MatchString(s)
}

// txRefInput is hashed to produce a tx_ref. The nonce is unique per
// ledger, the random bytes are unique across ledgers.
type txRefInput struct {
	EventHash string `json:"event_hash"`
	Nonce     uint64 `json:"nonce"`
	Random    []byte `json:"random"`
	Nanos     int64  `json:"nanos"`
}

func mintTxRef(eventHash string, nonce uint64, timestamp time.Time) (string, error) {
	input := txRefInput{
		EventHash: eventHash,
		Nonce:     nonce,
		Random:    make([]byte, 16),
		Nanos:     timestamp.UnixNano(),
	}
	if _, err := rand.Read(input.Random); err != nil {
		return "", fmt.Errorf("generating tx_ref randomness: %w", err)
	}
	encoded, err := codec.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("encoding tx_ref input: %w", err)
	}
	sum := digest.Sum(digest.TxRef, encoded)
	return "0x" + hex.EncodeToString(sum[:16]), nil
}

// maxTxRefAttempts bounds re-minting on index collision.
const maxTxRefAttempts = 4

// reserveTxRef mints a tx_ref not yet present in the index and
// records it for where.
func (l *Ledger) reserveTxRef(eventHash string, timestamp time.Time, where location) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for range maxTxRefAttempts {
		l.nonce++
		txRef, err := mintTxRef(eventHash, l.nonce, timestamp)
		if err != nil {
			return "", err
		}
		if _, taken := l.txIndex[txRef]; taken {
			l.logger.Warn("tx_ref collision, re-minting", "tx_ref", txRef)
			continue
		}
		l.txIndex[txRef] = where
		return txRef, nil
	}
	return "", fmt.Errorf("could not mint a unique tx_ref after %d attempts", maxTxRefAttempts)
}

func (l *Ledger) releaseTxRef(txRef string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.txIndex, txRef)
}
