// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/custody/lib/codec"
	"github.com/bureau-foundation/custody/lib/schema/custody"
)

// Journal record framing:
//
//	[length: uint32 big-endian][CBOR LedgerEvent][CRC-32C of the CBOR: uint32 big-endian]
const frameOverhead = 8

// maxFrameSize bounds a single encoded event.
const maxFrameSize = 1 << 20

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// journalFile is the part of *os.File a Journal writes through.
type journalFile interface {
	io.Writer
	Sync() error
	Truncate(size int64) error
	Close() error
}

// Journal is an append-only file of ledger events. The file is held
// under an exclusive flock for the lifetime of the Journal, so at most
// one process writes it. Safe for concurrent use.
//
// A failed append is rolled back to the last complete frame and the
// journal refuses further appends, so the file always ends on a frame
// boundary.
type Journal struct {
	path string

	mu     sync.Mutex
	file   journalFile
	size   int64
	failed error
	closed bool
}

// OpenJournal opens or creates the journal at path for appending.
// Returns an ErrJournal error if another writer holds the lock.
func OpenJournal(path string) (*Journal, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", ErrJournal, path, err)
	}
	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		file.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%w: %s is locked by another writer", ErrJournal, path)
		}
		return nil, fmt.Errorf("%w: locking %s: %v", ErrJournal, path, err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%w: stat %s: %v", ErrJournal, path, err)
	}
	return &Journal{path: path, file: file, size: info.Size()}, nil
}

// Path returns the journal file path.
func (j *Journal) Path() string { return j.path }

// Append writes one framed event and syncs the file.
func (j *Journal) Append(event custody.LedgerEvent) error {
	frame, err := encodeFrame(event)
	if err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return fmt.Errorf("%w: %s is closed", ErrJournal, j.path)
	}
	if j.failed != nil {
		return fmt.Errorf("%w: %s stopped after an earlier failure: %v", ErrJournal, j.path, j.failed)
	}
	if _, err := j.file.Write(frame); err != nil {
		return j.fail(fmt.Errorf("writing %s: %w", j.path, err))
	}
	if err := j.file.Sync(); err != nil {
		return j.fail(fmt.Errorf("syncing %s: %w", j.path, err))
	}
	j.size += int64(len(frame))
	return nil
}

// fail cuts the file back to the last complete frame and latches the
// journal into its failed state. Caller holds j.mu.
func (j *Journal) fail(cause error) error {
	j.failed = cause
	if err := j.file.Truncate(j.size); err != nil {
		return fmt.Errorf("%w: %v; truncating back to %d bytes: %v", ErrJournal, cause, j.size, err)
	}
	if err := j.file.Sync(); err != nil {
		return fmt.Errorf("%w: %v; syncing after truncate: %v", ErrJournal, cause, err)
	}
	return fmt.Errorf("%w: %v", ErrJournal, cause)
}

// Err returns the failure that stopped the journal, or nil.
func (j *Journal) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.failed
}

// Close releases the lock and closes the file. Idempotent.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	// Closing the descriptor releases the flock.
	if err := j.file.Close(); err != nil {
		return fmt.Errorf("%w: closing %s: %v", ErrJournal, j.path, err)
	}
	return nil
}

// ReadJournal decodes every event in the journal at path. It does not
// take the lock, so a running service's journal can be read. A
// truncated or corrupt frame is an error.
func ReadJournal(path string) ([]custody.LedgerEvent, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", ErrJournal, path, err)
	}
	defer file.Close()
	return decodeFrames(bufio.NewReader(file))
}

func encodeFrame(event custody.LedgerEvent) ([]byte, error) {
	data, err := codec.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding event: %v", ErrJournal, err)
	}
	if len(data) > maxFrameSize {
		return nil, fmt.Errorf("%w: event is %d bytes, limit %d", ErrJournal, len(data), maxFrameSize)
	}
	frame := make([]byte, 4, len(data)+frameOverhead)
	binary.BigEndian.PutUint32(frame, uint32(len(data)))
	frame = append(frame, data...)
	return binary.BigEndian.AppendUint32(frame, crc32.Checksum(data, castagnoli)), nil
}

func decodeFrames(reader io.Reader) ([]custody.LedgerEvent, error) {
	var (
		events []custody.LedgerEvent
		header [4]byte
		offset int64
	)
	for {
		if _, err := io.ReadFull(reader, header[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return events, nil
			}
			return nil, fmt.Errorf("%w: truncated frame header at offset %d", ErrJournal, offset)
		}
		length := binary.BigEndian.Uint32(header[:])
		if length == 0 || length > maxFrameSize {
			return nil, fmt.Errorf("%w: frame at offset %d has invalid length %d", ErrJournal, offset, length)
		}
		body := make([]byte, int(length)+4)
		if _, err := io.ReadFull(reader, body); err != nil {
			return nil, fmt.Errorf("%w: truncated frame at offset %d", ErrJournal, offset)
		}
		data, trailer := body[:length], body[length:]
		expected := binary.BigEndian.Uint32(trailer)
		if actual := crc32.Checksum(data, castagnoli); actual != expected {
			return nil, fmt.Errorf("%w: frame at offset %d: CRC mismatch (expected %08x, got %08x)",
				ErrJournal, offset, expected, actual)
		}
		var event custody.LedgerEvent
		if err := codec.Unmarshal(data, &event); err != nil {
			return nil, fmt.Errorf("%w: frame at offset %d: %v", ErrJournal, offset, err)
		}
		events = append(events, event)
		offset += int64(length) + frameOverhead
	}
}
