// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package watchdog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bureau-foundation/custody/lib/ledger"
	"github.com/bureau-foundation/custody/lib/schema/custody"
)

// FileName is the run state file inside paths.state.
const FileName = "run.json"

// ErrSealMismatch is returned by VerifySeal when the journal no longer
// starts with the sealed events.
var ErrSealMismatch = errors.New("journal does not match its last seal")

// Seal pins the journal contents at a clean stop.
type Seal struct {
	Events int    `json:"events"`
	Root   string `json:"root"`
}

// SealJournal computes the seal of the given journal events.
func SealJournal(events []custody.LedgerEvent) Seal {
	checkpoint := ledger.CheckpointEvents(events, time.Time{})
	return Seal{Events: checkpoint.Events, Root: checkpoint.Root}
}

// VerifySeal checks that events begins with the sealed events.
func VerifySeal(seal Seal, events []custody.LedgerEvent) error {
	if len(events) < seal.Events {
		return fmt.Errorf("%w: sealed with %d events, journal now holds %d", ErrSealMismatch, seal.Events, len(events))
	}
	if got := SealJournal(events[:seal.Events]); got.Root != seal.Root {
		return fmt.Errorf("%w: first %d events have root %s, sealed root is %s", ErrSealMismatch, seal.Events, got.Root, seal.Root)
	}
	return nil
}

// State is the content of the run state file.
type State struct {
	PID       int       `json:"pid"`
	Version   string    `json:"version"`
	StartedAt time.Time `json:"started_at"`

	// StoppedAt is nil while the service runs.
	StoppedAt *time.Time `json:"stopped_at,omitempty"`

	// Journal is the seal from the most recent clean stop. Start
	// carries it forward so a crash does not lose it.
	Journal *Seal `json:"journal,omitempty"`
}

// Clean reports whether the run that wrote the state stopped cleanly.
func (s State) Clean() bool {
	return s.StoppedAt != nil
}

// Start records a new run in the file at path. It returns the state
// left by the previous run, if any. The previous journal seal carries
// over into the new state.
func Start(path string, current State) (previous State, found bool, err error) {
	previous, err = Read(path)
	switch {
	case err == nil:
		found = true
		current.Journal = previous.Journal
	case !errors.Is(err, os.ErrNotExist):
		return State{}, false, err
	}
	current.StoppedAt = nil
	if err := Write(path, current); err != nil {
		return State{}, false, err
	}
	return previous, found, nil
}

// Stop marks the run in the file at path as cleanly stopped. A nil
// seal keeps the previous one.
func Stop(path string, at time.Time, seal *Seal) error {
	state, err := Read(path)
	if err != nil {
		return err
	}
	at = at.UTC()
	state.StoppedAt = &at
	if seal != nil {
		state.Journal = seal
	}
	return Write(path, state)
}

// Write atomically replaces the state file at path with mode 0600.
// The parent directory must exist.
func Write(path string, state State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling run state: %w", err)
	}
	data = append(data, '\n')

	temporaryPath := path + ".tmp"
	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating temporary run state file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("writing run state: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("syncing run state: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing run state: %w", err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("renaming run state into place: %w", err)
	}

	if directory, err := os.Open(filepath.Dir(path)); err == nil {
		directory.Sync()
		directory.Close()
	}
	return nil
}

// Read parses the state file at path. A missing file yields an error
// wrapping os.ErrNotExist.
func Read(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return State{}, err
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("parsing run state %s: %w", path, err)
	}
	return state, nil
}
