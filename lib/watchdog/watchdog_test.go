// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package watchdog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bureau-foundation/custody/lib/clock"
	"github.com/bureau-foundation/custody/lib/ledger"
	"github.com/bureau-foundation/custody/lib/schema/custody"
)

var epoch = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func TestStartStop(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)

	previous, found, err := Start(path, State{PID: 100, Version: "v1", StartedAt: epoch})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if found {
		t.Errorf("first Start found previous state %+v", previous)
	}

	seal := &Seal{Events: 3, Root: "abc"}
	if err := Stop(path, epoch.Add(time.Hour), seal); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	previous, found, err = Start(path, State{PID: 200, Version: "v2", StartedAt: epoch.Add(2 * time.Hour)})
	if err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if !found || !previous.Clean() {
		t.Fatalf("previous = %+v found %v, want a clean stop", previous, found)
	}
	if previous.PID != 100 || !previous.StoppedAt.Equal(epoch.Add(time.Hour)) {
		t.Errorf("previous = %+v", previous)
	}

	current, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if current.Clean() {
		t.Error("running state reports a clean stop")
	}
	if current.Journal == nil || *current.Journal != *seal {
		t.Errorf("Journal = %v, want seal carried over from the previous run", current.Journal)
	}
}

func TestStartAfterCrash(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if _, _, err := Start(path, State{PID: 100, StartedAt: epoch}); err != nil {
		t.Fatal(err)
	}
	// No Stop: the process died.
	previous, found, err := Start(path, State{PID: 101, StartedAt: epoch.Add(time.Minute)})
	if err != nil {
		t.Fatal(err)
	}
	if !found || previous.Clean() {
		t.Errorf("previous = %+v found %v, want an unclean run", previous, found)
	}
}

func TestStopWithoutSealKeepsPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	seal := Seal{Events: 1, Root: "r"}
	if err := Write(path, State{PID: 1, StartedAt: epoch, Journal: &seal}); err != nil {
		t.Fatal(err)
	}
	if err := Stop(path, epoch.Add(time.Minute), nil); err != nil {
		t.Fatal(err)
	}
	state, err := Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if state.Journal == nil || *state.Journal != seal {
		t.Errorf("Journal = %v, want %v", state.Journal, seal)
	}
}

func TestWriteIsPrivateAndLeavesNoTemporary(t *testing.T) {
	directory := t.TempDir()
	path := filepath.Join(directory, FileName)
	if err := Write(path, State{PID: 1, StartedAt: epoch}); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if mode := info.Mode().Perm(); mode != 0o600 {
		t.Errorf("mode = %o, want 600", mode)
	}
	if _, err := os.Stat(path + ".tmp"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("temporary file left behind: %v", err)
	}
}

func TestReadMissing(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), FileName))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Read of missing file: %v, want os.ErrNotExist", err)
	}
}

func TestReadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(path); err == nil {
		t.Error("Read of corrupt file succeeded")
	}
	if _, _, err := Start(path, State{PID: 1}); err == nil {
		t.Error("Start over a corrupt file succeeded")
	}
}

func TestVerifySeal(t *testing.T) {
	l := ledger.New(ledger.Config{Clock: clock.Fake(epoch)})
	actor := custody.Actor{ID: "u-1", Role: custody.RolePolice, Name: "Officer Diaz"}
	record := func(kind custody.EventKind) {
		t.Helper()
		_, err := l.Record(context.Background(), ledger.Entry{
			EvidenceID:  "EVD-00000001",
			Kind:        kind,
			Actor:       actor,
			ContentHash: "1111111111111111111111111111111111111111111111111111111111111111",
		})
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	record(custody.EventCreated)
	record(custody.EventAccessed)
	sealed := l.EventsFor("EVD-00000001")
	seal := SealJournal(sealed)

	if err := VerifySeal(seal, sealed); err != nil {
		t.Errorf("VerifySeal on the sealed events: %v", err)
	}

	record(custody.EventAccessed)
	if err := VerifySeal(seal, l.EventsFor("EVD-00000001")); err != nil {
		t.Errorf("VerifySeal after an append: %v", err)
	}

	if err := VerifySeal(seal, sealed[:1]); !errors.Is(err, ErrSealMismatch) {
		t.Errorf("VerifySeal on a truncated journal: %v, want ErrSealMismatch", err)
	}

	rewritten := append([]custody.LedgerEvent(nil), sealed...)
	rewritten[1].Hash = "2222222222222222222222222222222222222222222222222222222222222222"
	if err := VerifySeal(seal, rewritten); !errors.Is(err, ErrSealMismatch) {
		t.Errorf("VerifySeal on a rewritten journal: %v, want ErrSealMismatch", err)
	}
}
