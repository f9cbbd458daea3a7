// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package accesslog

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/custody/lib/schema/custody"
)

var epoch = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

func openTestLog(t *testing.T, path string) *Log {
	t.Helper()
	log, err := Open(context.Background(), Config{Path: path})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { log.Close() })
	return log
}

func entry(evidenceID string, kind custody.EventKind, role custody.Role, n int) custody.AccessLogEntry {
	return custody.AccessLogEntry{
		EvidenceID: evidenceID,
		EventKind:  kind,
		ActorRole:  role,
		ActorName:  fmt.Sprintf("%s-%d", role, n),
		Detail:     fmt.Sprintf("detail %d", n),
		Timestamp:  epoch.Add(time.Duration(n) * time.Millisecond),
		TxRef:      fmt.Sprintf("0x%032x", n),
	}
}

func TestAppendAndQuery(t *testing.T) {
	log := openTestLog(t, filepath.Join(t.TempDir(), "access.db"))
	ctx := context.Background()

	rows := []custody.AccessLogEntry{
		entry("EVD-00000001", custody.EventCreated, custody.RolePolice, 1),
		entry("EVD-00000002", custody.EventCreated, custody.RoleForensicLab, 2),
		entry("EVD-00000001", custody.EventAccessed, custody.RoleJudge, 3),
		entry("EVD-00000001", custody.EventTransferred, custody.RolePolice, 4),
	}
	for _, row := range rows {
		stored, err := log.Append(ctx, row)
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
		if stored.ID == 0 {
			t.Error("Append did not assign a row id")
		}
	}

	first, err := log.ForEvidence(ctx, "EVD-00000001")
	if err != nil {
		t.Fatalf("ForEvidence: %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("len(ForEvidence) = %d, want 3", len(first))
	}
	wantKinds := []custody.EventKind{custody.EventCreated, custody.EventAccessed, custody.EventTransferred}
	for i, row := range first {
		if row.EventKind != wantKinds[i] {
			t.Errorf("row %d kind = %s, want %s", i, row.EventKind, wantKinds[i])
		}
	}
	if !first[0].Timestamp.Equal(rows[0].Timestamp) {
		t.Errorf("timestamp = %s, want %s", first[0].Timestamp, rows[0].Timestamp)
	}
	if first[0].TxRef != rows[0].TxRef || first[0].ActorName != rows[0].ActorName || first[0].Detail != rows[0].Detail {
		t.Errorf("row 0 = %+v, want fields of %+v", first[0], rows[0])
	}

	police, err := log.ByActorRole(ctx, custody.RolePolice)
	if err != nil {
		t.Fatalf("ByActorRole: %v", err)
	}
	if len(police) != 2 || police[0].TxRef != rows[0].TxRef || police[1].TxRef != rows[3].TxRef {
		t.Errorf("ByActorRole(police) = %+v", police)
	}

	count, err := log.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 4 {
		t.Errorf("Count = %d, want 4", count)
	}

	none, err := log.ForEvidence(ctx, "EVD-FFFFFFFF")
	if err != nil {
		t.Fatalf("ForEvidence(unknown): %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Errorf("ForEvidence(unknown) = %v, want empty slice", none)
	}
}

func TestDuplicateTxRefRejected(t *testing.T) {
	log := openTestLog(t, filepath.Join(t.TempDir(), "access.db"))
	row := entry("EVD-00000001", custody.EventCreated, custody.RolePolice, 1)
	if _, err := log.Append(context.Background(), row); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := log.Append(context.Background(), row); err == nil {
		t.Error("second Append with the same tx_ref succeeded")
	}
}

func TestOpenResetsTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.db")
	first, err := Open(context.Background(), Config{Path: path})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := first.Append(context.Background(), entry("EVD-00000001", custody.EventCreated, custody.RolePolice, 1)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second := openTestLog(t, path)
	count, err := second.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 0 {
		t.Errorf("Count after reopen = %d, want 0", count)
	}
}

func TestConcurrentAppends(t *testing.T) {
	log := openTestLog(t, filepath.Join(t.TempDir(), "access.db"))
	const writers = 4
	const perWriter = 25

	var wait sync.WaitGroup
	errs := make(chan error, writers*perWriter)
	for w := range writers {
		wait.Add(1)
		go func() {
			defer wait.Done()
			id := fmt.Sprintf("EVD-%08X", w)
			for i := range perWriter {
				if _, err := log.Append(context.Background(), entry(id, custody.EventAccessed, custody.RoleJudge, w*perWriter+i)); err != nil {
					errs <- err
				}
			}
		}()
	}
	wait.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Append: %v", err)
	}

	for w := range writers {
		rows, err := log.ForEvidence(context.Background(), fmt.Sprintf("EVD-%08X", w))
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != perWriter {
			t.Fatalf("writer %d: %d rows, want %d", w, len(rows), perWriter)
		}
		for i := 1; i < len(rows); i++ {
			if rows[i].ID <= rows[i-1].ID || !rows[i].Timestamp.After(rows[i-1].Timestamp) {
				t.Errorf("writer %d rows out of order at %d", w, i)
			}
		}
	}
}

func TestConnectionsSkipFsync(t *testing.T) {
	log := openTestLog(t, filepath.Join(t.TempDir(), "access.db"))
	synchronous := -1
	err := log.pool.With(context.Background(), func(conn *sqlite.Conn) error {
		return sqlitex.ExecuteTransient(conn, "PRAGMA synchronous", &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				synchronous = stmt.ColumnInt(0)
				return nil
			},
		})
	})
	if err != nil {
		t.Fatalf("PRAGMA synchronous: %v", err)
	}
	if synchronous != 0 {
		t.Errorf("synchronous = %d, want 0 (OFF)", synchronous)
	}
}
