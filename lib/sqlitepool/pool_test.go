// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sqlitepool_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/custody/lib/sqlitepool"
)

const numbersSchema = `CREATE TABLE IF NOT EXISTS numbers (value INTEGER NOT NULL);`

func TestPragmasApplied(t *testing.T) {
	pool := openTestPool(t, nil)
	err := pool.With(context.Background(), func(conn *sqlite.Conn) error {
		var journalMode string
		err := sqlitex.Execute(conn, "PRAGMA journal_mode", &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				journalMode = stmt.ColumnText(0)
				return nil
			},
		})
		if err != nil {
			return err
		}
		if journalMode != "wal" {
			t.Errorf("journal_mode = %q, want %q", journalMode, "wal")
		}

		var synchronous int
		err = sqlitex.Execute(conn, "PRAGMA synchronous", &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				synchronous = stmt.ColumnInt(0)
				return nil
			},
		})
		if err != nil {
			return err
		}
		if synchronous != 1 {
			t.Errorf("synchronous = %d, want 1 (NORMAL)", synchronous)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("With: %v", err)
	}
}

func TestOnConnectRuns(t *testing.T) {
	var called bool
	pool := openTestPool(t, func(conn *sqlite.Conn) error {
		called = true
		return sqlitex.ExecuteScript(conn, numbersSchema, nil)
	})
	err := pool.With(context.Background(), func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, "INSERT INTO numbers (value) VALUES (?)", &sqlitex.ExecOptions{
			Args: []any{7},
		})
	})
	if err != nil {
		t.Fatalf("INSERT: %v", err)
	}
	if !called {
		t.Error("OnConnect was not called")
	}
}

func TestImmediateCommitsAndRollsBack(t *testing.T) {
	pool := openTestPool(t, func(conn *sqlite.Conn) error {
		return sqlitex.ExecuteScript(conn, numbersSchema, nil)
	})
	ctx := context.Background()

	err := pool.Immediate(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, "INSERT INTO numbers (value) VALUES (1)", nil)
	})
	if err != nil {
		t.Fatalf("Immediate(commit): %v", err)
	}

	failure := errors.New("abort")
	err = pool.Immediate(ctx, func(conn *sqlite.Conn) error {
		if err := sqlitex.Execute(conn, "INSERT INTO numbers (value) VALUES (2)", nil); err != nil {
			return err
		}
		return failure
	})
	if !errors.Is(err, failure) {
		t.Fatalf("Immediate(rollback) = %v, want %v", err, failure)
	}

	var count int
	err = pool.With(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, "SELECT count(*) FROM numbers", &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				count = stmt.ColumnInt(0)
				return nil
			},
		})
	})
	if err != nil {
		t.Fatalf("SELECT: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1 (rolled-back insert must not persist)", count)
	}
}

func TestConcurrentReads(t *testing.T) {
	pool := openTestPool(t, func(conn *sqlite.Conn) error {
		return sqlitex.ExecuteScript(conn, numbersSchema, nil)
	})
	err := pool.With(context.Background(), func(conn *sqlite.Conn) error {
		return sqlitex.ExecuteScript(conn, "INSERT INTO numbers (value) VALUES (1), (2), (3), (4), (5);", nil)
	})
	if err != nil {
		t.Fatalf("INSERT: %v", err)
	}

	const goroutineCount = 8
	var waitGroup sync.WaitGroup
	errs := make(chan error, goroutineCount)
	for range goroutineCount {
		waitGroup.Add(1)
		go func() {
			defer waitGroup.Done()
			var sum int64
			err := pool.With(context.Background(), func(conn *sqlite.Conn) error {
				return sqlitex.Execute(conn, "SELECT value FROM numbers", &sqlitex.ExecOptions{
					ResultFunc: func(stmt *sqlite.Stmt) error {
						sum += stmt.ColumnInt64(0)
						return nil
					},
				})
			})
			if err != nil {
				errs <- err
				return
			}
			if sum != 15 {
				errs <- fmt.Errorf("sum = %d, want 15", sum)
			}
		}()
	}
	waitGroup.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestEmptyPathRejected(t *testing.T) {
	if _, err := sqlitepool.Open(sqlitepool.Config{}); err == nil {
		t.Fatal("expected error for empty Path")
	}
}

func TestTakeHonoursCancellation(t *testing.T) {
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     filepath.Join(t.TempDir(), "cancel.db"),
		PoolSize: 1,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer pool.Close()

	conn, err := pool.Take(context.Background())
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	defer pool.Put(conn)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := pool.Take(ctx); err == nil {
		t.Fatal("Take on an exhausted pool with a cancelled context succeeded")
	}
}

func openTestPool(t *testing.T, onConnect func(*sqlite.Conn) error) *sqlitepool.Pool {
	t.Helper()
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:      filepath.Join(t.TempDir(), "test.db"),
		OnConnect: onConnect,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := pool.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return pool
}
