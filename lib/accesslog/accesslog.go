// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package accesslog is a SQLite index of every ledger write, kept for
// operational queries ("what did this role touch", "who handled this
// item") that the per-evidence ledger chains answer only by scanning.
//
// The index is not authoritative. It is rebuilt empty on every Open so
// that it never describes evidence the running process does not hold.
package accesslog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/custody/lib/schema/custody"
	"github.com/bureau-foundation/custody/lib/sqlitepool"
)

const resetSchema = `
DROP TABLE IF EXISTS access_log;
CREATE TABLE access_log (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	evidence_id TEXT    NOT NULL,
	event_kind  TEXT    NOT NULL,
	actor_role  TEXT    NOT NULL,
	actor_name  TEXT    NOT NULL,
	detail      TEXT    NOT NULL,
	timestamp   INTEGER NOT NULL,
	tx_ref      TEXT    NOT NULL UNIQUE
);
CREATE INDEX access_log_evidence ON access_log (evidence_id);
CREATE INDEX access_log_role ON access_log (actor_role);
`

const selectColumns = `SELECT id, evidence_id, event_kind, actor_role, actor_name, detail, timestamp, tx_ref FROM access_log`

// Config configures a [Log].
type Config struct {
	// Path is the database file.
	Path string

	// Logger defaults to a discard logger.
	Logger *slog.Logger
}

// Log is the access-log index. Safe for concurrent use.
type Log struct {
	pool   *sqlitepool.Pool
	logger *slog.Logger
}

// Open opens the database at config.Path and resets the access_log
// table.
func Open(ctx context.Context, config Config) (*Log, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:      config.Path,
		Logger:    logger,
		OnConnect: prepareConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("access log: %w", err)
	}
	err = pool.Immediate(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.ExecuteScript(conn, resetSchema, nil)
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("access log: creating schema: %w", err)
	}
	return &Log{pool: pool, logger: logger}, nil
}

// prepareConnection turns off fsync on every connection. The table is
// dropped at each Open, so a write lost to a crash costs nothing the
// ledger does not already hold.
func prepareConnection(conn *sqlite.Conn) error {
	return sqlitex.ExecuteTransient(conn, "PRAGMA synchronous=OFF", nil)
}

// Close closes the underlying pool.
func (l *Log) Close() error {
	return l.pool.Close()
}

// Append inserts entry and returns it with its row id.
func (l *Log) Append(ctx context.Context, entry custody.AccessLogEntry) (custody.AccessLogEntry, error) {
	err := l.pool.With(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn,
			`INSERT INTO access_log (evidence_id, event_kind, actor_role, actor_name, detail, timestamp, tx_ref)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			&sqlitex.ExecOptions{
				Args: []any{
					entry.EvidenceID,
					string(entry.EventKind),
					string(entry.ActorRole),
					entry.ActorName,
					entry.Detail,
					entry.Timestamp.UnixNano(),
					entry.TxRef,
				},
			})
		if err != nil {
			return err
		}
		entry.ID = conn.LastInsertRowID()
		return nil
	})
	if err != nil {
		return custody.AccessLogEntry{}, fmt.Errorf("access log: insert %s: %w", entry.TxRef, err)
	}
	return entry, nil
}

// ForEvidence returns every row for evidenceID in insertion order.
func (l *Log) ForEvidence(ctx context.Context, evidenceID string) ([]custody.AccessLogEntry, error) {
	return l.query(ctx, selectColumns+` WHERE evidence_id = ? ORDER BY id`, evidenceID)
}

// ByActorRole returns every row written by actors of role in
// insertion order.
func (l *Log) ByActorRole(ctx context.Context, role custody.Role) ([]custody.AccessLogEntry, error) {
	return l.query(ctx, selectColumns+` WHERE actor_role = ? ORDER BY id`, string(role))
}

// Count returns the number of rows.
func (l *Log) Count(ctx context.Context) (int64, error) {
	var count int64
	err := l.pool.With(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `SELECT count(*) FROM access_log`, &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				count = stmt.ColumnInt64(0)
				return nil
			},
		})
	})
	if err != nil {
		return 0, fmt.Errorf("access log: count: %w", err)
	}
	return count, nil
}

func (l *Log) query(ctx context.Context, query string, args ...any) ([]custody.AccessLogEntry, error) {
	entries := []custody.AccessLogEntry{}
	err := l.pool.With(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
			Args: args,
			ResultFunc: func(stmt *sqlite.Stmt) error {
				entries = append(entries, scanEntry(stmt))
				return nil
			},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("access log: query: %w", err)
	}
	return entries, nil
}

// Columns: id(0), evidence_id(1), event_kind(2), actor_role(3),
// actor_name(4), detail(5), timestamp(6), tx_ref(7).
func scanEntry(stmt *sqlite.Stmt) custody.AccessLogEntry {
	return custody.AccessLogEntry{
		ID:         stmt.ColumnInt64(0),
		EvidenceID: stmt.ColumnText(1),
		EventKind:  custody.EventKind(stmt.ColumnText(2)),
		ActorRole:  custody.Role(stmt.ColumnText(3)),
		ActorName:  stmt.ColumnText(4),
		Detail:     stmt.ColumnText(5),
		Timestamp:  time.Unix(0, stmt.ColumnInt64(6)).UTC(),
		TxRef:      stmt.ColumnText(7),
	}
}
