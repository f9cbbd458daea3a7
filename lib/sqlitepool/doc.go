// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool provides the SQLite connection pool used by the
// custody service's secondary indexes.
//
// It wraps zombiezen.com/go/sqlite's sqlitex.Pool and applies one set
// of pragmas to every connection:
//
//   - journal_mode=WAL, so readers never block the writer
//   - synchronous=NORMAL (the indexes are rebuilt from process state,
//     not relied on across OS crashes)
//   - busy_timeout=5000
//   - cache_size=-8192 and temp_store=MEMORY
//
// [Pool.Take] and [Pool.Put] expose the zombiezen connection model
// directly. [Pool.With] and [Pool.Immediate] cover the common
// take-work-put and take-transaction-put shapes. Services write SQL
// and execute it with sqlitex.Execute; there is no query builder.
//
//	pool, err := sqlitepool.Open(sqlitepool.Config{
//	    Path:   filepath.Join(stateDir, "access.db"),
//	    Logger: logger,
//	    OnConnect: func(conn *sqlite.Conn) error {
//	        return sqlitex.ExecuteScript(conn, schema, nil)
//	    },
//	})
package sqlitepool
