// Package relica provides MessageRepository implementations using the Relica
// query builder (https://github.com/coregx/relica).
//
// Relica is a lightweight SQL query builder and scanner that works with
// MySQL, PostgreSQL, and SQLite through the standard database/sql drivers.
//
// Usage:
//
//	import (
//	    "database/sql"
//	    adapters "github.com/coregx/threads/adapters/relica"
//	    _ "github.com/mattn/go-sqlite3"
//	)
//
//	db, _ := sql.Open("sqlite3", "threads.db")
//	repo := adapters.NewMessageRepository(db, "sqlite3")
//
// Optimistic concurrency is enforced in SQL: every mutation is a single
// UPDATE guarded by the expected version, and a zero affected-row count is
// what distinguishes a conflict from a success. No application-level lock
// exists anywhere in the stack.
package relica
