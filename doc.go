// Package threads provides a message persistence and consistency engine for
// reply-tree ("thread") structured messages, usable as an embedded library or
// behind the standalone server in cmd/threads-server.
//
// # Features
//
//   - Thread Assembly: roots anchor a tree (threadID == id, depth 0), replies
//     inherit the parent's thread one level deeper
//   - Idempotent Creation: client-supplied idempotency keys make create and
//     reply safe to retry verbatim, backed by a storage unique constraint
//   - Optimistic Concurrency: edits and soft deletes are serialized by an
//     atomic version compare-and-set, no application-level locks
//   - Soft Deletion: deleted messages keep their place in the tree, stay
//     listable, and become terminal for mutation
//   - Cursor Pagination: stable keyset pages ordered by (createdAt, id) with
//     opaque URL-safe tokens
//   - Repository Pattern for clean data access abstraction
//   - Options Pattern for service construction
//   - Pluggable Logger: bring your own logging system
//   - Multi-Database Support: MySQL, PostgreSQL, SQLite via Relica adapters
//   - Embedded Migrations for easy database setup
//
// # Quick Start
//
// First, apply the database migrations, then wire the Relica adapter:
//
//	import (
//	    "database/sql"
//	    "github.com/coregx/threads"
//	    adapters "github.com/coregx/threads/adapters/relica"
//	    _ "github.com/mattn/go-sqlite3"
//	)
//
//	db, _ := sql.Open("sqlite3", "threads.db")
//	repos := adapters.NewRepositories(db, "sqlite3")
//
//	svc, _ := threads.NewService(
//	    threads.WithRepository(repos.Message),
//	    threads.WithLogger(&threads.NoopLogger{}),
//	)
//
// Create a thread and reply to it:
//
//	root, _ := svc.CreateRoot(ctx, threads.SendRequest{
//	    AuthorID: "u1",
//	    Content:  "hi",
//	})
//
//	reply, _ := svc.CreateReply(ctx, threads.CreateReplyRequest{
//	    AuthorID: "u2",
//	    ParentID: root.ID,
//	    Content:  "hey",
//	})
//
// Walk the thread page by page:
//
//	page, _ := svc.ListThread(ctx, threads.ListThreadRequest{ThreadID: root.ThreadID, Limit: 50})
//	for page.NextCursor != "" {
//	    page, _ = svc.ListThread(ctx, threads.ListThreadRequest{
//	        ThreadID: root.ThreadID,
//	        Cursor:   page.NextCursor,
//	        Limit:    50,
//	    })
//	}
//
// # Error Handling
//
// Every failure carries a machine-readable code: NOT_FOUND,
// OWNERSHIP_VIOLATION, VERSION_CONFLICT, UNIQUE_CONSTRAINT_VIOLATION,
// INVALID_CURSOR, MISSING_THREAD_ID, VALIDATION_ERROR, DATABASE_ERROR.
// Use the Is* predicates (threads.IsNotFound, threads.IsVersionConflict, ...)
// to branch on them. The engine never retries on its own; retries are a
// caller concern, made safe for creation by the idempotency mechanism.
package threads
