package relica

import (
	"database/sql"

	"github.com/coregx/threads"
)

// Repositories holds all repository implementations.
type Repositories struct {
	Message threads.MessageRepository
}

// NewRepositories creates all repository implementations using Relica.
//
// The db parameter should be an *sql.DB connected to MySQL, PostgreSQL, or SQLite.
// The driverName should be "mysql", "postgres", or "sqlite3".
// The table prefix defaults to "threads_" but can be customized.
func NewRepositories(db *sql.DB, driverName string) *Repositories {
	return &Repositories{
		Message: NewMessageRepository(db, driverName),
	}
}

// NewRepositoriesWithPrefix creates all repository implementations with a custom table prefix.
func NewRepositoriesWithPrefix(db *sql.DB, driverName, prefix string) *Repositories {
	return &Repositories{
		Message: NewMessageRepositoryWithPrefix(db, driverName, prefix),
	}
}
