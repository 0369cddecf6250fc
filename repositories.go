package threads

import (
	"context"
	"time"

	"github.com/coregx/threads/model"
)

// MessageRepository defines the persistence interface for messages.
//
// Implementations must be safe for concurrent use. Per-message mutation is
// serialized by the atomic check-and-set updates below; the service layer
// holds no locks of its own, so a racy implementation corrupts the version
// counter.
type MessageRepository interface {
	// Insert stores a new message.
	// Returns a UNIQUE_CONSTRAINT_VIOLATION error if the id or the
	// idempotency key collides with an existing row. Raw driver errors
	// must not leak: constraint violations are translated at this boundary.
	Insert(ctx context.Context, m model.Message) (model.Message, error)

	// GetByID retrieves a message by id.
	// Returns ErrNoData if not found. Soft-deleted messages are returned.
	GetByID(ctx context.Context, id string) (model.Message, error)

	// GetByIdempotencyKey retrieves the message stored under a client
	// idempotency key. Returns ErrNoData if the key has never been used.
	GetByIdempotencyKey(ctx context.Context, key string) (model.Message, error)

	// UpdateContentAndVersion replaces the content of a live message if and
	// only if its stored version equals expectedVersion at the moment of the
	// update. The compare-and-set must be a single atomic statement with
	// respect to concurrent mutators of the same message.
	//
	// On a miss: returns ErrNoData if the row is absent or soft-deleted,
	// VERSION_CONFLICT if a live row holds a different version.
	// On success the stored version has increased by exactly one.
	UpdateContentAndVersion(ctx context.Context, id string, expectedVersion int64, content string, editedAt time.Time) (model.Message, error)

	// MarkDeleted soft-deletes a live message under the same atomicity and
	// versioning contract as UpdateContentAndVersion. The row is never
	// physically removed.
	MarkDeleted(ctx context.Context, id string, expectedVersion int64, deletedAt time.Time) (model.Message, error)

	// ListThreadPage returns at most limit messages of a thread, ascending
	// by (created_at, id), strictly after the cursor position (or from the
	// start when after is nil). When includeDeleted is false, soft-deleted
	// rows are skipped. Returns an empty slice when the page is empty.
	ListThreadPage(ctx context.Context, threadID string, after *Cursor, limit int, includeDeleted bool) ([]model.Message, error)
}
