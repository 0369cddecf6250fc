package threads

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewID returns a fresh globally-unique message identifier (UUID v4).
func NewID() string {
	return uuid.NewString()
}

// Cursor is a decoded pagination position: the (createdAt, id) sort key of
// the last item of the previous page. Pages continue strictly after it.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// EncodeCursor produces an opaque token for the given sort key.
// The token is deterministic and safe for transport in a URL query parameter.
func EncodeCursor(createdAt time.Time, id string) string {
	raw := createdAt.UTC().Format(time.RFC3339Nano) + "," + id
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a token produced by EncodeCursor.
//
// A token that is not base64, does not contain a (timestamp, id) pair, or
// carries an unparseable timestamp fails with INVALID_CURSOR. Whether the
// referenced message still exists is irrelevant at this layer.
func DecodeCursor(token string) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, NewErrorWithCause(ErrCodeInvalidCursor, "cursor is not valid base64", err)
	}

	createdAtPart, id, ok := strings.Cut(string(raw), ",")
	if !ok || id == "" {
		return Cursor{}, NewError(ErrCodeInvalidCursor, "cursor does not contain a (timestamp, id) pair")
	}

	createdAt, err := time.Parse(time.RFC3339Nano, createdAtPart)
	if err != nil {
		return Cursor{}, NewErrorWithCause(ErrCodeInvalidCursor, "cursor timestamp is not parseable", err)
	}

	return Cursor{CreatedAt: createdAt, ID: id}, nil
}
