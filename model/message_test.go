package model

import (
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMessage_TableName(t *testing.T) {
	msg := Message{}
	assert.Equal(t, "threads_message", msg.TableName())
}

func TestNewRoot(t *testing.T) {
	msg := NewRoot("id-1", "u1", "hi", "", "")

	assert.Equal(t, "id-1", msg.ID)
	assert.Equal(t, "u1", msg.AuthorID)
	assert.Equal(t, "hi", msg.Content)
	assert.Equal(t, "id-1", msg.ThreadID, "a root's thread id is its own id")
	assert.Equal(t, 0, msg.Depth)
	assert.False(t, msg.ParentID.Valid)
	assert.Equal(t, int64(InitialVersion), msg.Version)
	assert.False(t, msg.IdempotencyKey.Valid)
	assert.False(t, msg.Metadata.Valid)
	assert.WithinDuration(t, time.Now(), msg.CreatedAt, time.Second)
}

func TestNewRoot_OptionalFields(t *testing.T) {
	msg := NewRoot("id-1", "u1", "hi", "key-1", `{"pinned":true}`)

	assert.True(t, msg.IdempotencyKey.Valid)
	assert.Equal(t, "key-1", msg.IdempotencyKey.String)
	assert.True(t, msg.Metadata.Valid)
	assert.Equal(t, `{"pinned":true}`, msg.Metadata.String)
}

func TestNewReply(t *testing.T) {
	parent := NewRoot("root-1", "u1", "hi", "", "")
	msg := NewReply("reply-1", parent, "u2", "hey", "", "")

	assert.Equal(t, "reply-1", msg.ID)
	assert.Equal(t, "u2", msg.AuthorID)
	assert.True(t, msg.ParentID.Valid)
	assert.Equal(t, "root-1", msg.ParentID.String)
	assert.Equal(t, parent.ThreadID, msg.ThreadID)
	assert.Equal(t, parent.Depth+1, msg.Depth)
	assert.Equal(t, int64(InitialVersion), msg.Version)
}

func TestNewReply_Nested(t *testing.T) {
	root := NewRoot("root-1", "u1", "hi", "", "")
	child := NewReply("reply-1", root, "u2", "hey", "", "")
	grandchild := NewReply("reply-2", child, "u1", "yo", "", "")

	assert.Equal(t, 2, grandchild.Depth)
	assert.Equal(t, "root-1", grandchild.ThreadID, "thread id propagates to the root transitively")
}

func TestMessage_Validate(t *testing.T) {
	msg := NewRoot("id-1", "u1", "hi", "", "")
	assert.NoError(t, msg.Validate())
}

func TestMessage_Validate_EmptyContent(t *testing.T) {
	msg := NewRoot("id-1", "u1", "", "", "")
	assert.Error(t, msg.Validate())
}

func TestMessage_Validate_ContentTooLong(t *testing.T) {
	msg := NewRoot("id-1", "u1", strings.Repeat("x", ContentMaxLength+1), "", "")
	assert.Error(t, msg.Validate())

	msg.Content = strings.Repeat("x", ContentMaxLength)
	assert.NoError(t, msg.Validate())
}

func TestMessage_IsDeleted(t *testing.T) {
	msg := NewRoot("id-1", "u1", "hi", "", "")
	assert.False(t, msg.IsDeleted())

	msg.DeletedAt = sql.NullTime{Time: time.Now(), Valid: true}
	assert.True(t, msg.IsDeleted())
}

func TestMessage_IsRoot(t *testing.T) {
	root := NewRoot("root-1", "u1", "hi", "", "")
	reply := NewReply("reply-1", root, "u2", "hey", "", "")

	assert.True(t, root.IsRoot())
	assert.False(t, reply.IsRoot())
}

func TestMessage_Status(t *testing.T) {
	msg := NewRoot("id-1", "u1", "hi", "", "")
	assert.Equal(t, StatusActive, msg.Status())

	msg.EditedAt = sql.NullTime{Time: time.Now(), Valid: true}
	assert.Equal(t, StatusEdited, msg.Status())

	// Deletion wins over the edit mark.
	msg.DeletedAt = sql.NullTime{Time: time.Now(), Valid: true}
	assert.Equal(t, StatusDeleted, msg.Status())
}
