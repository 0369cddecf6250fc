// Package model contains the domain model for the threads message store.
package model

import (
	"database/sql"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const tablePrefix = "threads_"

// ContentMaxLength is the maximum content length in runes.
const ContentMaxLength = 4000

// InitialVersion is the version assigned to a message at creation.
// Every successful edit or soft delete increments the version by exactly one.
const InitialVersion = 1

// Status represents the presentation lifecycle state of a message.
type Status string

const (
	// StatusActive indicates a message that has never been edited or deleted.
	StatusActive Status = "ACTIVE"

	// StatusEdited indicates a live message that has been edited at least once.
	StatusEdited Status = "EDITED"

	// StatusDeleted indicates a soft-deleted message.
	StatusDeleted Status = "DELETED"
)

// Message represents a single message in a reply tree.
//
// Messages form threads: a root message (no parent) anchors a tree, and every
// reply records the root's id as its thread id plus its distance from the root
// as depth. Identity, authorship, tree position, and creation time are
// immutable; only content (via edit) and the deletion mark (via soft delete)
// change after creation, each bumping the optimistic concurrency version.
//
// Soft-deleted messages are never physically removed. They stay valid parents
// for replies that already exist, but accept no new replies, edits, or deletes.
type Message struct {
	ID             string         `json:"id"`
	AuthorID       string         `json:"authorId" db:"author_id"`
	Content        string         `json:"content"`
	ParentID       sql.NullString `json:"parentId" db:"parent_id"`
	ThreadID       string         `json:"threadId" db:"thread_id"`
	Depth          int            `json:"depth"`
	CreatedAt      time.Time      `json:"createdAt" db:"created_at"`
	EditedAt       sql.NullTime   `json:"editedAt" db:"edited_at"`
	DeletedAt      sql.NullTime   `json:"deletedAt" db:"deleted_at"`
	Version        int64          `json:"version"`
	IdempotencyKey sql.NullString `json:"idempotencyKey" db:"idempotency_key"`
	Metadata       sql.NullString `json:"metadata"`
}

// TableName returns the database table name for Message.
func (m Message) TableName() string {
	return tablePrefix + "message"
}

// NewRoot creates a new thread root message.
// The thread id of a root equals its own id and its depth is zero.
//
// Parameters:
//   - id: pre-generated unique message identifier
//   - authorID: opaque identifier of the creator
//   - content: text payload
//   - idempotencyKey: optional client retry token (empty = none)
//   - metadata: optional serialized JSON payload (empty = none)
func NewRoot(id, authorID, content, idempotencyKey, metadata string) Message {
	return Message{
		ID:             id,
		AuthorID:       authorID,
		Content:        content,
		ParentID:       sql.NullString{},
		ThreadID:       id,
		Depth:          0,
		CreatedAt:      time.Now(),
		Version:        InitialVersion,
		IdempotencyKey: nullString(idempotencyKey),
		Metadata:       nullString(metadata),
	}
}

// NewReply creates a new reply to parent.
// The reply joins the parent's thread one level deeper.
func NewReply(id string, parent Message, authorID, content, idempotencyKey, metadata string) Message {
	return Message{
		ID:             id,
		AuthorID:       authorID,
		Content:        content,
		ParentID:       sql.NullString{String: parent.ID, Valid: true},
		ThreadID:       parent.ThreadID,
		Depth:          parent.Depth + 1,
		CreatedAt:      time.Now(),
		Version:        InitialVersion,
		IdempotencyKey: nullString(idempotencyKey),
		Metadata:       nullString(metadata),
	}
}

// Validate checks the message against the domain constraints.
func (m Message) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.ID, validation.Required),
		validation.Field(&m.AuthorID, validation.Required),
		validation.Field(&m.Content, validation.Required, validation.RuneLength(1, ContentMaxLength)),
		validation.Field(&m.ThreadID, validation.Required),
		validation.Field(&m.Depth, validation.Min(0)),
	)
}

// IsDeleted reports whether the message has been soft-deleted.
// Deleted messages accept no further mutation and no new replies.
func (m Message) IsDeleted() bool {
	return m.DeletedAt.Valid
}

// IsRoot reports whether the message is a thread root.
func (m Message) IsRoot() bool {
	return !m.ParentID.Valid
}

// Status derives the presentation state from the edit and delete marks.
func (m Message) Status() Status {
	switch {
	case m.DeletedAt.Valid:
		return StatusDeleted
	case m.EditedAt.Valid:
		return StatusEdited
	default:
		return StatusActive
	}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
