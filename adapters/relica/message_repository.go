package relica

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/coregx/relica"
	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/coregx/threads"
	"github.com/coregx/threads/model"
)

// MessageRepository implements threads.MessageRepository using Relica.
type MessageRepository struct {
	db          *relica.DB
	tablePrefix string
}

// NewMessageRepository creates a new MessageRepository with default table prefix.
func NewMessageRepository(sqlDB *sql.DB, driverName string) *MessageRepository {
	return &MessageRepository{db: relica.WrapDB(sqlDB, driverName), tablePrefix: "threads_"}
}

// NewMessageRepositoryWithPrefix creates a new MessageRepository with custom table prefix.
func NewMessageRepositoryWithPrefix(sqlDB *sql.DB, driverName, prefix string) *MessageRepository {
	return &MessageRepository{db: relica.WrapDB(sqlDB, driverName), tablePrefix: prefix}
}

func (r *MessageRepository) tableName() string {
	return r.tablePrefix + "message"
}

// Insert stores a new message row.
// Constraint violations on id or idempotency_key are translated into the
// domain taxonomy; raw driver errors never cross this boundary.
func (r *MessageRepository) Insert(ctx context.Context, m model.Message) (model.Message, error) {
	err := r.db.WithContext(ctx).Model(&m).Table(r.tableName()).Insert()
	if err != nil {
		if isUniqueViolation(err) {
			return m, threads.NewErrorWithCause(threads.ErrCodeUniqueViolation, "message id or idempotency key already exists", err)
		}
		return m, threads.NewErrorWithCause(threads.ErrCodeDatabase, "failed to insert message", err)
	}
	return m, nil
}

// GetByID retrieves a message by id, soft-deleted rows included.
func (r *MessageRepository) GetByID(ctx context.Context, id string) (model.Message, error) {
	var msg model.Message
	err := r.db.WithContext(ctx).Select("*").From(r.tableName()).Where("id = ?", id).One(&msg)
	if errors.Is(err, sql.ErrNoRows) {
		return msg, threads.ErrNoData
	}
	if err != nil {
		return msg, threads.NewErrorWithCause(threads.ErrCodeDatabase, "failed to load message", err)
	}
	return msg, nil
}

// GetByIdempotencyKey retrieves the message stored under a client idempotency key.
func (r *MessageRepository) GetByIdempotencyKey(ctx context.Context, key string) (model.Message, error) {
	var msg model.Message
	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where("idempotency_key = ?", key).
		One(&msg)
	if errors.Is(err, sql.ErrNoRows) {
		return msg, threads.ErrNoData
	}
	if err != nil {
		return msg, threads.NewErrorWithCause(threads.ErrCodeDatabase, "failed to load message by idempotency key", err)
	}
	return msg, nil
}

// UpdateContentAndVersion replaces the content of a live message if its
// stored version still equals expectedVersion.
//
// The compare-and-set is a single UPDATE statement; the affected-row count
// decides the outcome, so no interleaving between a validation read and the
// write is possible.
func (r *MessageRepository) UpdateContentAndVersion(ctx context.Context, id string, expectedVersion int64, content string, editedAt time.Time) (model.Message, error) {
	result, err := r.db.WithContext(ctx).Update(r.tableName()).
		Set(map[string]interface{}{
			"content":   content,
			"edited_at": editedAt,
			"version":   expectedVersion + 1,
		}).
		Where("id = ? AND version = ? AND deleted_at IS NULL", id, expectedVersion).
		Execute()
	if err != nil {
		return model.Message{}, threads.NewErrorWithCause(threads.ErrCodeDatabase, "failed to edit message", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return model.Message{}, threads.NewErrorWithCause(threads.ErrCodeDatabase, "failed to read affected rows", err)
	}
	if rows == 0 {
		return model.Message{}, r.classifyMiss(ctx, id)
	}

	return r.GetByID(ctx, id)
}

// MarkDeleted soft-deletes a live message under the same compare-and-set
// contract as UpdateContentAndVersion.
func (r *MessageRepository) MarkDeleted(ctx context.Context, id string, expectedVersion int64, deletedAt time.Time) (model.Message, error) {
	result, err := r.db.WithContext(ctx).Update(r.tableName()).
		Set(map[string]interface{}{
			"deleted_at": deletedAt,
			"version":    expectedVersion + 1,
		}).
		Where("id = ? AND version = ? AND deleted_at IS NULL", id, expectedVersion).
		Execute()
	if err != nil {
		return model.Message{}, threads.NewErrorWithCause(threads.ErrCodeDatabase, "failed to delete message", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return model.Message{}, threads.NewErrorWithCause(threads.ErrCodeDatabase, "failed to read affected rows", err)
	}
	if rows == 0 {
		return model.Message{}, r.classifyMiss(ctx, id)
	}

	return r.GetByID(ctx, id)
}

// ListThreadPage returns one keyset page of a thread, ascending by
// (created_at, id), strictly after the cursor position.
func (r *MessageRepository) ListThreadPage(ctx context.Context, threadID string, after *threads.Cursor, limit int, includeDeleted bool) ([]model.Message, error) {
	cond := "thread_id = ?"
	args := []interface{}{threadID}

	if !includeDeleted {
		cond += " AND deleted_at IS NULL"
	}
	if after != nil {
		cond += " AND (created_at > ? OR (created_at = ? AND id > ?))"
		args = append(args, after.CreatedAt, after.CreatedAt, after.ID)
	}

	messages := []model.Message{}
	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where(cond, args...).
		OrderBy("created_at ASC, id ASC").
		Limit(int64(limit)).
		All(&messages)
	if err != nil {
		return nil, threads.NewErrorWithCause(threads.ErrCodeDatabase, "failed to list thread page", err)
	}

	return messages, nil
}

// classifyMiss distinguishes why a compare-and-set touched no rows: an
// absent or soft-deleted row is gone for mutation purposes, a live row with
// a different version is a concurrency conflict.
func (r *MessageRepository) classifyMiss(ctx context.Context, id string) error {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		if threads.IsNoData(err) {
			return threads.ErrNoData
		}
		return err
	}
	if current.IsDeleted() {
		return threads.ErrNoData
	}
	return threads.NewError(threads.ErrCodeVersionConflict, "stored version does not match expected version")
}

// isUniqueViolation reports whether err is a unique-constraint rejection
// from any of the supported drivers.
func isUniqueViolation(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	return false
}
