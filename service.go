package threads

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/coregx/threads/model"
)

// Pagination limits for thread listings. Out-of-range values are clamped,
// never rejected.
const (
	// MinPageLimit is the smallest page size a caller can request.
	MinPageLimit = 1

	// DefaultPageLimit is used when the caller supplies no limit.
	DefaultPageLimit = 20

	// MaxPageLimit caps the page size regardless of what the caller asks for.
	MaxPageLimit = 100
)

// casAttempts bounds the re-read/retry loop for mutations without a
// caller-supplied expected version. Each retry re-reads the current version,
// so exhaustion requires a sustained stream of concurrent writers.
const casAttempts = 3

// Service is the message persistence and consistency engine.
//
// It owns thread assembly (thread id and depth at creation), the idempotency
// guard for create and reply, optimistic-concurrency editing and soft
// deletion, and cursor pagination over a thread. All durable state lives
// behind MessageRepository; the service holds no locks across storage calls
// and is safe for concurrent use.
type Service struct {
	repo        MessageRepository
	logger      Logger
	hideDeleted bool
}

// NewService creates a new Service with the provided options.
//
// Required options:
//   - WithRepository: message repository
//   - WithLogger: logger instance
//
// Example:
//
//	svc, err := threads.NewService(
//	    threads.WithRepository(repo),
//	    threads.WithLogger(logger),
//	)
func NewService(opts ...Option) (*Service, error) {
	s := &Service{}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply service option", err)
		}
	}

	// Validate required dependencies
	if s.repo == nil {
		return nil, NewError(ErrCodeConfiguration, "MessageRepository is required (use WithRepository)")
	}
	if s.logger == nil {
		return nil, NewError(ErrCodeConfiguration, "Logger is required (use WithLogger)")
	}

	return s, nil
}

// SendRequest represents a request to create a message.
// A non-empty ParentID makes the message a reply; otherwise a new thread
// root is created.
type SendRequest struct {
	AuthorID       string // Opaque author identifier (required)
	Content        string // Text payload, 1..4000 runes (required)
	ParentID       string // Parent message id (optional, empty = thread root)
	IdempotencyKey string // Client retry token (optional)
	Metadata       string // Serialized JSON payload, stored verbatim (optional)
}

// Validate checks the request fields.
func (r SendRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.AuthorID, validation.Required),
		validation.Field(&r.Content, validation.Required, validation.RuneLength(1, model.ContentMaxLength)),
		validation.Field(&r.ParentID, is.UUID),
	)
}

// CreateReplyRequest represents a request to reply to an existing message.
type CreateReplyRequest struct {
	AuthorID       string // Opaque author identifier (required)
	ParentID       string // Parent message id (required)
	Content        string // Text payload, 1..4000 runes (required)
	IdempotencyKey string // Client retry token (optional)
	Metadata       string // Serialized JSON payload (optional)
}

// Validate checks the request fields.
func (r CreateReplyRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.AuthorID, validation.Required),
		validation.Field(&r.ParentID, validation.Required, is.UUID),
		validation.Field(&r.Content, validation.Required, validation.RuneLength(1, model.ContentMaxLength)),
	)
}

// EditRequest represents a request to replace the content of a message.
type EditRequest struct {
	ID       string // Message id (required)
	AuthorID string // Acting author, must equal the message author (required)
	Content  string // Replacement text payload (required)

	// ExpectedVersion, when set, must equal the stored version or the edit
	// fails with VERSION_CONFLICT. When nil the edit is serialized against
	// concurrent mutators with a last-writer-wins outcome.
	ExpectedVersion *int64
}

// Validate checks the request fields.
func (r EditRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, validation.Required, is.UUID),
		validation.Field(&r.AuthorID, validation.Required),
		validation.Field(&r.Content, validation.Required, validation.RuneLength(1, model.ContentMaxLength)),
	)
}

// DeleteRequest represents a request to soft-delete a message.
type DeleteRequest struct {
	ID       string // Message id (required)
	AuthorID string // Acting author, must equal the message author (required)
}

// Validate checks the request fields.
func (r DeleteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, validation.Required, is.UUID),
		validation.Field(&r.AuthorID, validation.Required),
	)
}

// ListThreadRequest represents a request for one page of a thread.
type ListThreadRequest struct {
	ThreadID string // Thread root id (required)
	Cursor   string // Opaque pagination token from a previous page (optional)
	Limit    int    // Page size, clamped to [MinPageLimit, MaxPageLimit], 0 = default
}

// ThreadPage is one page of a thread listing.
// NextCursor is empty when pagination is exhausted.
type ThreadPage struct {
	Items      []model.Message `json:"items"`
	NextCursor string          `json:"nextCursor,omitempty"`
}

// Send creates a message, dispatching on the presence of a parent reference:
// a request without ParentID creates a thread root, a request with one
// creates a reply. Both variants share the idempotency guard.
func (s *Service) Send(ctx context.Context, req SendRequest) (model.Message, error) {
	if req.ParentID != "" {
		return s.CreateReply(ctx, CreateReplyRequest{
			AuthorID:       req.AuthorID,
			ParentID:       req.ParentID,
			Content:        req.Content,
			IdempotencyKey: req.IdempotencyKey,
			Metadata:       req.Metadata,
		})
	}
	return s.CreateRoot(ctx, req)
}

// CreateRoot creates a new thread root message.
//
// The identifier is generated before the insert, so the root's thread id
// (its own id) is written in the same statement as the row itself; no
// intermediate state with a placeholder thread id is ever observable.
//
// When an idempotency key is supplied and a message already exists under it,
// that message is returned unchanged and nothing is created.
func (s *Service) CreateRoot(ctx context.Context, req SendRequest) (model.Message, error) {
	if err := req.Validate(); err != nil {
		return model.Message{}, NewErrorWithCause(ErrCodeValidation, "invalid create request", err)
	}

	if existing, ok, err := s.replayIdempotent(ctx, req.IdempotencyKey); err != nil {
		return model.Message{}, err
	} else if ok {
		return existing, nil
	}

	msg := model.NewRoot(NewID(), req.AuthorID, req.Content, req.IdempotencyKey, req.Metadata)
	stored, err := s.insertGuarded(ctx, msg, req.IdempotencyKey)
	if err != nil {
		return model.Message{}, err
	}

	s.logger.Infof("Root created: id=%s, author=%s", stored.ID, stored.AuthorID)
	return stored, nil
}

// CreateReply creates a reply to an existing message.
//
// The parent must exist and must not be soft-deleted; otherwise the reply
// fails with NOT_FOUND and nothing is created. The reply inherits the
// parent's thread id and sits one level deeper.
func (s *Service) CreateReply(ctx context.Context, req CreateReplyRequest) (model.Message, error) {
	if err := req.Validate(); err != nil {
		return model.Message{}, NewErrorWithCause(ErrCodeValidation, "invalid reply request", err)
	}

	if existing, ok, err := s.replayIdempotent(ctx, req.IdempotencyKey); err != nil {
		return model.Message{}, err
	} else if ok {
		return existing, nil
	}

	parent, err := s.repo.GetByID(ctx, req.ParentID)
	if err != nil {
		if IsNoData(err) {
			return model.Message{}, NewError(ErrCodeNotFound, "parent message not found")
		}
		return model.Message{}, NewErrorWithCause(ErrCodeDatabase, "failed to load parent message", err)
	}
	if parent.IsDeleted() {
		return model.Message{}, NewError(ErrCodeNotFound, "parent message not found")
	}

	msg := model.NewReply(NewID(), parent, req.AuthorID, req.Content, req.IdempotencyKey, req.Metadata)
	stored, err := s.insertGuarded(ctx, msg, req.IdempotencyKey)
	if err != nil {
		return model.Message{}, err
	}

	s.logger.Infof("Reply created: id=%s, thread=%s, depth=%d", stored.ID, stored.ThreadID, stored.Depth)
	return stored, nil
}

// Edit replaces the content of a live message owned by the acting author.
//
// On success the content is replaced, editedAt is set, and the version is
// incremented by exactly one. A soft-deleted or absent message fails with
// NOT_FOUND, a foreign author with OWNERSHIP_VIOLATION, and a stale
// ExpectedVersion with VERSION_CONFLICT; in every failure case the stored
// state is unchanged.
func (s *Service) Edit(ctx context.Context, req EditRequest) (model.Message, error) {
	if err := req.Validate(); err != nil {
		return model.Message{}, NewErrorWithCause(ErrCodeValidation, "invalid edit request", err)
	}

	current, err := s.loadOwned(ctx, req.ID, req.AuthorID)
	if err != nil {
		return model.Message{}, err
	}

	if req.ExpectedVersion != nil {
		if *req.ExpectedVersion != current.Version {
			return model.Message{}, NewError(ErrCodeVersionConflict, "message was modified concurrently")
		}
		updated, err := s.repo.UpdateContentAndVersion(ctx, req.ID, *req.ExpectedVersion, req.Content, time.Now())
		if err != nil {
			return model.Message{}, s.translateMutation(err, "failed to edit message")
		}
		s.logger.Infof("Message edited: id=%s, version=%d", updated.ID, updated.Version)
		return updated, nil
	}

	// No expected version: the check-and-set still serializes against
	// concurrent mutators, with a last-writer-wins outcome. Re-read and
	// retry on a version miss.
	expected := current.Version
	for attempt := 0; attempt < casAttempts; attempt++ {
		updated, err := s.repo.UpdateContentAndVersion(ctx, req.ID, expected, req.Content, time.Now())
		if err == nil {
			s.logger.Infof("Message edited: id=%s, version=%d", updated.ID, updated.Version)
			return updated, nil
		}
		if IsNoData(err) {
			return model.Message{}, NewError(ErrCodeNotFound, "message not found")
		}
		if !IsVersionConflict(err) {
			return model.Message{}, NewErrorWithCause(ErrCodeDatabase, "failed to edit message", err)
		}

		current, err = s.loadOwned(ctx, req.ID, req.AuthorID)
		if err != nil {
			return model.Message{}, err
		}
		expected = current.Version
	}

	return model.Message{}, NewError(ErrCodeVersionConflict, "message was modified concurrently")
}

// Delete soft-deletes a live message owned by the acting author.
//
// The row is kept: existing replies stay attached and listings still return
// it (unless the service was configured with WithHiddenDeleted). Deletion is
// terminal for mutation; a second delete fails with NOT_FOUND.
func (s *Service) Delete(ctx context.Context, req DeleteRequest) error {
	if err := req.Validate(); err != nil {
		return NewErrorWithCause(ErrCodeValidation, "invalid delete request", err)
	}

	current, err := s.loadOwned(ctx, req.ID, req.AuthorID)
	if err != nil {
		return err
	}

	expected := current.Version
	for attempt := 0; attempt < casAttempts; attempt++ {
		deleted, err := s.repo.MarkDeleted(ctx, req.ID, expected, time.Now())
		if err == nil {
			s.logger.Infof("Message deleted: id=%s, version=%d", deleted.ID, deleted.Version)
			return nil
		}
		if IsNoData(err) {
			return NewError(ErrCodeNotFound, "message not found")
		}
		if !IsVersionConflict(err) {
			return NewErrorWithCause(ErrCodeDatabase, "failed to delete message", err)
		}

		current, err = s.loadOwned(ctx, req.ID, req.AuthorID)
		if err != nil {
			return err
		}
		expected = current.Version
	}

	return NewError(ErrCodeVersionConflict, "message was modified concurrently")
}

// ListThread returns one page of a thread ordered ascending by
// (createdAt, id). The composite order totals messages created in the same
// instant, so pages never duplicate or skip items even under concurrent
// inserts. A full page carries a NextCursor for the position after its last
// item; a short page ends the listing.
func (s *Service) ListThread(ctx context.Context, req ListThreadRequest) (*ThreadPage, error) {
	if req.ThreadID == "" {
		return nil, NewError(ErrCodeMissingThreadID, "threadId is required")
	}

	limit := req.Limit
	switch {
	case limit <= 0:
		limit = DefaultPageLimit
	case limit < MinPageLimit:
		limit = MinPageLimit
	case limit > MaxPageLimit:
		limit = MaxPageLimit
	}

	var after *Cursor
	if req.Cursor != "" {
		c, err := DecodeCursor(req.Cursor)
		if err != nil {
			return nil, err
		}
		after = &c
	}

	items, err := s.repo.ListThreadPage(ctx, req.ThreadID, after, limit, !s.hideDeleted)
	if err != nil {
		return nil, NewErrorWithCause(ErrCodeDatabase, "failed to list thread", err)
	}

	page := &ThreadPage{Items: items}
	if len(items) == limit {
		last := items[len(items)-1]
		page.NextCursor = EncodeCursor(last.CreatedAt, last.ID)
	}
	return page, nil
}

// replayIdempotent implements the success-path half of the idempotency
// guard: a creation request whose key is already stored returns the stored
// message. The lookup is an optimization; the unique constraint on the key
// column is the authoritative backstop for concurrent duplicates.
func (s *Service) replayIdempotent(ctx context.Context, key string) (model.Message, bool, error) {
	if key == "" {
		return model.Message{}, false, nil
	}

	existing, err := s.repo.GetByIdempotencyKey(ctx, key)
	if err == nil {
		s.logger.Debugf("Idempotent replay: key=%s, id=%s", key, existing.ID)
		return existing, true, nil
	}
	if IsNoData(err) {
		return model.Message{}, false, nil
	}
	return model.Message{}, false, NewErrorWithCause(ErrCodeDatabase, "failed to check idempotency key", err)
}

// insertGuarded inserts a new message. When a concurrent creation wins the
// race on the same idempotency key, the unique constraint rejects this
// insert and the canonical row is looked up and returned instead.
func (s *Service) insertGuarded(ctx context.Context, msg model.Message, key string) (model.Message, error) {
	stored, err := s.repo.Insert(ctx, msg)
	if err == nil {
		return stored, nil
	}

	if IsUniqueViolation(err) && key != "" {
		existing, lerr := s.repo.GetByIdempotencyKey(ctx, key)
		if lerr == nil {
			s.logger.Debugf("Idempotent insert race: key=%s, id=%s", key, existing.ID)
			return existing, nil
		}
	}

	if IsUniqueViolation(err) {
		return model.Message{}, err
	}
	return model.Message{}, NewErrorWithCause(ErrCodeDatabase, "failed to insert message", err)
}

// loadOwned loads a message for mutation: it must exist, must not be
// soft-deleted, and must belong to the acting author.
func (s *Service) loadOwned(ctx context.Context, id, authorID string) (model.Message, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if IsNoData(err) {
			return model.Message{}, NewError(ErrCodeNotFound, "message not found")
		}
		return model.Message{}, NewErrorWithCause(ErrCodeDatabase, "failed to load message", err)
	}
	if current.IsDeleted() {
		return model.Message{}, NewError(ErrCodeNotFound, "message not found")
	}
	if current.AuthorID != authorID {
		return model.Message{}, NewError(ErrCodeOwnership, "only the author can modify this message")
	}
	return current, nil
}

// translateMutation maps repository CAS errors to the domain taxonomy.
func (s *Service) translateMutation(err error, msg string) error {
	switch {
	case IsNoData(err):
		return NewError(ErrCodeNotFound, "message not found")
	case IsVersionConflict(err):
		return err
	default:
		return NewErrorWithCause(ErrCodeDatabase, msg, err)
	}
}
