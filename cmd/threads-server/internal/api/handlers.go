// Package api provides HTTP handlers for the threads server REST API.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/coregx/threads"
	"github.com/coregx/threads/model"
)

// deletedPlaceholder replaces the content of soft-deleted messages in
// responses. Redaction happens here, at the presentation boundary; the
// engine stores and returns the original content.
const deletedPlaceholder = "[deleted]"

// authorHeader carries the opaque author identity supplied by the caller.
// Authentication mechanics are out of scope; an upstream gateway is
// expected to have verified this value.
const authorHeader = "X-Author-ID"

// MessageService is the slice of the threads engine the API consumes.
type MessageService interface {
	Send(ctx context.Context, req threads.SendRequest) (model.Message, error)
	CreateReply(ctx context.Context, req threads.CreateReplyRequest) (model.Message, error)
	Edit(ctx context.Context, req threads.EditRequest) (model.Message, error)
	Delete(ctx context.Context, req threads.DeleteRequest) error
	ListThread(ctx context.Context, req threads.ListThreadRequest) (*threads.ThreadPage, error)
}

// Handler holds dependencies for API handlers.
type Handler struct {
	service MessageService
	logger  threads.Logger
}

// NewHandler creates a new API handler.
func NewHandler(service MessageService, logger threads.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// SendMessageRequest represents a message creation request.
// A non-empty parentId creates a reply instead of a thread root.
type SendMessageRequest struct {
	Content        string          `json:"content"`
	ParentID       string          `json:"parentId,omitempty"`
	IdempotencyKey string          `json:"idempotencyKey,omitempty"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
}

// EditMessageRequest represents a message edit request.
// Version, if present, is the expected optimistic concurrency version.
type EditMessageRequest struct {
	Content string `json:"content"`
	Version *int64 `json:"version,omitempty"`
}

// MessageView is the wire representation of a message.
// Deleted messages carry a placeholder instead of their content.
type MessageView struct {
	ID        string          `json:"id"`
	AuthorID  string          `json:"authorId"`
	Content   string          `json:"content"`
	ParentID  *string         `json:"parentId"`
	ThreadID  string          `json:"threadId"`
	Depth     int             `json:"depth"`
	CreatedAt time.Time       `json:"createdAt"`
	EditedAt  *time.Time      `json:"editedAt,omitempty"`
	Version   int64           `json:"version"`
	Status    model.Status    `json:"status"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// ListResponse is one page of a thread listing.
type ListResponse struct {
	Items      []MessageView `json:"items"`
	NextCursor string        `json:"nextCursor,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// HandleMessages handles the collection route:
//
//	POST /api/v1/messages  (create root, or reply when parentId is set)
//	GET  /api/v1/messages?threadId=&cursor=&limit=
func (h *Handler) HandleMessages(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleSend(w, r)
	case http.MethodGet:
		h.handleList(w, r)
	default:
		h.respondError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
	}
}

// HandleMessageByID handles the item routes:
//
//	POST   /api/v1/messages/{id}/reply
//	PUT    /api/v1/messages/{id}
//	DELETE /api/v1/messages/{id}
func (h *Handler) HandleMessageByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/messages/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		h.respondError(w, http.StatusNotFound, "Message id is required", "")
		return
	}

	switch {
	case r.Method == http.MethodPost && sub == "reply":
		h.handleReply(w, r, id)
	case r.Method == http.MethodPut && sub == "":
		h.handleEdit(w, r, id)
	case r.Method == http.MethodDelete && sub == "":
		h.handleDelete(w, r, id)
	default:
		h.respondError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
	}
}

// HandleHealth handles GET /api/v1/health
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	authorID, ok := h.author(w, r)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid JSON", "INVALID_JSON")
		return
	}

	msg, err := h.service.Send(r.Context(), threads.SendRequest{
		AuthorID:       authorID,
		Content:        req.Content,
		ParentID:       req.ParentID,
		IdempotencyKey: req.IdempotencyKey,
		Metadata:       string(req.Metadata),
	})
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, toView(msg))
}

func (h *Handler) handleReply(w http.ResponseWriter, r *http.Request, parentID string) {
	authorID, ok := h.author(w, r)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid JSON", "INVALID_JSON")
		return
	}

	// The parent id comes from the URL; a parentId in the body is ignored.
	msg, err := h.service.CreateReply(r.Context(), threads.CreateReplyRequest{
		AuthorID:       authorID,
		ParentID:       parentID,
		Content:        req.Content,
		IdempotencyKey: req.IdempotencyKey,
		Metadata:       string(req.Metadata),
	})
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, toView(msg))
}

func (h *Handler) handleEdit(w http.ResponseWriter, r *http.Request, id string) {
	authorID, ok := h.author(w, r)
	if !ok {
		return
	}

	var req EditMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid JSON", "INVALID_JSON")
		return
	}

	msg, err := h.service.Edit(r.Context(), threads.EditRequest{
		ID:              id,
		AuthorID:        authorID,
		Content:         req.Content,
		ExpectedVersion: req.Version,
	})
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, toView(msg))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request, id string) {
	authorID, ok := h.author(w, r)
	if !ok {
		return
	}

	err := h.service.Delete(r.Context(), threads.DeleteRequest{
		ID:       id,
		AuthorID: authorID,
	})
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := 0
	if raw := query.Get("limit"); raw != "" {
		// Invalid limits fall through to the engine's default; limits are
		// clamped, never rejected.
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	page, err := h.service.ListThread(r.Context(), threads.ListThreadRequest{
		ThreadID: query.Get("threadId"),
		Cursor:   query.Get("cursor"),
		Limit:    limit,
	})
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	items := make([]MessageView, 0, len(page.Items))
	for _, m := range page.Items {
		items = append(items, toView(m))
	}

	h.respondJSON(w, http.StatusOK, ListResponse{
		Items:      items,
		NextCursor: page.NextCursor,
	})
}

// author extracts the opaque author identity; requests without one are rejected.
func (h *Handler) author(w http.ResponseWriter, r *http.Request) (string, bool) {
	authorID := r.Header.Get(authorHeader)
	if authorID == "" {
		h.respondError(w, http.StatusBadRequest, authorHeader+" header is required", "VALIDATION_ERROR")
		return "", false
	}
	return authorID, true
}

// toView converts a stored message into its wire representation,
// redacting the content of soft-deleted messages.
func toView(m model.Message) MessageView {
	v := MessageView{
		ID:        m.ID,
		AuthorID:  m.AuthorID,
		Content:   m.Content,
		ThreadID:  m.ThreadID,
		Depth:     m.Depth,
		CreatedAt: m.CreatedAt,
		Version:   m.Version,
		Status:    m.Status(),
	}
	if m.ParentID.Valid {
		v.ParentID = &m.ParentID.String
	}
	if m.EditedAt.Valid {
		v.EditedAt = &m.EditedAt.Time
	}
	if m.Metadata.Valid {
		v.Metadata = json.RawMessage(m.Metadata.String)
	}
	if m.IsDeleted() {
		v.Content = deletedPlaceholder
	}
	return v
}

// respondDomainError maps engine error codes to HTTP statuses.
func (h *Handler) respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case threads.IsNotFound(err):
		h.respondError(w, http.StatusNotFound, "Message not found", threads.ErrCodeNotFound)
	case threads.IsOwnershipViolation(err):
		h.respondError(w, http.StatusForbidden, "Not the message owner", threads.ErrCodeOwnership)
	case threads.IsVersionConflict(err):
		h.respondError(w, http.StatusConflict, "Message was modified concurrently", threads.ErrCodeVersionConflict)
	case threads.IsValidation(err):
		h.respondError(w, http.StatusBadRequest, "Validation failed", threads.ErrCodeValidation)
	case threads.IsInvalidCursor(err):
		h.respondError(w, http.StatusBadRequest, "Invalid pagination cursor", threads.ErrCodeInvalidCursor)
	case threads.IsMissingThreadID(err):
		h.respondError(w, http.StatusBadRequest, "threadId is required", threads.ErrCodeMissingThreadID)
	default:
		h.logger.Errorf("Unhandled error: %v", err)
		h.respondError(w, http.StatusInternalServerError, "Internal server error", "INTERNAL_ERROR")
	}
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message, code string) {
	h.respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}
