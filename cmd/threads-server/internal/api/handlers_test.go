package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coregx/threads"
	"github.com/coregx/threads/model"
)

// stubService implements MessageService with overridable behavior per test.
type stubService struct {
	send       func(ctx context.Context, req threads.SendRequest) (model.Message, error)
	reply      func(ctx context.Context, req threads.CreateReplyRequest) (model.Message, error)
	edit       func(ctx context.Context, req threads.EditRequest) (model.Message, error)
	del        func(ctx context.Context, req threads.DeleteRequest) error
	listThread func(ctx context.Context, req threads.ListThreadRequest) (*threads.ThreadPage, error)
}

func (s *stubService) Send(ctx context.Context, req threads.SendRequest) (model.Message, error) {
	return s.send(ctx, req)
}

func (s *stubService) CreateReply(ctx context.Context, req threads.CreateReplyRequest) (model.Message, error) {
	return s.reply(ctx, req)
}

func (s *stubService) Edit(ctx context.Context, req threads.EditRequest) (model.Message, error) {
	return s.edit(ctx, req)
}

func (s *stubService) Delete(ctx context.Context, req threads.DeleteRequest) error {
	return s.del(ctx, req)
}

func (s *stubService) ListThread(ctx context.Context, req threads.ListThreadRequest) (*threads.ThreadPage, error) {
	return s.listThread(ctx, req)
}

func sampleMessage() model.Message {
	return model.Message{
		ID:        "11111111-1111-4111-8111-111111111111",
		AuthorID:  "u1",
		Content:   "hi",
		ThreadID:  "11111111-1111-4111-8111-111111111111",
		Depth:     0,
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Version:   1,
	}
}

func TestHandleMessages_Send(t *testing.T) {
	var got threads.SendRequest
	svc := &stubService{
		send: func(_ context.Context, req threads.SendRequest) (model.Message, error) {
			got = req
			return sampleMessage(), nil
		},
	}
	h := NewHandler(svc, &threads.NoopLogger{})

	body := `{"content":"hi","idempotencyKey":"k1","metadata":{"pinned":true}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader(body))
	req.Header.Set(authorHeader, "u1")
	rec := httptest.NewRecorder()

	h.HandleMessages(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "u1", got.AuthorID)
	assert.Equal(t, "hi", got.Content)
	assert.Equal(t, "k1", got.IdempotencyKey)
	assert.JSONEq(t, `{"pinned":true}`, got.Metadata)

	var view MessageView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "hi", view.Content)
	assert.Equal(t, model.StatusActive, view.Status)
}

func TestHandleMessages_MissingAuthorHeader(t *testing.T) {
	h := NewHandler(&stubService{}, &threads.NoopLogger{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader(`{"content":"hi"}`))
	rec := httptest.NewRecorder()

	h.HandleMessages(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleMessages_InvalidJSON(t *testing.T) {
	h := NewHandler(&stubService{}, &threads.NoopLogger{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader("{nope"))
	req.Header.Set(authorHeader, "u1")
	rec := httptest.NewRecorder()

	h.HandleMessages(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleMessages_MethodNotAllowed(t *testing.T) {
	h := NewHandler(&stubService{}, &threads.NoopLogger{})

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/messages", nil)
	rec := httptest.NewRecorder()

	h.HandleMessages(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleMessageByID_Reply(t *testing.T) {
	var got threads.CreateReplyRequest
	svc := &stubService{
		reply: func(_ context.Context, req threads.CreateReplyRequest) (model.Message, error) {
			got = req
			m := sampleMessage()
			m.ID = "22222222-2222-4222-8222-222222222222"
			m.AuthorID = "u2"
			m.ParentID = sql.NullString{String: req.ParentID, Valid: true}
			m.Depth = 1
			return m, nil
		},
	}
	h := NewHandler(svc, &threads.NoopLogger{})

	// A parentId in the body must lose against the URL.
	body := `{"content":"hey","parentId":"99999999-9999-4999-8999-999999999999"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages/11111111-1111-4111-8111-111111111111/reply", strings.NewReader(body))
	req.Header.Set(authorHeader, "u2")
	rec := httptest.NewRecorder()

	h.HandleMessageByID(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "11111111-1111-4111-8111-111111111111", got.ParentID)

	var view MessageView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.NotNil(t, view.ParentID)
	assert.Equal(t, 1, view.Depth)
}

func TestHandleMessageByID_Edit(t *testing.T) {
	var got threads.EditRequest
	svc := &stubService{
		edit: func(_ context.Context, req threads.EditRequest) (model.Message, error) {
			got = req
			m := sampleMessage()
			m.Content = req.Content
			m.Version = 2
			m.EditedAt = sql.NullTime{Time: time.Now(), Valid: true}
			return m, nil
		},
	}
	h := NewHandler(svc, &threads.NoopLogger{})

	body := `{"content":"hello","version":1}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/messages/11111111-1111-4111-8111-111111111111", strings.NewReader(body))
	req.Header.Set(authorHeader, "u1")
	rec := httptest.NewRecorder()

	h.HandleMessageByID(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got.ExpectedVersion)
	assert.Equal(t, int64(1), *got.ExpectedVersion)

	var view MessageView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, model.StatusEdited, view.Status)
	assert.Equal(t, int64(2), view.Version)
}

func TestHandleMessageByID_Delete(t *testing.T) {
	svc := &stubService{
		del: func(_ context.Context, req threads.DeleteRequest) error {
			return nil
		},
	}
	h := NewHandler(svc, &threads.NoopLogger{})

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/messages/11111111-1111-4111-8111-111111111111", nil)
	req.Header.Set(authorHeader, "u1")
	rec := httptest.NewRecorder()

	h.HandleMessageByID(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHandleMessageByID_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", threads.NewError(threads.ErrCodeNotFound, "gone"), http.StatusNotFound},
		{"ownership", threads.NewError(threads.ErrCodeOwnership, "not yours"), http.StatusForbidden},
		{"version conflict", threads.NewError(threads.ErrCodeVersionConflict, "stale"), http.StatusConflict},
		{"validation", threads.NewError(threads.ErrCodeValidation, "bad"), http.StatusBadRequest},
		{"database", threads.NewError(threads.ErrCodeDatabase, "boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{
				edit: func(_ context.Context, _ threads.EditRequest) (model.Message, error) {
					return model.Message{}, tt.err
				},
			}
			h := NewHandler(svc, &threads.NoopLogger{})

			req := httptest.NewRequest(http.MethodPut, "/api/v1/messages/11111111-1111-4111-8111-111111111111", strings.NewReader(`{"content":"x"}`))
			req.Header.Set(authorHeader, "u1")
			rec := httptest.NewRecorder()

			h.HandleMessageByID(rec, req)

			assert.Equal(t, tt.status, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestHandleMessages_List_RedactsDeleted(t *testing.T) {
	deleted := sampleMessage()
	deleted.Content = "original secret"
	deleted.DeletedAt = sql.NullTime{Time: time.Now(), Valid: true}

	intact := sampleMessage()
	intact.ID = "22222222-2222-4222-8222-222222222222"
	intact.Content = "still here"

	svc := &stubService{
		listThread: func(_ context.Context, req threads.ListThreadRequest) (*threads.ThreadPage, error) {
			return &threads.ThreadPage{
				Items:      []model.Message{deleted, intact},
				NextCursor: "next-token",
			}, nil
		},
	}
	h := NewHandler(svc, &threads.NoopLogger{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/messages?threadId="+deleted.ThreadID+"&limit=2", nil)
	rec := httptest.NewRecorder()

	h.HandleMessages(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 2)
	assert.Equal(t, deletedPlaceholder, resp.Items[0].Content)
	assert.Equal(t, model.StatusDeleted, resp.Items[0].Status)
	assert.Equal(t, "still here", resp.Items[1].Content)
	assert.Equal(t, "next-token", resp.NextCursor)
}

func TestHandleMessages_List_PassesQuery(t *testing.T) {
	var got threads.ListThreadRequest
	svc := &stubService{
		listThread: func(_ context.Context, req threads.ListThreadRequest) (*threads.ThreadPage, error) {
			got = req
			return &threads.ThreadPage{Items: []model.Message{}}, nil
		},
	}
	h := NewHandler(svc, &threads.NoopLogger{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/messages?threadId=t1&cursor=c1&limit=42", nil)
	rec := httptest.NewRecorder()

	h.HandleMessages(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "t1", got.ThreadID)
	assert.Equal(t, "c1", got.Cursor)
	assert.Equal(t, 42, got.Limit)
}

func TestHandleMessages_List_MissingThreadID(t *testing.T) {
	svc := &stubService{
		listThread: func(_ context.Context, _ threads.ListThreadRequest) (*threads.ThreadPage, error) {
			return nil, threads.NewError(threads.ErrCodeMissingThreadID, "threadId is required")
		},
	}
	h := NewHandler(svc, &threads.NoopLogger{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/messages", nil)
	rec := httptest.NewRecorder()

	h.HandleMessages(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleMessages_List_InvalidCursor(t *testing.T) {
	svc := &stubService{
		listThread: func(_ context.Context, _ threads.ListThreadRequest) (*threads.ThreadPage, error) {
			return nil, threads.NewError(threads.ErrCodeInvalidCursor, "bad token")
		},
	}
	h := NewHandler(svc, &threads.NoopLogger{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/messages?threadId=t1&cursor=%%%", nil)
	rec := httptest.NewRecorder()

	h.HandleMessages(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleMessageByID_UnknownRoute(t *testing.T) {
	h := NewHandler(&stubService{}, &threads.NoopLogger{})

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/messages/11111111-1111-4111-8111-111111111111", nil)
	rec := httptest.NewRecorder()

	h.HandleMessageByID(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleHealth(t *testing.T) {
	h := NewHandler(&stubService{}, &threads.NoopLogger{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()

	h.HandleHealth(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}
