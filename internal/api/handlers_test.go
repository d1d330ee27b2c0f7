package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-ai/shop-assist/internal/answer"
	"github.com/storefront-ai/shop-assist/internal/assist"
	"github.com/storefront-ai/shop-assist/internal/catalog"
	"github.com/storefront-ai/shop-assist/internal/index"
	"github.com/storefront-ai/shop-assist/internal/llm"
	"github.com/storefront-ai/shop-assist/internal/observability"
	"github.com/storefront-ai/shop-assist/internal/retrieval"
	"github.com/storefront-ai/shop-assist/internal/session"
)

// unknownClassifier routes everything to the unknown intent, which keeps the
// handler tests free of generation and index stubs.
type unknownClassifier struct{}

func (unknownClassifier) Classify(ctx context.Context, question string) (retrieval.Intent, error) {
	return retrieval.IntentUnknown, nil
}

type noopGenerator struct{}

func (noopGenerator) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	return "", nil
}

type emptyIndex struct{}

func (emptyIndex) Exists(ctx context.Context) (bool, error)             { return true, nil }
func (emptyIndex) Create(ctx context.Context) error                     { return nil }
func (emptyIndex) Add(ctx context.Context, docs []index.Document) error { return nil }
func (emptyIndex) Count(ctx context.Context) (int, error)               { return 0, nil }
func (emptyIndex) Query(ctx context.Context, text string, k int) ([]index.Match, error) {
	return nil, nil
}

type emptyStore struct{}

func (emptyStore) Select(ctx context.Context, query string) (*catalog.Rows, error) {
	return nil, catalog.ErrNoRows
}

func newTestRouter(t *testing.T) (http.Handler, *session.Store) {
	t.Helper()

	logger := observability.Nop()
	sqlgen := retrieval.NewSQLSynthesizer(noopGenerator{}, emptyStore{}, logger, 1024)
	faq := retrieval.NewFAQRetriever(emptyIndex{}, logger, 3)
	synth := answer.NewSynthesizer(noopGenerator{}, logger, answer.Config{})
	service := assist.NewService(unknownClassifier{}, sqlgen, faq, synth, nil, logger, assist.Config{})

	sessions := session.NewStore()
	return NewRouter(logger, service, sessions, RouterConfig{}), sessions
}

func postJSON(t *testing.T, handler http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAskHandler_Ask(t *testing.T) {
	t.Run("answers and starts a session", func(t *testing.T) {
		handler, _ := newTestRouter(t)

		rec := postJSON(t, handler, "/api/v1/ask", AskRequestDTO{Question: "mystery question"})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp AskResponseDTO
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "mystery question not in the lib", resp.Answer)
		assert.Equal(t, "unknown", resp.Intent)
		assert.NotEmpty(t, resp.SessionID)
	})

	t.Run("reuses an existing session", func(t *testing.T) {
		handler, sessions := newTestRouter(t)
		id := sessions.Create()

		rec := postJSON(t, handler, "/api/v1/ask", AskRequestDTO{Question: "first", SessionID: id})
		require.Equal(t, http.StatusOK, rec.Code)
		rec = postJSON(t, handler, "/api/v1/ask", AskRequestDTO{Question: "second", SessionID: id})
		require.Equal(t, http.StatusOK, rec.Code)

		sess, err := sessions.Get(id)
		require.NoError(t, err)
		assert.Len(t, sess.Messages, 4)
		assert.Equal(t, session.RoleUser, sess.Messages[0].Role)
		assert.Equal(t, "first", sess.Messages[0].Content)
	})

	t.Run("rejects empty question", func(t *testing.T) {
		handler, _ := newTestRouter(t)

		rec := postJSON(t, handler, "/api/v1/ask", AskRequestDTO{Question: "   "})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects invalid body", func(t *testing.T) {
		handler, _ := newTestRouter(t)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/ask", bytes.NewReader([]byte("{not json")))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown session id is 404", func(t *testing.T) {
		handler, _ := newTestRouter(t)

		rec := postJSON(t, handler, "/api/v1/ask", AskRequestDTO{Question: "q", SessionID: "nope"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAskHandler_GetSession(t *testing.T) {
	t.Run("returns transcript", func(t *testing.T) {
		handler, sessions := newTestRouter(t)
		id := sessions.Create()
		require.NoError(t, sessions.Append(id, session.RoleUser, "hello"))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+id, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp SessionResponseDTO
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, id, resp.SessionID)
		require.Len(t, resp.Messages, 1)
		assert.Equal(t, "hello", resp.Messages[0].Content)
	})

	t.Run("unknown session is 404", func(t *testing.T) {
		handler, _ := newTestRouter(t)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/nope", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHealthEndpoint(t *testing.T) {
	handler, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}
