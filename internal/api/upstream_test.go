package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cardgen/internal/models"
	"cardgen/internal/services"
)

// chatUpstream stands in for an OpenAI-compatible /v1/chat/completions endpoint.
type chatUpstream struct {
	server  *httptest.Server
	calls   atomic.Int32
	mu      sync.Mutex
	status  int
	content string
}

func newChatUpstream(t *testing.T) *chatUpstream {
	t.Helper()
	up := &chatUpstream{status: http.StatusOK}
	up.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		up.calls.Add(1)
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		_, _ = io.Copy(io.Discard, r.Body)

		up.mu.Lock()
		status, content := up.status, up.content
		up.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = io.WriteString(w, `{"error":{"message":"upstream refused","type":"invalid_request_error"}}`)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 1,
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
		})
	}))
	t.Cleanup(up.server.Close)
	return up
}

func (u *chatUpstream) reply(status int, content string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.status, u.content = status, content
}

func newUpstreamServer(t *testing.T, up *chatUpstream) *httptest.Server {
	t.Helper()
	ai, err := services.NewAIService(services.AIConfig{
		APIKey:      "test-key",
		BaseURL:     up.server.URL + "/v1",
		Model:       "test-model",
		MaxTokens:   4000,
		Temperature: 0.2,
		TopP:        1,
	}, zap.NewNop())
	require.NoError(t, err)

	srv := NewServer(ai, services.NewPDFService(), NewSessionManager(time.Hour), zap.NewNop(), Options{})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

const upstreamCards = `{"flashcards":[` +
	`{"Question":"What does photosynthesis convert?","Answer":"Light into chemical energy."},` +
	`{"Question":"Which organelle hosts it?","Answer":"The chloroplast."}]}`

func TestGenerateThroughUpstream(t *testing.T) {
	up := newChatUpstream(t)
	up.reply(http.StatusOK, upstreamCards)
	c := newTestClient(t, newUpstreamServer(t, up))

	resp, body := c.do(http.MethodPost, "/api/flashcards", photosynthesis)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	created := decode[flashcardsResponse](t, body)
	assert.Equal(t, 2, created.Count)
	assert.Equal(t, []models.ProjectedCard{
		{Number: 1, Question: "What does photosynthesis convert?", Answer: "Light into chemical energy."},
		{Number: 2, Question: "Which organelle hosts it?", Answer: "The chloroplast."},
	}, created.Flashcards)
	assert.EqualValues(t, 1, up.calls.Load())
}

func TestUpstreamFailuresThroughServer(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		content  string
		want     int
		category string
	}{
		{"unauthorized", http.StatusUnauthorized, "", http.StatusBadGateway, models.CategoryTransport},
		{"rate limited", http.StatusTooManyRequests, "", http.StatusTooManyRequests, models.CategoryTransport},
		{"server error", http.StatusInternalServerError, "", http.StatusBadGateway, models.CategoryTransport},
		{"malformed body", http.StatusOK, "sorry, no cards today", http.StatusBadGateway, models.CategoryMalformedResponse},
		{"blank answer", http.StatusOK, `[{"Question":"Q","Answer":"  "}]`, http.StatusBadGateway, models.CategoryMalformedResponse},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			up := newChatUpstream(t)
			up.reply(http.StatusOK, upstreamCards)
			c := newTestClient(t, newUpstreamServer(t, up))

			resp, _ := c.do(http.MethodPost, "/api/flashcards", photosynthesis)
			require.Equal(t, http.StatusCreated, resp.StatusCode)
			resp, _ = c.do(http.MethodPost, "/api/settings", map[string]any{"action": "toggle_reverse"})
			require.Equal(t, http.StatusOK, resp.StatusCode)

			up.reply(tc.status, tc.content)
			resp, body := c.do(http.MethodPost, "/api/flashcards", photosynthesis)
			assert.Equal(t, tc.want, resp.StatusCode, string(body))
			assert.Equal(t, tc.category, decode[errorResponse](t, body).Category)
			assert.EqualValues(t, 2, up.calls.Load(), "no retries")

			resp, body = c.do(http.MethodGet, "/api/flashcards", nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			current := decode[flashcardsResponse](t, body)
			assert.Equal(t, 2, current.Count)
			assert.True(t, current.Settings.Reversed)
			assert.Equal(t, "Which organelle hosts it?", current.Flashcards[0].Question)
		})
	}
}
