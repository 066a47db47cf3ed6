package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adityagupta7711/Meal-planner/internal/app"
	"github.com/adityagupta7711/Meal-planner/internal/domain"
)

func TestClient_Complete(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"gen-1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"Monday\":{}}"},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL+"/")
	text, err := client.Complete(context.Background(), app.CompletionRequest{
		Model:       "test-model",
		Prompt:      "plan my week",
		Temperature: 0.7,
		MaxTokens:   1500,
	})

	require.NoError(t, err)
	assert.Equal(t, `{"Monday":{}}`, text)
	assert.Equal(t, "test-model", got["model"])
	assert.EqualValues(t, 1500, got["max_tokens"])
	messages, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 1)
	assert.Equal(t, "plan my week", messages[0].(map[string]any)["content"])
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		rateLimited bool
	}{
		{
			name:        "rate limited with error body",
			status:      http.StatusTooManyRequests,
			body:        `{"error":{"message":"Rate limit exceeded","type":"rate_limit","code":429}}`,
			rateLimited: true,
		},
		{
			name:        "rate limited without error body",
			status:      http.StatusTooManyRequests,
			body:        `too many requests`,
			rateLimited: true,
		},
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			body:   `{"error":{"message":"internal","type":"server_error"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewClient("k", server.URL).Complete(context.Background(), app.CompletionRequest{Model: "m", Prompt: "p"})

			require.Error(t, err)
			assert.Equal(t, tt.rateLimited, errors.Is(err, domain.ErrRateLimited))
		})
	}
}

func TestClient_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"gen-1","choices":[]}`))
	}))
	defer server.Close()

	_, err := NewClient("k", server.URL).Complete(context.Background(), app.CompletionRequest{Model: "m", Prompt: "p"})

	var genErr *domain.GenerationError
	assert.ErrorAs(t, err, &genErr)
}
