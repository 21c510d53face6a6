package careplan

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// geminiReply builds a generateContent response body carrying text.
func geminiReply(text string) string {
	body, _ := json.Marshal(map[string]any{
		"candidates": []any{
			map[string]any{
				"content": map[string]any{
					"parts": []any{map[string]any{"text": text}},
				},
			},
		},
	})
	return string(body)
}

func newTestClient(t *testing.T, apiKey string, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{APIKey: apiKey, BaseURL: srv.URL, Model: "gemini-test"}, srv.Client(), testLogger())
}

func TestClient_Generate_Success(t *testing.T) {
	t.Parallel()

	var gotReq generateRequest
	client := newTestClient(t, "secret-key", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "secret-key", r.URL.Query().Get("key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, geminiReply("```json\n{\"ingredients\":[{\"name\":\"Aloe\",\"howToUse\":\"Leave in\"}],\"washFrequency\":\"2-3 times/week\",\"tips\":[\"Hydrate\"]}\n```"))
	})

	plan := client.Generate(context.Background(), "my prompt")

	require.False(t, plan.IsError(), "unexpected error plan: %+v", plan)
	assert.Equal(t, []string{"Aloe"}, plan.Ingredients)
	assert.Equal(t, "Leave in", plan.Instructions["Aloe"])
	assert.Equal(t, "2-3 times/week", plan.WashFrequency)
	assert.Equal(t, []string{"Hydrate"}, plan.Tips)

	require.Len(t, gotReq.Contents, 1)
	require.Len(t, gotReq.Contents[0].Parts, 1)
	assert.Equal(t, "my prompt", gotReq.Contents[0].Parts[0].Text)
	assert.Equal(t, 0.7, gotReq.GenerationConfig.Temperature)
	assert.Equal(t, 40, gotReq.GenerationConfig.TopK)
	assert.Equal(t, 0.95, gotReq.GenerationConfig.TopP)
	assert.Equal(t, 2048, gotReq.GenerationConfig.MaxOutputTokens)
}

func TestClient_Generate_MissingAPIKey(t *testing.T) {
	t.Parallel()

	called := false
	client := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	plan := client.Generate(context.Background(), "prompt")

	assert.False(t, called, "no request should be sent without an API key")
	assert.True(t, plan.IsError())
	assert.Equal(t, ErrorMessage, plan.Error)
	assert.Contains(t, plan.RawResponse, "GEMINI_API_KEY")
}

func TestClient_Generate_ErrorPayloads(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		status     int
		body       string
		wantDetail string
	}{
		{"server error", http.StatusInternalServerError, `{"error":{"message":"overloaded"}}`, "500"},
		{"unauthorized", http.StatusForbidden, `{"error":{"message":"bad key"}}`, "403"},
		{"no candidates", http.StatusOK, `{"candidates":[]}`, "no text"},
		{"empty text", http.StatusOK, geminiReply("   "), "no text"},
		{"not json", http.StatusOK, geminiReply("Sorry, I can't do that."), "decode care plan"},
		{"garbage body", http.StatusOK, "<html>oops</html>", "decode response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := newTestClient(t, "key", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			plan := client.Generate(context.Background(), "prompt")

			assert.True(t, plan.IsError())
			assert.Equal(t, ErrorMessage, plan.Error)
			assert.Contains(t, plan.RawResponse, tt.wantDetail)
			assert.Empty(t, plan.Ingredients)
		})
	}
}

func TestClient_Generate_TransportErrorRedactsKey(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := srv.URL
	srv.Close()

	client := NewClient(Config{APIKey: "top-secret", BaseURL: baseURL, Model: "m"}, nil, testLogger())
	plan := client.Generate(context.Background(), "prompt")

	assert.True(t, plan.IsError())
	assert.False(t, strings.Contains(plan.RawResponse, "top-secret"), "raw response leaks key: %s", plan.RawResponse)
}
