package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"sheetprompt/internal"
	"sheetprompt/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *internal.Logger {
	return internal.NewLoggerTo(internal.LogLevelError, &bytes.Buffer{})
}

// fakeGemini serves the generateContent REST endpoint with a fixed status
// and body, and records the last request
type fakeGemini struct {
	status   int
	body     string
	delay    time.Duration
	calls    atomic.Int32
	lastPath string
	lastKey  string
	lastBody map[string]any
}

func (f *fakeGemini) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)
	f.lastPath = r.URL.Path
	f.lastKey = r.Header.Get("x-goog-api-key")
	raw, _ := io.ReadAll(r.Body)
	_ = json.Unmarshal(raw, &f.lastBody)

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-r.Context().Done():
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(f.status)
	_, _ = io.WriteString(w, f.body)
}

func newTestClient(t *testing.T, fake *fakeGemini, cfg Config) *GeminiClient {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cfg.BaseURL = srv.URL + "/"
	client, err := NewGeminiClient(context.Background(), Credentials{APIKey: "test-key"}, cfg, quietLogger())
	require.NoError(t, err)
	return client
}

const okBody = `{
  "candidates": [{
    "content": {"role": "model", "parts": [{"text": "Hello "}, {"text": "world"}]},
    "finishReason": "STOP"
  }],
  "usageMetadata": {"promptTokenCount": 7, "candidatesTokenCount": 2, "totalTokenCount": 9}
}`

func TestGenerateSuccess(t *testing.T) {
	fake := &fakeGemini{status: http.StatusOK, body: okBody}
	temp := 0.3
	client := newTestClient(t, fake, Config{Model: "gemini-test", Temperature: &temp, MaxOutputTokens: 64})

	resp, err := client.Generate(context.Background(), "Describe Laptop X")
	require.NoError(t, err)

	assert.Equal(t, "Hello world", resp.Content)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 9, resp.Usage.TotalTokens)
	assert.Equal(t, "gemini", resp.Usage.Provider)

	assert.Contains(t, fake.lastPath, "gemini-test:generateContent")
	assert.Equal(t, "test-key", fake.lastKey)
	assert.Contains(t, mustJSON(t, fake.lastBody), "Describe Laptop X")
	assert.Equal(t, int32(1), fake.calls.Load())
}

func TestGenerateSkipsThoughtParts(t *testing.T) {
	body := `{"candidates": [{"content": {"parts": [{"text": "thinking...", "thought": true}, {"text": "answer"}]}}]}`
	client := newTestClient(t, &fakeGemini{status: http.StatusOK, body: body}, Config{})

	resp, err := client.Generate(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "answer", resp.Content)
	assert.Equal(t, defaultModel, client.Model())
}

func TestGenerateEmptyOrBlocked(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"blocked prompt", `{"promptFeedback": {"blockReason": "SAFETY"}}`, "SAFETY"},
		{"no text", `{"candidates": [{"content": {"parts": [{"text": "  "}]}, "finishReason": "MAX_TOKENS"}]}`, "MAX_TOKENS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, &fakeGemini{status: http.StatusOK, body: tt.body}, Config{})
			_, err := client.Generate(context.Background(), "q")
			require.Error(t, err)
			assert.True(t, errors.IsAPIError(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestGenerateErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error": {"code": 401, "message": "unauthenticated", "status": "UNAUTHENTICATED"}}`, errors.IsAuthentication},
		{"forbidden", http.StatusForbidden, `{"error": {"code": 403, "message": "denied", "status": "PERMISSION_DENIED"}}`, errors.IsAuthentication},
		{"invalid key", http.StatusBadRequest, `{"error": {"code": 400, "message": "API key not valid. Please pass a valid API key.", "status": "INVALID_ARGUMENT"}}`, errors.IsAuthentication},
		{"rate limited", http.StatusTooManyRequests, `{"error": {"code": 429, "message": "quota exceeded", "status": "RESOURCE_EXHAUSTED"}}`, errors.IsAPIError},
		{"server error", http.StatusInternalServerError, `{"error": {"code": 500, "message": "internal", "status": "INTERNAL"}}`, errors.IsAPIError},
		{"bad request", http.StatusBadRequest, `{"error": {"code": 400, "message": "prompt too long", "status": "INVALID_ARGUMENT"}}`, errors.IsAPIError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeGemini{status: tt.status, body: tt.body}
			client := newTestClient(t, fake, Config{})

			_, err := client.Generate(context.Background(), "q")
			require.Error(t, err)
			assert.True(t, tt.check(err), "got %v", err)
			assert.GreaterOrEqual(t, fake.calls.Load(), int32(1))
		})
	}
}

func TestGenerateNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL + "/"
	srv.Close()

	client, err := NewGeminiClient(context.Background(), Credentials{APIKey: "k"}, Config{BaseURL: base}, quietLogger())
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), "q")
	require.Error(t, err)
	assert.True(t, errors.IsNetworkError(err), "got %v", err)
}

func TestGenerateTimeoutIsNetworkError(t *testing.T) {
	fake := &fakeGemini{status: http.StatusOK, body: okBody, delay: 2 * time.Second}
	client := newTestClient(t, fake, Config{Timeout: 50 * time.Millisecond})

	_, err := client.Generate(context.Background(), "q")
	require.Error(t, err)
	assert.True(t, errors.IsNetworkError(err), "got %v", err)
}

func TestNewGeminiClientRequiresKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), Credentials{APIKey: "  "}, Config{}, quietLogger())
	require.Error(t, err)
	assert.True(t, errors.IsAuthentication(err))
}

func TestNewTextGeneratorDryRun(t *testing.T) {
	gen, err := NewTextGenerator(context.Background(), Credentials{}, Config{}, true)
	require.NoError(t, err)

	resp, err := gen.Generate(context.Background(), "Describe {x}")
	require.NoError(t, err)
	assert.Equal(t, "Describe {x}", resp.Content)

	_, err = NewTextGenerator(context.Background(), Credentials{}, Config{}, false)
	assert.True(t, errors.IsAuthentication(err))
}

func TestMockLLMClientScript(t *testing.T) {
	mock := &MockLLMClient{
		Responses: []string{"first", ""},
		Errors:    []error{nil, errors.APIError("boom", nil)},
		Response:  "fallback",
	}
	ctx := context.Background()

	resp, err := mock.Generate(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "first", resp.Content)

	_, err = mock.Generate(ctx, "b")
	assert.True(t, errors.IsAPIError(err))

	resp, err = mock.Generate(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, "fallback", resp.Content)

	assert.Equal(t, 3, mock.Calls())
	assert.Equal(t, []string{"a", "b", "c"}, mock.Prompts)
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return strings.TrimSpace(string(raw))
}
