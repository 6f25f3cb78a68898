package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"visionproxy/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *OpenAIClient {
	return NewOpenAIClient(&config.Config{
		OpenAIBaseURL:   baseURL,
		OpenAIAPIKey:    "sk-test",
		OpenAIModel:     "gpt-4o",
		UpstreamTimeout: 5 * time.Second,
		MaxTokens:       300,
	})
}

func TestCompleteSuccess(t *testing.T) {
	var captured chatRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"42"}}],"usage":{"prompt_tokens":10,"completion_tokens":2,"total_tokens":12}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	result, err := client.Complete(context.Background(), "What is the answer?", "aW1hZ2VkYXRh")
	require.NoError(t, err)
	assert.Equal(t, "42", result.Answer)
	assert.JSONEq(t, `{"prompt_tokens":10,"completion_tokens":2,"total_tokens":12}`, result.Usage)

	// 요청 페이로드 형태 확인
	assert.Equal(t, "gpt-4o", captured.Model)
	assert.Equal(t, 300, captured.MaxTokens)
	require.Len(t, captured.Messages, 1)
	assert.Equal(t, "user", captured.Messages[0].Role)
	require.Len(t, captured.Messages[0].Content, 2)
	assert.Equal(t, "text", captured.Messages[0].Content[0].Type)
	assert.Equal(t, "What is the answer?", captured.Messages[0].Content[0].Text)
	assert.Equal(t, "image_url", captured.Messages[0].Content[1].Type)
	require.NotNil(t, captured.Messages[0].Content[1].ImageURL)
	assert.Equal(t, "data:image/png;base64,aW1hZ2VkYXRh", captured.Messages[0].Content[1].ImageURL.URL)
}

func TestCompleteUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"boom"}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.Complete(context.Background(), "prompt", "aW1n")
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestCompleteRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.Complete(context.Background(), "prompt", "aW1n")
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestCompleteMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.Complete(context.Background(), "prompt", "aW1n")
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestCompleteWithoutUsageField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	result, err := client.Complete(context.Background(), "prompt", "aW1n")
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Answer)
	assert.Empty(t, result.Usage)
}

func TestCompleteEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.Complete(context.Background(), "prompt", "aW1n")
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestCompleteConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // 즉시 닫아 연결 실패 유도

	client := newTestClient(server.URL)

	_, err := client.Complete(context.Background(), "prompt", "aW1n")
	assert.ErrorIs(t, err, ErrUpstream)
}
