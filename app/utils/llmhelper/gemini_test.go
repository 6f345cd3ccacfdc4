package llmhelper

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"mtglog/app/config"
	"mtglog/app/utils/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-pro:generateContent", r.URL.Path)
		assert.Equal(t, "k-123", r.URL.Query().Get("key"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello", req.Contents[0].Parts[0].Text)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"{\"a\":"},{"text":"1}"}]}}]}`)
	}))
	defer srv.Close()

	g := NewGemini(config.GeminiConfig{APIKey: "k-123", Model: "gemini-pro", BaseURL: srv.URL})
	defer g.Close()

	out, err := g.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, out)
}

func TestGenerateErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("key") {
		case "empty":
			_, _ = io.WriteString(w, `{"candidates":[]}`)
		default:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":{"message":"API key not valid: bad-key-999"}}`)
		}
	}))
	defer srv.Close()

	g := NewGemini(config.GeminiConfig{APIKey: "empty", Model: "gemini-pro", BaseURL: srv.URL})
	_, err := g.Generate(context.Background(), "x")
	assert.ErrorIs(t, err, ErrEmptyCompletion)

	g = NewGemini(config.GeminiConfig{APIKey: "bad-key-999", Model: "gemini-pro", BaseURL: srv.URL})
	_, err = g.Generate(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.NotContains(t, err.Error(), "bad-key-999")
}

func TestGenerateRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, `{"error":{"message":"overloaded"}}`)
			return
		}
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`)
	}))
	defer srv.Close()

	g := NewGemini(config.GeminiConfig{APIKey: "k", Model: "gemini-pro", BaseURL: srv.URL}).
		WithRetry(retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond})
	defer g.Close()

	out, err := g.Generate(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGenerateDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("key") == "empty" {
			_, _ = io.WriteString(w, `{"candidates":[]}`)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"message":"bad request"}}`)
	}))
	defer srv.Close()

	policy := retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}
	g := NewGemini(config.GeminiConfig{APIKey: "k", Model: "gemini-pro", BaseURL: srv.URL}).WithRetry(policy)
	_, err := g.Generate(context.Background(), "x")
	var statusErr *retry.HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())

	calls.Store(0)
	g = NewGemini(config.GeminiConfig{APIKey: "empty", Model: "gemini-pro", BaseURL: srv.URL}).WithRetry(policy)
	_, err = g.Generate(context.Background(), "x")
	assert.ErrorIs(t, err, ErrEmptyCompletion)
	assert.Equal(t, int32(1), calls.Load())
}
