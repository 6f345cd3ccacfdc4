package pipelinehelper

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mtglog/app/utils/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer hook", r.Header.Get("Authorization"))
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))

		w.Header().Set("Content-Type", "application/json")
		if in["taskId"] == "bad" {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = io.WriteString(w, `{"error":"upstream said hook"}`)
			return
		}
		_, _ = io.WriteString(w, `{"status":"processing"}`)
	}))
	defer srv.Close()

	c := New("hook", time.Second)
	defer c.Close()

	var out struct {
		Status string `json:"status"`
	}
	require.NoError(t, c.Post(context.Background(), srv.URL, map[string]string{"taskId": "t1"}, &out))
	assert.Equal(t, "processing", out.Status)

	err := c.Post(context.Background(), srv.URL, map[string]string{"taskId": "bad"}, nil)
	var statusErr *retry.HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.NotContains(t, statusErr.Body, "hook")

	assert.Error(t, c.Post(context.Background(), "", nil, nil))
}
