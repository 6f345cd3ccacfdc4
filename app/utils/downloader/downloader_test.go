package downloader

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "mp4-bytes")
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "in", "video.mp4")
	res, err := Download(context.Background(), srv.URL+"/v.mp4?X-Amz-Signature=secret", dest, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(9), res.Size)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "mp4-bytes", string(data))
	_, err = os.Stat(dest + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestDownloadFailureRedactsAndCleansUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, "<Error>AccessDenied</Error>")
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "video.mp4")
	_, err := Download(context.Background(), srv.URL+"/v.mp4?X-Amz-Signature=secret", dest, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.NotContains(t, err.Error(), "secret")

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestDownloadEnforcesMaxBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "0123456789")
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "video.mp4")
	_, err := Download(context.Background(), srv.URL, dest, &Config{MaxBytes: 4, UseTemp: true})
	assert.Error(t, err)
	_, statErr := os.Stat(dest + ".tmp")
	assert.True(t, os.IsNotExist(statErr))
}
