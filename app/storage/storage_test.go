package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"mtglog/app/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccepted(t *testing.T) {
	assert.True(t, Accepted("meeting.mp4", "video/mp4"))
	assert.True(t, Accepted("MEETING.MP4", "video/mp4; codecs=avc1"))
	assert.False(t, Accepted("meeting.mov", "video/quicktime"))
	assert.False(t, Accepted("meeting.mp4", "video/quicktime"))
	assert.False(t, Accepted("meeting.mov", "video/mp4"))
	assert.False(t, Accepted("meeting", ""))
}

func TestVideoPath(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	assert.Equal(t, "videos/1700000000123_2024_05______.mp4", VideoPath("2024 05 面談の録画.mp4", now))
	assert.Equal(t, "videos/1700000000123_a.mp4", VideoPath("../../a.mp4", now))
	assert.Equal(t, "audio/t1/1700000000123.mp3", AudioPath("t1", now))
}

func newTestStorage(t *testing.T, endpoint string) *S3Storage {
	t.Helper()
	s, err := NewS3(config.StorageConfig{
		Endpoint:     endpoint,
		Region:       "us-east-1",
		AccessKey:    "AKIDEXAMPLE",
		SecretKey:    "secret",
		Bucket:       "videos",
		PathStyle:    true,
		SignedURLTTL: 30 * time.Minute,
	})
	require.NoError(t, err)
	s.now = func() time.Time { return time.UnixMilli(42) }
	return s
}

func TestPresignedURLs(t *testing.T) {
	s := newTestStorage(t, "http://127.0.0.1:9000")

	target, err := s.CreateUploadTarget("meeting.mp4", "video/mp4")
	require.NoError(t, err)
	assert.Equal(t, "videos/42_meeting.mp4", target.StoragePath)

	u, err := url.Parse(target.UploadURL)
	require.NoError(t, err)
	assert.Equal(t, "/videos/videos/42_meeting.mp4", u.Path)
	assert.Equal(t, "1800", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))

	download, err := s.SignedDownloadURL(target.StoragePath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(download, "http://127.0.0.1:9000/videos/videos/42_meeting.mp4?"))
}

func TestUploadPutsObject(t *testing.T) {
	var gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := newTestStorage(t, srv.URL)
	err := s.Upload(context.Background(), "transcription-audio", "audio/t1/1.mp3", strings.NewReader("ID3"), "audio/mpeg")
	require.NoError(t, err)
	assert.Equal(t, "/transcription-audio/audio/t1/1.mp3", gotPath)
	assert.Equal(t, "ID3", gotBody)
}
