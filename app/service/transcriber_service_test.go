package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"mtglog/app/config"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTranscriber(t *testing.T, recognizer *fakeRecognizer) (*TranscriberService, *fakeObjects, *fakePoster, string) {
	src := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("fake-mp4"))
	}))
	t.Cleanup(src.Close)

	cfg := testConfig()
	cfg.Transcriber.WorkDir = t.TempDir()
	objects := &fakeObjects{}
	poster := &fakePoster{}
	svc := NewTranscriberService(cfg, nopLogger(), &fakeAudio{}, objects, recognizer, poster, NewBackground(nopLogger(), 0))
	return svc, objects, poster, src.URL + "/videos/a.mp4?X-Amz-Signature=abc"
}

func TestTranscribeRunsPipeline(t *testing.T) {
	recognizer := &fakeRecognizer{text: " 本日の議題は予算です \n"}
	svc, objects, poster, signedURL := newTranscriber(t, recognizer)
	svc.cfg.Transcriber.Async = false

	res, err := svc.Transcribe(context.Background(), TranscribeJob{
		SignedURL:   signedURL,
		GCSBucket:   "audio-bucket",
		GCSDestPath: "audio/t1/1.mp3",
		TaskID:      "t1",
	})
	require.NoError(t, err)
	assert.Equal(t, "t1", res.TaskID)
	assert.False(t, res.Accepted)

	assert.Equal(t, "audio-bucket", objects.bucket)
	assert.Equal(t, "audio/t1/1.mp3", objects.key)
	assert.Equal(t, "ID3audio", string(objects.data))
	assert.Equal(t, "gs://audio-bucket/audio/t1/1.mp3", recognizer.got.URI)

	calls := poster.posts()
	require.Len(t, calls, 2)
	assert.Equal(t, "http://app.local/api/transcription-result", calls[0].url)
	assert.Equal(t, "http://app.local/api/summarize-task", calls[1].url)
	var req SummarizeRequest
	require.NoError(t, json.Unmarshal(calls[1].body, &req))
	assert.Equal(t, SummarizeRequest{TaskID: "t1", Transcript: "本日の議題は予算です"}, req)

	entries, err := os.ReadDir(svc.cfg.Transcriber.WorkDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTranscribeWithDefaultWorkDir(t *testing.T) {
	cfg, err := config.LoadFrom(viper.New())
	require.NoError(t, err)
	require.Empty(t, cfg.Transcriber.WorkDir)
	cfg.Transcriber.Async = false
	cfg.Pipeline.AppURL = "http://app.local"
	cfg.Pipeline.SummarizeURL = ""

	src := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("fake-mp4"))
	}))
	defer src.Close()

	objects := &fakeObjects{}
	poster := &fakePoster{}
	recognizer := &fakeRecognizer{text: "議事録"}
	svc := NewTranscriberService(cfg, nopLogger(), &fakeAudio{}, objects, recognizer, poster, NewBackground(nopLogger(), 0))

	res, err := svc.Transcribe(context.Background(), TranscribeJob{
		SignedURL:   src.URL + "/videos/a.mp4",
		GCSBucket:   "audio-bucket",
		GCSDestPath: "audio/t2/1.mp3",
		TaskID:      "t2",
	})
	require.NoError(t, err)
	assert.Equal(t, "t2", res.TaskID)
	assert.Equal(t, "audio/t2/1.mp3", objects.key)
}

func TestTranscribeReportsFailure(t *testing.T) {
	recognizer := &fakeRecognizer{err: errors.New("speech 500")}
	svc, _, poster, signedURL := newTranscriber(t, recognizer)
	svc.cfg.Transcriber.Async = false

	_, err := svc.Transcribe(context.Background(), TranscribeJob{
		SignedURL:   signedURL,
		GCSBucket:   "audio-bucket",
		GCSDestPath: "audio/t1/1.mp3",
		TaskID:      "t1",
	})
	se := requireStageError(t, err, http.StatusInternalServerError)
	assert.NotContains(t, se.Details, "X-Amz-Signature")

	calls := poster.posts()
	require.Len(t, calls, 1)
	assert.Equal(t, "http://app.local/api/transcription-result", calls[0].url)
	var result TranscriptionResult
	require.NoError(t, json.Unmarshal(calls[0].body, &result))
	assert.Equal(t, "t1", result.TaskID)
	assert.Contains(t, result.Error, "speech 500")

	entries, err := os.ReadDir(svc.cfg.Transcriber.WorkDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTranscribeDownloadErrorIsRedacted(t *testing.T) {
	svc, _, _, _ := newTranscriber(t, &fakeRecognizer{text: "x"})
	svc.cfg.Transcriber.Async = false

	_, err := svc.Transcribe(context.Background(), TranscribeJob{
		SignedURL:   "http://127.0.0.1:1/videos/a.mp4?X-Amz-Signature=topsecret",
		GCSBucket:   "audio-bucket",
		GCSDestPath: "audio/t1/1.mp3",
		TaskID:      "t1",
	})
	se := requireStageError(t, err, http.StatusInternalServerError)
	assert.NotContains(t, se.Details, "topsecret")
}

func TestTranscribeAsyncAccepts(t *testing.T) {
	svc, _, poster, signedURL := newTranscriber(t, &fakeRecognizer{text: "議題"})
	svc.cfg.Transcriber.Async = true

	res, err := svc.Transcribe(context.Background(), TranscribeJob{
		SignedURL:   signedURL,
		GCSBucket:   "audio-bucket",
		GCSDestPath: "audio/t1/1.mp3",
		TaskID:      "t1",
	})
	require.NoError(t, err)
	assert.True(t, res.Accepted)

	svc.bg.Wait()
	assert.Len(t, poster.posts(), 2)
}

func TestTranscribeValidation(t *testing.T) {
	svc, _, _, _ := newTranscriber(t, &fakeRecognizer{})
	_, err := svc.Transcribe(context.Background(), TranscribeJob{TaskID: "t1"})
	requireStageError(t, err, http.StatusBadRequest)

	svc.recognizer = nil
	_, err = svc.Transcribe(context.Background(), TranscribeJob{SignedURL: "u", GCSBucket: "b", GCSDestPath: "p", TaskID: "t1"})
	requireStageError(t, err, http.StatusInternalServerError)
}
