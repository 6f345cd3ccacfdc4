package speechhelper

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"mtglog/app/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSelectsProvider(t *testing.T) {
	r, err := New(config.SpeechConfig{Provider: "whisper", OpenAIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &Whisper{}, r)

	r, err = New(config.SpeechConfig{Provider: "google", GoogleKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &Google{}, r)

	_, err = New(config.SpeechConfig{Provider: "whisper"})
	assert.Error(t, err)
	_, err = New(config.SpeechConfig{Provider: "azure", OpenAIKey: "k"})
	assert.Error(t, err)
}

func TestWhisperRecognize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer sk-1", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		assert.Equal(t, "ja", r.FormValue("language"))
		f, _, err := r.FormFile("file")
		require.NoError(t, err)
		data, _ := io.ReadAll(f)
		assert.Equal(t, "ID3", string(data))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"text":" こんにちは \n"}`)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "audio.mp3")
	require.NoError(t, os.WriteFile(path, []byte("ID3"), 0o644))

	w := NewWhisper(config.SpeechConfig{OpenAIKey: "sk-1", OpenAIURL: srv.URL, Language: "ja-JP"})
	text, err := w.Recognize(context.Background(), Audio{Path: path})
	require.NoError(t, err)
	assert.Equal(t, "こんにちは", text)
}

func TestGoogleRecognizePolls(t *testing.T) {
	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "g-key", r.URL.Query().Get("key"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1p1beta1/speech:longrunningrecognize":
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "gs://transcription-audio/audio/t1/1.mp3", body["audio"].(map[string]any)["uri"])
			assert.Equal(t, "MP3", body["config"].(map[string]any)["encoding"])
			_, _ = io.WriteString(w, `{"name":"op-1"}`)
		case "/v1p1beta1/operations/op-1":
			if polls.Add(1) < 2 {
				_, _ = io.WriteString(w, `{"name":"op-1","done":false}`)
				return
			}
			_, _ = io.WriteString(w, `{"name":"op-1","done":true,"response":{"results":[{"alternatives":[{"transcript":"一行目"}]},{"alternatives":[{"transcript":"二行目"}]}]}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	g := NewGoogle(config.SpeechConfig{GoogleKey: "g-key", GoogleURL: srv.URL, Language: "ja-JP", PollInterval: 5 * time.Millisecond})
	text, err := g.Recognize(context.Background(), Audio{URI: "gs://transcription-audio/audio/t1/1.mp3"})
	require.NoError(t, err)
	assert.Equal(t, "一行目\n二行目", text)
	assert.Equal(t, int32(2), polls.Load())
}

func TestGoogleRecognizeOperationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"name":"op-1","done":true,"error":{"code":3,"message":"bad audio"}}`)
	}))
	defer srv.Close()

	g := NewGoogle(config.SpeechConfig{GoogleKey: "g-key", GoogleURL: srv.URL})
	_, err := g.Recognize(context.Background(), Audio{URI: "gs://b/k.mp3"})
	assert.ErrorContains(t, err, "bad audio")
}
