package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"mtglog/app/config"
	"mtglog/app/logger"
	"mtglog/app/model"
	"mtglog/app/storage"
	"mtglog/app/store"
	"mtglog/app/utils/notionhelper"
	"mtglog/app/utils/slackhelper"
	"mtglog/app/utils/speechhelper"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Auth:     config.AuthConfig{WebhookSecret: "s3cret", SlackBotToken: "xoxb-test"},
		Pipeline: config.PipelineConfig{AppURL: "http://app.local", TranscriberURL: "http://worker.local/transcribe", AudioBucket: "audio-bucket"},
		Transfer: config.TransferConfig{Mode: "stream", MaxBufferBytes: 1 << 20},
		Retry:    config.RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond},
		Gemini:   config.GeminiConfig{MaxTranscriptTokens: 15000},
	}
}

func requireStageError(t *testing.T, err error, status int) *StageError {
	t.Helper()
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, status, se.Status)
	return se
}

func seed(t *testing.T, st *store.Store, task *model.Task) *model.Task {
	t.Helper()
	require.NoError(t, st.CreateTask(context.Background(), task))
	return task
}

func strPtr(s string) *string { return &s }

type fakeVideos struct {
	uploadURL string
	signErr   error

	mu    sync.Mutex
	signs int
}

func (f *fakeVideos) CreateUploadTarget(fileName, contentType string) (*storage.UploadTarget, error) {
	return &storage.UploadTarget{
		UploadURL:   f.uploadURL,
		StoragePath: storage.VideoPath(fileName, time.UnixMilli(42)),
	}, nil
}

func (f *fakeVideos) SignedDownloadURL(storagePath string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signs++
	if f.signErr != nil {
		return "", f.signErr
	}
	return "https://storage.local/" + storagePath + "?X-Amz-Signature=abc", nil
}

type fakeSlack struct {
	body    string
	infoErr error
	opened  []string
}

func (f *fakeSlack) FileInfo(ctx context.Context, fileID string) (*slackhelper.File, error) {
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	return &slackhelper.File{ID: fileID, URLPrivateDownload: "https://files.slack.local/" + fileID}, nil
}

func (f *fakeSlack) Open(ctx context.Context, url string) (io.ReadCloser, int64, error) {
	f.opened = append(f.opened, url)
	return io.NopCloser(strings.NewReader(f.body)), int64(len(f.body)), nil
}

type posted struct {
	url  string
	body []byte
}

type fakePoster struct {
	err error

	mu    sync.Mutex
	calls []posted
}

func (f *fakePoster) Post(ctx context.Context, url string, body, out any) error {
	raw, _ := json.Marshal(body)
	f.mu.Lock()
	f.calls = append(f.calls, posted{url: url, body: raw})
	f.mu.Unlock()
	return f.err
}

func (f *fakePoster) posts() []posted {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]posted(nil), f.calls...)
}

type fakeLLM struct {
	fn func(prompt string) (string, error)

	mu      sync.Mutex
	prompts []string
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	return f.fn(prompt)
}

type fakeNotion struct {
	failDB string

	mu      sync.Mutex
	created map[string]notionhelper.Page
}

func (f *fakeNotion) CreatePage(ctx context.Context, databaseID string, page notionhelper.Page) (string, error) {
	if databaseID == f.failDB {
		return "", errors.New("notion 503")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.created == nil {
		f.created = map[string]notionhelper.Page{}
	}
	f.created[databaseID] = page
	return "page-" + databaseID, nil
}

type fakeAudio struct{ err error }

func (f *fakeAudio) Extract(ctx context.Context, input, output string) error {
	if f.err != nil {
		return f.err
	}
	return writeFile(output, "ID3audio")
}

type fakeObjects struct {
	bucket, key string
	data        []byte
}

func (f *fakeObjects) Upload(ctx context.Context, bucket, key string, body io.Reader, contentType string) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return err
	}
	f.bucket, f.key, f.data = bucket, key, buf.Bytes()
	return nil
}

type fakeRecognizer struct {
	text string
	err  error
	got  speechhelper.Audio
}

func (f *fakeRecognizer) Recognize(ctx context.Context, audio speechhelper.Audio) (string, error) {
	f.got = audio
	return f.text, f.err
}

func nopLogger() *logger.Logger {
	return logger.NewNop()
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
