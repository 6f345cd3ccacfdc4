package audiohelper

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgs(t *testing.T) {
	args := Args("/tmp/in.mp4", "/tmp/out.mp3")
	assert.Contains(t, args, "/tmp/in.mp4")
	assert.Contains(t, args, "/tmp/out.mp3")
	assert.Contains(t, args, "libmp3lame")
	assert.Contains(t, args, "16000")
	assert.Contains(t, args, "64k")
	assert.Contains(t, args, "-vn")
	assert.Contains(t, args, "-y")
}

func TestExtractUsesRunner(t *testing.T) {
	var gotName string
	var gotArgs []string
	e := New("").WithRunner(func(_ context.Context, name string, args ...string) ([]byte, error) {
		gotName, gotArgs = name, args
		return nil, nil
	})

	require.NoError(t, e.Extract(context.Background(), "in.mp4", "out.mp3"))
	assert.Equal(t, "ffmpeg", gotName)
	assert.Equal(t, Args("in.mp4", "out.mp3"), gotArgs)
}

func TestExtractReportsStderr(t *testing.T) {
	e := New("/usr/bin/ffmpeg").WithRunner(func(context.Context, string, ...string) ([]byte, error) {
		return []byte("in.mp4: Invalid data found when processing input"), errors.New("exit status 1")
	})
	err := e.Extract(context.Background(), "in.mp4", "out.mp3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid data found")
}
