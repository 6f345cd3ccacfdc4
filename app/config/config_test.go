package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadYAML(t *testing.T, body string) (*Config, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	v := viper.New()
	v.SetConfigFile(path)
	return LoadFrom(v)
}

func TestLoadFromAppliesDefaults(t *testing.T) {
	cfg, err := loadYAML(t, "server:\n  port: \"9000\"\n")
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "videos", cfg.Storage.Bucket)
	assert.Equal(t, 30*time.Minute, cfg.Storage.SignedURLTTL)
	assert.Equal(t, "transcription-audio", cfg.Pipeline.AudioBucket)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Retry.BaseDelay)
	assert.Equal(t, "stream", cfg.Transfer.Mode)
	assert.Equal(t, 15000, cfg.Gemini.MaxTranscriptTokens)
	assert.Equal(t, "ja-JP", cfg.Speech.Language)
	assert.True(t, cfg.Transcriber.Async)
}

func TestLoadFromRejectsUnknownDriver(t *testing.T) {
	_, err := loadYAML(t, "database:\n  driver: oracle\n")
	assert.Error(t, err)
}

func TestLoadFromRejectsUnknownTransferMode(t *testing.T) {
	_, err := loadYAML(t, "transfer:\n  mode: carrier-pigeon\n")
	assert.Error(t, err)
}

func TestStageURL(t *testing.T) {
	cfg := &Config{}
	assert.Empty(t, cfg.StageURL("/api/start-task"))
	assert.Empty(t, cfg.SummarizeEndpoint())

	cfg.Pipeline.AppURL = "https://app.example.com/"
	assert.Equal(t, "https://app.example.com/api/start-task", cfg.StageURL("/api/start-task"))
	assert.Equal(t, "https://app.example.com/api/summarize-task", cfg.SummarizeEndpoint())

	cfg.Pipeline.SummarizeURL = "https://other.example.com/summarize"
	assert.Equal(t, "https://other.example.com/summarize", cfg.SummarizeEndpoint())
}
