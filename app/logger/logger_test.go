package logger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"mtglog/app/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileOutputWritesDatedFile(t *testing.T) {
	dir := t.TempDir()
	log := New(config.LogConfig{Level: "info", Format: "json", Output: "file", Dir: dir, MaxSize: 1})
	log.ForTask("t-1").Infof("任务已创建")
	require.NoError(t, log.Close())

	data, err := os.ReadFile(filepath.Join(dir, time.Now().Format(dateLayout)+".log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "任务已创建")
	assert.Contains(t, string(data), `"task_id":"t-1"`)
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	dir := t.TempDir()
	log := New(config.LogConfig{Level: "verbose", Format: "json", Output: "file", Dir: dir, MaxSize: 1})
	log.Debugf("hidden")
	log.Infof("shown")
	require.NoError(t, log.Close())

	data, err := os.ReadFile(filepath.Join(dir, time.Now().Format(dateLayout)+".log"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "shown")
}

func TestNopAndNamed(t *testing.T) {
	log := NewNop().Named("intake")
	assert.NotPanics(t, func() {
		log.Infof("noop %d", 1)
		log.WithField("task_id", "x").Info("noop")
		require.NoError(t, log.Close())
	})
}
