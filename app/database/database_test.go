package database

import (
	"path/filepath"
	"testing"

	"mtglog/app/config"
	"mtglog/app/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLiteMigrates(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "nested", "mtglog.db")
	db, err := Open(config.DatabaseConfig{Driver: "sqlite", DSN: dsn}, logger.NewNop())
	require.NoError(t, err)
	defer Close(db)

	for _, table := range []string{"transcription_tasks", "upload_logs", "notion_db_map"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "oracle"}, logger.NewNop())
	assert.Error(t, err)
}
