// Package storetest 为测试提供内存 sqlite 上的 Store
package storetest

import (
	"testing"

	"mtglog/app/config"
	"mtglog/app/database"
	"mtglog/app/logger"
	"mtglog/app/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// New 打开独立的内存数据库并完成迁移
func New(t testing.TB) *store.Store {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := database.Open(config.DatabaseConfig{Driver: "sqlite", DSN: dsn}, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return store.New(db)
}
