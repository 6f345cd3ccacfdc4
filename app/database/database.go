package database

import (
	"fmt"
	"os"
	"path/filepath"

	"mtglog/app/config"
	"mtglog/app/logger"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open 按配置打开数据库连接并迁移表结构
func Open(cfg config.DatabaseConfig, log *logger.Logger) (*gorm.DB, error) {
	dialector, err := dialect(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		log.Errorf("连接数据库失败: %v", err)
		return nil, err
	}
	log.Infof("数据库连接成功: %s", cfg.Driver)

	if err := AutoMigrate(db); err != nil {
		log.Errorf("迁移表结构失败: %v", err)
		return nil, err
	}

	return db, nil
}

func dialect(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", "sqlite":
		// 确保数据库文件目录存在
		if dir := filepath.Dir(cfg.DSN); cfg.DSN != "" && !isMemoryDSN(cfg.DSN) {
			if err := ensureDir(dir); err != nil {
				return nil, fmt.Errorf("创建数据库目录失败: %w", err)
			}
		}
		return sqlite.Open(cfg.DSN), nil
	case "postgres":
		return postgres.Open(cfg.DSN), nil
	case "mysql":
		return mysql.Open(cfg.DSN), nil
	}
	return nil, fmt.Errorf("不支持的数据库驱动: %s", cfg.Driver)
}

// Close 关闭数据库连接
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func isMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || len(dsn) >= 5 && dsn[:5] == "file:"
}

// ensureDir 确保目录存在
func ensureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}
