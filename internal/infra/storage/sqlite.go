// Package storage implements persistence on an embedded SQLite database
// via GORM. The schema is versioned; Open migrates to the current version.
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SchemaVersion is the current on-disk schema version.
const SchemaVersion = 1

// DB wraps the GORM handle shared by the store adapters.
type DB struct {
	gorm *gorm.DB
}

// Open opens (or creates) the database under dataDir and migrates the
// schema. Use ":memory:" as dataDir for an in-memory database in tests.
func Open(dataDir string) (*DB, error) {
	dsn := "file::memory:?cache=shared"
	if dataDir != ":memory:" {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		dsn = filepath.Join(dataDir, "leadgen.db")
	}

	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := gdb.AutoMigrate(&leadRecord{}, &settingRecord{}, &templateRecord{}, &schemaMeta{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := gdb.Where(schemaMeta{ID: 1}).
		Assign(schemaMeta{Version: SchemaVersion}).
		FirstOrCreate(&schemaMeta{}).Error; err != nil {
		return nil, fmt.Errorf("record schema version: %w", err)
	}

	return &DB{gorm: gdb}, nil
}

// Ping verifies the underlying connection, for readiness checks.
func (db *DB) Ping() error {
	sqlDB, err := db.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Close releases the underlying connection pool.
func (db *DB) Close() error {
	sqlDB, err := db.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type schemaMeta struct {
	ID      uint `gorm:"primaryKey"`
	Version int
}

func (schemaMeta) TableName() string { return "schema_meta" }
