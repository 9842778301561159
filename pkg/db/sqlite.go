// Package db owns the local SQLite database used for the persisted settings
// blob and the conversation-list cache.
package db

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"Wetty/pkg/models"
)

// DB is the process-wide database handle, set by Init.
var DB *gorm.DB

// Init opens (creating if needed) the client database and migrates its
// schema. With an empty dataDir the database lives in the user config
// directory.
func Init(dataDir string) (*gorm.DB, error) {
	if dataDir == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("could not get user config dir: %w", err)
		}
		dataDir = filepath.Join(configDir, "Wetty")
	}
	dbPath := filepath.Join(dataDir, "wetty.db")
	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}

	gdb, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := gdb.AutoMigrate(
		&models.Setting{},
		&models.ChatCacheEntry{},
	); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate database schema: %w", err)
	}

	DB = gdb
	return gdb, nil
}

// OpenMemory opens an in-memory database with the same schema, for tests.
func OpenMemory() (*gorm.DB, error) {
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	if err := gdb.AutoMigrate(&models.Setting{}, &models.ChatCacheEntry{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate database schema: %w", err)
	}
	return gdb, nil
}
