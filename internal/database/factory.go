package database

import (
	"fmt"
	"os"
	"path/filepath"

	"docvault/internal/config"
	"docvault/internal/core"
)

// NewDatabaseFromConfig creates a Repository based on the database
// config type.
func NewDatabaseFromConfig(cfg config.DatabaseConfig) (core.Repository, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		return NewSQLiteDatabase(filepath.Join(cfg.DataDir, "docvault.db"))
	case "memory":
		return NewSQLiteDatabase(":memory:")
	case "postgres":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("dsn required for postgres database")
		}
		return NewPostgresDatabase(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
