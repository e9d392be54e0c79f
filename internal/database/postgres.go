package database

import (
	"database/sql"
	"fmt"

	"docvault/internal/database/migrations"
)

// NewPostgresDatabase opens a PostgreSQL-backed repository and brings
// its schema up to date.
func NewPostgresDatabase(dsn string) (*SQLDatabase, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := migrations.MigrateUp(db, migrations.Postgres); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return &SQLDatabase{db: db, dialect: migrations.Postgres}, nil
}
