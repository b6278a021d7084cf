// Package db records capture sessions to SQLite: the raw landmarker payloads
// as they arrived and, optionally, the per-tick frame reports. Recorded
// sessions can be replayed through any payload handler.
package db

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// DB is a session store.
type DB struct {
	*sql.DB
	path string
}

// NewDB opens or creates the database at path and migrates it to the latest
// schema.
func NewDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, err
	}
	if isMemory(path) {
		// Each connection to :memory: is a separate database.
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	db := &DB{DB: sqlDB, path: path}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Path returns the path the database was opened with.
func (db *DB) Path() string { return db.path }

// dsn applies the connection pragmas. modernc.org/sqlite runs _pragma
// parameters on every new connection, which foreign_keys needs.
func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	pragmas := []string{"_pragma=foreign_keys(1)", "_pragma=busy_timeout(5000)"}
	if !isMemory(path) {
		pragmas = append(pragmas, "_pragma=journal_mode(WAL)")
	}
	return path + sep + strings.Join(pragmas, "&")
}

func isMemory(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}
