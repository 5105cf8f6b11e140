// internal/output/sqlite.go
package output

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const sqliteConnectionParams = "?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"

var sqliteDialect = dialect{
	name:        "sqlite",
	quote:       func(s string) string { return `"` + s + `"` },
	placeholder: questionMarks,
	idColumn:    "id INTEGER PRIMARY KEY AUTOINCREMENT",
	textType:    "TEXT",
	floatType:   "REAL",
	timeType:    "DATETIME",
	refType:     "INTEGER",
	createdAt:   "DATETIME DEFAULT CURRENT_TIMESTAMP",
	insertIgnore: func(table, columns, values string) string {
		return fmt.Sprintf("INSERT OR IGNORE INTO %s (%s) VALUES (%s)", table, columns, values)
	},
}

// openSQLite opens a database file, creating its directory. dsn may be a
// plain path or carry its own connection parameters.
func openSQLite(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("SQLite database path is required")
	}

	path := dsn
	if i := strings.Index(dsn, "?"); i >= 0 {
		path = dsn[:i]
	} else {
		dsn += sqliteConnectionParams
	}
	if dir := filepath.Dir(path); dir != "." && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite: %w", err)
	}
	// single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := pingDB(db, "SQLite"); err != nil {
		return nil, err
	}
	return db, nil
}

// NewSQLiteWriter creates a writer for a SQLite file. cfg.DSN wins over cfg.File.
func NewSQLiteWriter(cfg Config) (*SQLWriter, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = cfg.File
	}
	db, err := openSQLite(dsn)
	if err != nil {
		return nil, err
	}
	w, err := newSQLWriter(db, sqliteDialect, cfg)
	if err != nil {
		db.Close()
		return nil, err
	}
	return w, nil
}
