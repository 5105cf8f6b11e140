// internal/output/postgresql.go
package output

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v4/stdlib" // registers the "pgx" driver
	_ "github.com/lib/pq"              // registers the "postgres" driver
)

var postgresDialect = dialect{
	name:        "postgresql",
	quote:       func(s string) string { return `"` + s + `"` },
	placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	idColumn:    "id SERIAL PRIMARY KEY",
	textType:    "TEXT",
	floatType:   "DOUBLE PRECISION",
	timeType:    "TIMESTAMP",
	refType:     "BIGINT",
	columnTypes: map[string]string{
		"name":          "VARCHAR(256)",
		"contact_email": "VARCHAR(256)",
		"contact_phone": "VARCHAR(64)",
		"website":       "VARCHAR(256)",
		"region":        "VARCHAR(128)",
		"industry":      "VARCHAR(128)",
		"run_id":        "VARCHAR(64)",
	},
	createdAt: "TIMESTAMP DEFAULT CURRENT_TIMESTAMP",
	insertIgnore: func(table, columns, values string) string {
		return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT DO NOTHING", table, columns, values)
	},
}

// openPostgres opens a pool using lib/pq ("postgres", the default) or the
// pgx stdlib adapter ("pgx").
func openPostgres(driver, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("PostgreSQL connection string is required")
	}
	if driver == "" {
		driver = "postgres"
	}
	if driver != "postgres" && driver != "pgx" {
		return nil, fmt.Errorf("unknown PostgreSQL driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := pingDB(db, "PostgreSQL"); err != nil {
		return nil, err
	}
	return db, nil
}

// NewPostgreSQLWriter creates a writer for a PostgreSQL table
func NewPostgreSQLWriter(cfg Config) (*SQLWriter, error) {
	db, err := openPostgres(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	w, err := newSQLWriter(db, postgresDialect, cfg)
	if err != nil {
		db.Close()
		return nil, err
	}
	return w, nil
}
