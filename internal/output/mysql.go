// internal/output/mysql.go
package output

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

var mysqlDialect = dialect{
	name:        "mysql",
	quote:       func(s string) string { return "`" + s + "`" },
	placeholder: questionMarks,
	idColumn:    "id BIGINT AUTO_INCREMENT PRIMARY KEY",
	textType:    "TEXT",
	floatType:   "DOUBLE",
	timeType:    "DATETIME",
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
	createdAt:   "TIMESTAMP DEFAULT CURRENT_TIMESTAMP",
	tableSuffix: " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci",
	insertIgnore: func(table, columns, values string) string {
		return fmt.Sprintf("INSERT IGNORE INTO %s (%s) VALUES (%s)", table, columns, values)
	},
}

// mysqlDSN forces the settings the writers rely on
func mysqlDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid MySQL dsn: %w", err)
	}
	cfg.ParseTime = true
	if cfg.Params == nil {
		cfg.Params = map[string]string{}
	}
	if _, ok := cfg.Params["charset"]; !ok {
		cfg.Params["charset"] = "utf8mb4"
	}
	return cfg.FormatDSN(), nil
}

func openMySQL(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("MySQL connection string is required")
	}
	normalized, err := mysqlDSN(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	if err := pingDB(db, "MySQL"); err != nil {
		return nil, err
	}
	return db, nil
}

// NewMySQLWriter creates a writer for a MySQL table
func NewMySQLWriter(cfg Config) (*SQLWriter, error) {
	db, err := openMySQL(cfg.DSN)
	if err != nil {
		return nil, err
	}
	w, err := newSQLWriter(db, mysqlDialect, cfg)
	if err != nil {
		db.Close()
		return nil, err
	}
	return w, nil
}
