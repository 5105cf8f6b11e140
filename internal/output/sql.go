// internal/output/sql.go
package output

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/valpere/LeadScout/internal/utils"
)

// dialect captures what differs between the SQL stores
type dialect struct {
	name        string
	quote       func(string) string
	placeholder func(n int) string
	// idColumn is the auto increment primary key definition
	idColumn string
	// textType is used for columns without an entry in columnTypes
	textType     string
	columnTypes  map[string]string
	floatType    string
	timeType     string
	refType      string
	createdAt    string
	tableSuffix  string
	insertIgnore func(table, columns, values string) string
}

func (d dialect) columnType(column string) string {
	if t, ok := d.columnTypes[column]; ok {
		return t
	}
	return d.textType
}

func questionMarks(int) string { return "?" }

// rebind rewrites ? placeholders for the dialect
func (d dialect) rebind(query string) string {
	if d.placeholder(1) == "?" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(d.placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SQLWriter stores business records in a relational table
type SQLWriter struct {
	db          *sql.DB
	dialect     dialect
	table       string
	columns     []string
	createTable bool
	onConflict  ConflictStrategy
	ready       bool
	inserted    int64
	logger      utils.Logger
}

func newSQLWriter(db *sql.DB, d dialect, cfg Config) (*SQLWriter, error) {
	table := cfg.Table
	if table == "" {
		table = "businesses"
	}
	if err := ValidateSQLIdentifier(table); err != nil {
		return nil, fmt.Errorf("invalid table name: %w", err)
	}
	onConflict := cfg.OnConflict
	if onConflict == "" {
		onConflict = ConflictIgnore
	}
	return &SQLWriter{
		db:          db,
		dialect:     d,
		table:       table,
		columns:     BusinessColumns,
		createTable: cfg.CreateTable,
		onConflict:  onConflict,
		logger:      utils.NewComponentLogger("output." + d.name),
	}, nil
}

func pingDB(db *sql.DB, store string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return utils.NewError(utils.ErrCodeDatabaseError, "failed to ping "+store+" database").WithCause(err).Build()
	}
	return nil
}

// Write stores the batch using a background context
func (w *SQLWriter) Write(data []map[string]interface{}) error {
	return w.WriteContext(context.Background(), data)
}

// WriteContext stores the batch in one transaction
func (w *SQLWriter) WriteContext(ctx context.Context, data []map[string]interface{}) error {
	if err := w.ensureTable(ctx); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, w.insertQuery())
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for i, record := range data {
		args := make([]interface{}, len(w.columns))
		for j, column := range w.columns {
			args[j] = record[column]
		}
		res, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			return fmt.Errorf("failed to insert record %d: %w", i, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += n
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	w.inserted += inserted
	if skipped := int64(len(data)) - inserted; skipped > 0 {
		w.logger.Infof("skipped %d businesses already stored in %s", skipped, w.table)
	}
	return nil
}

// Inserted returns how many rows were actually written
func (w *SQLWriter) Inserted() int64 {
	return w.inserted
}

func (w *SQLWriter) ensureTable(ctx context.Context) error {
	if w.ready || !w.createTable {
		return nil
	}
	if _, err := w.db.ExecContext(ctx, w.createTableQuery()); err != nil {
		return fmt.Errorf("failed to create table '%s': %w", w.table, err)
	}
	w.ready = true
	return nil
}

func (w *SQLWriter) createTableQuery() string {
	q := w.dialect.quote
	defs := []string{w.dialect.idColumn}
	for _, column := range w.columns {
		def := q(column) + " " + w.dialect.columnType(column)
		if column == "name" {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	defs = append(defs,
		q("created_at")+" "+w.dialect.createdAt,
		fmt.Sprintf("UNIQUE (%s, %s, %s)", q("name"), q("region"), q("industry")),
	)
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)%s",
		q(w.table), strings.Join(defs, ",\n\t"), w.dialect.tableSuffix)
}

func (w *SQLWriter) insertQuery() string {
	cols := make([]string, len(w.columns))
	vals := make([]string, len(w.columns))
	for i, column := range w.columns {
		cols[i] = w.dialect.quote(column)
		vals[i] = w.dialect.placeholder(i + 1)
	}
	columns := strings.Join(cols, ", ")
	values := strings.Join(vals, ", ")

	if w.onConflict == ConflictIgnore {
		return w.dialect.insertIgnore(w.dialect.quote(w.table), columns, values)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", w.dialect.quote(w.table), columns, values)
}

// Close closes the database connection
func (w *SQLWriter) Close() error {
	if w.db == nil {
		return nil
	}
	err := w.db.Close()
	w.db = nil
	return err
}
