// internal/output/types.go
package output

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/valpere/LeadScout/pkg/types"
)

// OutputFormat represents supported output formats
type OutputFormat string

const (
	FormatJSON       OutputFormat = "json"
	FormatCSV        OutputFormat = "csv"
	FormatYAML       OutputFormat = "yaml"
	FormatExcel      OutputFormat = "excel"
	FormatSQLite     OutputFormat = "sqlite"
	FormatPostgreSQL OutputFormat = "postgresql"
	FormatMySQL      OutputFormat = "mysql"
	FormatMongoDB    OutputFormat = "mongodb"
)

// ValidOutputFormats returns all valid output format values
func ValidOutputFormats() []OutputFormat {
	return []OutputFormat{
		FormatJSON, FormatCSV, FormatYAML, FormatExcel,
		FormatSQLite, FormatPostgreSQL, FormatMySQL, FormatMongoDB,
	}
}

// IsValid checks if the output format is valid
func (of OutputFormat) IsValid() bool {
	for _, valid := range ValidOutputFormats() {
		if of == valid {
			return true
		}
	}
	return false
}

// IsFile reports whether the format writes a local file
func (of OutputFormat) IsFile() bool {
	switch of {
	case FormatJSON, FormatCSV, FormatYAML, FormatExcel:
		return true
	}
	return false
}

// GetFileExtension returns the file extension for file formats
func (of OutputFormat) GetFileExtension() string {
	switch of {
	case FormatJSON:
		return ".json"
	case FormatCSV:
		return ".csv"
	case FormatYAML:
		return ".yaml"
	case FormatExcel:
		return ".xlsx"
	case FormatSQLite:
		return ".db"
	default:
		return ""
	}
}

// ConflictStrategy represents database conflict resolution strategies
type ConflictStrategy string

const (
	// ConflictIgnore skips a business already stored for the same region and industry
	ConflictIgnore ConflictStrategy = "ignore"
	// ConflictError fails the batch on a duplicate
	ConflictError ConflictStrategy = "error"
)

// Config selects and tunes the writer for finished batches
type Config struct {
	Format OutputFormat `yaml:"format" json:"format"`
	// File is the target for file formats. Empty means a name derived from
	// region and industry inside Directory.
	File      string `yaml:"file,omitempty" json:"file,omitempty"`
	Directory string `yaml:"directory,omitempty" json:"directory,omitempty"`
	// Driver picks the PostgreSQL driver: "postgres" (lib/pq) or "pgx"
	Driver      string           `yaml:"driver,omitempty" json:"driver,omitempty"`
	DSN         string           `yaml:"dsn,omitempty" json:"dsn,omitempty"`
	Table       string           `yaml:"table,omitempty" json:"table,omitempty"`
	Database    string           `yaml:"database,omitempty" json:"database,omitempty"`
	Collection  string           `yaml:"collection,omitempty" json:"collection,omitempty"`
	CreateTable bool             `yaml:"create_table" json:"create_table"`
	OnConflict  ConflictStrategy `yaml:"on_conflict,omitempty" json:"on_conflict,omitempty"`
	SheetName   string           `yaml:"sheet_name,omitempty" json:"sheet_name,omitempty"`
}

// DefaultConfig writes JSON files into the working directory
func DefaultConfig() Config {
	return Config{
		Format:      FormatJSON,
		Directory:   ".",
		Table:       "businesses",
		Collection:  "businesses",
		Database:    "leadscout",
		CreateTable: true,
		OnConflict:  ConflictIgnore,
		SheetName:   "Businesses",
	}
}

// Validate checks the fields the chosen format needs
func (c Config) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("unsupported output format: %s", c.Format)
	}
	switch c.Format {
	case FormatPostgreSQL, FormatMySQL, FormatMongoDB:
		if strings.TrimSpace(c.DSN) == "" {
			return fmt.Errorf("%s output requires a dsn", c.Format)
		}
	}
	if c.Format == FormatPostgreSQL && c.Driver != "" && c.Driver != "postgres" && c.Driver != "pgx" {
		return fmt.Errorf("unknown postgresql driver %q", c.Driver)
	}
	if c.OnConflict != "" && c.OnConflict != ConflictIgnore && c.OnConflict != ConflictError {
		return fmt.Errorf("unknown conflict strategy %q", c.OnConflict)
	}
	if c.Table != "" {
		if err := ValidateSQLIdentifier(c.Table); err != nil {
			return fmt.Errorf("table: %w", err)
		}
	}
	return nil
}

// Writer defines the interface for output writers
type Writer interface {
	Write(data []map[string]interface{}) error
	Close() error
}

// ContextWriter is implemented by writers that talk to a remote store
type ContextWriter interface {
	WriteContext(ctx context.Context, data []map[string]interface{}) error
}

// BusinessColumns is the column order shared by every tabular writer
var BusinessColumns = append(append([]string{}, types.RecordFields...), "run_id")

var sqlIdentifierRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// MaxIdentifierLength is PostgreSQL's limit, the strictest of the supported stores
const MaxIdentifierLength = 63

// ValidateSQLIdentifier validates that a string is a safe SQL identifier
func ValidateSQLIdentifier(identifier string) error {
	if identifier == "" {
		return fmt.Errorf("identifier cannot be empty")
	}
	if len(identifier) > MaxIdentifierLength {
		return fmt.Errorf("identifier too long (max %d characters): %s", MaxIdentifierLength, identifier)
	}
	if !sqlIdentifierRegex.MatchString(identifier) {
		return fmt.Errorf("invalid identifier format: %s", identifier)
	}
	return nil
}

// cell renders a row value for text based formats
func cell(row map[string]interface{}, key string) string {
	if v, ok := row[key]; ok && v != nil {
		return fmt.Sprintf("%v", v)
	}
	return ""
}
