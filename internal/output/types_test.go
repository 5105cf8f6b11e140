package output

import (
	"errors"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

func TestOutputFormat(t *testing.T) {
	tests := []struct {
		format OutputFormat
		valid  bool
		file   bool
		ext    string
	}{
		{FormatJSON, true, true, ".json"},
		{FormatCSV, true, true, ".csv"},
		{FormatYAML, true, true, ".yaml"},
		{FormatExcel, true, true, ".xlsx"},
		{FormatSQLite, true, false, ".db"},
		{FormatPostgreSQL, true, false, ""},
		{FormatMySQL, true, false, ""},
		{FormatMongoDB, true, false, ""},
		{OutputFormat("pdf"), false, false, ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			if got := tt.format.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
			if got := tt.format.IsFile(); got != tt.file {
				t.Errorf("IsFile() = %v, want %v", got, tt.file)
			}
			if got := tt.format.GetFileExtension(); got != tt.ext {
				t.Errorf("GetFileExtension() = %q, want %q", got, tt.ext)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{"defaults", DefaultConfig(), ""},
		{"sqlite without target", Config{Format: FormatSQLite}, ""},
		{"unknown format", Config{Format: "pdf"}, "unsupported output format"},
		{"postgres without dsn", Config{Format: FormatPostgreSQL}, "requires a dsn"},
		{"mongo without dsn", Config{Format: FormatMongoDB}, "requires a dsn"},
		{"pgx driver", Config{Format: FormatPostgreSQL, DSN: "postgres://x", Driver: "pgx"}, ""},
		{"unknown driver", Config{Format: FormatPostgreSQL, DSN: "postgres://x", Driver: "odbc"}, "unknown postgresql driver"},
		{"bad conflict strategy", Config{Format: FormatJSON, OnConflict: "replace"}, "unknown conflict strategy"},
		{"bad table", Config{Format: FormatMySQL, DSN: "u@/db", Table: "1leads"}, "table"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateSQLIdentifier(t *testing.T) {
	valid := []string{"businesses", "_leads", "leads_2026"}
	for _, id := range valid {
		if err := ValidateSQLIdentifier(id); err != nil {
			t.Errorf("%q should be valid: %v", id, err)
		}
	}
	invalid := []string{"", "2leads", "leads; DROP TABLE x", "lead-s", strings.Repeat("a", MaxIdentifierLength+1)}
	for _, id := range invalid {
		if err := ValidateSQLIdentifier(id); err == nil {
			t.Errorf("%q should be rejected", id)
		}
	}
}

func TestMySQLDSN(t *testing.T) {
	dsn, err := mysqlDSN("scout:secret@tcp(localhost:3306)/leadscout")
	if err != nil {
		t.Fatalf("mysqlDSN: %v", err)
	}
	if !strings.Contains(dsn, "parseTime=true") {
		t.Errorf("expected parseTime, got %s", dsn)
	}
	if !strings.Contains(dsn, "charset=utf8mb4") {
		t.Errorf("expected utf8mb4 charset, got %s", dsn)
	}

	kept, err := mysqlDSN("scout@tcp(db:3306)/leadscout?charset=latin1")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(kept, "charset=latin1") {
		t.Errorf("explicit charset should be kept, got %s", kept)
	}

	if _, err := mysqlDSN("not a dsn"); err == nil {
		t.Error("expected invalid dsn error")
	}
}

func TestBusinessDocument(t *testing.T) {
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	doc := businessDocument(sampleRows()[1], created)

	keys := make([]string, len(doc))
	for i, e := range doc {
		keys[i] = e.Key
	}
	want := "name,region,industry,created_at"
	if strings.Join(keys, ",") != want {
		t.Errorf("document keys = %v, want %s", keys, want)
	}
	if doc[len(doc)-1].Value != created {
		t.Errorf("unexpected created_at %v", doc[len(doc)-1].Value)
	}
}

func TestDuplicatesOnly(t *testing.T) {
	dup := mongo.BulkWriteException{WriteErrors: []mongo.BulkWriteError{
		{WriteError: mongo.WriteError{Code: mongoDuplicateKey}},
		{WriteError: mongo.WriteError{Code: mongoDuplicateKey}},
	}}
	if n, ok := duplicatesOnly(dup); !ok || n != 2 {
		t.Errorf("duplicatesOnly(dups) = %d, %v", n, ok)
	}

	mixed := mongo.BulkWriteException{WriteErrors: []mongo.BulkWriteError{
		{WriteError: mongo.WriteError{Code: mongoDuplicateKey}},
		{WriteError: mongo.WriteError{Code: 121}},
	}}
	if _, ok := duplicatesOnly(mixed); ok {
		t.Error("a validation failure is not a duplicate")
	}
	if _, ok := duplicatesOnly(errors.New("connection reset")); ok {
		t.Error("plain errors are not duplicates")
	}
}
