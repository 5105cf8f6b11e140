// internal/output/manager.go
package output

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/valpere/LeadScout/internal/utils"
	"github.com/valpere/LeadScout/pkg/types"
)

// WriteObserver is told about every persisted batch
type WriteObserver interface {
	ObserveWrite(format string, records int, duration time.Duration, err error)
}

// Manager manages different output formats
type Manager struct {
	config   Config
	observer WriteObserver
	logger   utils.Logger
	last     string
}

// ManagerOption customizes a Manager
type ManagerOption func(*Manager)

// WithWriteObserver attaches a write observer
func WithWriteObserver(o WriteObserver) ManagerOption {
	return func(m *Manager) { m.observer = o }
}

// NewManager creates a new output manager
func NewManager(cfg Config, opts ...ManagerOption) (*Manager, error) {
	def := DefaultConfig()
	if cfg.Format == "" {
		cfg.Format = def.Format
	}
	if cfg.Directory == "" {
		cfg.Directory = def.Directory
	}
	if cfg.SheetName == "" {
		cfg.SheetName = def.SheetName
	}
	if err := cfg.Validate(); err != nil {
		return nil, utils.WrapError(err, utils.ErrCodeInvalidConfig, "invalid output configuration")
	}

	m := &Manager{
		config: cfg,
		logger: utils.NewComponentLogger("output"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Format returns the configured format
func (m *Manager) Format() OutputFormat {
	return m.config.Format
}

// LastTarget returns the file or store written by the last batch
func (m *Manager) LastTarget() string {
	return m.last
}

// FileName picks the output file for a batch of businesses of one sector
// in one region
func (m *Manager) FileName(region, sector string) string {
	if m.config.File != "" {
		return m.config.File
	}
	name := utils.GenerateOutputFileName(region, sector, m.config.Format.GetFileExtension())
	return filepath.Join(m.config.Directory, name)
}

// GetWriter returns the appropriate writer for the configured format.
// target is the file used by file formats.
func (m *Manager) GetWriter(target string) (Writer, error) {
	if m.config.Format.IsFile() {
		if dir := filepath.Dir(target); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create output directory: %w", err)
			}
		}
	}

	switch m.config.Format {
	case FormatJSON:
		return NewJSONWriter(target)
	case FormatCSV:
		return NewCSVWriter(target)
	case FormatYAML:
		return NewYAMLWriter(target)
	case FormatExcel:
		return NewExcelWriter(target, m.config.SheetName)
	case FormatSQLite:
		cfg := m.config
		if cfg.DSN == "" && cfg.File == "" {
			cfg.File = target
		}
		return NewSQLiteWriter(cfg)
	case FormatPostgreSQL:
		return NewPostgreSQLWriter(m.config)
	case FormatMySQL:
		return NewMySQLWriter(m.config)
	case FormatMongoDB:
		return NewMongoDBWriter(m.config)
	default:
		return nil, fmt.Errorf("unsupported output format: %s", m.config.Format)
	}
}

// Write writes rows to a single target using the configured format
func (m *Manager) Write(data []map[string]interface{}) error {
	return m.write(context.Background(), m.FileName("", "businesses"), data)
}

// WriteRecords persists a finished discovery batch
func (m *Manager) WriteRecords(ctx context.Context, records []types.BusinessRecord) error {
	target := m.FileName("", "businesses")
	if len(records) > 0 {
		target = m.FileName(records[0].Region, records[0].Industry)
	}
	return m.write(ctx, target, types.RecordsToMaps(records))
}

func (m *Manager) write(ctx context.Context, target string, data []map[string]interface{}) (err error) {
	start := time.Now()
	defer func() {
		if m.observer != nil {
			m.observer.ObserveWrite(string(m.config.Format), len(data), time.Since(start), err)
		}
	}()

	writer, err := m.GetWriter(target)
	if err != nil {
		return fmt.Errorf("failed to get writer: %w", err)
	}
	defer func() {
		if cerr := writer.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close writer: %w", cerr)
		}
	}()

	if cw, ok := writer.(ContextWriter); ok {
		err = cw.WriteContext(ctx, data)
	} else {
		err = writer.Write(data)
	}
	if err != nil {
		return err
	}

	switch {
	case m.config.Format == FormatSQLite && m.config.DSN != "":
		m.last = m.config.DSN
	case m.config.Format.IsFile() || m.config.Format == FormatSQLite:
		m.last = target
	default:
		m.last = string(m.config.Format)
	}
	m.logger.WithFields(map[string]interface{}{
		"format":  m.config.Format,
		"records": len(data),
	}).Infof("batch written to %s", m.last)
	return nil
}
