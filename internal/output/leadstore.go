// internal/output/leadstore.go
package output

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valpere/LeadScout/internal/utils"
	"github.com/valpere/LeadScout/pkg/types"
)

// leadColumns are the business fields copied into a lead row
var leadColumns = []string{
	"name", "region", "industry", "website", "contact_phone", "contact_email",
	"description", "review_site_url", "review_site_description",
}

// LeadStore keeps scored leads, their personas and outreach drafts
type LeadStore struct {
	db      *sql.DB
	dialect dialect
	logger  utils.Logger
}

// OpenLeadStore connects to a SQL store. format is sqlite, postgresql or
// mysql; driver only matters for postgresql.
func OpenLeadStore(format OutputFormat, driver, dsn string) (*LeadStore, error) {
	var (
		db  *sql.DB
		d   dialect
		err error
	)
	switch format {
	case FormatSQLite:
		db, err = openSQLite(dsn)
		d = sqliteDialect
	case FormatPostgreSQL:
		db, err = openPostgres(driver, dsn)
		d = postgresDialect
	case FormatMySQL:
		db, err = openMySQL(dsn)
		d = mysqlDialect
	default:
		return nil, fmt.Errorf("lead store does not support %q", format)
	}
	if err != nil {
		return nil, err
	}
	return &LeadStore{db: db, dialect: d, logger: utils.NewComponentLogger("leadstore")}, nil
}

// Migrate creates the tables when missing
func (s *LeadStore) Migrate(ctx context.Context) error {
	d := s.dialect
	defs := []string{d.idColumn}
	for _, c := range leadColumns {
		def := c + " " + d.columnType(c)
		if c == "name" {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	defs = append(defs,
		"reasoning "+d.textType,
		"predicted_roi "+d.floatType,
		"predicted_probability "+d.floatType,
		"status VARCHAR(32) DEFAULT 'new'",
		"created_at "+d.createdAt,
		"UNIQUE (name, region, industry)",
	)

	statements := []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS leads (\n\t%s\n)%s", strings.Join(defs, ",\n\t"), d.tableSuffix),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS personas (
	%s,
	lead_id %s NOT NULL REFERENCES leads(id),
	persona_json %s,
	created_at %s,
	UNIQUE (lead_id)
)%s`, d.idColumn, d.refType, d.textType, d.createdAt, d.tableSuffix),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS outreach_contents (
	%s,
	lead_id %s NOT NULL REFERENCES leads(id),
	channel VARCHAR(32) NOT NULL,
	content %s,
	approved BOOLEAN DEFAULT FALSE,
	sent BOOLEAN DEFAULT FALSE,
	sent_at %s NULL,
	created_at %s,
	UNIQUE (lead_id, channel)
)%s`, d.idColumn, d.refType, d.textType, d.timeType, d.createdAt, d.tableSuffix),
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return utils.WrapError(err, utils.ErrCodeDatabaseError, "failed to migrate lead store")
		}
	}
	return nil
}

// SaveLeads inserts new leads and refreshes the score of known ones. The
// returned leads carry their row ids.
func (s *LeadStore) SaveLeads(ctx context.Context, leads []types.Lead) ([]types.Lead, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	saved := make([]types.Lead, 0, len(leads))
	for _, lead := range leads {
		if lead.Status == "" {
			lead.Status = types.LeadNew
		}
		b := lead.Business
		var id int64
		err := tx.QueryRowContext(ctx,
			s.dialect.rebind("SELECT id FROM leads WHERE name = ? AND region = ? AND industry = ?"),
			b.Name, b.Region, b.Industry,
		).Scan(&id)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			id, err = s.insertLead(ctx, tx, lead)
			if err != nil {
				return nil, err
			}
		case err != nil:
			return nil, fmt.Errorf("failed to look up lead %q: %w", b.Name, err)
		default:
			_, err = tx.ExecContext(ctx,
				s.dialect.rebind("UPDATE leads SET reasoning = ?, predicted_roi = ?, predicted_probability = ? WHERE id = ?"),
				lead.Score.Reasoning, lead.Score.PredictedROI, lead.Score.PredictedProbability, id,
			)
			if err != nil {
				return nil, fmt.Errorf("failed to update lead %q: %w", b.Name, err)
			}
		}
		lead.ID = id
		saved = append(saved, lead)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return saved, nil
}

func (s *LeadStore) insertLead(ctx context.Context, tx *sql.Tx, lead types.Lead) (int64, error) {
	row := lead.Business.ToMap()
	args := make([]interface{}, 0, len(leadColumns)+4)
	for _, c := range leadColumns {
		args = append(args, row[c])
	}
	args = append(args, lead.Score.Reasoning, lead.Score.PredictedROI, lead.Score.PredictedProbability, string(lead.Status))

	query := fmt.Sprintf("INSERT INTO leads (%s, reasoning, predicted_roi, predicted_probability, status) VALUES (%s)",
		strings.Join(leadColumns, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", "))

	if s.dialect.name == "postgresql" {
		var id int64
		if err := tx.QueryRowContext(ctx, s.dialect.rebind(query+" RETURNING id"), args...).Scan(&id); err != nil {
			return 0, fmt.Errorf("failed to insert lead %q: %w", lead.Business.Name, err)
		}
		return id, nil
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert lead %q: %w", lead.Business.Name, err)
	}
	return res.LastInsertId()
}

const leadSelect = `SELECT id, name, region, industry, website, contact_phone, contact_email,
	description, review_site_url, review_site_description,
	reasoning, predicted_roi, predicted_probability, status, created_at FROM leads`

// ListLeads returns leads ranked by predicted probability. limit <= 0 means all.
func (s *LeadStore) ListLeads(ctx context.Context, limit int) ([]types.Lead, error) {
	query := leadSelect + " ORDER BY predicted_probability DESC, id ASC"
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return s.queryLeads(ctx, s.dialect.rebind(query), args...)
}

// GetLeads returns the leads with the given ids, ranked
func (s *LeadStore) GetLeads(ctx context.Context, ids []int64) ([]types.Lead, error) {
	if len(ids) == 0 {
		return []types.Lead{}, nil
	}
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := fmt.Sprintf("%s WHERE id IN (%s) ORDER BY predicted_probability DESC, id ASC",
		leadSelect, strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", "))
	return s.queryLeads(ctx, s.dialect.rebind(query), args...)
}

func (s *LeadStore) queryLeads(ctx context.Context, query string, args ...interface{}) ([]types.Lead, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, utils.WrapError(err, utils.ErrCodeDatabaseError, "failed to query leads")
	}
	defer rows.Close()

	leads := []types.Lead{}
	for rows.Next() {
		var (
			lead                         types.Lead
			website, phone, email, desc  sql.NullString
			reviewURL, reviewDesc, reasn sql.NullString
			roi, prob                    sql.NullFloat64
			status                       sql.NullString
			created                      sql.NullTime
		)
		b := &lead.Business
		if err := rows.Scan(&lead.ID, &b.Name, &b.Region, &b.Industry, &website, &phone, &email,
			&desc, &reviewURL, &reviewDesc, &reasn, &roi, &prob, &status, &created); err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		b.Website, b.ContactPhone, b.ContactEmail = website.String, phone.String, email.String
		b.Description, b.ReviewSiteURL, b.ReviewSiteDescription = desc.String, reviewURL.String, reviewDesc.String
		lead.Score = types.LeadScore{Reasoning: reasn.String, PredictedROI: roi.Float64, PredictedProbability: prob.Float64}
		lead.Status = types.LeadStatus(status.String)
		lead.CreatedAt = created.Time
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

// HasPersona reports whether a persona was already stored for the lead
func (s *LeadStore) HasPersona(ctx context.Context, leadID int64) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.dialect.rebind("SELECT COUNT(*) FROM personas WHERE lead_id = ?"), leadID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check persona: %w", err)
	}
	return n > 0, nil
}

// SavePersona stores a persona and its channel contents and marks the lead
// selected. A lead that already has a persona is left alone and false is
// returned.
func (s *LeadStore) SavePersona(ctx context.Context, result types.PersonaResult) (bool, error) {
	exists, err := s.HasPersona(ctx, result.LeadID)
	if err != nil {
		return false, err
	}
	if exists {
		s.logger.WithField("lead_id", result.LeadID).Info("persona already stored, skipping")
		return false, nil
	}

	persona, err := json.Marshal(result.Persona)
	if err != nil {
		return false, fmt.Errorf("failed to encode persona: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.dialect.rebind("INSERT INTO personas (lead_id, persona_json) VALUES (?, ?)"),
		result.LeadID, string(persona)); err != nil {
		return false, fmt.Errorf("failed to insert persona: %w", err)
	}

	insertContent := s.dialect.insertIgnore("outreach_contents", "lead_id, channel, content", "?, ?, ?")
	for _, channel := range sortedChannels(result.ChannelContents) {
		if _, err := tx.ExecContext(ctx, s.dialect.rebind(insertContent),
			result.LeadID, channel, result.ChannelContents[channel]); err != nil {
			return false, fmt.Errorf("failed to insert %s content: %w", channel, err)
		}
	}

	if _, err := tx.ExecContext(ctx, s.dialect.rebind("UPDATE leads SET status = ? WHERE id = ?"),
		string(types.LeadSelected), result.LeadID); err != nil {
		return false, fmt.Errorf("failed to update lead status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit: %w", err)
	}
	return true, nil
}

// OutreachContents returns the stored drafts of a lead keyed by channel
func (s *LeadStore) OutreachContents(ctx context.Context, leadID int64) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		s.dialect.rebind("SELECT channel, content FROM outreach_contents WHERE lead_id = ?"), leadID)
	if err != nil {
		return nil, fmt.Errorf("failed to query outreach contents: %w", err)
	}
	defer rows.Close()

	contents := map[string]string{}
	for rows.Next() {
		var channel string
		var content sql.NullString
		if err := rows.Scan(&channel, &content); err != nil {
			return nil, err
		}
		contents[channel] = content.String
	}
	return contents, rows.Err()
}

// MarkSent records that a channel's content went out
func (s *LeadStore) MarkSent(ctx context.Context, leadID int64, channel string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		s.dialect.rebind("UPDATE outreach_contents SET sent = ?, sent_at = ? WHERE lead_id = ? AND channel = ?"),
		true, at.UTC(), leadID, channel)
	if err != nil {
		return fmt.Errorf("failed to mark content sent: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return utils.NewError(utils.ErrCodeNotFound, fmt.Sprintf("no %s content for lead %d", channel, leadID)).Build()
	}
	_, err = s.db.ExecContext(ctx, s.dialect.rebind("UPDATE leads SET status = ? WHERE id = ?"),
		string(types.LeadContacted), leadID)
	return err
}

// Ping checks the database connection
func (s *LeadStore) Ping(ctx context.Context) error {
	if s.db == nil {
		return errors.New("lead store is closed")
	}
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *LeadStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func sortedChannels(contents map[string]string) []string {
	channels := make([]string, 0, len(contents))
	for _, c := range types.DefaultChannels {
		if _, ok := contents[c]; ok {
			channels = append(channels, c)
		}
	}
	for c := range contents {
		known := false
		for _, d := range types.DefaultChannels {
			if c == d {
				known = true
				break
			}
		}
		if !known {
			channels = append(channels, c)
		}
	}
	return channels
}
