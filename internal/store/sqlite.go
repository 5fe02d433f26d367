package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/gconnect/leadgen-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Useful for local
// runs without a Postgres instance.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS leads (
	email            TEXT PRIMARY KEY,
	name             TEXT NOT NULL DEFAULT '',
	address          TEXT NOT NULL DEFAULT '',
	website          TEXT NOT NULL DEFAULT '',
	category         TEXT NOT NULL DEFAULT '',
	score            INTEGER NOT NULL DEFAULT 0,
	tier             TEXT NOT NULL DEFAULT 'COLD_LEAD',
	status           TEXT NOT NULL DEFAULT 'PENDING',
	interested_at    DATETIME,
	click_user_agent TEXT NOT NULL DEFAULT '',
	created_at       DATETIME NOT NULL,
	updated_at       DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
CREATE INDEX IF NOT EXISTS idx_leads_tier ON leads(tier);

CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	areas      TEXT NOT NULL DEFAULT '[]',
	category   TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'running',
	lead_count INTEGER NOT NULL DEFAULT 0,
	error      TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`

// Migrate creates the schema if it does not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "sqlite: migrate")
	}
	return nil
}

// UpsertLead writes a lead keyed by lowercase email.
func (s *SQLiteStore) UpsertLead(ctx context.Context, lead model.PersistedLead) error {
	email := strings.ToLower(lead.Email)
	if email == "" {
		return eris.New("sqlite: upsert lead: empty email")
	}

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO leads (email, name, address, website, category, score, tier, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (email) DO UPDATE SET
			name = excluded.name, address = excluded.address, website = excluded.website,
			category = excluded.category, score = excluded.score, tier = excluded.tier,
			status = excluded.status, updated_at = excluded.updated_at`,
		email, lead.Name, lead.Address, lead.Website, lead.Category, lead.Score,
		string(lead.Tier), string(lead.Status), now, now,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: upsert lead %s", email)
	}
	return nil
}

// GetLead fetches a lead by email. Returns (nil, nil) when absent.
func (s *SQLiteStore) GetLead(ctx context.Context, email string) (*model.PersistedLead, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT email, name, address, website, category, score, tier, status, interested_at, click_user_agent, created_at, updated_at
		FROM leads WHERE email = ?`,
		strings.ToLower(email),
	)

	lead, err := scanSQLiteLead(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get lead %s", email)
	}
	return lead, nil
}

// ListLeads returns the most recently updated leads, newest first.
func (s *SQLiteStore) ListLeads(ctx context.Context, limit int) ([]model.PersistedLead, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT email, name, address, website, category, score, tier, status, interested_at, click_user_agent, created_at, updated_at
		FROM leads ORDER BY updated_at DESC, email LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close()

	var leads []model.PersistedLead
	for rows.Next() {
		lead, err := scanSQLiteLead(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		leads = append(leads, *lead)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate leads")
	}
	return leads, nil
}

// scanSQLiteLead maps one row through either sql.Row.Scan or sql.Rows.Scan.
func scanSQLiteLead(scan func(dest ...any) error) (*model.PersistedLead, error) {
	var lead model.PersistedLead
	var tier, status string
	var interestedAt sql.NullTime
	if err := scan(&lead.Email, &lead.Name, &lead.Address, &lead.Website, &lead.Category,
		&lead.Score, &tier, &status, &interestedAt, &lead.ClickAgent, &lead.CreatedAt, &lead.UpdatedAt); err != nil {
		return nil, err
	}
	lead.Tier = model.PriorityTier(tier)
	lead.Status = model.LeadStatus(status)
	if interestedAt.Valid {
		t := interestedAt.Time
		lead.InterestedAt = &t
	}
	return &lead, nil
}

// MarkInterested upserts a lead to INTERESTED with click metadata. The
// upsert means a click for a lead the store has never seen still records
// the interest.
func (s *SQLiteStore) MarkInterested(ctx context.Context, email, name, category, userAgent string) error {
	email = strings.ToLower(email)
	if email == "" {
		return eris.New("sqlite: mark interested: empty email")
	}

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO leads (email, name, category, status, interested_at, click_user_agent, created_at, updated_at)
		VALUES (?, ?, ?, 'INTERESTED', ?, ?, ?, ?)
		ON CONFLICT (email) DO UPDATE SET
			name = excluded.name, category = excluded.category, status = 'INTERESTED',
			interested_at = excluded.interested_at, click_user_agent = excluded.click_user_agent,
			updated_at = excluded.updated_at`,
		email, name, category, now, userAgent, now, now,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark interested %s", email)
	}
	return nil
}

// MarkNotInterested records an opt-out click.
func (s *SQLiteStore) MarkNotInterested(ctx context.Context, email string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE leads SET status = 'NOT_INTERESTED', updated_at = ? WHERE email = ?`,
		time.Now().UTC(), strings.ToLower(email),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark not interested %s", email)
	}
	return nil
}

// CreateRun records the start of a pipeline run.
func (s *SQLiteStore) CreateRun(ctx context.Context, areas []string, category string) (*model.Run, error) {
	run := &model.Run{
		ID:        uuid.NewString(),
		Areas:     areas,
		Category:  category,
		Status:    model.RunStatusRunning,
		CreatedAt: time.Now().UTC(),
	}

	areasJSON, err := json.Marshal(areas)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal run areas")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, areas, category, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, string(areasJSON), category, string(run.Status), run.CreatedAt, run.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: create run")
	}
	return run, nil
}

// CompleteRun finalizes a run record with its outcome.
func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, leadCount int, runErr error) error {
	status := model.RunStatusComplete
	errMsg := ""
	if runErr != nil {
		status = model.RunStatusFailed
		errMsg = runErr.Error()
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, lead_count = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(status), leadCount, errMsg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
