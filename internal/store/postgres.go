package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/gconnect/leadgen-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store needs. pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// the hot store operations.
var preparedStatements = map[string]string{
	"upsert_lead": `INSERT INTO leads (email, name, address, website, category, score, tier, status, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (email) DO UPDATE SET
			name = EXCLUDED.name, address = EXCLUDED.address, website = EXCLUDED.website,
			category = EXCLUDED.category, score = EXCLUDED.score, tier = EXCLUDED.tier,
			status = EXCLUDED.status, updated_at = now()`,
	"get_lead": `SELECT email, name, address, website, category, score, tier, status, interested_at, click_user_agent, created_at, updated_at
		FROM leads WHERE email = $1`,
	"mark_interested": `INSERT INTO leads (email, name, category, status, interested_at, click_user_agent, updated_at)
		VALUES ($1, $2, $3, 'INTERESTED', now(), $4, now())
		ON CONFLICT (email) DO UPDATE SET
			name = EXCLUDED.name, category = EXCLUDED.category, status = 'INTERESTED',
			interested_at = now(), click_user_agent = EXCLUDED.click_user_agent, updated_at = now()`,
	"mark_not_interested": `UPDATE leads SET status = 'NOT_INTERESTED', updated_at = now() WHERE email = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS leads (
	email            TEXT PRIMARY KEY,
	name             TEXT NOT NULL DEFAULT '',
	address          TEXT NOT NULL DEFAULT '',
	website          TEXT NOT NULL DEFAULT '',
	category         TEXT NOT NULL DEFAULT '',
	score            INTEGER NOT NULL DEFAULT 0,
	tier             TEXT NOT NULL DEFAULT 'COLD_LEAD',
	status           TEXT NOT NULL DEFAULT 'PENDING',
	interested_at    TIMESTAMPTZ,
	click_user_agent TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
CREATE INDEX IF NOT EXISTS idx_leads_tier ON leads(tier);

CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	areas      JSONB NOT NULL DEFAULT '[]',
	category   TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'running',
	lead_count INTEGER NOT NULL DEFAULT 0,
	error      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`

// Migrate creates the schema if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

// UpsertLead writes a lead keyed by lowercase email.
func (s *PostgresStore) UpsertLead(ctx context.Context, lead model.PersistedLead) error {
	email := strings.ToLower(lead.Email)
	if email == "" {
		return eris.New("postgres: upsert lead: empty email")
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO leads (email, name, address, website, category, score, tier, status, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (email) DO UPDATE SET
			name = EXCLUDED.name, address = EXCLUDED.address, website = EXCLUDED.website,
			category = EXCLUDED.category, score = EXCLUDED.score, tier = EXCLUDED.tier,
			status = EXCLUDED.status, updated_at = now()`,
		email, lead.Name, lead.Address, lead.Website, lead.Category, lead.Score, string(lead.Tier), string(lead.Status),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: upsert lead %s", email)
	}
	return nil
}

// GetLead fetches a lead by email. Returns (nil, nil) when absent.
func (s *PostgresStore) GetLead(ctx context.Context, email string) (*model.PersistedLead, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT email, name, address, website, category, score, tier, status, interested_at, click_user_agent, created_at, updated_at
		FROM leads WHERE email = $1`,
		strings.ToLower(email),
	)

	var lead model.PersistedLead
	var tier, status string
	err := row.Scan(&lead.Email, &lead.Name, &lead.Address, &lead.Website, &lead.Category,
		&lead.Score, &tier, &status, &lead.InterestedAt, &lead.ClickAgent, &lead.CreatedAt, &lead.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get lead %s", email)
	}
	lead.Tier = model.PriorityTier(tier)
	lead.Status = model.LeadStatus(status)
	return &lead, nil
}

// ListLeads returns the most recently updated leads, newest first.
func (s *PostgresStore) ListLeads(ctx context.Context, limit int) ([]model.PersistedLead, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx,
		`SELECT email, name, address, website, category, score, tier, status, interested_at, click_user_agent, created_at, updated_at
		FROM leads ORDER BY updated_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	var leads []model.PersistedLead
	for rows.Next() {
		var lead model.PersistedLead
		var tier, status string
		if err := rows.Scan(&lead.Email, &lead.Name, &lead.Address, &lead.Website, &lead.Category,
			&lead.Score, &tier, &status, &lead.InterestedAt, &lead.ClickAgent, &lead.CreatedAt, &lead.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		lead.Tier = model.PriorityTier(tier)
		lead.Status = model.LeadStatus(status)
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate leads")
	}
	return leads, nil
}

// MarkInterested upserts a lead to INTERESTED with the click timestamp and
// user agent. The upsert means a click for a lead the store has never seen
// still records the interest.
func (s *PostgresStore) MarkInterested(ctx context.Context, email, name, category, userAgent string) error {
	email = strings.ToLower(email)
	if email == "" {
		return eris.New("postgres: mark interested: empty email")
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO leads (email, name, category, status, interested_at, click_user_agent, updated_at)
		VALUES ($1, $2, $3, 'INTERESTED', now(), $4, now())
		ON CONFLICT (email) DO UPDATE SET
			name = EXCLUDED.name, category = EXCLUDED.category, status = 'INTERESTED',
			interested_at = now(), click_user_agent = EXCLUDED.click_user_agent, updated_at = now()`,
		email, name, category, userAgent,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark interested %s", email)
	}
	return nil
}

// MarkNotInterested records an opt-out click.
func (s *PostgresStore) MarkNotInterested(ctx context.Context, email string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE leads SET status = 'NOT_INTERESTED', updated_at = now() WHERE email = $1`,
		strings.ToLower(email),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark not interested %s", email)
	}
	return nil
}

// CreateRun records the start of a pipeline run.
func (s *PostgresStore) CreateRun(ctx context.Context, areas []string, category string) (*model.Run, error) {
	run := &model.Run{
		ID:        uuid.NewString(),
		Areas:     areas,
		Category:  category,
		Status:    model.RunStatusRunning,
		CreatedAt: time.Now().UTC(),
	}

	areasJSON, err := json.Marshal(areas)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal run areas")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, areas, category, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $5)`,
		run.ID, areasJSON, category, string(run.Status), run.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create run")
	}
	return run, nil
}

// CompleteRun finalizes a run record with its outcome.
func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, leadCount int, runErr error) error {
	status := model.RunStatusComplete
	errMsg := ""
	if runErr != nil {
		status = model.RunStatusFailed
		errMsg = runErr.Error()
	}

	_, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, lead_count = $2, error = $3, updated_at = now() WHERE id = $4`,
		string(status), leadCount, errMsg, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
