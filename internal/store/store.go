package store

import (
	"context"

	"github.com/gconnect/leadgen-cli/internal/model"
)

// Store defines the durable persistence interface for leads and runs.
// Leads are keyed by lowercase email: writing the same address twice is an
// update, never a duplicate.
type Store interface {
	// Leads
	UpsertLead(ctx context.Context, lead model.PersistedLead) error
	GetLead(ctx context.Context, email string) (*model.PersistedLead, error)
	ListLeads(ctx context.Context, limit int) ([]model.PersistedLead, error)
	MarkInterested(ctx context.Context, email, name, category, userAgent string) error
	MarkNotInterested(ctx context.Context, email string) error

	// Runs
	CreateRun(ctx context.Context, areas []string, category string) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, leadCount int, runErr error) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
