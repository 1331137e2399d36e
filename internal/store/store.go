// Package store persists pipeline runs, county summaries, and the population
// table to SQLite or Postgres.
package store

import (
	"context"
	"time"

	"github.com/sells-group/healthaccess/internal/model"
)

// Run describes one persisted pipeline run.
type Run struct {
	ID             string    `json:"id"`
	StateFIPS      string    `json:"state_fips"`
	FacilitiesPath string    `json:"facilities_path"`
	Counties       int       `json:"counties"`
	Facilities     int       `json:"facilities"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store is the persistence sink for pipeline output.
type Store interface {
	// SaveRun records the run and makes rows the current county summary.
	SaveRun(ctx context.Context, run Run, rows []model.CountySummary) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListCountySummary(ctx context.Context) ([]model.CountySummary, error)

	// ReplacePopulation replaces the stored population table.
	ReplacePopulation(ctx context.Context, recs []model.PopulationRecord) error

	Migrate(ctx context.Context) error
	Close() error
}

type scannable interface {
	Scan(dest ...any) error
}
