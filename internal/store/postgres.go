package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/healthaccess/internal/db"
	"github.com/sells-group/healthaccess/internal/model"
)

// Postgres table names.
const (
	pgSchema          = "health_access"
	pgSummaryTable    = pgSchema + ".county_summary"
	pgPopulationTable = "county_population"
)

var summaryColumns = []string{
	"full_fips", "state_fips", "county_fips", "county_name", "num_facilities", "total_population",
	"facilities_per_10k_people", "rucc_code", "rucc_description", "urban_rural_category", "run_id",
}

// PostgresStore implements Store against the health_access schema.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres connects to Postgres.
func NewPostgres(ctx context.Context, connString string, poolCfg db.PoolConfig) (*PostgresStore, error) {
	pool, err := db.Connect(ctx, connString, poolCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	return eris.Wrap(db.Migrate(ctx, s.pool), "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// SaveRun records the run, upserts rows keyed by full_fips, and removes
// counties left over from earlier runs, all in one transaction. Saving the
// same run id again replaces its metadata.
func (s *PostgresStore) SaveRun(ctx context.Context, run Run, rows []model.CountySummary) error {
	if run.ID == "" {
		return eris.New("postgres: save run: empty run id")
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: save run: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx,
		`INSERT INTO health_access.runs (id, state_fips, facilities_path, counties, facilities, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET state_fips = EXCLUDED.state_fips, facilities_path = EXCLUDED.facilities_path,
			counties = EXCLUDED.counties, facilities = EXCLUDED.facilities, created_at = EXCLUDED.created_at`,
		run.ID, run.StateFIPS, run.FacilitiesPath, run.Counties, run.Facilities, run.CreatedAt,
	); err != nil {
		return eris.Wrapf(err, "postgres: insert run %s", run.ID)
	}

	data := make([][]any, len(rows))
	for i, r := range rows {
		data[i] = []any{
			r.FullFIPS, r.StateFIPS, r.CountyFIPS, r.CountyName, r.NumFacilities, ptrInt(r.Population),
			r.Density, ptrInt(r.RUCCCode), r.RUCCDesc, string(r.Category), run.ID,
		}
	}
	if _, err := db.BulkUpsertTx(ctx, tx, db.UpsertConfig{
		Table:        pgSummaryTable,
		Columns:      summaryColumns,
		ConflictKeys: []string{"full_fips"},
	}, data); err != nil {
		return eris.Wrap(err, "postgres: upsert county_summary")
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM health_access.county_summary WHERE run_id <> $1`, run.ID,
	); err != nil {
		return eris.Wrap(err, "postgres: prune county_summary")
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: save run: commit")
}

func (s *PostgresStore) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, state_fips, facilities_path, counties, facilities, created_at FROM health_access.runs WHERE id = $1`, id)
	run, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", id)
	}
	return run, nil
}

func (s *PostgresStore) ListCountySummary(ctx context.Context) ([]model.CountySummary, error) {
	rows, err := s.pool.Query(ctx, `SELECT
		full_fips, state_fips, county_fips, county_name, num_facilities, total_population,
		facilities_per_10k_people, rucc_code, rucc_description, urban_rural_category
		FROM health_access.county_summary ORDER BY full_fips`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list county_summary")
	}
	defer rows.Close()

	var out []model.CountySummary
	for rows.Next() {
		var c model.CountySummary
		var pop, rucc *int64
		var category string
		if err := rows.Scan(&c.FullFIPS, &c.StateFIPS, &c.CountyFIPS, &c.CountyName, &c.NumFacilities, &pop,
			&c.Density, &rucc, &c.RUCCDesc, &category); err != nil {
			return nil, eris.Wrap(err, "postgres: scan county_summary")
		}
		c.Population = fromPtr(pop)
		c.RUCCCode = fromPtr(rucc)
		if c.Category, err = model.ParseCategory(category); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate county_summary")
}

func (s *PostgresStore) ReplacePopulation(ctx context.Context, recs []model.PopulationRecord) error {
	data := make([][]any, len(recs))
	for i, p := range recs {
		data[i] = []any{p.StateFIPS, p.CountyFIPS, p.CountyName, ptrInt(p.Population)}
	}
	_, err := db.ReplaceRows(ctx, s.pool, pgSchema, pgPopulationTable,
		[]string{"state_fips", "county_fips", "county_name", "total_population"}, data)
	return eris.Wrap(err, "postgres: replace population")
}

func ptrInt(n model.NullInt) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}

func fromPtr(p *int64) model.NullInt {
	if p == nil {
		return model.NullInt{}
	}
	return model.IntOf(*p)
}
