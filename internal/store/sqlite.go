package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/healthaccess/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
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
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id              TEXT PRIMARY KEY,
	state_fips      TEXT NOT NULL DEFAULT '',
	facilities_path TEXT NOT NULL,
	counties        INTEGER NOT NULL,
	facilities      INTEGER NOT NULL,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS county_summary (
	full_fips                 TEXT PRIMARY KEY,
	state_fips                TEXT NOT NULL,
	county_fips               TEXT NOT NULL,
	county_name               TEXT NOT NULL DEFAULT '',
	num_facilities            INTEGER NOT NULL,
	total_population          INTEGER,
	facilities_per_10k_people REAL NOT NULL,
	rucc_code                 INTEGER,
	rucc_description          TEXT NOT NULL DEFAULT '',
	urban_rural_category      TEXT NOT NULL,
	run_id                    TEXT NOT NULL REFERENCES runs(id)
);

CREATE INDEX IF NOT EXISTS idx_county_summary_category ON county_summary(urban_rural_category);

CREATE TABLE IF NOT EXISTS census_population_county (
	state_fips       TEXT NOT NULL,
	county_fips      TEXT NOT NULL,
	county_name      TEXT NOT NULL DEFAULT '',
	total_population INTEGER,
	PRIMARY KEY (state_fips, county_fips)
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run Run, rows []model.CountySummary) error {
	if run.ID == "" {
		return eris.New("sqlite: save run: empty run id")
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: save run: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, state_fips, facilities_path, counties, facilities, created_at) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET state_fips = excluded.state_fips, facilities_path = excluded.facilities_path,
			counties = excluded.counties, facilities = excluded.facilities, created_at = excluded.created_at`,
		run.ID, run.StateFIPS, run.FacilitiesPath, run.Counties, run.Facilities, run.CreatedAt,
	); err != nil {
		return eris.Wrapf(err, "sqlite: insert run %s", run.ID)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM county_summary`); err != nil {
		return eris.Wrap(err, "sqlite: clear county_summary")
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO county_summary (
		full_fips, state_fips, county_fips, county_name, num_facilities, total_population,
		facilities_per_10k_people, rucc_code, rucc_description, urban_rural_category, run_id
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare county_summary insert")
	}
	defer stmt.Close() //nolint:errcheck

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx,
			r.FullFIPS, r.StateFIPS, r.CountyFIPS, r.CountyName, r.NumFacilities, nullInt(r.Population),
			r.Density, nullInt(r.RUCCCode), r.RUCCDesc, string(r.Category), run.ID,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert county %s", r.FullFIPS)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: save run: commit")
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, state_fips, facilities_path, counties, facilities, created_at FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", id)
	}
	return run, nil
}

func (s *SQLiteStore) ListCountySummary(ctx context.Context) ([]model.CountySummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		full_fips, state_fips, county_fips, county_name, num_facilities, total_population,
		facilities_per_10k_people, rucc_code, rucc_description, urban_rural_category
		FROM county_summary ORDER BY full_fips`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list county_summary")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.CountySummary
	for rows.Next() {
		c, err := scanSummary(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan county_summary")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate county_summary")
}

func (s *SQLiteStore) ReplacePopulation(ctx context.Context, recs []model.PopulationRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: replace population: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM census_population_county`); err != nil {
		return eris.Wrap(err, "sqlite: clear census_population_county")
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO census_population_county (state_fips, county_fips, county_name, total_population) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare population insert")
	}
	defer stmt.Close() //nolint:errcheck

	for _, p := range recs {
		if _, err := stmt.ExecContext(ctx, p.StateFIPS, p.CountyFIPS, p.CountyName, nullInt(p.Population)); err != nil {
			return eris.Wrapf(err, "sqlite: insert population %s%s", p.StateFIPS, p.CountyFIPS)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: replace population: commit")
}

// CountPopulation returns the number of stored population rows.
func (s *SQLiteStore) CountPopulation(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM census_population_county`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count population")
}

func nullInt(n model.NullInt) sql.NullInt64 {
	return sql.NullInt64{Int64: n.Value, Valid: n.Valid}
}

func fromNull(n sql.NullInt64) model.NullInt {
	return model.NullInt{Value: n.Int64, Valid: n.Valid}
}

func scanRun(row scannable) (*Run, error) {
	var r Run
	if err := row.Scan(&r.ID, &r.StateFIPS, &r.FacilitiesPath, &r.Counties, &r.Facilities, &r.CreatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func scanSummary(row scannable) (model.CountySummary, error) {
	var c model.CountySummary
	var pop, rucc sql.NullInt64
	var category string
	err := row.Scan(&c.FullFIPS, &c.StateFIPS, &c.CountyFIPS, &c.CountyName, &c.NumFacilities, &pop,
		&c.Density, &rucc, &c.RUCCDesc, &category)
	if err != nil {
		return c, err
	}
	c.Population = fromNull(pop)
	c.RUCCCode = fromNull(rucc)
	c.Category, err = model.ParseCategory(category)
	return c, err
}
