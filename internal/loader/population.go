package loader

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/healthaccess/internal/fetcher"
	"github.com/sells-group/healthaccess/internal/model"
)

const (
	colCountyName = "County_Name"
	colPopulation = "Total_Population"
	colPopState   = "State_FIPS"
	colPopCounty  = "County_FIPS"
)

// Drop reasons for population rows.
const (
	DropInvalidKey = "invalid_key"
)

// PopulationSchema accepts both the processed population CSV and the raw
// Census API column names.
var PopulationSchema = Schema{
	Name: "population",
	Columns: []Column{
		{Name: colCountyName, Aliases: []string{"NAME"}, Kind: KindString},
		{Name: colPopulation, Aliases: []string{"B01001_001E"}, Kind: KindInt},
		{Name: colPopState, Aliases: []string{"state"}, Kind: KindStateFIPS, Required: true},
		{Name: colPopCounty, Aliases: []string{"county"}, Kind: KindCountyFIPS, Required: true},
	},
}

// LoadPopulation reads the county population table. A population that is
// non-numeric or negative (Census uses negative sentinels for suppressed
// cells) is unknown. Rows without a valid key are dropped; for duplicate
// keys the first row wins.
func LoadPopulation(ctx context.Context, path string, opts ReadOptions) ([]model.PopulationRecord, *Stats, error) {
	header, records, err := readRaw(ctx, path, PopulationSchema.Name, opts)
	if err != nil {
		return nil, nil, err
	}
	return PopulationFromRecords(path, header, records)
}

// PopulationFromRecords applies the LoadPopulation rules to an in-memory
// table, such as a decoded Census API response. source names the origin in
// errors and logs.
func PopulationFromRecords(source string, header []string, records []fetcher.Record) ([]model.PopulationRecord, *Stats, error) {
	t, err := tableFrom(source, header, records, PopulationSchema)
	if err != nil {
		return nil, nil, err
	}

	seen := make(map[model.CountyKey]bool, len(t.Rows))
	out := make([]model.PopulationRecord, 0, len(t.Rows))
	for _, row := range t.Rows {
		key := model.CountyKey{StateFIPS: row.Get(colPopState).Str, CountyFIPS: row.Get(colPopCounty).Str}
		if key.StateFIPS == "" || key.CountyFIPS == "" {
			t.Stats.drop(DropInvalidKey)
			continue
		}
		if seen[key] {
			t.Stats.Duplicate++
			continue
		}
		seen[key] = true

		pop := row.Get(colPopulation).Int
		if pop.Valid && pop.Value < 0 {
			t.Stats.Coercion[colPopulation]++
			pop = model.NullInt{}
		}

		out = append(out, model.PopulationRecord{
			StateFIPS:  key.StateFIPS,
			CountyFIPS: key.CountyFIPS,
			CountyName: row.Get(colCountyName).Str,
			Population: pop,
		})
	}
	t.Stats.Kept = len(out)

	if t.Stats.Duplicate > 0 {
		zap.L().Warn("population table has duplicate county keys; first row kept",
			zap.String("source", source), zap.Int("duplicates", t.Stats.Duplicate))
	}
	zap.L().Info("loaded population",
		zap.String("source", source),
		zap.Int("counties", len(out)),
		zap.Int("unknown_population", t.Stats.Coercion[colPopulation]+t.Stats.Missing[colPopulation]),
	)
	return out, t.Stats, nil
}
