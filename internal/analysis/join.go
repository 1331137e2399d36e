// Package analysis joins facilities to county population, aggregates them
// per county, and derives density, rural-urban category, and the
// underserved-county views.
package analysis

import (
	"sort"

	"github.com/sells-group/healthaccess/internal/model"
)

// JoinStats counts join misses. A miss is non-fatal: the facility is kept
// with an unknown population and an empty county name.
type JoinStats struct {
	Facilities    int      `yaml:"facilities" json:"facilities"`
	Matched       int      `yaml:"matched" json:"matched"`
	Unmatched     int      `yaml:"unmatched" json:"unmatched"`
	UnmatchedKeys []string `yaml:"unmatched_keys,omitempty" json:"unmatched_keys,omitempty"`
}

// JoinPopulation left-joins facilities to population on (State_FIPS,
// County_FIPS). The result has exactly one row per input facility, in input
// order. When the population table repeats a key, the first row wins.
func JoinPopulation(facilities []model.FacilityRecord, population []model.PopulationRecord) ([]model.JoinedFacility, JoinStats) {
	index := make(map[model.CountyKey]model.PopulationRecord, len(population))
	for _, p := range population {
		key := model.CountyKey{StateFIPS: p.StateFIPS, CountyFIPS: p.CountyFIPS}
		if _, ok := index[key]; !ok {
			index[key] = p
		}
	}

	stats := JoinStats{Facilities: len(facilities)}
	missed := make(map[string]bool)
	out := make([]model.JoinedFacility, len(facilities))
	for i, f := range facilities {
		out[i] = model.JoinedFacility{FacilityRecord: f}
		p, ok := index[model.CountyKey{StateFIPS: f.StateFIPS, CountyFIPS: f.CountyFIPS}]
		if !ok {
			stats.Unmatched++
			missed[f.StateFIPS+f.CountyFIPS] = true
			continue
		}
		stats.Matched++
		out[i].CountyName = p.CountyName
		out[i].Population = p.Population
		out[i].Matched = true
	}

	for k := range missed {
		stats.UnmatchedKeys = append(stats.UnmatchedKeys, k)
	}
	sort.Strings(stats.UnmatchedKeys)
	return out, stats
}
