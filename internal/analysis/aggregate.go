package analysis

import (
	"sort"

	"github.com/sells-group/healthaccess/internal/model"
)

type groupKey struct {
	state, county, name string
}

// Aggregate groups joined facilities by (State_FIPS, County_FIPS,
// County_Name) and returns one summary per group, sorted by key. The
// population is the first known value in the group; it is never summed.
//
// Only counties with at least one facility appear. Use WithRoster to add
// zero-facility counties from the population table.
func Aggregate(joined []model.JoinedFacility) []model.CountySummary {
	groups := make(map[groupKey]*model.CountySummary)
	for _, j := range joined {
		k := groupKey{state: j.StateFIPS, county: j.CountyFIPS, name: j.CountyName}
		s, ok := groups[k]
		if !ok {
			s = &model.CountySummary{
				StateFIPS:  j.StateFIPS,
				CountyFIPS: j.CountyFIPS,
				CountyName: j.CountyName,
				FullFIPS:   j.StateFIPS + j.CountyFIPS,
				Category:   model.Unknown,
			}
			groups[k] = s
		}
		s.NumFacilities++
		if !s.Population.Valid && j.Population.Valid {
			s.Population = j.Population
		}
	}

	out := make([]model.CountySummary, 0, len(groups))
	for _, s := range groups {
		out = append(out, *s)
	}
	sortSummaries(out)
	return out
}

// WithRoster adds a zero-facility summary for every county in population
// that is not already present, keyed on (State_FIPS, County_FIPS). The
// result is sorted by key.
func WithRoster(summaries []model.CountySummary, population []model.PopulationRecord) []model.CountySummary {
	present := make(map[model.CountyKey]bool, len(summaries))
	for _, s := range summaries {
		present[s.Key()] = true
	}

	out := append([]model.CountySummary(nil), summaries...)
	for _, p := range population {
		key := model.CountyKey{StateFIPS: p.StateFIPS, CountyFIPS: p.CountyFIPS}
		if present[key] {
			continue
		}
		present[key] = true
		out = append(out, model.CountySummary{
			StateFIPS:  p.StateFIPS,
			CountyFIPS: p.CountyFIPS,
			CountyName: p.CountyName,
			Population: p.Population,
			FullFIPS:   key.FullFIPS(),
			Category:   model.Unknown,
		})
	}
	sortSummaries(out)
	return out
}

func sortSummaries(s []model.CountySummary) {
	sort.SliceStable(s, func(i, j int) bool {
		if s[i].StateFIPS != s[j].StateFIPS {
			return s[i].StateFIPS < s[j].StateFIPS
		}
		if s[i].CountyFIPS != s[j].CountyFIPS {
			return s[i].CountyFIPS < s[j].CountyFIPS
		}
		return s[i].CountyName < s[j].CountyName
	})
}
