package analysis

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/healthaccess/internal/model"
)

// CategoryStat is the grouped view for one urban-rural category.
type CategoryStat struct {
	Category    model.Category `yaml:"category" json:"category"`
	Counties    int            `yaml:"counties" json:"counties"`
	MeanDensity float64        `yaml:"mean_density" json:"mean_density"`
	Facilities  int            `yaml:"facilities" json:"facilities"`
	Population  int64          `yaml:"population" json:"population"`
}

// CategoryStats groups rows by category. Categories with no counties are
// omitted; the rest are returned in model.Categories order. Unknown
// populations contribute nothing to the population sum.
func CategoryStats(rows []model.CountySummary) []CategoryStat {
	acc := make(map[model.Category]*CategoryStat)
	for _, r := range rows {
		s, ok := acc[r.Category]
		if !ok {
			s = &CategoryStat{Category: r.Category}
			acc[r.Category] = s
		}
		s.Counties++
		s.MeanDensity += r.Density
		s.Facilities += r.NumFacilities
		s.Population += r.Population.OrZero()
	}

	out := make([]CategoryStat, 0, len(acc))
	for _, c := range model.Categories {
		s, ok := acc[c]
		if !ok {
			continue
		}
		s.MeanDensity /= float64(s.Counties)
		out = append(out, *s)
	}
	return out
}

// SortKey names a column TopN can sort by.
type SortKey string

// Sort keys.
const (
	KeyPopulation SortKey = "population"
	KeyDensity    SortKey = "density"
	KeyFacilities SortKey = "facilities"
	KeyRUCC       SortKey = "rucc"
)

// ParseSortKey accepts a sort key or its output column name.
func ParseSortKey(s string) (SortKey, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "population", "total_population":
		return KeyPopulation, nil
	case "density", "facilities_per_10k_people":
		return KeyDensity, nil
	case "facilities", "num_facilities":
		return KeyFacilities, nil
	case "rucc", "rucc_code":
		return KeyRUCC, nil
	default:
		return "", eris.Errorf("analysis: unknown sort key %q", s)
	}
}

// Order is a sort direction.
type Order string

// Sort orders.
const (
	Descending Order = "desc"
	Ascending  Order = "asc"
)

// ParseOrder accepts "asc" or "desc"; empty means descending.
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "desc", "descending":
		return Descending, nil
	case "asc", "ascending":
		return Ascending, nil
	default:
		return "", eris.Errorf("analysis: unknown sort order %q", s)
	}
}

// TopN returns the first n rows sorted by key. The sort is stable: rows with
// equal keys keep their input order. An unknown population sorts as 0; rows
// with an unknown RUCC code sort last in either direction. n <= 0 returns
// every row.
func TopN(rows []model.CountySummary, key SortKey, n int, order Order) []model.CountySummary {
	out := append([]model.CountySummary(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool {
		a, aok := sortValue(out[i], key)
		b, bok := sortValue(out[j], key)
		if aok != bok {
			return aok
		}
		if order == Ascending {
			return a < b
		}
		return a > b
	})
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

func sortValue(c model.CountySummary, key SortKey) (float64, bool) {
	switch key {
	case KeyDensity:
		return c.Density, true
	case KeyFacilities:
		return float64(c.NumFacilities), true
	case KeyRUCC:
		return float64(c.RUCCCode.Value), c.RUCCCode.Valid
	default:
		return float64(c.Population.OrZero()), true
	}
}

// Views bundles the named report views of one run.
type Views struct {
	Categories              []CategoryStat        `yaml:"categories" json:"categories"`
	TopByPopulation         []model.CountySummary `yaml:"-" json:"top_by_population"`
	TopByDensity            []model.CountySummary `yaml:"-" json:"top_by_density"`
	PotentialDeserts        []model.CountySummary `yaml:"-" json:"potential_deserts"`
	UnderservedByPopulation []model.CountySummary `yaml:"-" json:"underserved_by_population"`
	UnderservedByDensity    []model.CountySummary `yaml:"-" json:"underserved_by_density"`
	ZeroFacilityNonmetro    []model.CountySummary `yaml:"-" json:"zero_facility_nonmetro"`
}

// BuildViews computes every named view over the enriched table. Top lists
// are limited to topN rows.
func BuildViews(rows []model.CountySummary, t Thresholds, topN int) Views {
	return Views{
		Categories:              CategoryStats(rows),
		TopByPopulation:         TopN(rows, KeyPopulation, topN, Descending),
		TopByDensity:            TopN(rows, KeyDensity, topN, Descending),
		PotentialDeserts:        PotentialDeserts(rows, t),
		UnderservedByPopulation: UnderservedNonmetro(rows, t, ByPopulation),
		UnderservedByDensity:    UnderservedNonmetro(rows, t, ByDensity),
		ZeroFacilityNonmetro:    ZeroFacilityNonmetro(rows),
	}
}
