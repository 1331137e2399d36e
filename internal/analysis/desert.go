package analysis

import (
	"sort"

	"github.com/sells-group/healthaccess/internal/model"
)

// IsDesert reports whether a county is a potential healthcare desert: no
// facilities, or a density below the desert threshold.
func IsDesert(c model.CountySummary, t Thresholds) bool {
	return c.NumFacilities == 0 || c.Density < t.DesertDensity
}

// PotentialDeserts returns the desert counties, largest population first.
func PotentialDeserts(rows []model.CountySummary, t Thresholds) []model.CountySummary {
	out := filter(rows, func(c model.CountySummary) bool { return IsDesert(c, t) })
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Population.OrZero() > out[j].Population.OrZero()
	})
	return out
}

// UnderservedOrder selects the ordering of the underserved view.
type UnderservedOrder int

// Underserved orderings.
const (
	// ByPopulation surfaces the largest underserved populations first.
	ByPopulation UnderservedOrder = iota
	// ByDensity surfaces the most extreme shortfalls first.
	ByDensity
)

// String returns the view name of the ordering.
func (o UnderservedOrder) String() string {
	if o == ByDensity {
		return "by_density"
	}
	return "by_population"
}

func underserved(c model.CountySummary) bool {
	return c.Category == model.Nonmetropolitan && c.Population.OrZero() > 0
}

// UnderservedNonmetro returns nonmetropolitan desert counties with a positive
// population, ordered by population descending or density ascending.
func UnderservedNonmetro(rows []model.CountySummary, t Thresholds, order UnderservedOrder) []model.CountySummary {
	out := filter(rows, func(c model.CountySummary) bool {
		return underserved(c) && IsDesert(c, t)
	})
	if order == ByDensity {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Density < out[j].Density })
	} else {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Population.Value > out[j].Population.Value
		})
	}
	return out
}

// ZeroFacilityNonmetro returns nonmetropolitan counties with a positive
// population and no facilities at all, largest population first. Without a
// county roster this is usually empty, since only counties with facilities
// reach the summary.
func ZeroFacilityNonmetro(rows []model.CountySummary) []model.CountySummary {
	out := filter(rows, func(c model.CountySummary) bool {
		return underserved(c) && c.NumFacilities == 0
	})
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Population.Value > out[j].Population.Value
	})
	return out
}

func filter(rows []model.CountySummary, keep func(model.CountySummary) bool) []model.CountySummary {
	out := make([]model.CountySummary, 0)
	for _, r := range rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
