package analysis

import (
	"github.com/sells-group/healthaccess/internal/model"
)

// All disables a Select filter.
const All = "All"

// Selection narrows the summary table to one category and/or one county.
// Empty fields and All match every row.
type Selection struct {
	Category string
	County   string
}

func (s Selection) matches(c model.CountySummary) bool {
	if s.Category != "" && s.Category != All && string(c.Category) != s.Category {
		return false
	}
	if s.County != "" && s.County != All && c.CountyName != s.County {
		return false
	}
	return true
}

// Select returns the rows matching sel, in input order.
func Select(rows []model.CountySummary, sel Selection) []model.CountySummary {
	return filter(rows, sel.matches)
}

// Metrics are the headline totals over a set of counties.
type Metrics struct {
	Counties        int     `json:"counties"`
	TotalPopulation int64   `json:"total_population"`
	TotalFacilities int     `json:"total_facilities"`
	MeanDensity     float64 `json:"mean_density"`
}

// Summarize totals population and facilities and averages density. Unknown
// populations count as zero. An empty input yields zero metrics.
func Summarize(rows []model.CountySummary) Metrics {
	var m Metrics
	for _, r := range rows {
		m.Counties++
		m.TotalPopulation += r.Population.OrZero()
		m.TotalFacilities += r.NumFacilities
		m.MeanDensity += r.Density
	}
	if m.Counties > 0 {
		m.MeanDensity /= float64(m.Counties)
	}
	return m
}
