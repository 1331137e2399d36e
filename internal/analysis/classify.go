package analysis

import (
	"github.com/sells-group/healthaccess/internal/model"
)

// Default thresholds. RUCC 1-3 are metro counties, 4-9 nonmetro.
const (
	DefaultMetroMaxRUCC  = 3
	DefaultDesertDensity = 0.5 // facilities per 10K people
)

// Thresholds parameterizes classification and desert detection.
type Thresholds struct {
	MetroMaxRUCC  int64
	DesertDensity float64
}

// DefaultThresholds returns the standard RUCC and desert thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{MetroMaxRUCC: DefaultMetroMaxRUCC, DesertDensity: DefaultDesertDensity}
}

// Density returns facilities per 10,000 people. An unknown population is
// treated as zero, and a zero population yields 0.
func Density(facilities int, population model.NullInt) float64 {
	pop := population.OrZero()
	if pop <= 0 {
		return 0
	}
	return float64(facilities) * 10000 / float64(pop)
}

// Classify maps a RUCC code to its category. An absent code is Unknown,
// never Nonmetropolitan.
func Classify(code model.NullInt, t Thresholds) model.Category {
	switch {
	case !code.Valid:
		return model.Unknown
	case code.Value <= t.MetroMaxRUCC:
		return model.Metropolitan
	default:
		return model.Nonmetropolitan
	}
}

// EnrichStats counts counties with no rural-urban code.
type EnrichStats struct {
	Counties     int      `yaml:"counties" json:"counties"`
	Unclassified int      `yaml:"unclassified" json:"unclassified"`
	MissingFIPS  []string `yaml:"missing_fips,omitempty" json:"missing_fips,omitempty"`
}

// Enrich computes density and attaches the rural-urban code and category to
// each summary, left-joining codes on Full_FIPS. The input is not modified.
func Enrich(summaries []model.CountySummary, codes []model.RuralUrbanCode, t Thresholds) ([]model.CountySummary, EnrichStats) {
	index := make(map[string]model.RuralUrbanCode, len(codes))
	for _, c := range codes {
		if _, ok := index[c.FIPS]; !ok {
			index[c.FIPS] = c
		}
	}

	stats := EnrichStats{Counties: len(summaries)}
	out := make([]model.CountySummary, len(summaries))
	for i, s := range summaries {
		s.FullFIPS = s.StateFIPS + s.CountyFIPS
		s.Density = Density(s.NumFacilities, s.Population)
		s.RUCCCode = model.NullInt{}
		s.RUCCDesc = ""
		if c, ok := index[s.FullFIPS]; ok {
			s.RUCCCode = c.Code
			s.RUCCDesc = c.Description
		} else {
			stats.MissingFIPS = append(stats.MissingFIPS, s.FullFIPS)
		}
		s.Category = Classify(s.RUCCCode, t)
		if s.Category == model.Unknown {
			stats.Unclassified++
		}
		out[i] = s
	}
	return out, stats
}
