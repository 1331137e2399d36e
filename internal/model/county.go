// Package model defines the typed records passed between pipeline stages.
package model

import "github.com/rotisserie/eris"

// FacilityRecord is one geocoded health-center site from the facility roster.
// Latitude and Longitude are always both present; records missing either are
// dropped by the loader.
type FacilityRecord struct {
	Name       string  `json:"facility_name"`
	Address    string  `json:"address"`
	City       string  `json:"city"`
	StateAbbr  string  `json:"state_abbrev"`
	ZIP        string  `json:"zip_code"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	StateFIPS  string  `json:"state_fips"`  // 2 chars, zero-padded
	CountyFIPS string  `json:"county_fips"` // 3 chars, zero-padded
}

// PopulationRecord is one county row from the population table.
type PopulationRecord struct {
	StateFIPS  string  `json:"state_fips"`
	CountyFIPS string  `json:"county_fips"`
	CountyName string  `json:"county_name"`
	Population NullInt `json:"total_population"`
}

// RuralUrbanCode is one county's rural-urban continuum classification.
type RuralUrbanCode struct {
	FIPS        string  `json:"fips"` // 5 chars
	Code        NullInt `json:"rucc_code"`
	Description string  `json:"rucc_description"`
}

// JoinedFacility is a facility enriched with its county population.
// CountyName and Population are zero/unknown when the county had no
// population match.
type JoinedFacility struct {
	FacilityRecord
	CountyName string  `json:"county_name"`
	Population NullInt `json:"total_population"`
	Matched    bool    `json:"-"`
}

// CountyKey identifies a county by its fixed-width FIPS parts.
type CountyKey struct {
	StateFIPS  string
	CountyFIPS string
}

// FullFIPS returns the 5-character concatenation of the key.
func (k CountyKey) FullFIPS() string { return k.StateFIPS + k.CountyFIPS }

// Category is the coarse urban/rural classification derived from a RUCC code.
type Category string

// Category values.
const (
	Metropolitan    Category = "Metropolitan"
	Nonmetropolitan Category = "Nonmetropolitan"
	Unknown         Category = "Unknown"
)

// Categories lists every category in report order.
var Categories = []Category{Metropolitan, Nonmetropolitan, Unknown}

// ParseCategory converts a string into a Category.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case Metropolitan, Nonmetropolitan, Unknown:
		return Category(s), nil
	default:
		return "", eris.Errorf("model: unknown category %q", s)
	}
}

// CountySummary is one row of the enriched per-county output table.
type CountySummary struct {
	StateFIPS     string   `json:"state_fips"`
	CountyFIPS    string   `json:"county_fips"`
	CountyName    string   `json:"county_name"`
	NumFacilities int      `json:"num_facilities"`
	Population    NullInt  `json:"total_population"`
	Density       float64  `json:"facilities_per_10k_people"`
	FullFIPS      string   `json:"full_fips"`
	RUCCCode      NullInt  `json:"rucc_code"`
	RUCCDesc      string   `json:"rucc_description"`
	Category      Category `json:"urban_rural_category"`
}

// Key returns the county's composite key.
func (c CountySummary) Key() CountyKey {
	return CountyKey{StateFIPS: c.StateFIPS, CountyFIPS: c.CountyFIPS}
}
