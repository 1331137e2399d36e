package export

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/healthaccess/internal/analysis"
	"github.com/sells-group/healthaccess/internal/loader"
	"github.com/sells-group/healthaccess/internal/model"
)

// Report is the YAML manifest written alongside the CSV artifact.
type Report struct {
	RunID      string                   `yaml:"run_id" json:"run_id"`
	StateFIPS  string                   `yaml:"state_fips,omitempty" json:"state_fips,omitempty"`
	Inputs     ReportInputs             `yaml:"inputs" json:"inputs"`
	Thresholds ReportThresholds         `yaml:"thresholds" json:"thresholds"`
	Counties   int                      `yaml:"counties" json:"counties"`
	Facilities int                      `yaml:"facilities" json:"facilities"`
	Load       map[string]*loader.Stats `yaml:"load" json:"load"`
	Join       analysis.JoinStats       `yaml:"join" json:"join"`
	Enrich     analysis.EnrichStats     `yaml:"enrich" json:"enrich"`
	Categories []analysis.CategoryStat  `yaml:"categories" json:"categories"`

	PotentialDeserts        []ReportCounty `yaml:"potential_deserts" json:"potential_deserts"`
	UnderservedByPopulation []ReportCounty `yaml:"underserved_nonmetro_by_population" json:"underserved_nonmetro_by_population"`
	UnderservedByDensity    []ReportCounty `yaml:"underserved_nonmetro_by_density" json:"underserved_nonmetro_by_density"`
	ZeroFacilityNonmetro    []ReportCounty `yaml:"zero_facility_nonmetro" json:"zero_facility_nonmetro"`

	Outputs []string `yaml:"outputs,omitempty" json:"outputs,omitempty"`
}

// ReportInputs records the source paths of a run.
type ReportInputs struct {
	Facilities string `yaml:"facilities" json:"facilities"`
	Population string `yaml:"population" json:"population"`
	RUCC       string `yaml:"rucc" json:"rucc"`
}

// ReportThresholds records the thresholds a run used.
type ReportThresholds struct {
	MetroMaxRUCC  int64   `yaml:"rucc_metro_max" json:"rucc_metro_max"`
	DesertDensity float64 `yaml:"desert_density" json:"desert_density"`
	ZeroFacility  bool    `yaml:"include_zero_facility_counties" json:"include_zero_facility_counties"`
}

// ReportCounty is the short form of a county in report lists.
type ReportCounty struct {
	FullFIPS      string         `yaml:"full_fips" json:"full_fips"`
	CountyName    string         `yaml:"county_name" json:"county_name"`
	NumFacilities int            `yaml:"num_facilities" json:"num_facilities"`
	Population    int64          `yaml:"total_population" json:"total_population"`
	Density       float64        `yaml:"facilities_per_10k_people" json:"facilities_per_10k_people"`
	Category      model.Category `yaml:"category" json:"category"`
}

// ReportCounties converts summaries to report form.
func ReportCounties(rows []model.CountySummary) []ReportCounty {
	out := make([]ReportCounty, len(rows))
	for i, c := range rows {
		out[i] = ReportCounty{
			FullFIPS:      c.FullFIPS,
			CountyName:    c.CountyName,
			NumFacilities: c.NumFacilities,
			Population:    c.Population.OrZero(),
			Density:       c.Density,
			Category:      c.Category,
		}
	}
	return out
}

// WithViews fills the view sections of the report.
func (r *Report) WithViews(v analysis.Views) {
	r.Categories = v.Categories
	r.PotentialDeserts = ReportCounties(v.PotentialDeserts)
	r.UnderservedByPopulation = ReportCounties(v.UnderservedByPopulation)
	r.UnderservedByDensity = ReportCounties(v.UnderservedByDensity)
	r.ZeroFacilityNonmetro = ReportCounties(v.ZeroFacilityNonmetro)
}

// WriteReport encodes the report as YAML.
func WriteReport(w io.Writer, r *Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return eris.Wrap(err, "export: encode report")
	}
	return eris.Wrap(enc.Close(), "export: close report encoder")
}

// WriteReportFile writes the report to path, replacing it atomically.
func WriteReportFile(path string, r *Report) error {
	return writeAtomic(path, func(w io.Writer) error { return WriteReport(w, r) })
}

// ReadReport decodes a report written by WriteReport.
func ReadReport(rd io.Reader) (*Report, error) {
	var r Report
	if err := yaml.NewDecoder(rd).Decode(&r); err != nil {
		return nil, eris.Wrap(err, "export: decode report")
	}
	return &r, nil
}

// ReadReportFile reads a report from path.
func ReadReportFile(path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "export: open report %s", path)
	}
	defer f.Close() //nolint:errcheck
	return ReadReport(f)
}
