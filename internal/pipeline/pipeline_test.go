package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/healthaccess/internal/config"
	"github.com/sells-group/healthaccess/internal/export"
	"github.com/sells-group/healthaccess/internal/loader"
	"github.com/sells-group/healthaccess/internal/model"
	"github.com/sells-group/healthaccess/internal/store"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

const facilitiesCSV = "Site Name,Site Address,Site City,Site State Abbreviation,Site Postal Code," +
	"Geocoding Artifact Address Primary X Coordinate,Geocoding Artifact Address Primary Y Coordinate," +
	"State FIPS Code,State and County Federal Information Processing Standard Code\n" +
	"Decatur Clinic,1 Church St,Decatur,GA,30030,-84.29,33.77,13,13089\n" +
	"Tucker Clinic,2 Main St,Tucker,GA,30084,-84.21,33.85,13,13089\n" +
	"Midtown Clinic,3 Peachtree St,Atlanta,GA,30308,-84.38,33.78,13,13121\n" +
	"Pearson Clinic,4 Austin Ave,Pearson,GA,31642,-82.85,31.29,13,13003\n" +
	"No Coordinates,5 Elm St,Pearson,GA,31642,,31.29,13,13003\n" +
	"Alabama Clinic,6 Oak St,Autaugaville,AL,36003,-86.65,32.43,01,01001\n"

const populationCSV = "County_Name,Total_Population,State_FIPS,County_FIPS\n" +
	"\"Appling County, Georgia\",18444,13,001\n" +
	"\"Atkinson County, Georgia\",30000,13,003\n" +
	"\"DeKalb County, Georgia\",764382,13,089\n" +
	"\"Fulton County, Georgia\",1066710,13,121\n"

const ruccCSV = "FIPS,State,County_Name,Attribute,Value\n" +
	"13001,GA,Appling County,RUCC_2023,7\n" +
	"13001,GA,Appling County,Description,Nonmetro - Urban population of 5000 to 20000\n" +
	"13003,GA,Atkinson County,RUCC_2023,9\n" +
	"13003,GA,Atkinson County,Description,Nonmetro - Urban population of fewer than 5000\n" +
	"13089,GA,DeKalb County,RUCC_2023,1\n" +
	"13089,GA,DeKalb County,Description,Metro - Counties in metro areas of 1 million population or more\n" +
	"13121,GA,Fulton County,RUCC_2023,1\n" +
	"13121,GA,Fulton County,Description,Metro - Counties in metro areas of 1 million population or more\n"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	in := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(in, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	cfg := &config.Config{}
	cfg.Inputs.Facilities = write("facilities.csv", facilitiesCSV)
	cfg.Inputs.Population = write("population.csv", populationCSV)
	cfg.Inputs.RUCC = write("rucc.csv", ruccCSV)
	cfg.Inputs.RUCCEncoding = "latin1"
	cfg.Output.Dir = filepath.Join(t.TempDir(), "out")
	cfg.Output.CSV = "county_healthcare_summary_{abbrev}_with_rucc.csv"
	cfg.Output.Facilities = "healthcare_facilities_with_population_{abbrev}.csv"
	cfg.Output.XLSX = "county_healthcare_summary_{abbrev}.xlsx"
	cfg.Output.Report = "run_report_{abbrev}.yaml"
	cfg.Output.GeoJSON = "map_{abbrev}.geojson"
	cfg.Analysis.StateFIPS = "13"
	cfg.Analysis.StateAbbrev = "GA"
	cfg.Analysis.RUCCMetroMax = 3
	cfg.Analysis.DesertThreshold = 0.5
	cfg.Analysis.TopN = 10
	return cfg
}

func byFIPS(rows []model.CountySummary) map[string]model.CountySummary {
	out := make(map[string]model.CountySummary, len(rows))
	for _, r := range rows {
		out[r.FullFIPS] = r
	}
	return out
}

func TestRun(t *testing.T) {
	cfg := testConfig(t)

	res, err := New(cfg, nil).Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, res.RunID)

	// Facility missing a coordinate and the out-of-state facility never count.
	assert.Len(t, res.Joined, 4)
	require.Len(t, res.Summaries, 3)
	rows := byFIPS(res.Summaries)

	dekalb := rows["13089"]
	assert.Equal(t, 2, dekalb.NumFacilities)
	assert.Equal(t, model.IntOf(764382), dekalb.Population)
	assert.Equal(t, model.Metropolitan, dekalb.Category)
	assert.InDelta(t, 2*10000.0/764382, dekalb.Density, 1e-12)

	atkinson := rows["13003"]
	assert.Equal(t, 1, atkinson.NumFacilities)
	assert.Equal(t, model.Nonmetropolitan, atkinson.Category)
	assert.InDelta(t, 1.0/3, atkinson.Density, 1e-12)

	assert.NotContains(t, rows, "13001")

	require.Len(t, res.Views.UnderservedByDensity, 1)
	assert.Equal(t, "13003", res.Views.UnderservedByDensity[0].FullFIPS)
	assert.Empty(t, res.Views.ZeroFacilityNonmetro)

	// Shapefile unset: no map.
	assert.Len(t, res.Outputs, 4)
	for _, path := range res.Outputs {
		assert.FileExists(t, path)
	}

	summaryPath := filepath.Join(cfg.Output.Dir, "county_healthcare_summary_GA_with_rucc.csv")
	back, err := export.ReadCSVFile(summaryPath)
	require.NoError(t, err)
	assert.Equal(t, res.Summaries, back)

	report, err := export.ReadReportFile(filepath.Join(cfg.Output.Dir, "run_report_GA.yaml"))
	require.NoError(t, err)
	assert.Equal(t, res.RunID, report.RunID)
	assert.Equal(t, 3, report.Counties)
	assert.Equal(t, 4, report.Facilities)
	assert.Equal(t, 1, report.Load["facilities"].Dropped[loader.DropMissingCoordinates])
	assert.Equal(t, 1, report.Load["facilities"].Dropped[loader.DropOtherState])
	assert.Len(t, report.Outputs, 3)
}

func TestRun_Idempotent(t *testing.T) {
	cfg := testConfig(t)

	readAll := func(paths []string) map[string][]byte {
		out := make(map[string][]byte, len(paths))
		for _, path := range paths {
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			out[path] = data
		}
		return out
	}

	first, err := New(cfg, nil).Run(context.Background())
	require.NoError(t, err)
	firstFiles := readAll(first.Outputs)

	second, err := New(cfg, nil).Run(context.Background())
	require.NoError(t, err)
	secondFiles := readAll(second.Outputs)

	assert.Equal(t, first.RunID, second.RunID)
	require.Equal(t, first.Outputs, second.Outputs)
	require.Len(t, first.Outputs, 4)
	for _, path := range first.Outputs {
		assert.Equal(t, firstFiles[path], secondFiles[path], "artifact %s differs between runs", filepath.Base(path))
	}
}

func TestRunID_ChangesWithInputsAndThresholds(t *testing.T) {
	cfg := testConfig(t)
	base, err := RunID(cfg)
	require.NoError(t, err)

	again, err := RunID(cfg)
	require.NoError(t, err)
	assert.Equal(t, base, again)

	cfg.Analysis.DesertThreshold = 1.0
	changed, err := RunID(cfg)
	require.NoError(t, err)
	assert.NotEqual(t, base, changed)

	cfg = testConfig(t)
	f, err := os.OpenFile(cfg.Inputs.Population, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.WriteString("\"Echols County, Georgia\",3697,13,101\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	edited, err := RunID(cfg)
	require.NoError(t, err)
	assert.NotEqual(t, base, edited)
}

func TestRun_InvalidCountyCodeNeverAggregated(t *testing.T) {
	cfg := testConfig(t)
	f, err := os.OpenFile(cfg.Inputs.Facilities, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.WriteString("Unkeyed Clinic,7 Pine St,Decatur,GA,30030,-84.29,33.77,13,ABCDE\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	res, err := New(cfg, nil).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Summaries, 3)
	for _, c := range res.Summaries {
		assert.Len(t, c.CountyFIPS, 3, c.CountyName)
		assert.Len(t, c.FullFIPS, 5, c.CountyName)
	}
	assert.Equal(t, 1, res.Report.Load["facilities"].Dropped[loader.DropInvalidKey])
}

func TestRun_WithRoster(t *testing.T) {
	cfg := testConfig(t)
	cfg.Analysis.IncludeZeroFacilityCounties = true

	res, err := New(cfg, nil).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Summaries, 4)

	appling := byFIPS(res.Summaries)["13001"]
	assert.Equal(t, 0, appling.NumFacilities)
	assert.Equal(t, model.Nonmetropolitan, appling.Category)
	require.Len(t, res.Views.ZeroFacilityNonmetro, 1)
	assert.Equal(t, "13001", res.Views.ZeroFacilityNonmetro[0].FullFIPS)
	assert.True(t, res.Report.Thresholds.ZeroFacility)
}

func TestRun_MissingSourceWritesNothing(t *testing.T) {
	cfg := testConfig(t)
	cfg.Inputs.RUCC = filepath.Join(t.TempDir(), "missing.csv")

	_, err := New(cfg, nil).Run(context.Background())
	require.Error(t, err)

	var sue *loader.SourceUnavailableError
	require.True(t, errors.As(err, &sue))
	assert.Equal(t, "rucc", sue.Source)
	assert.NoDirExists(t, cfg.Output.Dir)
}

func TestRun_PersistsToStore(t *testing.T) {
	cfg := testConfig(t)
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "health.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	res, err := New(cfg, st).Run(context.Background())
	require.NoError(t, err)

	run, err := st.GetRun(context.Background(), res.RunID)
	require.NoError(t, err)
	assert.Equal(t, 3, run.Counties)
	assert.Equal(t, 4, run.Facilities)
	assert.Equal(t, "13", run.StateFIPS)

	stored, err := st.ListCountySummary(context.Background())
	require.NoError(t, err)
	assert.Len(t, stored, 3)
}

func TestAnalyze_ThresholdsFromConfig(t *testing.T) {
	in := &Inputs{
		Facilities: []model.FacilityRecord{{Name: "x", StateFIPS: "13", CountyFIPS: "089", Latitude: 1, Longitude: 1}},
		Population: []model.PopulationRecord{{StateFIPS: "13", CountyFIPS: "089", CountyName: "DeKalb", Population: model.IntOf(5000)}},
		Codes:      []model.RuralUrbanCode{{FIPS: "13089", Code: model.IntOf(4)}},
	}

	res := Analyze(in, config.AnalysisConfig{RUCCMetroMax: 3, DesertThreshold: 0.5})
	assert.Equal(t, model.Nonmetropolitan, res.Summaries[0].Category)
	assert.Empty(t, res.Views.PotentialDeserts)

	res = Analyze(in, config.AnalysisConfig{RUCCMetroMax: 4, DesertThreshold: 5})
	assert.Equal(t, model.Metropolitan, res.Summaries[0].Category)
	assert.Len(t, res.Views.PotentialDeserts, 1)
}
