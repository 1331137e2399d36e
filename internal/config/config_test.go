package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml or .env is found
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "latin1", cfg.Inputs.RUCCEncoding)
	assert.Equal(t, "RUCC_2023", cfg.Inputs.RUCCAttribute)
	assert.Equal(t, "13", cfg.Analysis.StateFIPS)
	assert.Equal(t, "GA", cfg.Analysis.StateAbbrev)
	assert.Equal(t, int64(3), cfg.Analysis.RUCCMetroMax)
	assert.InDelta(t, 0.5, cfg.Analysis.DesertThreshold, 1e-9)
	assert.Equal(t, 10, cfg.Analysis.TopN)
	assert.False(t, cfg.Analysis.IncludeZeroFacilityCounties)
	assert.Equal(t, "https://api.census.gov/data", cfg.Census.BaseURL)
	assert.Equal(t, "2022", cfg.Census.Year)
	assert.Equal(t, "B01001_001E", cfg.Census.Variable)
	assert.Equal(t, 3, cfg.Census.Retries)
	assert.Equal(t, int32(4), cfg.Store.MaxConns)
	assert.Equal(t, "county_healthcare_summary_{abbrev}_with_rucc.csv", cfg.Output.CSV)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	yaml := `
analysis:
  state_fips: "01"
  state_abbrev: AL
  desert_threshold: 1.25
  include_zero_facility_counties: true
log:
  level: debug
  format: console
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "01", cfg.Analysis.StateFIPS)
	assert.Equal(t, "AL", cfg.Analysis.StateAbbrev)
	assert.InDelta(t, 1.25, cfg.Analysis.DesertThreshold, 1e-9)
	assert.True(t, cfg.Analysis.IncludeZeroFacilityCounties)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Defaults still apply for unset values
	assert.Equal(t, int64(3), cfg.Analysis.RUCCMetroMax)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	yaml := `
log:
  level: debug
store:
  sqlite_path: from-file.db
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("HEALTHACCESS_LOG_LEVEL", "warn")
	t.Setenv("HEALTHACCESS_STORE_SQLITE_PATH", "from-env.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "from-env.db", cfg.Store.SQLitePath)
}

func TestLoadCensusKeyFromEnv(t *testing.T) {
	chdir(t, t.TempDir())

	t.Setenv("CENSUS_API_KEY", "plain-key")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "plain-key", cfg.Census.APIKey)

	t.Setenv("HEALTHACCESS_CENSUS_API_KEY", "prefixed-key")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "prefixed-key", cfg.Census.APIKey)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	// godotenv never overrides a set variable, so start unset and clean up after.
	require.NoError(t, os.Unsetenv("CENSUS_API_KEY"))
	t.Cleanup(func() { os.Unsetenv("CENSUS_API_KEY") }) //nolint:errcheck

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CENSUS_API_KEY=dotenv-key\n"), 0600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "dotenv-key", cfg.Census.APIKey)
}

func TestLoadRejectsStateAbbreviation(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("HEALTHACCESS_ANALYSIS_STATE_FIPS", "GA")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "state_fips")
}

func TestLoadRejectsBadThresholds(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("analysis:\n  rucc_metro_max: 12\n"), 0644))
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rucc_metro_max")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		cfg.Analysis.RUCCMetroMax = 3
		cfg.Analysis.DesertThreshold = 0.5
		cfg.Analysis.TopN = 10
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"zero desert threshold", func(c *Config) { c.Analysis.DesertThreshold = 0 }, ""},
		{"metro max zero", func(c *Config) { c.Analysis.RUCCMetroMax = 0 }, "rucc_metro_max"},
		{"metro max ten", func(c *Config) { c.Analysis.RUCCMetroMax = 10 }, "rucc_metro_max"},
		{"negative desert", func(c *Config) { c.Analysis.DesertThreshold = -0.1 }, "desert_threshold"},
		{"negative top n", func(c *Config) { c.Analysis.TopN = -1 }, "top_n"},
		{"numeric state", func(c *Config) { c.Analysis.StateFIPS = "13" }, ""},
		{"unpadded state", func(c *Config) { c.Analysis.StateFIPS = "1" }, ""},
		{"no state filter", func(c *Config) { c.Analysis.StateFIPS = "" }, ""},
		{"state abbreviation", func(c *Config) { c.Analysis.StateFIPS = "GA" }, "state_fips"},
		{"state too wide", func(c *Config) { c.Analysis.StateFIPS = "130" }, "state_fips"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOutputPath(t *testing.T) {
	o := OutputConfig{Dir: "out"}
	assert.Equal(t, filepath.Join("out", "county_healthcare_summary_GA.csv"), o.Path("county_healthcare_summary_{abbrev}.csv", "GA"))
	assert.Equal(t, "/abs/report.yaml", o.Path("/abs/report.yaml", "GA"))
	assert.Empty(t, o.Path("", "GA"))
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
