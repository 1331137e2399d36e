package config

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/healthaccess/internal/fips"
)

// Config holds the full application configuration.
type Config struct {
	Inputs   InputsConfig   `yaml:"inputs" mapstructure:"inputs"`
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Census   CensusConfig   `yaml:"census" mapstructure:"census"`
	Map      MapConfig      `yaml:"map" mapstructure:"map"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// InputsConfig locates the three source tables.
type InputsConfig struct {
	Facilities    string `yaml:"facilities" mapstructure:"facilities"`
	FacilitySheet string `yaml:"facility_sheet" mapstructure:"facility_sheet"`
	Population    string `yaml:"population" mapstructure:"population"`
	RUCC          string `yaml:"rucc" mapstructure:"rucc"`
	RUCCEncoding  string `yaml:"rucc_encoding" mapstructure:"rucc_encoding"`
	RUCCAttribute string `yaml:"rucc_attribute" mapstructure:"rucc_attribute"`
}

// OutputConfig names the artifacts a run writes. Empty names skip the
// artifact, except the summary CSV which is always written. {abbrev} is
// replaced by analysis.state_abbrev.
type OutputConfig struct {
	Dir        string `yaml:"dir" mapstructure:"dir"`
	CSV        string `yaml:"csv" mapstructure:"csv"`
	Facilities string `yaml:"facilities" mapstructure:"facilities"`
	XLSX       string `yaml:"xlsx" mapstructure:"xlsx"`
	Report     string `yaml:"report" mapstructure:"report"`
	GeoJSON    string `yaml:"geojson" mapstructure:"geojson"`
}

// AnalysisConfig holds the state filter and classification thresholds.
type AnalysisConfig struct {
	StateFIPS                   string  `yaml:"state_fips" mapstructure:"state_fips"`
	StateAbbrev                 string  `yaml:"state_abbrev" mapstructure:"state_abbrev"`
	RUCCMetroMax                int64   `yaml:"rucc_metro_max" mapstructure:"rucc_metro_max"`
	DesertThreshold             float64 `yaml:"desert_threshold" mapstructure:"desert_threshold"`
	TopN                        int     `yaml:"top_n" mapstructure:"top_n"`
	IncludeZeroFacilityCounties bool    `yaml:"include_zero_facility_counties" mapstructure:"include_zero_facility_counties"`
}

// CensusConfig configures the ACS population fetch.
type CensusConfig struct {
	APIKey      string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	Year        string `yaml:"year" mapstructure:"year"`
	Variable    string `yaml:"variable" mapstructure:"variable"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Retries     int    `yaml:"retries" mapstructure:"retries"`
}

// MapConfig configures GeoJSON map generation.
type MapConfig struct {
	Shapefile string `yaml:"shapefile" mapstructure:"shapefile"`
}

// StoreConfig configures the optional persistence sinks.
type StoreConfig struct {
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// ServerConfig configures the dashboard API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Path joins name onto the output directory, expanding {abbrev}. An empty
// name yields an empty path.
func (o OutputConfig) Path(name, abbrev string) string {
	if name == "" {
		return ""
	}
	name = strings.ReplaceAll(name, "{abbrev}", abbrev)
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(o.Dir, name)
}

// Load reads configuration from .env, config.yaml, and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: read .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("HEALTHACCESS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("census.api_key", "HEALTHACCESS_CENSUS_API_KEY", "CENSUS_API_KEY"); err != nil {
		return nil, eris.Wrap(err, "config: bind census key")
	}

	// Defaults
	v.SetDefault("inputs.facilities", "Health_Center_Service_Delivery_and_LookAlike_Sites.csv")
	v.SetDefault("inputs.population", "census_population_data_state_13_2022.csv")
	v.SetDefault("inputs.rucc", "Ruralurbancontinuumcodes2023.csv")
	v.SetDefault("inputs.rucc_encoding", "latin1")
	v.SetDefault("inputs.rucc_attribute", "RUCC_2023")
	v.SetDefault("output.dir", ".")
	v.SetDefault("output.csv", "county_healthcare_summary_{abbrev}_with_rucc.csv")
	v.SetDefault("output.facilities", "healthcare_facilities_with_population_{abbrev}.csv")
	v.SetDefault("output.xlsx", "county_healthcare_summary_{abbrev}.xlsx")
	v.SetDefault("output.report", "run_report_{abbrev}.yaml")
	v.SetDefault("output.geojson", "county_healthcare_map_{abbrev}.geojson")
	v.SetDefault("analysis.state_fips", "13")
	v.SetDefault("analysis.state_abbrev", "GA")
	v.SetDefault("analysis.rucc_metro_max", 3)
	v.SetDefault("analysis.desert_threshold", 0.5)
	v.SetDefault("analysis.top_n", 10)
	v.SetDefault("analysis.include_zero_facility_counties", false)
	v.SetDefault("census.base_url", "https://api.census.gov/data")
	v.SetDefault("census.year", "2022")
	v.SetDefault("census.variable", "B01001_001E")
	v.SetDefault("census.timeout_secs", 30)
	v.SetDefault("census.retries", 3)
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects thresholds that cannot classify anything.
func (c *Config) Validate() error {
	if c.Analysis.StateFIPS != "" && fips.NormalizeState(c.Analysis.StateFIPS) == "" {
		return eris.Errorf("config: analysis.state_fips must be a numeric state code of at most 2 digits, got %q", c.Analysis.StateFIPS)
	}
	if c.Analysis.RUCCMetroMax < 1 || c.Analysis.RUCCMetroMax > 9 {
		return eris.Errorf("config: analysis.rucc_metro_max must be between 1 and 9, got %d", c.Analysis.RUCCMetroMax)
	}
	if c.Analysis.DesertThreshold < 0 {
		return eris.Errorf("config: analysis.desert_threshold must not be negative, got %g", c.Analysis.DesertThreshold)
	}
	if c.Analysis.TopN < 0 {
		return eris.Errorf("config: analysis.top_n must not be negative, got %d", c.Analysis.TopN)
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
