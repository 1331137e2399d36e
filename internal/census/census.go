// Package census fetches county population estimates from the Census Bureau
// ACS 5-year API.
package census

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/healthaccess/internal/fetcher"
	"github.com/sells-group/healthaccess/internal/fips"
	"github.com/sells-group/healthaccess/internal/loader"
	"github.com/sells-group/healthaccess/internal/model"
)

// Defaults for the ACS 5-year county population query.
const (
	DefaultBaseURL  = "https://api.census.gov/data"
	DefaultYear     = "2022"
	DefaultVariable = "B01001_001E" // total population
)

// ErrMissingAPIKey is returned when no Census API key is configured.
var ErrMissingAPIKey = eris.New("census: API key not configured (census.api_key or CENSUS_API_KEY)")

// Query selects the state, year, and population variable to fetch.
type Query struct {
	StateFIPS string
	Year      string
	Variable  string
}

// Client queries the ACS API through a Fetcher.
type Client struct {
	fetcher fetcher.Fetcher
	baseURL string
	apiKey  string
}

// NewClient returns a Client. An empty baseURL uses DefaultBaseURL.
func NewClient(f fetcher.Fetcher, baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{fetcher: f, baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey}
}

func (q Query) withDefaults() Query {
	if q.Year == "" {
		q.Year = DefaultYear
	}
	if q.Variable == "" {
		q.Variable = DefaultVariable
	}
	return q
}

// URL builds the county population request for q.
func (c *Client) URL(q Query) string {
	q = q.withDefaults()
	params := url.Values{}
	params.Set("get", "NAME,"+q.Variable)
	params.Set("for", "county:*")
	params.Set("in", "state:"+q.StateFIPS)
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}
	return fmt.Sprintf("%s/%s/acs/acs5?%s", c.baseURL, q.Year, params.Encode())
}

// CountyPopulation fetches one row per county of q.StateFIPS. The response
// columns are renamed to the population table layout; a non-numeric estimate
// becomes unknown. Transport errors are returned unchanged in the chain so the
// caller can report the raw cause.
func (c *Client) CountyPopulation(ctx context.Context, q Query) ([]model.PopulationRecord, *loader.Stats, error) {
	if c.apiKey == "" {
		return nil, nil, ErrMissingAPIKey
	}
	q = q.withDefaults()
	state := fips.NormalizeState(q.StateFIPS)
	if state == "" {
		return nil, nil, eris.Errorf("census: invalid state FIPS %q", q.StateFIPS)
	}
	q.StateFIPS = state

	log := zap.L().With(zap.String("state_fips", state), zap.String("year", q.Year))
	log.Info("fetching county population")

	body, err := c.fetcher.Download(ctx, c.URL(q))
	if err != nil {
		return nil, nil, eris.Wrapf(err, "census: fetch state %s year %s", state, q.Year)
	}
	defer body.Close() //nolint:errcheck

	recs, stats, err := Parse(body, q.Variable)
	if err != nil {
		return nil, nil, err
	}
	log.Info("fetched county population", zap.Int("counties", len(recs)))
	return recs, stats, nil
}

// Parse decodes an ACS JSON table (header row first) into population records.
func Parse(r io.Reader, variable string) ([]model.PopulationRecord, *loader.Stats, error) {
	if variable == "" {
		variable = DefaultVariable
	}
	header, rows, err := fetcher.DecodeJSONTable(r)
	if err != nil {
		return nil, nil, eris.Wrap(err, "census: parse response")
	}

	renamed := make([]string, len(header))
	for i, h := range header {
		switch h {
		case "NAME":
			renamed[i] = "County_Name"
		case variable:
			renamed[i] = "Total_Population"
		case "state":
			renamed[i] = "State_FIPS"
		case "county":
			renamed[i] = "County_FIPS"
		default:
			renamed[i] = h
		}
	}

	records := make([]fetcher.Record, len(rows))
	for i, row := range rows {
		records[i] = fetcher.Record{Line: i + 2, Fields: row}
	}
	return loader.PopulationFromRecords("census api", renamed, records)
}

// FileName is the conventional CSV name for a state/year population table.
func FileName(stateFIPS, year string) string {
	return fmt.Sprintf("census_population_data_state_%s_%s.csv", stateFIPS, year)
}
