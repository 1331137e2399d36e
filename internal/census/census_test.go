package census

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/healthaccess/internal/fetcher"
	"github.com/sells-group/healthaccess/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

const georgiaResponse = `[["NAME","B01001_001E","state","county"],
["Appling County, Georgia","18444","13","001"],
["Atkinson County, Georgia","8286","13","003"],
["Bacon County, Georgia",null,"13","005"],
["Baker County, Georgia","-666666666","13","007"]]`

type mockFetcher struct {
	body string
	err  error
	urls []string
}

func (m *mockFetcher) Download(_ context.Context, url string) (io.ReadCloser, error) {
	m.urls = append(m.urls, url)
	if m.err != nil {
		return nil, m.err
	}
	return io.NopCloser(strings.NewReader(m.body)), nil
}

func TestClient_URL(t *testing.T) {
	c := NewClient(nil, "https://api.census.gov/data/", "secret")
	got := c.URL(Query{StateFIPS: "13"})
	assert.Equal(t,
		"https://api.census.gov/data/2022/acs/acs5?for=county%3A%2A&get=NAME%2CB01001_001E&in=state%3A13&key=secret",
		got)
}

func TestClient_CountyPopulation(t *testing.T) {
	f := &mockFetcher{body: georgiaResponse}
	c := NewClient(f, "", "secret")

	recs, stats, err := c.CountyPopulation(context.Background(), Query{StateFIPS: "13", Year: "2021"})
	require.NoError(t, err)
	require.Len(t, recs, 4)
	require.Len(t, f.urls, 1)
	assert.Contains(t, f.urls[0], "/2021/acs/acs5?")

	assert.Equal(t, model.PopulationRecord{
		StateFIPS: "13", CountyFIPS: "001", CountyName: "Appling County, Georgia", Population: model.IntOf(18444),
	}, recs[0])
	assert.False(t, recs[2].Population.Valid, "null estimate is unknown")
	assert.False(t, recs[3].Population.Valid, "negative sentinel is unknown")
	assert.Equal(t, 1, stats.Missing["Total_Population"])
	assert.Equal(t, 1, stats.Coercion["Total_Population"])
}

func TestClient_PadsStateFIPS(t *testing.T) {
	f := &mockFetcher{body: `[["NAME","B01001_001E","state","county"],["Autauga County, Alabama","58761","01","001"]]`}
	c := NewClient(f, "", "k")
	_, _, err := c.CountyPopulation(context.Background(), Query{StateFIPS: "1"})
	require.NoError(t, err)
	assert.Contains(t, f.urls[0], "in=state%3A01")
}

func TestClient_MissingAPIKey(t *testing.T) {
	c := NewClient(&mockFetcher{}, "", "")
	_, _, err := c.CountyPopulation(context.Background(), Query{StateFIPS: "13"})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestClient_InvalidState(t *testing.T) {
	c := NewClient(&mockFetcher{}, "", "k")
	_, _, err := c.CountyPopulation(context.Background(), Query{StateFIPS: "GA"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid state FIPS")
}

func TestClient_DownloadErrorSurfaced(t *testing.T) {
	cause := errors.New("connection refused")
	c := NewClient(&mockFetcher{err: cause}, "", "k")
	_, _, err := c.CountyPopulation(context.Background(), Query{StateFIPS: "13"})
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
}

func TestClient_HTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bad-key", r.URL.Query().Get("key"))
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("error: unknown variable 'B01001_999E'"))
	}))
	defer srv.Close()

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{MaxRetries: 1, BackoffBase: time.Millisecond})
	c := NewClient(f, srv.URL, "bad-key")

	_, _, err := c.CountyPopulation(context.Background(), Query{StateFIPS: "13", Variable: "B01001_999E"})
	require.Error(t, err)

	var se *fetcher.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.Status)
	assert.Contains(t, se.Body, "unknown variable")
	assert.NotContains(t, err.Error(), "bad-key")
}

func TestClient_HTTPServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2022/acs/acs5", r.URL.Path)
		assert.Equal(t, "NAME,B01001_001E", r.URL.Query().Get("get"))
		assert.Equal(t, "county:*", r.URL.Query().Get("for"))
		assert.Equal(t, "state:13", r.URL.Query().Get("in"))
		_, _ = w.Write([]byte(georgiaResponse))
	}))
	defer srv.Close()

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{MaxRetries: 1, BackoffBase: time.Millisecond})
	recs, _, err := NewClient(f, srv.URL, "k").CountyPopulation(context.Background(), Query{StateFIPS: "13"})
	require.NoError(t, err)
	assert.Len(t, recs, 4)
}

func TestParse_Malformed(t *testing.T) {
	_, _, err := Parse(strings.NewReader(`{"error":"nope"}`), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "census: parse response")
}

func TestParse_MissingKeyColumns(t *testing.T) {
	_, _, err := Parse(strings.NewReader(`[["NAME","B01001_001E"],["x","1"]]`), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "County_FIPS")
}

func TestWriteCSV(t *testing.T) {
	recs, _, err := Parse(strings.NewReader(georgiaResponse), "")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, recs))
	assert.Equal(t,
		"County_Name,Total_Population,State_FIPS,County_FIPS\n"+
			"\"Appling County, Georgia\",18444,13,001\n"+
			"\"Atkinson County, Georgia\",8286,13,003\n"+
			"\"Bacon County, Georgia\",,13,005\n"+
			"\"Baker County, Georgia\",,13,007\n",
		buf.String())
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "census_population_data_state_13_2022.csv", FileName("13", "2022"))
}
