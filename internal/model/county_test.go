package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullInt(t *testing.T) {
	var unknown NullInt
	assert.Equal(t, int64(0), unknown.OrZero())
	assert.Equal(t, "", unknown.String())

	known := IntOf(100000)
	assert.Equal(t, int64(100000), known.OrZero())
	assert.Equal(t, "100000", known.String())
}

func TestNullInt_JSON(t *testing.T) {
	data, err := json.Marshal(struct {
		A NullInt `json:"a"`
		B NullInt `json:"b"`
	}{A: IntOf(7)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":7,"b":null}`, string(data))

	var n NullInt
	require.NoError(t, json.Unmarshal([]byte("null"), &n))
	assert.False(t, n.Valid)
	require.NoError(t, json.Unmarshal([]byte("42"), &n))
	assert.Equal(t, IntOf(42), n)
}

func TestNullFloat_String(t *testing.T) {
	assert.Equal(t, "", NullFloat{}.String())
	assert.Equal(t, "0.3", FloatOf(0.3).String())
	assert.Equal(t, "-83.6487", FloatOf(-83.6487).String())
}

func TestCountyKey_FullFIPS(t *testing.T) {
	k := CountyKey{StateFIPS: "01", CountyFIPS: "001"}
	assert.Equal(t, "01001", k.FullFIPS())

	c := CountySummary{StateFIPS: "13", CountyFIPS: "089"}
	assert.Equal(t, CountyKey{StateFIPS: "13", CountyFIPS: "089"}, c.Key())
}

func TestParseCategory(t *testing.T) {
	for _, c := range Categories {
		got, err := ParseCategory(string(c))
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}

	_, err := ParseCategory("Suburban")
	assert.Error(t, err)
}
