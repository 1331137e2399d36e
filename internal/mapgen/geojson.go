package mapgen

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/healthaccess/internal/model"
)

// Feature kinds, stored in the "kind" property.
const (
	KindCounty   = "county"
	KindFacility = "facility"
)

// Stats counts what went into a map.
type Stats struct {
	Counties          int
	CountiesNoSummary int
	Facilities        int
}

// Build left-joins summaries onto counties by GEOID == Full_FIPS and returns
// a FeatureCollection of county polygons followed by facility points.
// Counties without a summary get zero metrics and the Unknown category.
func Build(counties []County, summaries []model.CountySummary, facilities []model.JoinedFacility) (*geojson.FeatureCollection, Stats) {
	byFIPS := make(map[string]model.CountySummary, len(summaries))
	for _, s := range summaries {
		byFIPS[s.FullFIPS] = s
	}

	var stats Stats
	fc := &geojson.FeatureCollection{}
	for _, c := range counties {
		props := map[string]any{
			"kind":                      KindCounty,
			"GEOID":                     c.GEOID,
			"NAME":                      c.Name,
			"Total_Population":          int64(0),
			"num_facilities":            0,
			"Facilities_Per_10K_People": 0.0,
			"Urban_Rural_Category":      string(model.Unknown),
		}
		if s, ok := byFIPS[c.GEOID]; ok {
			props["Total_Population"] = s.Population.OrZero()
			props["num_facilities"] = s.NumFacilities
			props["Facilities_Per_10K_People"] = s.Density
			props["Urban_Rural_Category"] = string(s.Category)
		} else {
			stats.CountiesNoSummary++
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         c.GEOID,
			Geometry:   c.Geometry,
			Properties: props,
		})
		stats.Counties++
	}

	for _, f := range facilities {
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry: geom.NewPointFlat(geom.XY, []float64{f.Longitude, f.Latitude}),
			Properties: map[string]any{
				"kind":          KindFacility,
				"Facility_Name": f.Name,
				"Address":       f.Address,
				"City":          f.City,
				"State_Abbrev":  f.StateAbbr,
				"ZIP_Code":      f.ZIP,
				"County_Name":   f.CountyName,
				"Full_FIPS":     f.StateFIPS + f.CountyFIPS,
			},
		})
		stats.Facilities++
	}
	return fc, stats
}

// Write encodes the collection as GeoJSON.
func Write(w io.Writer, fc *geojson.FeatureCollection) error {
	data, err := json.Marshal(fc)
	if err != nil {
		return eris.Wrap(err, "mapgen: encode geojson")
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return eris.Wrap(err, "mapgen: write geojson")
	}
	return nil
}

// WriteFile writes the collection to path.
func WriteFile(path string, fc *geojson.FeatureCollection) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "mapgen: create dir for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "mapgen: create %s", path)
	}
	if err := Write(f, fc); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	return eris.Wrapf(f.Close(), "mapgen: close %s", path)
}
