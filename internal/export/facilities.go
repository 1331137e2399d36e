package export

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/healthaccess/internal/model"
)

// FacilityRow is one line of the joined facility table.
type FacilityRow struct {
	Name       string      `csv:"Facility_Name"`
	Address    string      `csv:"Address"`
	City       string      `csv:"City"`
	StateAbbr  string      `csv:"State_Abbrev"`
	ZIP        string      `csv:"ZIP_Code"`
	Longitude  decimal     `csv:"Longitude"`
	Latitude   decimal     `csv:"Latitude"`
	StateFIPS  string      `csv:"State_FIPS"`
	CountyFIPS string      `csv:"County_FIPS"`
	CountyName string      `csv:"County_Name"`
	Population optionalInt `csv:"Total_Population"`
}

// WriteFacilitiesCSV writes the facility-population join, one line per
// facility. Unmatched facilities have an empty county name and population.
func WriteFacilitiesCSV(w io.Writer, rows []model.JoinedFacility) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	enc.AutoHeader = false
	if err := enc.EncodeHeader(FacilityRow{}); err != nil {
		return eris.Wrap(err, "export: write facilities header")
	}
	for _, f := range rows {
		if err := enc.Encode(FacilityRow{
			Name:       f.Name,
			Address:    f.Address,
			City:       f.City,
			StateAbbr:  f.StateAbbr,
			ZIP:        f.ZIP,
			Longitude:  decimal(f.Longitude),
			Latitude:   decimal(f.Latitude),
			StateFIPS:  f.StateFIPS,
			CountyFIPS: f.CountyFIPS,
			CountyName: f.CountyName,
			Population: optionalInt(f.Population),
		}); err != nil {
			return eris.Wrapf(err, "export: write facility %q", f.Name)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush facilities csv")
}

// WriteFacilitiesCSVFile writes the joined facility table to path atomically.
func WriteFacilitiesCSVFile(path string, rows []model.JoinedFacility) error {
	return writeAtomic(path, func(w io.Writer) error { return WriteFacilitiesCSV(w, rows) })
}

// ReadFacilitiesCSV parses a table written by WriteFacilitiesCSV.
func ReadFacilitiesCSV(r io.Reader) ([]model.JoinedFacility, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if err != nil {
		return nil, eris.Wrap(err, "export: read facilities header")
	}
	var out []model.JoinedFacility
	for {
		var row FacilityRow
		if err := dec.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrap(err, "export: decode facility row")
		}
		out = append(out, model.JoinedFacility{
			FacilityRecord: model.FacilityRecord{
				Name:       row.Name,
				Address:    row.Address,
				City:       row.City,
				StateAbbr:  row.StateAbbr,
				ZIP:        row.ZIP,
				Latitude:   float64(row.Latitude),
				Longitude:  float64(row.Longitude),
				StateFIPS:  row.StateFIPS,
				CountyFIPS: row.CountyFIPS,
			},
			CountyName: row.CountyName,
			Population: model.NullInt(row.Population),
			Matched:    row.CountyName != "",
		})
	}
	return out, nil
}

// ReadFacilitiesCSVFile opens and parses a joined facility table.
func ReadFacilitiesCSVFile(path string) ([]model.JoinedFacility, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "export: open %s", path)
	}
	defer f.Close() //nolint:errcheck
	return ReadFacilitiesCSV(f)
}
