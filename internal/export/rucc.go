package export

import (
	"encoding/csv"
	"io"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/healthaccess/internal/model"
)

type ruccRow struct {
	FIPS        string      `csv:"FIPS"`
	Code        optionalInt `csv:"RUCC_Code"`
	Description string      `csv:"RUCC_Description"`
}

// WriteRUCCCSV writes rural-urban codes in the wide layout, one row per FIPS.
// loader.LoadRuralUrban reads the result back unchanged.
func WriteRUCCCSV(w io.Writer, codes []model.RuralUrbanCode) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	enc.AutoHeader = false
	if err := enc.EncodeHeader(ruccRow{}); err != nil {
		return eris.Wrap(err, "export: write rucc header")
	}
	for _, c := range codes {
		if err := enc.Encode(ruccRow{FIPS: c.FIPS, Code: optionalInt(c.Code), Description: c.Description}); err != nil {
			return eris.Wrapf(err, "export: write rucc %s", c.FIPS)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush rucc csv")
}

// WriteRUCCCSVFile writes the codes to path, replacing it atomically.
func WriteRUCCCSVFile(path string, codes []model.RuralUrbanCode) error {
	return writeAtomic(path, func(w io.Writer) error { return WriteRUCCCSV(w, codes) })
}

// WriteFile replaces path atomically with whatever write produces.
func WriteFile(path string, write func(io.Writer) error) error {
	return writeAtomic(path, write)
}
