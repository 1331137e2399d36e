package census

import (
	"encoding/csv"
	"io"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/healthaccess/internal/model"
)

type populationRow struct {
	CountyName string `csv:"County_Name"`
	Population string `csv:"Total_Population"`
	StateFIPS  string `csv:"State_FIPS"`
	CountyFIPS string `csv:"County_FIPS"`
}

// WriteCSV writes records in the population table layout read by
// loader.LoadPopulation. Unknown populations are left empty.
func WriteCSV(w io.Writer, recs []model.PopulationRecord) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	enc.AutoHeader = false
	if err := enc.EncodeHeader(populationRow{}); err != nil {
		return eris.Wrap(err, "census: write csv header")
	}
	for _, r := range recs {
		if err := enc.Encode(populationRow{
			CountyName: r.CountyName,
			Population: r.Population.String(),
			StateFIPS:  r.StateFIPS,
			CountyFIPS: r.CountyFIPS,
		}); err != nil {
			return eris.Wrapf(err, "census: write county %s%s", r.StateFIPS, r.CountyFIPS)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "census: flush csv")
}
