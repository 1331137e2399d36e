// Package export writes the county summary artifacts: the CSV table consumed
// by the map and dashboard, an XLSX workbook, and a YAML run report.
package export

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/healthaccess/internal/model"
)

// Columns is the header of the county summary CSV, in order.
var Columns = []string{
	"State_FIPS", "County_FIPS", "County_Name", "num_facilities", "Total_Population",
	"Facilities_Per_10K_People", "Full_FIPS", "RUCC_Code", "RUCC_Description", "Urban_Rural_Category",
}

// decimal renders a float in shortest round-trip form without exponent.
type decimal float64

func (d decimal) MarshalCSV() ([]byte, error) {
	return []byte(strconv.FormatFloat(float64(d), 'f', -1, 64)), nil
}

func (d *decimal) UnmarshalCSV(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" {
		*d = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return eris.Wrapf(err, "export: parse decimal %q", s)
	}
	*d = decimal(f)
	return nil
}

// optionalInt is empty in the CSV when unknown.
type optionalInt model.NullInt

func (n optionalInt) MarshalCSV() ([]byte, error) {
	return []byte(model.NullInt(n).String()), nil
}

func (n *optionalInt) UnmarshalCSV(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" {
		*n = optionalInt{}
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return eris.Wrapf(err, "export: parse integer %q", s)
	}
	*n = optionalInt(model.IntOf(int64(f)))
	return nil
}

// Row is one CSV line of the county summary table.
type Row struct {
	StateFIPS     string      `csv:"State_FIPS"`
	CountyFIPS    string      `csv:"County_FIPS"`
	CountyName    string      `csv:"County_Name"`
	NumFacilities int         `csv:"num_facilities"`
	Population    int64       `csv:"Total_Population"`
	Density       decimal     `csv:"Facilities_Per_10K_People"`
	FullFIPS      string      `csv:"Full_FIPS"`
	RUCCCode      optionalInt `csv:"RUCC_Code"`
	RUCCDesc      string      `csv:"RUCC_Description"`
	Category      string      `csv:"Urban_Rural_Category"`
}

// RowOf converts a summary to its CSV form. An unknown population is
// written as 0.
func RowOf(c model.CountySummary) Row {
	return Row{
		StateFIPS:     c.StateFIPS,
		CountyFIPS:    c.CountyFIPS,
		CountyName:    c.CountyName,
		NumFacilities: c.NumFacilities,
		Population:    c.Population.OrZero(),
		Density:       decimal(c.Density),
		FullFIPS:      c.FullFIPS,
		RUCCCode:      optionalInt(c.RUCCCode),
		RUCCDesc:      c.RUCCDesc,
		Category:      string(c.Category),
	}
}

// Summary converts a CSV row back into a summary.
func (r Row) Summary() (model.CountySummary, error) {
	cat, err := model.ParseCategory(r.Category)
	if err != nil {
		return model.CountySummary{}, err
	}
	return model.CountySummary{
		StateFIPS:     r.StateFIPS,
		CountyFIPS:    r.CountyFIPS,
		CountyName:    r.CountyName,
		NumFacilities: r.NumFacilities,
		Population:    model.IntOf(r.Population),
		Density:       float64(r.Density),
		FullFIPS:      r.FullFIPS,
		RUCCCode:      model.NullInt(r.RUCCCode),
		RUCCDesc:      r.RUCCDesc,
		Category:      cat,
	}, nil
}

// WriteCSV writes the header and one line per summary, in slice order.
func WriteCSV(w io.Writer, rows []model.CountySummary) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	enc.AutoHeader = false
	if err := enc.EncodeHeader(Row{}); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, r := range rows {
		if err := enc.Encode(RowOf(r)); err != nil {
			return eris.Wrapf(err, "export: write county %s", r.FullFIPS)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

// WriteCSVFile writes the table to path, replacing it atomically.
func WriteCSVFile(path string, rows []model.CountySummary) error {
	return writeAtomic(path, func(w io.Writer) error { return WriteCSV(w, rows) })
}

// ReadCSV parses a county summary table written by WriteCSV.
func ReadCSV(r io.Reader) ([]model.CountySummary, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if err != nil {
		return nil, eris.Wrap(err, "export: read csv header")
	}
	var out []model.CountySummary
	for {
		var row Row
		if err := dec.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrap(err, "export: decode csv row")
		}
		s, err := row.Summary()
		if err != nil {
			return nil, eris.Wrapf(err, "export: county %s", row.FullFIPS)
		}
		out = append(out, s)
	}
	return out, nil
}

// ReadCSVFile opens and parses a county summary table.
func ReadCSVFile(path string) ([]model.CountySummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "export: open %s", path)
	}
	defer f.Close() //nolint:errcheck
	return ReadCSV(f)
}

func writeAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "export: create dir %s", dir)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return eris.Wrapf(err, "export: create temp file for %s", path)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrapf(err, "export: chmod %s", tmp.Name())
	}
	if err := write(tmp); err != nil {
		tmp.Close() //nolint:errcheck
		return err
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrapf(err, "export: close %s", tmp.Name())
	}
	return eris.Wrapf(os.Rename(tmp.Name(), path), "export: rename to %s", path)
}
