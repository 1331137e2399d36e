package export

import (
	"archive/zip"
	"io"
	"maps"
	"slices"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/healthaccess/internal/analysis"
	"github.com/sells-group/healthaccess/internal/model"
)

// Workbook sheet names.
const (
	SheetCounties   = "counties"
	SheetCategories = "by_category"
	SheetDeserts    = "potential_deserts"
)

var categoryColumns = []string{"Urban_Rural_Category", "counties", "mean_density", "num_facilities", "Total_Population"}

// WriteXLSX writes a workbook with the county table, the category view, and
// the potential-desert view.
func WriteXLSX(w io.Writer, rows []model.CountySummary, views analysis.Views) error {
	f := xlsx.NewFile()

	if err := addCountySheet(f, SheetCounties, rows); err != nil {
		return err
	}

	sheet, err := f.AddSheet(SheetCategories)
	if err != nil {
		return eris.Wrapf(err, "export: add sheet %s", SheetCategories)
	}
	addHeader(sheet, categoryColumns)
	for _, c := range views.Categories {
		r := sheet.AddRow()
		r.AddCell().SetString(string(c.Category))
		r.AddCell().SetInt(c.Counties)
		r.AddCell().SetFloat(c.MeanDensity)
		r.AddCell().SetInt(c.Facilities)
		r.AddCell().SetInt64(c.Population)
	}

	if err := addCountySheet(f, SheetDeserts, views.PotentialDeserts); err != nil {
		return err
	}

	return writeParts(w, f)
}

// writeParts zips the workbook parts in name order. xlsx.File.Write ranges
// over a map, which would make the archive differ between identical runs.
func writeParts(w io.Writer, f *xlsx.File) error {
	parts, err := f.MarshallParts()
	if err != nil {
		return eris.Wrap(err, "export: marshal xlsx")
	}
	zw := zip.NewWriter(w)
	for _, name := range slices.Sorted(maps.Keys(parts)) {
		pw, err := zw.Create(name)
		if err != nil {
			return eris.Wrapf(err, "export: xlsx part %s", name)
		}
		if _, err := io.WriteString(pw, parts[name]); err != nil {
			return eris.Wrapf(err, "export: xlsx part %s", name)
		}
	}
	return eris.Wrap(zw.Close(), "export: write xlsx")
}

// WriteXLSXFile writes the workbook to path, replacing it atomically.
func WriteXLSXFile(path string, rows []model.CountySummary, views analysis.Views) error {
	return writeAtomic(path, func(w io.Writer) error { return WriteXLSX(w, rows, views) })
}

func addCountySheet(f *xlsx.File, name string, rows []model.CountySummary) error {
	sheet, err := f.AddSheet(name)
	if err != nil {
		return eris.Wrapf(err, "export: add sheet %s", name)
	}
	addHeader(sheet, Columns)
	for _, c := range rows {
		r := sheet.AddRow()
		r.AddCell().SetString(c.StateFIPS)
		r.AddCell().SetString(c.CountyFIPS)
		r.AddCell().SetString(c.CountyName)
		r.AddCell().SetInt(c.NumFacilities)
		r.AddCell().SetInt64(c.Population.OrZero())
		r.AddCell().SetFloat(c.Density)
		r.AddCell().SetString(c.FullFIPS)
		if c.RUCCCode.Valid {
			r.AddCell().SetInt64(c.RUCCCode.Value)
		} else {
			r.AddCell().SetString("")
		}
		r.AddCell().SetString(c.RUCCDesc)
		r.AddCell().SetString(string(c.Category))
	}
	return nil
}

func addHeader(sheet *xlsx.Sheet, cols []string) {
	r := sheet.AddRow()
	for _, c := range cols {
		r.AddCell().SetString(c)
	}
}
