// Package loader reads the facility roster, population table, and rural-urban
// code table into typed records, coercing values against a declared schema.
package loader

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/sells-group/healthaccess/internal/fetcher"
	"github.com/sells-group/healthaccess/internal/fips"
	"github.com/sells-group/healthaccess/internal/model"
)

// Kind is the semantic type a column is coerced to.
type Kind int

// Column kinds.
const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindStateFIPS  // 2-char zero-padded
	KindCountyFIPS // 3-char zero-padded
	KindFullFIPS   // 5-char zero-padded
)

// Column declares one expected input column. The first of Name and Aliases
// present in the header (case-insensitive) is used.
type Column struct {
	Name     string
	Aliases  []string
	Kind     Kind
	Required bool
}

// Schema declares the columns a source must provide.
type Schema struct {
	Name    string
	Columns []Column
}

// Value is one coerced cell.
type Value struct {
	Raw   string
	Str   string // trimmed text, or the normalized FIPS code
	Int   model.NullInt
	Float model.NullFloat
}

// Row is one coerced input row.
type Row struct {
	Line   int
	values map[string]Value
}

// Get returns the coerced value for a column by its schema Name.
func (r Row) Get(name string) Value {
	return r.values[name]
}

// Stats counts the non-fatal conditions met while loading a source.
type Stats struct {
	Rows      int            `yaml:"rows" json:"rows"`
	Kept      int            `yaml:"kept" json:"kept"`
	Missing   map[string]int `yaml:"missing,omitempty" json:"missing,omitempty"`
	Coercion  map[string]int `yaml:"coercion_failures,omitempty" json:"coercion_failures,omitempty"`
	Dropped   map[string]int `yaml:"dropped,omitempty" json:"dropped,omitempty"`
	Duplicate int            `yaml:"duplicates,omitempty" json:"duplicates,omitempty"`
}

func newStats() *Stats {
	return &Stats{
		Missing:  make(map[string]int),
		Coercion: make(map[string]int),
		Dropped:  make(map[string]int),
	}
}

func (s *Stats) drop(reason string) { s.Dropped[reason]++ }

// Table is the result of reading a source against a Schema.
type Table struct {
	Schema Schema
	Rows   []Row
	Stats  *Stats
}

// ReadOptions controls how a source file is decoded.
type ReadOptions struct {
	Encoding string // CSV only; "" = utf-8
	Sheet    string // XLSX only; "" = first sheet
}

// ReadTable reads a CSV or XLSX file and coerces each row against schema.
// A missing or unreadable file, or a missing required column, yields
// *SourceUnavailableError. Cells that fail coercion become unknown and are
// counted in Stats; the row is kept.
func ReadTable(ctx context.Context, path string, schema Schema, opts ReadOptions) (*Table, error) {
	header, records, err := readRaw(ctx, path, schema.Name, opts)
	if err != nil {
		return nil, err
	}
	return tableFrom(path, header, records, schema)
}

func tableFrom(path string, header []string, records []fetcher.Record, schema Schema) (*Table, error) {
	idx, err := resolveColumns(header, schema)
	if err != nil {
		return nil, unavailable(schema.Name, path, "malformed header", err)
	}

	t := &Table{Schema: schema, Stats: newStats()}
	for _, rec := range records {
		row := Row{Line: rec.Line, values: make(map[string]Value, len(schema.Columns))}
		for _, col := range schema.Columns {
			i, ok := idx[col.Name]
			if !ok {
				row.values[col.Name] = Value{}
				continue
			}
			raw := ""
			if i < len(rec.Fields) {
				raw = rec.Fields[i]
			}
			v, state := coerce(raw, col.Kind)
			switch state {
			case cellMissing:
				t.Stats.Missing[col.Name]++
			case cellInvalid:
				t.Stats.Coercion[col.Name]++
			}
			row.values[col.Name] = v
		}
		t.Rows = append(t.Rows, row)
	}
	t.Stats.Rows = len(t.Rows)
	return t, nil
}

func readRaw(ctx context.Context, path, source string, opts ReadOptions) ([]string, []fetcher.Record, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, unavailable(source, path, "stat", err)
	}
	if info.IsDir() {
		return nil, nil, unavailable(source, path, "path is a directory", nil)
	}

	var header []string
	var records []fetcher.Record
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		header, records, err = fetcher.ReadXLSX(path, fetcher.XLSXOptions{SheetName: opts.Sheet})
	default:
		f, openErr := os.Open(path)
		if openErr != nil {
			return nil, nil, unavailable(source, path, "open", openErr)
		}
		defer f.Close() //nolint:errcheck
		header, records, err = fetcher.ReadCSV(ctx, f, fetcher.CSVOptions{
			Encoding:   opts.Encoding,
			LazyQuotes: true,
		})
	}
	if err != nil {
		return nil, nil, unavailable(source, path, "read", err)
	}
	if header == nil {
		return nil, nil, unavailable(source, path, "empty file", nil)
	}
	return header, records, nil
}

func normalizeHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// resolveColumns maps each schema column name to its index in header.
func resolveColumns(header []string, schema Schema) (map[string]int, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if _, dup := pos[key]; !dup {
			pos[key] = i
		}
	}

	idx := make(map[string]int, len(schema.Columns))
	var missing []string
	for _, col := range schema.Columns {
		found := false
		for _, name := range append([]string{col.Name}, col.Aliases...) {
			if i, ok := pos[normalizeHeader(name)]; ok {
				idx[col.Name] = i
				found = true
				break
			}
		}
		if !found && col.Required {
			missing = append(missing, col.Name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &missingColumnsError{columns: missing}
	}
	return idx, nil
}

type missingColumnsError struct{ columns []string }

func (e *missingColumnsError) Error() string {
	return "missing required columns: " + strings.Join(e.columns, ", ")
}

type cellState int

const (
	cellOK cellState = iota
	cellMissing
	cellInvalid
)

func coerce(raw string, kind Kind) (Value, cellState) {
	s := strings.TrimSpace(raw)
	v := Value{Raw: raw}
	if s == "" {
		return v, cellMissing
	}

	switch kind {
	case KindInt:
		n, ok := parseInt(s)
		if !ok {
			return v, cellInvalid
		}
		v.Int = model.IntOf(n)
		v.Str = s
	case KindFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return v, cellInvalid
		}
		v.Float = model.FloatOf(f)
		v.Str = s
	case KindStateFIPS:
		v.Str = fips.NormalizeState(s)
	case KindCountyFIPS:
		v.Str = fips.NormalizeCounty(s)
	case KindFullFIPS:
		v.Str = fips.NormalizeFull(s)
	default:
		v.Str = s
		return v, cellOK
	}

	if v.Str == "" {
		return v, cellInvalid
	}
	return v, cellOK
}

// parseInt accepts plain integers and integral floats ("18444.0").
func parseInt(s string) (int64, bool) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}
