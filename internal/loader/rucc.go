package loader

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/healthaccess/internal/model"
)

const (
	colRUCCFIPS      = "FIPS"
	colRUCCAttribute = "Attribute"
	colRUCCValue     = "Value"
	colRUCCCode      = "RUCC_Code"
	colRUCCDesc      = "RUCC_Description"
)

// DefaultCodeAttribute and DescriptionAttribute are the discriminator values
// of the long-format USDA rural-urban continuum code file.
const (
	DefaultCodeAttribute = "RUCC_2023"
	DescriptionAttribute = "Description"
)

// Valid RUCC code range.
const (
	MinRUCC = 1
	MaxRUCC = 9
)

// RUCCLongSchema is the long (FIPS, Attribute, Value) layout.
var RUCCLongSchema = Schema{
	Name: "rucc",
	Columns: []Column{
		{Name: colRUCCFIPS, Kind: KindFullFIPS, Required: true},
		{Name: colRUCCAttribute, Kind: KindString, Required: true},
		{Name: colRUCCValue, Kind: KindString, Required: true},
	},
}

// RUCCWideSchema is the one-row-per-county layout; the code column name is
// filled in from RUCCOptions.CodeAttribute.
func RUCCWideSchema(codeAttribute string) Schema {
	return Schema{
		Name: "rucc",
		Columns: []Column{
			{Name: colRUCCFIPS, Kind: KindFullFIPS, Required: true},
			{Name: colRUCCCode, Aliases: []string{codeAttribute}, Kind: KindInt, Required: true},
			{Name: colRUCCDesc, Aliases: []string{DescriptionAttribute}, Kind: KindString},
		},
	}
}

// RUCCOptions configures rural-urban code loading.
type RUCCOptions struct {
	ReadOptions
	CodeAttribute string // "" = RUCC_2023
}

// LoadRuralUrban reads the rural-urban continuum code table in either long or
// wide layout and returns one row per FIPS. The long layout is pivoted: a FIPS
// must carry both a code row and a description row to be kept. Codes that do
// not parse, or fall outside 1–9, are unknown.
func LoadRuralUrban(ctx context.Context, path string, opts RUCCOptions) ([]model.RuralUrbanCode, *Stats, error) {
	attr := opts.CodeAttribute
	if attr == "" {
		attr = DefaultCodeAttribute
	}

	header, records, err := readRaw(ctx, path, "rucc", opts.ReadOptions)
	if err != nil {
		return nil, nil, err
	}

	var codes []model.RuralUrbanCode
	var stats *Stats
	if _, longErr := resolveColumns(header, RUCCLongSchema); longErr == nil {
		t, err := tableFrom(path, header, records, RUCCLongSchema)
		if err != nil {
			return nil, nil, err
		}
		codes, stats = pivotRUCC(t, attr)
	} else {
		t, err := tableFrom(path, header, records, RUCCWideSchema(attr))
		if err != nil {
			return nil, nil, err
		}
		codes, stats = wideRUCC(t)
	}

	zap.L().Info("loaded rural-urban codes",
		zap.String("path", path),
		zap.Int("records", len(records)),
		zap.Int("counties", len(codes)),
		zap.Int("unknown_codes", stats.Coercion[colRUCCCode]),
	)
	return codes, stats, nil
}

// pivotRUCC turns long-format (FIPS, Attribute, Value) rows into one wide row
// per FIPS, ordered by first appearance of the code row.
func pivotRUCC(t *Table, codeAttribute string) ([]model.RuralUrbanCode, *Stats) {
	stats := t.Stats
	var order []string
	codeRaw := make(map[string]string)
	desc := make(map[string]string)

	for _, row := range t.Rows {
		fipsCode := row.Get(colRUCCFIPS).Str
		if fipsCode == "" {
			stats.drop(DropInvalidKey)
			continue
		}
		value := row.Get(colRUCCValue).Str
		switch row.Get(colRUCCAttribute).Str {
		case codeAttribute:
			if _, dup := codeRaw[fipsCode]; dup {
				stats.Duplicate++
				continue
			}
			codeRaw[fipsCode] = value
			order = append(order, fipsCode)
		case DescriptionAttribute:
			if _, dup := desc[fipsCode]; !dup {
				desc[fipsCode] = value
			}
		}
	}

	out := make([]model.RuralUrbanCode, 0, len(order))
	for _, f := range order {
		d, ok := desc[f]
		if !ok {
			stats.drop("missing_description")
			continue
		}
		v, state := coerce(codeRaw[f], KindInt)
		if state == cellMissing {
			stats.Missing[colRUCCCode]++
		}
		out = append(out, model.RuralUrbanCode{
			FIPS:        f,
			Code:        checkCode(v.Int, state, stats),
			Description: d,
		})
	}
	stats.Kept = len(out)
	return out, stats
}

func wideRUCC(t *Table) ([]model.RuralUrbanCode, *Stats) {
	stats := t.Stats
	seen := make(map[string]bool, len(t.Rows))
	out := make([]model.RuralUrbanCode, 0, len(t.Rows))
	for _, row := range t.Rows {
		f := row.Get(colRUCCFIPS).Str
		if f == "" {
			stats.drop(DropInvalidKey)
			continue
		}
		if seen[f] {
			stats.Duplicate++
			continue
		}
		seen[f] = true
		out = append(out, model.RuralUrbanCode{
			FIPS:        f,
			Code:        checkCode(row.Get(colRUCCCode).Int, cellOK, stats),
			Description: row.Get(colRUCCDesc).Str,
		})
	}
	stats.Kept = len(out)
	return out, stats
}

func checkCode(code model.NullInt, state cellState, stats *Stats) model.NullInt {
	if state == cellInvalid {
		stats.Coercion[colRUCCCode]++
		return model.NullInt{}
	}
	if code.Valid && (code.Value < MinRUCC || code.Value > MaxRUCC) {
		stats.Coercion[colRUCCCode]++
		return model.NullInt{}
	}
	return code
}
