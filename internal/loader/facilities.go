package loader

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/healthaccess/internal/fips"
	"github.com/sells-group/healthaccess/internal/model"
)

// Facility roster column names, as published in the HRSA health center site export.
const (
	colSiteName   = "Site Name"
	colSiteAddr   = "Site Address"
	colSiteCity   = "Site City"
	colSiteState  = "Site State Abbreviation"
	colSiteZIP    = "Site Postal Code"
	colSiteX      = "Geocoding Artifact Address Primary X Coordinate"
	colSiteY      = "Geocoding Artifact Address Primary Y Coordinate"
	colStateFIPS  = "State FIPS Code"
	colCountyFull = "State and County Federal Information Processing Standard Code"
)

// Drop reasons recorded in Stats.Dropped.
const (
	DropMissingCoordinates = "missing_coordinates"
	DropOtherState         = "other_state"
)

// FacilitySchema is the facility roster schema. Aliases accept the renamed
// columns of an already-processed facility file.
var FacilitySchema = Schema{
	Name: "facilities",
	Columns: []Column{
		{Name: colSiteName, Aliases: []string{"Facility_Name"}, Kind: KindString, Required: true},
		{Name: colSiteAddr, Aliases: []string{"Address"}, Kind: KindString},
		{Name: colSiteCity, Aliases: []string{"City"}, Kind: KindString},
		{Name: colSiteState, Aliases: []string{"State_Abbrev"}, Kind: KindString},
		{Name: colSiteZIP, Aliases: []string{"ZIP_Code"}, Kind: KindString},
		{Name: colSiteX, Aliases: []string{"Longitude"}, Kind: KindFloat, Required: true},
		{Name: colSiteY, Aliases: []string{"Latitude"}, Kind: KindFloat, Required: true},
		{Name: colStateFIPS, Aliases: []string{"State_FIPS"}, Kind: KindStateFIPS, Required: true},
		{Name: colCountyFull, Aliases: []string{"County_FIPS_Full", "Full_FIPS"}, Kind: KindFullFIPS, Required: true},
	},
}

// FacilityOptions filters the roster.
type FacilityOptions struct {
	ReadOptions
	StateFIPS string // keep only this state; "" keeps all
}

// LoadFacilities reads the facility roster. Rows outside the requested state,
// rows without a valid state or county code and rows lacking a numeric
// latitude or longitude are dropped; County_FIPS is the trailing 3 digits of
// the combined state+county code.
func LoadFacilities(ctx context.Context, path string, opts FacilityOptions) ([]model.FacilityRecord, *Stats, error) {
	state := fips.NormalizeState(opts.StateFIPS)
	if opts.StateFIPS != "" && state == "" {
		return nil, nil, eris.Errorf("loader: invalid state FIPS filter %q", opts.StateFIPS)
	}

	t, err := ReadTable(ctx, path, FacilitySchema, opts.ReadOptions)
	if err != nil {
		return nil, nil, err
	}

	out := make([]model.FacilityRecord, 0, len(t.Rows))
	for _, row := range t.Rows {
		stateFIPS := row.Get(colStateFIPS).Str
		if state != "" && stateFIPS != state {
			t.Stats.drop(DropOtherState)
			continue
		}

		countyFIPS := fips.CountyFromFull(row.Get(colCountyFull).Str)
		if stateFIPS == "" || countyFIPS == "" {
			t.Stats.drop(DropInvalidKey)
			continue
		}

		lon := row.Get(colSiteX).Float
		lat := row.Get(colSiteY).Float
		if !lat.Valid || !lon.Valid {
			t.Stats.drop(DropMissingCoordinates)
			continue
		}

		out = append(out, model.FacilityRecord{
			Name:       row.Get(colSiteName).Str,
			Address:    row.Get(colSiteAddr).Str,
			City:       row.Get(colSiteCity).Str,
			StateAbbr:  row.Get(colSiteState).Str,
			ZIP:        row.Get(colSiteZIP).Str,
			Latitude:   lat.Value,
			Longitude:  lon.Value,
			StateFIPS:  stateFIPS,
			CountyFIPS: countyFIPS,
		})
	}
	t.Stats.Kept = len(out)

	zap.L().Info("loaded facilities",
		zap.String("path", path),
		zap.Int("rows", t.Stats.Rows),
		zap.Int("kept", t.Stats.Kept),
		zap.Int("dropped_no_coordinates", t.Stats.Dropped[DropMissingCoordinates]),
		zap.Int("dropped_other_state", t.Stats.Dropped[DropOtherState]),
		zap.Int("dropped_invalid_key", t.Stats.Dropped[DropInvalidKey]),
	)
	return out, t.Stats, nil
}
