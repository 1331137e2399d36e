package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/healthaccess/internal/export"
	"github.com/sells-group/healthaccess/internal/model"
	"github.com/sells-group/healthaccess/internal/pipeline"
)

var (
	mapShapefile  string
	mapSummary    string
	mapFacilities string
	mapOut        string
)

var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "Render county access metrics and facilities as GeoJSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		abbrev := cfg.Analysis.StateAbbrev
		shapefile := firstNonEmpty(mapShapefile, cfg.Map.Shapefile)
		if shapefile == "" {
			return eris.New("no county shapefile (--shapefile or map.shapefile)")
		}
		summaryPath := firstNonEmpty(mapSummary, cfg.Output.Path(cfg.Output.CSV, abbrev))
		facilitiesPath := firstNonEmpty(mapFacilities, cfg.Output.Path(cfg.Output.Facilities, abbrev))
		out := firstNonEmpty(mapOut, cfg.Output.Path(cfg.Output.GeoJSON, abbrev))
		if out == "" {
			return eris.New("no output path (--out or output.geojson)")
		}

		summaries, err := export.ReadCSVFile(summaryPath)
		if err != nil {
			return err
		}
		var facilities []model.JoinedFacility
		if facilitiesPath != "" {
			facilities, err = export.ReadFacilitiesCSVFile(facilitiesPath)
			if err != nil {
				return err
			}
		}

		res := &pipeline.Result{Summaries: summaries, Joined: facilities}
		if err := pipeline.WriteMap(shapefile, cfg.Analysis.StateFIPS, out, res); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
		return nil
	},
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func init() {
	mapCmd.Flags().StringVar(&mapShapefile, "shapefile", "", "TIGER county shapefile (default map.shapefile)")
	mapCmd.Flags().StringVar(&mapSummary, "summary", "", "county summary CSV (default from config)")
	mapCmd.Flags().StringVar(&mapFacilities, "facilities", "", "joined facilities CSV (default from config)")
	mapCmd.Flags().StringVar(&mapOut, "out", "", "GeoJSON output path (default from config)")
	rootCmd.AddCommand(mapCmd)
}
