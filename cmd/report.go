package main

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/healthaccess/internal/analysis"
	"github.com/sells-group/healthaccess/internal/export"
	"github.com/sells-group/healthaccess/internal/model"
	"github.com/sells-group/healthaccess/internal/pipeline"
)

var (
	reportIn    string
	reportView  string
	reportBy    string
	reportOrder string
	reportN     int
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print a view of a county summary CSV as YAML",
	Long: "Views: categories, top, deserts, underserved (by density), underserved-population, " +
		"zero-facility. --by, --order and -n apply to top; -n also limits the county lists.",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := reportIn
		if path == "" {
			path = cfg.Output.Path(cfg.Output.CSV, cfg.Analysis.StateAbbrev)
		}
		rows, err := export.ReadCSVFile(path)
		if err != nil {
			return err
		}
		return writeView(cmd.OutOrStdout(), rows, pipeline.Thresholds(cfg.Analysis))
	},
}

func writeView(w io.Writer, rows []model.CountySummary, t analysis.Thresholds) error {
	var out any
	switch reportView {
	case "categories":
		out = analysis.CategoryStats(rows)
	case "top":
		key, err := analysis.ParseSortKey(reportBy)
		if err != nil {
			return err
		}
		order, err := analysis.ParseOrder(reportOrder)
		if err != nil {
			return err
		}
		out = export.ReportCounties(analysis.TopN(rows, key, reportN, order))
	case "deserts":
		out = export.ReportCounties(limitRows(analysis.PotentialDeserts(rows, t)))
	case "underserved":
		out = export.ReportCounties(limitRows(analysis.UnderservedNonmetro(rows, t, analysis.ByDensity)))
	case "underserved-population":
		out = export.ReportCounties(limitRows(analysis.UnderservedNonmetro(rows, t, analysis.ByPopulation)))
	case "zero-facility":
		out = export.ReportCounties(limitRows(analysis.ZeroFacilityNonmetro(rows)))
	default:
		return eris.Errorf("unknown view %q", reportView)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return eris.Wrap(err, "encode view")
	}
	return enc.Close()
}

func limitRows(rows []model.CountySummary) []model.CountySummary {
	if reportN > 0 && reportN < len(rows) {
		return rows[:reportN]
	}
	return rows
}

func init() {
	reportCmd.Flags().StringVar(&reportIn, "in", "", "county summary CSV (default from config)")
	reportCmd.Flags().StringVar(&reportView, "view", "categories", "view to print")
	reportCmd.Flags().StringVar(&reportBy, "by", "population", "sort key for the top view")
	reportCmd.Flags().StringVar(&reportOrder, "order", "desc", "sort order for the top view")
	reportCmd.Flags().IntVarP(&reportN, "n", "n", 10, "row limit; 0 for all")
	rootCmd.AddCommand(reportCmd)
}
