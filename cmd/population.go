package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/healthaccess/internal/census"
	"github.com/sells-group/healthaccess/internal/export"
	"github.com/sells-group/healthaccess/internal/fetcher"
)

var populationCmd = &cobra.Command{
	Use:   "population",
	Short: "County population table commands",
}

var (
	popState  string
	popYear   string
	popOut    string
	popSQLite bool
)

var populationFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch county population from the Census ACS 5-year API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		state := popState
		if state == "" {
			state = cfg.Analysis.StateFIPS
		}
		year := popYear
		if year == "" {
			year = cfg.Census.Year
		}

		f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			Timeout:    time.Duration(cfg.Census.TimeoutSecs) * time.Second,
			MaxRetries: cfg.Census.Retries,
		})
		client := census.NewClient(f, cfg.Census.BaseURL, cfg.Census.APIKey)
		recs, stats, err := client.CountyPopulation(ctx, census.Query{
			StateFIPS: state,
			Year:      year,
			Variable:  cfg.Census.Variable,
		})
		if err != nil {
			return err
		}

		path := popOut
		if path == "" {
			path = cfg.Output.Path(census.FileName(state, year), cfg.Analysis.StateAbbrev)
		}
		if err := export.WriteFile(path, func(w io.Writer) error { return census.WriteCSV(w, recs) }); err != nil {
			return err
		}
		zap.L().Info("population table written",
			zap.String("path", path),
			zap.Int("counties", len(recs)),
			zap.Int("coercion_failures", stats.Coercion["Total_Population"]),
		)
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d counties to %s\n", len(recs), path)

		if popSQLite {
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
			if err := st.Migrate(ctx); err != nil {
				return err
			}
			if err := st.ReplacePopulation(ctx, recs); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "replaced stored population table")
		}
		return nil
	},
}

func init() {
	populationFetchCmd.Flags().StringVar(&popState, "state", "", "state FIPS (default analysis.state_fips)")
	populationFetchCmd.Flags().StringVar(&popYear, "year", "", "ACS year (default census.year)")
	populationFetchCmd.Flags().StringVar(&popOut, "out", "", "output CSV path")
	populationFetchCmd.Flags().BoolVar(&popSQLite, "store", false, "also replace the population table in the configured store")
	populationCmd.AddCommand(populationFetchCmd)
	rootCmd.AddCommand(populationCmd)
}
