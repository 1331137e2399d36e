package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/healthaccess/internal/pipeline"
)

var (
	runState      string
	runAbbrev     string
	runFacilities string
	runPopulation string
	runRUCC       string
	runOutDir     string
	runRoster     bool
	runPersist    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the county access analysis and write the artifacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		applyRunFlags(cmd)
		if err := cfg.Validate(); err != nil {
			return err
		}

		p := pipeline.New(cfg, nil)
		if runPersist {
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck

			if err := st.Migrate(ctx); err != nil {
				return err
			}
			p = pipeline.New(cfg, st)
		}

		res, err := p.Run(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "run %s: %d counties, %d facilities\n", res.RunID, len(res.Summaries), len(res.Joined))
		fmt.Fprintf(out, "potential deserts: %d, underserved nonmetro: %d\n",
			len(res.Views.PotentialDeserts), len(res.Views.UnderservedByDensity))
		for _, path := range res.Outputs {
			fmt.Fprintf(out, "wrote %s\n", path)
		}
		return nil
	},
}

// applyRunFlags overlays explicitly set flags onto the loaded config.
func applyRunFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("state") {
		cfg.Analysis.StateFIPS = runState
	}
	if flags.Changed("abbrev") {
		cfg.Analysis.StateAbbrev = runAbbrev
	}
	if flags.Changed("facilities") {
		cfg.Inputs.Facilities = runFacilities
	}
	if flags.Changed("population") {
		cfg.Inputs.Population = runPopulation
	}
	if flags.Changed("rucc") {
		cfg.Inputs.RUCC = runRUCC
	}
	if flags.Changed("out") {
		cfg.Output.Dir = runOutDir
	}
	if flags.Changed("include-zero-facility-counties") {
		cfg.Analysis.IncludeZeroFacilityCounties = runRoster
	}
}

func init() {
	runCmd.Flags().StringVar(&runState, "state", "", "state FIPS filter (default from config)")
	runCmd.Flags().StringVar(&runAbbrev, "abbrev", "", "state abbreviation used in output names")
	runCmd.Flags().StringVar(&runFacilities, "facilities", "", "facility roster CSV or XLSX")
	runCmd.Flags().StringVar(&runPopulation, "population", "", "county population CSV")
	runCmd.Flags().StringVar(&runRUCC, "rucc", "", "rural-urban continuum code CSV")
	runCmd.Flags().StringVar(&runOutDir, "out", "", "output directory")
	runCmd.Flags().BoolVar(&runRoster, "include-zero-facility-counties", false, "add counties with no facilities from the population table")
	runCmd.Flags().BoolVar(&runPersist, "persist", false, "save the run to the configured store")
	rootCmd.AddCommand(runCmd)
}
