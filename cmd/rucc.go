package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/healthaccess/internal/export"
	"github.com/sells-group/healthaccess/internal/loader"
)

var ruccCmd = &cobra.Command{
	Use:   "rucc",
	Short: "Rural-urban continuum code commands",
}

var (
	ruccIn  string
	ruccOut string
)

var ruccPivotCmd = &cobra.Command{
	Use:   "pivot",
	Short: "Pivot the long USDA code file to one row per FIPS",
	RunE: func(cmd *cobra.Command, args []string) error {
		in := ruccIn
		if in == "" {
			in = cfg.Inputs.RUCC
		}
		if ruccOut == "" {
			return eris.New("--out is required")
		}

		codes, stats, err := loader.LoadRuralUrban(cmd.Context(), in, loader.RUCCOptions{
			ReadOptions:   loader.ReadOptions{Encoding: cfg.Inputs.RUCCEncoding},
			CodeAttribute: cfg.Inputs.RUCCAttribute,
		})
		if err != nil {
			return err
		}
		if err := export.WriteRUCCCSVFile(ruccOut, codes); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d counties to %s (%d rows read)\n", len(codes), ruccOut, stats.Rows)
		return nil
	},
}

func init() {
	ruccPivotCmd.Flags().StringVar(&ruccIn, "in", "", "long-format code file (default inputs.rucc)")
	ruccPivotCmd.Flags().StringVar(&ruccOut, "out", "", "wide CSV to write")
	ruccCmd.AddCommand(ruccPivotCmd)
	rootCmd.AddCommand(ruccCmd)
}
