package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/healthaccess/internal/db"
	"github.com/sells-group/healthaccess/internal/export"
	"github.com/sells-group/healthaccess/internal/store"
)

// initStore opens Postgres when store.database_url is set, otherwise SQLite.
func initStore(ctx context.Context) (store.Store, error) {
	if cfg.Store.DatabaseURL != "" {
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, db.PoolConfig{MaxConns: cfg.Store.MaxConns})
	}
	if cfg.Store.SQLitePath == "" {
		return nil, eris.New("no store configured (store.database_url or store.sqlite_path)")
	}
	return store.NewSQLite(cfg.Store.SQLitePath)
}

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the persistence sink",
}

var storeMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the store schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "store schema up to date")
		return nil
	},
}

var storeLoadIn string

var storeLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load a county summary CSV into the store as a new run",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		path := storeLoadIn
		if path == "" {
			path = cfg.Output.Path(cfg.Output.CSV, cfg.Analysis.StateAbbrev)
		}
		rows, err := export.ReadCSVFile(path)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		facilities := 0
		for _, r := range rows {
			facilities += r.NumFacilities
		}
		run := store.Run{
			ID:             uuid.NewString(),
			StateFIPS:      cfg.Analysis.StateFIPS,
			FacilitiesPath: path,
			Counties:       len(rows),
			Facilities:     facilities,
			CreatedAt:      time.Now().UTC(),
		}
		if err := st.SaveRun(ctx, run, rows); err != nil {
			return err
		}
		zap.L().Info("loaded county summary into store", zap.String("run_id", run.ID), zap.Int("counties", len(rows)))
		fmt.Fprintf(cmd.OutOrStdout(), "run %s: stored %d counties\n", run.ID, len(rows))
		return nil
	},
}

func init() {
	storeLoadCmd.Flags().StringVar(&storeLoadIn, "in", "", "county summary CSV (default from config)")
	storeCmd.AddCommand(storeMigrateCmd, storeLoadCmd)
	rootCmd.AddCommand(storeCmd)
}
