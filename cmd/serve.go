package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/healthaccess/internal/dashboard"
	"github.com/sells-group/healthaccess/internal/pipeline"
)

var (
	servePort    int
	serveSummary string
	serveReport  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only dashboard API over a county summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		abbrev := cfg.Analysis.StateAbbrev
		summary := firstNonEmpty(serveSummary, cfg.Output.Path(cfg.Output.CSV, abbrev))
		report := serveReport
		if !cmd.Flags().Changed("report") {
			// The configured report is optional; serve without it if the run never wrote one.
			if p := cfg.Output.Path(cfg.Output.Report, abbrev); p != "" {
				if _, err := os.Stat(p); err == nil {
					report = p
				}
			}
		}

		srvData, err := dashboard.Load(summary, report, pipeline.Thresholds(cfg.Analysis))
		if err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           srvData.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port), zap.String("summary", summary))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().StringVar(&serveSummary, "summary", "", "county summary CSV (default from config)")
	serveCmd.Flags().StringVar(&serveReport, "report", "", "run report YAML; empty disables /api/report")
	rootCmd.AddCommand(serveCmd)
}
