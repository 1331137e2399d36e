// Package pipeline runs the county access analysis end to end: load the three
// source tables, join and aggregate, classify, and write the artifacts.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/healthaccess/internal/analysis"
	"github.com/sells-group/healthaccess/internal/config"
	"github.com/sells-group/healthaccess/internal/export"
	"github.com/sells-group/healthaccess/internal/loader"
	"github.com/sells-group/healthaccess/internal/model"
	"github.com/sells-group/healthaccess/internal/store"
)

// Inputs are the loaded source tables of one run.
type Inputs struct {
	Facilities []model.FacilityRecord
	Population []model.PopulationRecord
	Codes      []model.RuralUrbanCode
	Stats      map[string]*loader.Stats
}

// Result is the outcome of one run.
type Result struct {
	RunID     string
	Joined    []model.JoinedFacility
	Summaries []model.CountySummary
	Views     analysis.Views
	Join      analysis.JoinStats
	Enrich    analysis.EnrichStats
	Report    *export.Report
	Outputs   []string
}

// Pipeline orchestrates a run.
type Pipeline struct {
	cfg   *config.Config
	store store.Store
}

// New creates a Pipeline. st may be nil, in which case nothing is persisted.
func New(cfg *config.Config, st store.Store) *Pipeline {
	return &Pipeline{cfg: cfg, store: st}
}

// Thresholds returns the configured classification thresholds.
func Thresholds(cfg config.AnalysisConfig) analysis.Thresholds {
	return analysis.Thresholds{MetroMaxRUCC: cfg.RUCCMetroMax, DesertDensity: cfg.DesertThreshold}
}

// Run executes every stage. A missing or malformed source aborts the run
// with *loader.SourceUnavailableError before any artifact is written. The run
// id is derived from the inputs, so re-running unchanged inputs rewrites
// every artifact byte for byte.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	log := zap.L().With(zap.String("state_fips", p.cfg.Analysis.StateFIPS))
	log.Info("pipeline: starting run")
	start := time.Now()

	var in *Inputs
	err := stage(log, "load", func() error {
		var err error
		in, err = Load(ctx, p.cfg)
		return err
	})
	if err != nil {
		return nil, err
	}

	runID, err := RunID(p.cfg)
	if err != nil {
		return nil, err
	}
	log = log.With(zap.String("run_id", runID))

	analyzeStart := time.Now()
	res := Analyze(in, p.cfg.Analysis)
	log.Info("pipeline: stage complete", zap.String("stage", "analyze"),
		zap.Int64("duration_ms", time.Since(analyzeStart).Milliseconds()))
	res.RunID = runID
	res.Report = p.report(runID, in, res)

	if err := stage(log, "export", func() error { return p.writeArtifacts(res) }); err != nil {
		return nil, err
	}

	if p.store != nil {
		err := stage(log, "store", func() error {
			return p.store.SaveRun(ctx, store.Run{
				ID:             runID,
				StateFIPS:      p.cfg.Analysis.StateFIPS,
				FacilitiesPath: p.cfg.Inputs.Facilities,
				Counties:       len(res.Summaries),
				Facilities:     len(res.Joined),
				CreatedAt:      time.Now().UTC(),
			}, res.Summaries)
		})
		if err != nil {
			return nil, err
		}
	}

	log.Info("pipeline: run complete",
		zap.Int("counties", len(res.Summaries)),
		zap.Int("facilities", len(res.Joined)),
		zap.Int("potential_deserts", len(res.Views.PotentialDeserts)),
		zap.Int("underserved_nonmetro", len(res.Views.UnderservedByDensity)),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return res, nil
}

// Load reads the three source tables concurrently.
func Load(ctx context.Context, cfg *config.Config) (*Inputs, error) {
	in := &Inputs{}
	var facStats, popStats, ruccStats *loader.Stats

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		in.Facilities, facStats, err = loader.LoadFacilities(gctx, cfg.Inputs.Facilities, loader.FacilityOptions{
			ReadOptions: loader.ReadOptions{Sheet: cfg.Inputs.FacilitySheet},
			StateFIPS:   cfg.Analysis.StateFIPS,
		})
		return err
	})
	g.Go(func() error {
		var err error
		in.Population, popStats, err = loader.LoadPopulation(gctx, cfg.Inputs.Population, loader.ReadOptions{})
		return err
	})
	g.Go(func() error {
		var err error
		in.Codes, ruccStats, err = loader.LoadRuralUrban(gctx, cfg.Inputs.RUCC, loader.RUCCOptions{
			ReadOptions:   loader.ReadOptions{Encoding: cfg.Inputs.RUCCEncoding},
			CodeAttribute: cfg.Inputs.RUCCAttribute,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	in.Stats = map[string]*loader.Stats{
		loader.FacilitySchema.Name:   facStats,
		loader.PopulationSchema.Name: popStats,
		loader.RUCCLongSchema.Name:   ruccStats,
	}
	return in, nil
}

// Analyze joins, aggregates, and classifies the loaded tables. It performs
// no I/O.
func Analyze(in *Inputs, cfg config.AnalysisConfig) *Result {
	t := Thresholds(cfg)

	joined, joinStats := analysis.JoinPopulation(in.Facilities, in.Population)
	summaries := analysis.Aggregate(joined)
	if cfg.IncludeZeroFacilityCounties {
		summaries = analysis.WithRoster(summaries, in.Population)
	}
	enriched, enrichStats := analysis.Enrich(summaries, in.Codes, t)

	return &Result{
		Joined:    joined,
		Summaries: enriched,
		Views:     analysis.BuildViews(enriched, t, cfg.TopN),
		Join:      joinStats,
		Enrich:    enrichStats,
	}
}

func (p *Pipeline) report(runID string, in *Inputs, res *Result) *export.Report {
	r := &export.Report{
		RunID:     runID,
		StateFIPS: p.cfg.Analysis.StateFIPS,
		Inputs: export.ReportInputs{
			Facilities: p.cfg.Inputs.Facilities,
			Population: p.cfg.Inputs.Population,
			RUCC:       p.cfg.Inputs.RUCC,
		},
		Thresholds: export.ReportThresholds{
			MetroMaxRUCC:  p.cfg.Analysis.RUCCMetroMax,
			DesertDensity: p.cfg.Analysis.DesertThreshold,
			ZeroFacility:  p.cfg.Analysis.IncludeZeroFacilityCounties,
		},
		Counties:   len(res.Summaries),
		Facilities: len(res.Joined),
		Load:       in.Stats,
		Join:       res.Join,
		Enrich:     res.Enrich,
	}
	r.WithViews(res.Views)
	return r
}

// stage runs fn and logs its outcome and duration.
func stage(log *zap.Logger, name string, fn func() error) error {
	slog := log.With(zap.String("stage", name))
	start := time.Now()
	err := fn()
	duration := time.Since(start).Milliseconds()
	if err != nil {
		slog.Error("pipeline: stage failed", zap.Int64("duration_ms", duration), zap.Error(err))
		return eris.Wrapf(err, "pipeline: %s", name)
	}
	slog.Info("pipeline: stage complete", zap.Int64("duration_ms", duration))
	return nil
}
