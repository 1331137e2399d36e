package pipeline

import (
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/healthaccess/internal/export"
	"github.com/sells-group/healthaccess/internal/mapgen"
)

// writeArtifacts writes every configured artifact. The summary CSV is always
// written; the report goes last so it can list the others.
func (p *Pipeline) writeArtifacts(res *Result) error {
	out := p.cfg.Output
	abbrev := p.cfg.Analysis.StateAbbrev
	if out.Dir != "" {
		if err := os.MkdirAll(out.Dir, 0o755); err != nil {
			return eris.Wrapf(err, "pipeline: create output dir %s", out.Dir)
		}
	}

	csvPath := out.Path(out.CSV, abbrev)
	if csvPath == "" {
		return eris.New("pipeline: output.csv is required")
	}
	if err := export.WriteCSVFile(csvPath, res.Summaries); err != nil {
		return err
	}
	res.Outputs = append(res.Outputs, csvPath)

	if path := out.Path(out.Facilities, abbrev); path != "" {
		if err := export.WriteFacilitiesCSVFile(path, res.Joined); err != nil {
			return err
		}
		res.Outputs = append(res.Outputs, path)
	}

	if path := out.Path(out.XLSX, abbrev); path != "" {
		if err := export.WriteXLSXFile(path, res.Summaries, res.Views); err != nil {
			return err
		}
		res.Outputs = append(res.Outputs, path)
	}

	if path := out.Path(out.GeoJSON, abbrev); path != "" && p.cfg.Map.Shapefile != "" {
		if err := WriteMap(p.cfg.Map.Shapefile, p.cfg.Analysis.StateFIPS, path, res); err != nil {
			return err
		}
		res.Outputs = append(res.Outputs, path)
	}

	if path := out.Path(out.Report, abbrev); path != "" {
		res.Report.Outputs = append([]string(nil), res.Outputs...)
		if err := export.WriteReportFile(path, res.Report); err != nil {
			return err
		}
		res.Outputs = append(res.Outputs, path)
	}

	zap.L().Info("pipeline: artifacts written", zap.Strings("outputs", res.Outputs))
	return nil
}

// WriteMap renders the county map for res from the shapefile at shpPath.
func WriteMap(shpPath, stateFIPS, outPath string, res *Result) error {
	counties, err := mapgen.ReadCounties(shpPath, stateFIPS)
	if err != nil {
		return err
	}
	fc, stats := mapgen.Build(counties, res.Summaries, res.Joined)
	zap.L().Info("pipeline: map built",
		zap.Int("counties", stats.Counties),
		zap.Int("counties_no_summary", stats.CountiesNoSummary),
		zap.Int("facilities", stats.Facilities),
	)
	return mapgen.WriteFile(outPath, fc)
}
