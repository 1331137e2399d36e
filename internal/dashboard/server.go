// Package dashboard serves a read-only JSON API over a county summary
// artifact. Every figure it returns is computed by package analysis.
package dashboard

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/healthaccess/internal/analysis"
	"github.com/sells-group/healthaccess/internal/export"
	"github.com/sells-group/healthaccess/internal/model"
)

// DefaultLimit caps list endpoints when n is not given.
const DefaultLimit = 10

// Server holds one loaded summary table.
type Server struct {
	rows       []model.CountySummary
	thresholds analysis.Thresholds
	report     *export.Report
}

// New returns a Server over rows. report may be nil.
func New(rows []model.CountySummary, t analysis.Thresholds, report *export.Report) *Server {
	return &Server{rows: rows, thresholds: t, report: report}
}

// Load reads the summary CSV at path and, when reportPath is set, the run
// report next to it.
func Load(path, reportPath string, t analysis.Thresholds) (*Server, error) {
	rows, err := export.ReadCSVFile(path)
	if err != nil {
		return nil, err
	}
	var report *export.Report
	if reportPath != "" {
		report, err = export.ReadReportFile(reportPath)
		if err != nil {
			return nil, err
		}
	}
	zap.L().Info("dashboard: loaded summary",
		zap.String("path", path),
		zap.Int("counties", len(rows)),
	)
	return New(rows, t, report), nil
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/counties", s.counties)
		r.Get("/metrics", s.metrics)
		r.Get("/categories", s.categories)
		r.Get("/top", s.top)
		r.Get("/underserved", s.underserved)
		r.Get("/report", s.runReport)
	})
	return r
}

// selection reads the category and county filters. An unknown category is
// an error rather than an empty result.
func selection(r *http.Request) (analysis.Selection, error) {
	q := r.URL.Query()
	sel := analysis.Selection{Category: q.Get("category"), County: q.Get("county")}
	if sel.Category != "" && sel.Category != analysis.All {
		if _, err := model.ParseCategory(sel.Category); err != nil {
			return sel, err
		}
	}
	return sel, nil
}

func (s *Server) counties(w http.ResponseWriter, r *http.Request) {
	sel, err := selection(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, analysis.Select(s.rows, sel))
}

func (s *Server) metrics(w http.ResponseWriter, r *http.Request) {
	sel, err := selection(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, analysis.Summarize(analysis.Select(s.rows, sel)))
}

func (s *Server) categories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, analysis.CategoryStats(s.rows))
}

func (s *Server) top(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	by := q.Get("by")
	if by == "" {
		by = string(analysis.KeyPopulation)
	}
	key, err := analysis.ParseSortKey(by)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	order, err := analysis.ParseOrder(q.Get("order"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	n, err := limit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, analysis.TopN(s.rows, key, n, order))
}

func (s *Server) underserved(w http.ResponseWriter, r *http.Request) {
	n, err := limit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows := analysis.UnderservedNonmetro(s.rows, s.thresholds, analysis.ByDensity)
	if n < len(rows) {
		rows = rows[:n]
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) runReport(w http.ResponseWriter, _ *http.Request) {
	if s.report == nil {
		writeError(w, http.StatusNotFound, "no run report loaded")
		return
	}
	writeJSON(w, http.StatusOK, s.report)
}

func limit(r *http.Request) (int, error) {
	v := r.URL.Query().Get("n")
	if v == "" {
		return DefaultLimit, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, eris.Errorf("n must be a positive integer, got %q", v)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("dashboard: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
