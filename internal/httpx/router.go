package httpx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/AngelCh415/roi-insights/internal/config"
	"github.com/AngelCh415/roi-insights/internal/ingest"
	"github.com/AngelCh415/roi-insights/internal/metrics"
	"github.com/AngelCh415/roi-insights/internal/utils"
)

// NewRouter mounts the API. ready reports whether the backing store answers.
func NewRouter(log *slog.Logger, cfg config.Config, p *ingest.Pipeline, mSvc *metrics.Service, ready func(context.Context) error) http.Handler {
	ew := errorWriter{log: log, dev: cfg.Development()}

	mux := chi.NewRouter()
	mux.Use(middleware.RealIP)
	mux.Use(utils.RequestID)
	mux.Use(utils.Logger(log))
	mux.Use(utils.Metrics)
	mux.Use(middleware.Recoverer)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "X-Import-ID"},
		MaxAge:         300,
	}))

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
	mux.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := ready(r.Context()); err != nil {
			log.Warn("readiness check failed", slog.String("err", err.Error()))
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
		w.Write([]byte("ready"))
	})
	mux.Handle("/metrics", utils.MetricsHandler())

	mux.Route("/api/v1", func(api chi.Router) {
		if cfg.HTTPTimeout > 0 {
			api.Use(middleware.Timeout(cfg.HTTPTimeout))
		}

		api.Post("/data/import", func(w http.ResponseWriter, r *http.Request) {
			data, err := readCSVUpload(w, r, cfg.MaxUploadSize)
			if err != nil {
				ew.write(w, r, err)
				return
			}
			res, err := p.Import(r.Context(), data)
			if err != nil {
				ew.write(w, r, err)
				return
			}
			w.Header().Set("X-Import-ID", res.ImportID)
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "count": res.Count})
		})

		api.Get("/rois", func(w http.ResponseWriter, r *http.Request) {
			rows, err := mSvc.Rois(r.Context(), r.URL.Query())
			if err != nil {
				ew.write(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, rows)
		})

		api.Get("/rois/chart", func(w http.ResponseWriter, r *http.Request) {
			series, err := mSvc.Chart(r.Context(), r.URL.Query())
			if err != nil {
				ew.write(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, series)
		})
	})

	return mux
}
