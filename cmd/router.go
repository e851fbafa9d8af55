package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/angeloszaimis/inverse-config/internal/handler"
	"github.com/angeloszaimis/inverse-config/internal/metrics"
	"github.com/angeloszaimis/inverse-config/pkg/logger"
)

// setupRouter mounts the config endpoint under contextRoot. When webRoot is
// set, the web client's files are served from it under the same prefix.
func setupRouter(log *slog.Logger, configHandler *handler.ConfigHandler, collector *metrics.Collector, contextRoot, webRoot string) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logger.Middleware(log))
	r.Use(middleware.Recoverer)
	r.Use(collector.Middleware)

	prefix := "/" + contextRoot

	r.Method(http.MethodGet, prefix+"/config", configHandler)
	r.Get("/healthz", healthzHandler)
	r.Handle("/metrics", collector.PrometheusHandler())
	r.Get("/metrics/snapshot", collector.Handler())

	if webRoot != "" {
		files := http.StripPrefix(prefix+"/", http.FileServer(http.Dir(webRoot)))
		r.Get(prefix+"/*", files.ServeHTTP)
		r.Head(prefix+"/*", files.ServeHTTP)
		r.Get(prefix, func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, prefix+"/", http.StatusMovedPermanently)
		})
	}

	return r
}

func healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(true)
}
