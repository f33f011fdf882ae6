package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterDependencies collects handler dependencies.
type RouterDependencies struct {
	Health           HealthService
	API              *APIHandlers
	Stream           http.Handler
	Metrics          http.Handler
	MetricsMW        func(http.Handler) http.Handler
	AllowedOrigins   []string
	AllowCredentials bool
}

// NewRouter wires the HTTP routes exposed by the service.
func NewRouter(logger *slog.Logger, deps RouterDependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(loggingMiddleware(logger))
	r.Use(middleware.Recoverer)
	if len(deps.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   deps.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: deps.AllowCredentials,
			MaxAge:           300,
		}))
	}
	if deps.MetricsMW != nil {
		r.Use(deps.MetricsMW)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		payload := map[string]any{
			"status": "ok",
		}

		if deps.Health != nil {
			if err := deps.Health.Probe(ctx); err != nil {
				logger.Error("health probe failed", "error", err)
				status = http.StatusServiceUnavailable
				payload["status"] = "degraded"
				payload["error"] = err.Error()
			}
		}

		respondJSON(w, status, payload)
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	if api := deps.API; api != nil {
		r.Route("/api", func(r chi.Router) {
			r.Route("/view", func(r chi.Router) {
				r.Get("/", api.getView)
				r.Post("/refresh", api.refresh)
				r.Get("/export", api.exportView)
				if deps.Stream != nil {
					r.Method(http.MethodGet, "/stream", deps.Stream)
				}

				r.Delete("/filters", api.resetFilters)
				r.Put("/filters/{column}", api.setFilter)
				r.Delete("/filters/{column}", api.clearFilter)

				r.Put("/sort", api.setSort)

				r.Post("/selection/all", api.selectAll)
				r.Post("/selection/{id}/toggle", api.toggleSelection)
				r.Delete("/selection", api.clearSelection)

				r.Put("/columns/{column}", api.setColumnVisible)
				r.Put("/page", api.setPage)
				r.Put("/values-hidden", api.setValuesHidden)
			})

			r.Route("/people/{id}", func(r chi.Router) {
				r.Get("/", api.getPerson)
				r.Get("/transactions", api.getTransactions)
				r.Get("/locations", api.getLocations)
				r.Post("/details", api.openDetail)
			})

			r.Get("/details/{viewID}", api.getDetail)
			r.Delete("/details/{viewID}", api.closeDetail)
		})
	}

	return r
}

func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(rec, r)
			status := rec.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.Info("request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
