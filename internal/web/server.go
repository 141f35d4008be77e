// Package web serves the single-page UI and the JSON API behind its buttons.
package web

import (
	"embed"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/UnknownOlympus/geoplot/internal/metrics"
	"github.com/UnknownOlympus/geoplot/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SessionCookie carries the session ID between requests.
const SessionCookie = "geoplot_session"

//go:embed static/index.html
var static embed.FS

// Handler holds the dependencies of the HTTP handlers.
type Handler struct {
	log      *slog.Logger
	sessions *session.Manager
	metrics  *metrics.Metrics
}

func NewHandler(log *slog.Logger, sessions *session.Manager, m *metrics.Metrics) *Handler {
	return &Handler{log: log, sessions: sessions, metrics: m}
}

// NewRouter wires the page and the API routes.
func NewRouter(h *Handler, corsOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.log))
	r.Use(middleware.Recoverer)
	// Without configured origins the API is same-origin only.
	if len(corsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   corsOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: !slices.Contains(corsOrigins, "*"),
			MaxAge:           300,
		}))
	}

	r.Get("/", h.index)

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.state)
		r.Post("/upload", h.upload)
		r.Delete("/upload", h.clear)
		r.Post("/geocode", h.geocode)
		r.Get("/visualize", h.visualize)

		r.Route("/runs/{id}", func(r chi.Router) {
			r.Get("/", h.run)
			r.Get("/markers", h.markers)
			r.Get("/download.csv", h.download)
		})
	})

	return r
}

// requestLogger logs one line per request. Query strings and bodies are never
// logged since they may carry the provider credential.
func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			log.DebugContext(r.Context(), "HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
