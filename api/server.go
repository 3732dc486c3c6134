/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address behind proxies
  3. Logger:     Structured request logging (zerolog)
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests for the dashboard

ROUTE GROUPS:
  /api/movements/*      Ledger entries
  /api/products/*       Catalog: products
  /api/stores/*         Catalog: stores
  /api/neighborhoods/*  Catalog: neighborhoods
  /api/stock/*          Derived stock positions
  /api/statistics/*     Period statistics, overview, xlsx export
  /api/audit            Latest background ledger audit
  /api/scenarios/*      Demo ledgers
  /ping                 Liveness

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// NewRouter creates a new router with all routes configured. An empty
// allowedOrigins list disables cross-origin access.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", h.Ping)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/movements", func(r chi.Router) {
			r.Get("/", h.ListMovements)
			r.Post("/", h.CreateMovement)
			r.Get("/{id}", h.GetMovement)
			r.Put("/{id}", h.UpdateMovement)
			r.Delete("/{id}", h.DeleteMovement)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Post("/", h.SaveProduct)
			r.Get("/{id}", h.GetProduct)
			r.Delete("/{id}", h.DeleteProduct)
		})

		r.Route("/stores", func(r chi.Router) {
			r.Get("/", h.ListStores)
			r.Post("/", h.SaveStore)
			r.Get("/{id}", h.GetStore)
			r.Delete("/{id}", h.DeleteStore)
		})

		r.Route("/neighborhoods", func(r chi.Router) {
			r.Get("/", h.ListNeighborhoods)
			r.Post("/", h.SaveNeighborhood)
			r.Get("/{id}", h.GetNeighborhood)
			r.Delete("/{id}", h.DeleteNeighborhood)
		})

		r.Route("/stock", func(r chi.Router) {
			r.Get("/owned", h.GetOwnedStock)
			r.Get("/inventory", h.GetInventory)
			r.Get("/summary", h.GetStockSummary)
		})

		r.Route("/statistics", func(r chi.Router) {
			r.Get("/", h.GetStatistics)
			r.Get("/overview", h.GetOverview)
			r.Get("/export", h.ExportStatistics)
		})

		r.Get("/audit", h.GetAudit)

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Stock Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Stock Engine API</h1>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/movements">/api/movements</a> - Ledger movements</li>
<li><a href="/api/stock/summary">/api/stock/summary</a> - Stock summary</li>
<li><a href="/api/statistics?year=2024&amp;month=1">/api/statistics</a> - Period statistics</li>
<li><a href="/api/scenarios">/api/scenarios</a> - Demo scenarios</li>
</ul>
</body>
</html>`))
	})

	return r
}

// requestLogger logs one line per request once the response is written.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				status := ww.Status()
				event := logger.Info()
				switch {
				case status >= 500:
					event = logger.Error()
				case status >= 400:
					event = logger.Warn()
				}
				event.
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", status).
					Int("bytes", ww.BytesWritten()).
					Dur("latency", time.Since(start)).
					Msg("request")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
