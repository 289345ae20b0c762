// Package httpapi serves the read-only auction board.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/jensholdgaard/auction-room/internal/auction"
	"github.com/jensholdgaard/auction-room/internal/health"
)

// SetupRoutes builds the board router: probes at the root and JSON views
// under /api.
func SetupRoutes(mgr *auction.Manager, h *health.Handler, tp trace.TracerProvider) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	h.Register(r)

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", State(mgr))
		r.Get("/tracker", Tracker(mgr))
		r.Get("/players/{id}", Player(mgr))
	})

	return otelhttp.NewHandler(r, "board", otelhttp.WithTracerProvider(tp))
}
