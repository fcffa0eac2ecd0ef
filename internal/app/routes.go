package app

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"

	"busnear.dev/internal/middleware"
)

// Routes registers the read-only API and returns it wrapped in the
// logging, compression, Sentry and security header middlewares.
//
//   - GET /v1/healthcheck
//   - GET /v1/geocode?q=&limit=
//   - GET /v1/stops?lat=&lon= or ?address=&address_index=, plus radius and limit
//   - GET /v1/stops/:stop_id/lines?line=
//   - GET /metrics
//
// ctx bounds the background refresh of the cached metrics exposition.
func (app *Application) Routes(ctx context.Context) http.Handler {
	router := httprouter.New()

	router.HandlerFunc(http.MethodGet, "/v1/healthcheck", app.healthcheckHandler)
	router.HandlerFunc(http.MethodGet, "/v1/geocode", app.geocodeHandler)
	router.HandlerFunc(http.MethodGet, "/v1/stops", app.stopsHandler)
	router.HandlerFunc(http.MethodGet, "/v1/stops/:stop_id/lines", app.linesHandler)
	router.Handler(http.MethodGet, "/metrics", middleware.NewCachedPromHandler(ctx, prometheus.DefaultGatherer, 10*time.Second, app.Logger))

	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		app.writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	})

	handler := middleware.SentryMiddleware(router)
	handler = middleware.Compress(handler)
	handler = middleware.RequestLogger(app.Logger)(handler)
	return middleware.SecurityHeaders(handler)
}
