package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"

	"busnear.dev/internal/cli"
	"busnear.dev/internal/flow"
)

// HealthStatus is the body of /v1/healthcheck.
//
// OfflineStops is the size of the GTFS stop directory, zero when no bundle
// is loaded. The upstreams are not contacted, so Ready only says the process
// is serving.
type HealthStatus struct {
	Status       string `json:"status"`
	Environment  string `json:"environment"`
	Version      string `json:"version"`
	OfflineStops int    `json:"offline_stops"`
	Ready        bool   `json:"ready"`
}

func (app *Application) healthcheckHandler(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:      "available",
		Environment: app.Config.Env,
		Version:     app.Version,
		Ready:       true,
	}
	if app.Directory != nil {
		status.OfflineStops = app.Directory.Len()
	}
	app.writeJSON(w, http.StatusOK, status)
}

type candidateJSON struct {
	Index       int      `json:"index"`
	Label       string   `json:"label"`
	DisplayName string   `json:"display_name,omitempty"`
	Lat         *float64 `json:"lat"`
	Lon         *float64 `json:"lon"`
}

type geocodeJSON struct {
	Count   int             `json:"count"`
	Results []candidateJSON `json:"results"`
}

// geocodeHandler returns the address candidates for ?q=, capped by ?limit=.
func (app *Application) geocodeHandler(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()

	opts := app.SessionOptions()
	limit, err := readInt(qs, "limit", opts.GeocodeLimit)
	if err == nil && (limit < 1 || limit > 50) {
		err = fmt.Errorf("limit must be between 1 and 50: %w", flow.ErrInvalidInput)
	}
	if err != nil {
		app.errorResponder(w, r, err)
		return
	}
	opts.GeocodeLimit = limit

	session := flow.NewSession(opts)
	w.Header().Set("X-Session-Id", session.ID)

	candidates, err := session.SearchAddress(r.Context(), qs.Get("q"))
	if err != nil {
		app.errorResponder(w, r, err)
		return
	}

	out := geocodeJSON{Count: len(candidates), Results: make([]candidateJSON, 0, len(candidates))}
	for i, c := range candidates {
		result := candidateJSON{Index: i, Label: c.Label, DisplayName: c.DisplayName}
		if c.HasCoordinates {
			lat, lon := c.Lat, c.Lon
			result.Lat, result.Lon = &lat, &lon
		}
		out.Results = append(out.Results, result)
	}
	app.writeJSON(w, http.StatusOK, out)
}

// stopsHandler lists the stops around ?lat=&lon=, or around candidate
// ?address_index= of ?address=. Coordinates win when both are given.
func (app *Application) stopsHandler(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	plan := flow.Plan{Address: strings.TrimSpace(qs.Get("address")), ListStops: true}

	var err error
	if plan.Lat, err = readFloat(qs, "lat"); err != nil {
		app.errorResponder(w, r, err)
		return
	}
	if plan.Lon, err = readFloat(qs, "lon"); err != nil {
		app.errorResponder(w, r, err)
		return
	}
	for key, dst := range map[string]*int{
		"address_index": &plan.AddressIndex,
		"radius":        &plan.Radius,
		"limit":         &plan.LimitStops,
	} {
		n, err := readInt(qs, key, 0)
		if err == nil && n < 0 {
			err = fmt.Errorf("%s must not be negative: %w", key, flow.ErrInvalidInput)
		}
		if err != nil {
			app.errorResponder(w, r, err)
			return
		}
		*dst = n
	}

	session := app.NewSession()
	w.Header().Set("X-Session-Id", session.ID)

	res, err := flow.Run(r.Context(), session, plan)
	if err != nil {
		app.errorResponder(w, r, err)
		return
	}

	app.render(w, func(rd *cli.Renderer) error { return rd.Stops(res.Stops, res.Radius) })
}

// linesHandler lists the realtime lines of :stop_id, optionally filtered by
// ?line=. A stop without lines is an empty list, not an error.
func (app *Application) linesHandler(w http.ResponseWriter, r *http.Request) {
	params := httprouter.ParamsFromContext(r.Context())
	plan := flow.Plan{
		StopID: params.ByName("stop_id"),
		Line:   strings.TrimSpace(r.URL.Query().Get("line")),
	}

	session := app.NewSession()
	w.Header().Set("X-Session-Id", session.ID)

	res, err := flow.Run(r.Context(), session, plan)
	if err != nil && !errors.Is(err, flow.ErrNoRealtimeLines) && !errors.Is(err, flow.ErrNoMatchingLines) {
		app.errorResponder(w, r, err)
		return
	}

	app.render(w, func(rd *cli.Renderer) error { return rd.Lines(res.StopID, res.Lines) })
}

// render writes a 200 JSON document produced by the CLI renderer, so both
// surfaces share one output shape.
func (app *Application) render(w http.ResponseWriter, write func(*cli.Renderer) error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	rd := &cli.Renderer{Out: w, JSON: true, Aliases: app.Config.Aliases}
	if err := write(rd); err != nil {
		app.Logger.Warn("failed to write response", "error", err)
	}
}

func (app *Application) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		app.Logger.Warn("failed to write response", "error", err)
	}
}

func readFloat(qs url.Values, key string) (*float64, error) {
	raw := strings.TrimSpace(qs.Get(key))
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be a number: %w", key, flow.ErrInvalidInput)
	}
	return &f, nil
}

func readInt(qs url.Values, key string, defaultVal int) (int, error) {
	raw := strings.TrimSpace(qs.Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, flow.ErrInvalidInput)
	}
	return n, nil
}
