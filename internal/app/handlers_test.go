package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	remoteGtfs "github.com/jamespfennell/gtfs"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"busnear.dev/internal/flow"
	"busnear.dev/internal/metrics"
)

func serve(t *testing.T, app *Application, target string) *httptest.ResponseRecorder {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	rr := httptest.NewRecorder()
	app.Routes(ctx).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func TestHealthcheckHandler(t *testing.T) {
	app, _ := newTestApplication(t)

	rr := serve(t, app, "/v1/healthcheck")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))

	var resp HealthStatus
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, HealthStatus{
		Status:      "available",
		Environment: "testing",
		Version:     "test-version",
		Ready:       true,
	}, resp)
}

func TestGeocodeHandler(t *testing.T) {
	app, _ := newTestApplication(t)

	rr := serve(t, app, "/v1/geocode?q=Dizengoff+50&limit=2")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("X-Session-Id"))

	var resp geocodeJSON
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Equal(t, 2, resp.Count)
	assert.Equal(t, "Dizengoff 50, Tel Aviv", resp.Results[0].Label)
	assert.Equal(t, "50, Dizengoff, Tel Aviv-Yafo, Israel", resp.Results[0].DisplayName)
	require.NotNil(t, resp.Results[0].Lat)
	assert.InDelta(t, 32.0779, *resp.Results[0].Lat, 1e-9)
	assert.Equal(t, 1, resp.Results[1].Index)
}

func TestGeocodeHandlerWithoutCoordinates(t *testing.T) {
	app, _ := newTestApplication(t)

	rr := serve(t, app, "/v1/geocode?q=dizengoff")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	results := resp["results"].([]any)
	require.Len(t, results, 3)
	last := results[2].(map[string]any)
	assert.Nil(t, last["lat"])
	assert.Nil(t, last["lon"])
}

func TestGeocodeHandlerErrors(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantError  string
	}{
		{"missing query", "/v1/geocode", http.StatusBadRequest, "empty address: invalid input"},
		{"bad limit", "/v1/geocode?q=dizengoff&limit=x", http.StatusBadRequest, "limit must be an integer: invalid input"},
		{"limit too large", "/v1/geocode?q=dizengoff&limit=500", http.StatusBadRequest, "limit must be between 1 and 50: invalid input"},
		{"no results", "/v1/geocode?q=atlantis", http.StatusNotFound, "No address results"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _ := newTestApplication(t)

			rr := serve(t, app, tt.target)
			assert.Equal(t, tt.wantStatus, rr.Code)

			var resp errorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			assert.Equal(t, tt.wantError, resp.Error)
		})
	}
}

type stopsResponse struct {
	Count  int `json:"count"`
	Radius int `json:"radius"`
	Stops  []struct {
		Index    int             `json:"index"`
		ID       *string         `json:"id"`
		Name     string          `json:"name"`
		Distance json.RawMessage `json:"distance"`
	} `json:"stops"`
}

func TestStopsHandlerByCoordinates(t *testing.T) {
	app, stops := newTestApplication(t)

	rr := serve(t, app, "/v1/stops?lat=32.08&lon=34.78&radius=500&limit=2")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp stopsResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, 500, resp.Radius)
	require.Len(t, resp.Stops, 2)
	assert.Equal(t, "Dizengoff Square", resp.Stops[0].Name)
	assert.Equal(t, "21245", *resp.Stops[0].ID)
	assert.Equal(t, "39", string(resp.Stops[0].Distance))
	assert.Equal(t, []float64{32.08, 34.78, 500}, stops.calls)
}

func TestStopsHandlerByAddress(t *testing.T) {
	app, stops := newTestApplication(t)

	rr := serve(t, app, "/v1/stops?address=Dizengoff&address_index=1")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp stopsResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, 3, resp.Count)
	assert.Equal(t, 300, resp.Radius)
	assert.Nil(t, resp.Stops[2].ID)
	assert.Equal(t, []float64{32.18, 34.87, 300}, stops.calls)
}

func TestStopsHandlerErrors(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantKind   flow.Kind
	}{
		{"no location", "/v1/stops", http.StatusBadRequest, flow.KindUserInputInvalid},
		{"lat only", "/v1/stops?lat=32.08", http.StatusBadRequest, flow.KindUserInputInvalid},
		{"bad lat", "/v1/stops?lat=north&lon=34.78", http.StatusBadRequest, flow.KindUserInputInvalid},
		{"out of range", "/v1/stops?lat=132&lon=34.78", http.StatusBadRequest, flow.KindUserInputInvalid},
		{"negative radius", "/v1/stops?lat=32.08&lon=34.78&radius=-5", http.StatusBadRequest, flow.KindUserInputInvalid},
		{"address index", "/v1/stops?address=dizengoff&address_index=9", http.StatusBadRequest, flow.KindUserInputInvalid},
		{"unknown address", "/v1/stops?address=atlantis", http.StatusNotFound, flow.KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _ := newTestApplication(t)

			rr := serve(t, app, tt.target)
			assert.Equal(t, tt.wantStatus, rr.Code)

			var resp errorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			assert.Equal(t, string(tt.wantKind), resp.Kind)
		})
	}
}

type linesResponse struct {
	StopID string `json:"stop_id"`
	Lines  []struct {
		Line     string `json:"line"`
		Number   string `json:"number"`
		Arrival  string `json:"arrival"`
		Distance string `json:"distance"`
	} `json:"lines"`
}

func TestLinesHandler(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		wantLines []string
	}{
		{"all lines", "/v1/stops/21245/lines", []string{"5 -> Central Station (Dan)", "61 -> Reading (Dan)"}},
		{"filtered", "/v1/stops/21245/lines?line=61", []string{"61 -> Reading (Dan)"}},
		{"no match", "/v1/stops/21245/lines?line=99", nil},
		{"no realtime lines", "/v1/stops/77777/lines", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _ := newTestApplication(t)

			rr := serve(t, app, tt.target)
			require.Equal(t, http.StatusOK, rr.Code)

			var resp linesResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			assert.NotEmpty(t, resp.StopID)

			var got []string
			for _, l := range resp.Lines {
				got = append(got, l.Line)
			}
			assert.Equal(t, tt.wantLines, got)
		})
	}
}

func TestLinesHandlerArrival(t *testing.T) {
	app, _ := newTestApplication(t)

	rr := serve(t, app, "/v1/stops/21245/lines?line=5")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp linesResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Len(t, resp.Lines, 1)
	assert.Equal(t, "5 min | ~10:05", resp.Lines[0].Arrival)
	assert.Equal(t, "850m", resp.Lines[0].Distance)
}

func TestUnknownRoute(t *testing.T) {
	app, _ := newTestApplication(t)

	rr := serve(t, app, "/v2/everything")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error":"not found"}`, rr.Body.String())
}

func TestMetricsRoute(t *testing.T) {
	app, _ := newTestApplication(t)

	rr := serve(t, app, "/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "go_goroutines")
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(flow.KindUserInputInvalid))
	assert.Equal(t, http.StatusNotFound, statusFor(flow.KindNotFound))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(flow.KindUnresolvableStop))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(flow.KindCanceled))
	assert.Equal(t, http.StatusInternalServerError, statusFor(flow.KindUnknown))
}

func TestCollectBundleMetrics(t *testing.T) {
	app, _ := newTestApplication(t)
	app.Bundle = &remoteGtfs.Static{
		Services: []remoteGtfs.Service{
			{EndDate: time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)},
			{EndDate: time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)},
		},
	}

	app.CollectBundleMetrics(time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, float64(10), gaugeValue(t, metrics.BundleEarliestExpirationDays))
	assert.Equal(t, float64(194), gaugeValue(t, metrics.BundleLatestExpirationDays))
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}

func TestStartMetricsCollectionWithoutBundle(t *testing.T) {
	app, _ := newTestApplication(t)
	// no bundle: nothing to collect and no goroutine to stop
	app.StartMetricsCollection(context.Background(), time.Millisecond)
}
