package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"busnear.dev/internal/arrival"
	"busnear.dev/internal/config"
	"busnear.dev/internal/models"
)

type fakeGeocoder struct{}

func (fakeGeocoder) Geocode(ctx context.Context, query string, limit int) []models.GeocodeCandidate {
	if !strings.Contains(strings.ToLower(query), "dizengoff") {
		return nil
	}
	all := []models.GeocodeCandidate{
		{Coordinates: models.Coordinates{Lat: 32.0779, Lon: 34.7745}, HasCoordinates: true,
			Label: "Dizengoff 50, Tel Aviv", DisplayName: "50, Dizengoff, Tel Aviv-Yafo, Israel"},
		{Coordinates: models.Coordinates{Lat: 32.18, Lon: 34.87}, HasCoordinates: true, Label: "Dizengoff, Kfar Saba"},
		{Label: "Dizengoff Center"},
	}
	if limit < len(all) {
		all = all[:limit]
	}
	return all
}

type fakeStops struct {
	calls []float64
}

func (f *fakeStops) NearbyStops(ctx context.Context, lat, lon float64, radius int) []models.RawRecord {
	f.calls = append(f.calls, lat, lon, float64(radius))
	return []models.RawRecord{
		{"Makat": json.Number("21212"), "Name": "Frishman", "Distance": json.Number("245")},
		{"Makat": json.Number("21245"), "Name": "Dizengoff Square", "Distance": json.Number("39")},
		{"Name": "Mystery"},
	}
}

type fakeLines struct{}

func (fakeLines) RealtimeLines(ctx context.Context, stopID string) []models.RawRecord {
	if stopID != "21245" {
		return nil
	}
	return []models.RawRecord{
		{"Shilut": "5", "DestinationName": "Central Station", "CompanyName": "Dan",
			"MinutesToArrival": json.Number("5"), "Distance": json.Number("850")},
		{"Shilut": "61", "DestinationName": "Reading", "CompanyName": "Dan",
			"MinutesToArrival": json.Number("12")},
	}
}

func newTestApplication(t *testing.T) (*Application, *fakeStops) {
	t.Helper()

	cfg := config.Default()
	cfg.Env = "testing"

	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.FixedZone("IST", 2*60*60))
	stops := &fakeStops{}

	return &Application{
		Config:   cfg,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Version:  "test-version",
		Geocoder: fakeGeocoder{},
		Stops:    stops,
		Lines:    fakeLines{},
		Normalizer: arrival.NewNormalizer(arrival.Options{
			Location: now.Location(),
			Now:      func() time.Time { return now },
			Aliases:  &cfg.Aliases,
		}),
	}, stops
}
