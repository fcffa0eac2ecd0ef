//go:build integration

package integration

import (
	"io"
	"log/slog"
	"os"

	"busnear.dev/internal/config"
	"busnear.dev/internal/upstream"
)

// dizengoffSquare is a busy stop cluster in central Tel Aviv.
var dizengoffSquare = struct{ lat, lon float64 }{32.0778, 34.7741}

// loadIntegrationConfig builds the configuration the live tests run with:
// the usual defaults, file, .env and environment layers.
func loadIntegrationConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger() *slog.Logger {
	if os.Getenv("LOG_LEVEL") == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: integrationCfg.SlogLevel()}))
}

func newBusClient() *upstream.BusClient {
	client := upstream.NewPooledClient(integrationCfg.Timeout)
	return upstream.NewBusClient(integrationCfg.BusAPIBaseURL, integrationCfg.BusAPILanguage, client, newLogger())
}

func newNominatim() *upstream.Nominatim {
	client := upstream.NewPooledClient(integrationCfg.Timeout)
	return upstream.NewNominatim(integrationCfg.GeocoderURL, integrationCfg.UserAgent, integrationCfg.AcceptLanguage, client, newLogger())
}
