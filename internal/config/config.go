package config

import (
	"log/slog"
	"strings"
	"time"

	"busnear.dev/internal/fields"
)

// Config holds all the configuration settings for our application.
//
// Values that used to be module-level constants (timeout, radius, display
// timezone) live here so tests can override them deterministically.
type Config struct {
	Env      string `yaml:"env" validate:"oneof=development staging production testing"`
	Port     int    `yaml:"port" validate:"gte=0,lte=65535"`
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`

	// Timeout bounds every upstream call. There is exactly one attempt per call.
	Timeout      time.Duration `yaml:"timeout" validate:"gt=0"`
	Radius       int           `yaml:"radius" validate:"gt=0"`
	StopLimit    int           `yaml:"stop_limit" validate:"gte=0"`
	GeocodeLimit int           `yaml:"geocode_limit" validate:"gte=1,lte=50"`
	Timezone     string        `yaml:"timezone" validate:"required"`

	BusAPIBaseURL  string `yaml:"bus_api_base_url" validate:"required,url"`
	BusAPILanguage string `yaml:"bus_api_language" validate:"required"`
	GeocoderURL    string `yaml:"geocoder_url" validate:"required,url"`
	UserAgent      string `yaml:"user_agent" validate:"required"`
	AcceptLanguage string `yaml:"accept_language"`

	// GTFSBundle is an optional GTFS static zip, a path or an http(s) URL, used as an offline
	// source of nearby stops.
	GTFSBundle string `yaml:"gtfs_bundle" validate:"omitempty,file|url"`

	SentryDSN string `yaml:"sentry_dsn"`

	Aliases fields.Aliases `yaml:"aliases"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Env:      "development",
		Port:     4000,
		LogLevel: "warn",

		Timeout:      10 * time.Second,
		Radius:       300,
		StopLimit:    0,
		GeocodeLimit: 5,
		Timezone:     "Asia/Jerusalem",

		BusAPIBaseURL:  "https://bus.gov.il/WebApi/api/passengerinfo",
		BusAPILanguage: "he",
		GeocoderURL:    "https://nominatim.openstreetmap.org/search",
		UserAgent:      "busnear/1.0 (+https://github.com/busnear/busnear)",
		AcceptLanguage: "he,en",

		Aliases: fields.DefaultAliases(),
	}
}

// SlogLevel maps LogLevel onto a slog.Level.
func (cfg *Config) SlogLevel() slog.Level {
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
