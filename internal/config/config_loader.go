package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"busnear.dev/internal/report"
)

// Load builds the configuration from, in increasing precedence: defaults,
// the optional config file at path (YAML or JSON), a .env file in the
// working directory and the process environment. Flags are applied by the
// caller afterwards, followed by Validate.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadConfigFromFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}
	applyEnv(cfg)

	return cfg, nil
}

// loadConfigFromFile reads a YAML or JSON configuration file from disk and
// decodes it over cfg. Keys missing from the file keep their current value.
//
// On error, it reports issues to Sentry and returns a descriptive error.
func loadConfigFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		report.ReportErrorWithSentryOptions(context.Background(), err, report.SentryReportOptions{
			Tags: map[string]string{"file_path": filePath},
		})
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// JSON documents are valid YAML, so one decoder serves both formats.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		report.ReportErrorWithSentryOptions(context.Background(), err, report.SentryReportOptions{
			Tags: map[string]string{"file_path": filePath},
		})
		return fmt.Errorf("failed to decode config file: %w", err)
	}

	return nil
}

func applyEnv(cfg *Config) {
	cfg.Env = getEnv("BUSNEAR_ENV", cfg.Env)
	cfg.Port = getIntEnv("BUSNEAR_PORT", cfg.Port)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.Timeout = getDurationEnv("BUSNEAR_TIMEOUT", cfg.Timeout)
	cfg.Radius = getIntEnv("BUSNEAR_RADIUS", cfg.Radius)
	cfg.GeocodeLimit = getIntEnv("BUSNEAR_GEOCODE_LIMIT", cfg.GeocodeLimit)
	cfg.Timezone = getEnv("BUSNEAR_TIMEZONE", cfg.Timezone)
	cfg.BusAPIBaseURL = getEnv("BUSNEAR_BUS_API_URL", cfg.BusAPIBaseURL)
	cfg.GeocoderURL = getEnv("BUSNEAR_GEOCODER_URL", cfg.GeocoderURL)
	cfg.UserAgent = getEnv("BUSNEAR_USER_AGENT", cfg.UserAgent)
	cfg.GTFSBundle = getEnv("BUSNEAR_GTFS_BUNDLE", cfg.GTFSBundle)
	cfg.SentryDSN = getEnv("SENTRY_DSN", cfg.SentryDSN)
}

// Validate checks the configuration against its struct tags.
func (cfg *Config) Validate() error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ValidateModeFlags ensures that --serve is not combined with one-shot
// query flags and that no positional arguments are left over.
func ValidateModeFlags(serve, oneShot bool, args []string) error {
	if serve && oneShot {
		return fmt.Errorf("--serve cannot be combined with --address, --lat/--lon or --stop-id")
	}
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %v", args)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}
