package report

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// SetupOptions configures the Sentry client. An empty DSN leaves reporting
// disabled; every Report* call then becomes a no-op.
type SetupOptions struct {
	DSN         string
	Environment string
	Release     string
	Debug       bool
	// TracesSampleRate is only meaningful in serve mode, where the HTTP
	// middleware starts transactions.
	TracesSampleRate float64
}

func SetupSentry(opts SetupOptions) error {
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              opts.DSN,
		Environment:      opts.Environment,
		Release:          opts.Release,
		EnableTracing:    opts.TracesSampleRate > 0,
		Debug:            opts.Debug,
		TracesSampleRate: opts.TracesSampleRate,
	}); err != nil {
		return fmt.Errorf("sentry.Init: %w", err)
	}
	return nil
}

func FlushSentry() {
	sentry.Flush(2 * time.Second)
}
