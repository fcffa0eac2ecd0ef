package app

import (
	"context"
	"time"

	"busnear.dev/internal/gtfs"
	"busnear.dev/internal/report"
)

// StartMetricsCollection keeps the bundle expiration gauges current while
// serving. It does nothing when no GTFS bundle is loaded.
func (app *Application) StartMetricsCollection(ctx context.Context, interval time.Duration) {
	if app.Bundle == nil {
		return
	}

	app.CollectBundleMetrics(time.Now())

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				app.CollectBundleMetrics(now)
			}
		}
	}()
}

// CollectBundleMetrics updates the bundle expiration gauges for now.
func (app *Application) CollectBundleMetrics(now time.Time) {
	earliest, latest, err := gtfs.CheckBundleExpiration(app.Bundle, now)
	if err != nil {
		app.Logger.Error("Failed to check GTFS bundle expiration", "error", err)
		report.ReportErrorWithSentryOptions(context.Background(), err, report.SentryReportOptions{
			Tags:         map[string]string{"component": "bundle_metrics"},
			ExtraContext: map[string]interface{}{"bundle": app.Config.GTFSBundle},
		})
		return
	}

	if earliest < 0 {
		app.Logger.Warn("part of the GTFS bundle has expired", "earliest_days", earliest, "latest_days", latest)
	} else {
		app.Logger.Debug("GTFS bundle expiration", "earliest_days", earliest, "latest_days", latest)
	}
}
