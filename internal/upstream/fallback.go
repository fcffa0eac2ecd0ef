package upstream

import (
	"context"
	"log/slog"

	"busnear.dev/internal/models"
)

// StopLister is any source of raw nearby-stop records.
type StopLister interface {
	NearbyStops(ctx context.Context, lat, lon float64, radiusMeters int) []models.RawRecord
}

// FallbackFinder asks Primary first and only consults Secondary when the
// primary answer is empty. Secondary may be nil.
type FallbackFinder struct {
	Primary   StopLister
	Secondary StopLister
	Logger    *slog.Logger
}

func (f *FallbackFinder) NearbyStops(ctx context.Context, lat, lon float64, radiusMeters int) []models.RawRecord {
	records := f.Primary.NearbyStops(ctx, lat, lon, radiusMeters)
	if len(records) > 0 || f.Secondary == nil || ctx.Err() != nil {
		return records
	}

	f.Logger.Info("no stops from primary source, falling back to offline directory",
		"lat", lat, "lon", lon, "radius", radiusMeters)
	return f.Secondary.NearbyStops(ctx, lat, lon, radiusMeters)
}
