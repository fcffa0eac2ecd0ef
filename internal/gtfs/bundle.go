// Package gtfs loads a GTFS static bundle and serves it as an offline
// directory of nearby stops.
package gtfs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	remoteGtfs "github.com/jamespfennell/gtfs"

	"busnear.dev/internal/metrics"
	"busnear.dev/internal/report"
)

// LoadBundle reads and parses the GTFS static bundle at source, which is
// either a local path or an http(s) URL fetched with client.
func LoadBundle(ctx context.Context, source string, client *http.Client) (*remoteGtfs.Static, error) {
	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		data, err = downloadBundle(ctx, source, client)
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		err = fmt.Errorf("failed to read GTFS bundle %s: %w", source, err)
		report.ReportErrorWithSentryOptions(ctx, err, report.SentryReportOptions{
			Tags: map[string]string{"bundle": source, "stage": "read"},
		})
		return nil, err
	}

	static, err := remoteGtfs.ParseStatic(data, remoteGtfs.ParseStaticOptions{})
	if err != nil {
		err = fmt.Errorf("failed to parse GTFS static data from %s: %w", source, err)
		report.ReportErrorWithSentryOptions(ctx, err, report.SentryReportOptions{
			Tags: map[string]string{"bundle": source, "stage": "parse"},
		})
		return nil, err
	}
	return static, nil
}

func downloadBundle(ctx context.Context, url string, client *http.Client) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected response status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// ServiceWindow returns the earliest and latest calendar end dates in the
// bundle. The library does not parse feed_info.txt, so the calendar is the
// only expiry signal available.
func ServiceWindow(static *remoteGtfs.Static) (earliest, latest time.Time, err error) {
	if static == nil {
		return time.Time{}, time.Time{}, fmt.Errorf("static data is nil")
	}
	if len(static.Services) == 0 {
		return time.Time{}, time.Time{}, fmt.Errorf("no services found in GTFS bundle")
	}

	earliest = static.Services[0].EndDate
	latest = static.Services[0].EndDate
	for _, service := range static.Services {
		if service.EndDate.Before(earliest) {
			earliest = service.EndDate
		}
		if service.EndDate.After(latest) {
			latest = service.EndDate
		}
	}
	return earliest, latest, nil
}

// CheckBundleExpiration records the days left until the bundle's service
// window ends and returns them.
func CheckBundleExpiration(static *remoteGtfs.Static, now time.Time) (int, int, error) {
	earliest, latest, err := ServiceWindow(static)
	if err != nil {
		return 0, 0, err
	}

	daysUntilEarliest := int(earliest.Sub(now).Hours() / 24)
	daysUntilLatest := int(latest.Sub(now).Hours() / 24)

	metrics.BundleEarliestExpirationDays.Set(float64(daysUntilEarliest))
	metrics.BundleLatestExpirationDays.Set(float64(daysUntilLatest))

	return daysUntilEarliest, daysUntilLatest, nil
}
