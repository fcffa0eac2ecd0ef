package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/getsentry/sentry-go"

	"busnear.dev/internal/metrics"
	"busnear.dev/internal/models"
	"busnear.dev/internal/report"
)

// Upstream names used in logs, Sentry tags and metric labels.
const (
	UpstreamBusStops = "bus_stops"
	UpstreamBusLines = "bus_lines"
	UpstreamGeocoder = "geocoder"
)

// errNotAList is returned when a 200 response decodes to anything but an array.
var errNotAList = errors.New("response body is not a JSON array")

// fetchList performs req once and decodes a JSON array of objects.
//
// Every failure (transport error, timeout, non-200 status, undecodable or
// non-array body) is logged, reported to Sentry and counted, then returned
// as an empty result. Callers cannot tell "nothing found" from "upstream
// down"; that is the contract of every upstream in this package.
func fetchList(ctx context.Context, client *http.Client, req *http.Request, upstream string, logger *slog.Logger) []models.RawRecord {
	safeURL := labelURL(req)

	resp, err := client.Do(req)
	if err != nil {
		fail(ctx, logger, upstream, metrics.OutcomeTransportError, safeURL, 0, err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		fail(ctx, logger, upstream, metrics.OutcomeBadStatus, safeURL, resp.StatusCode,
			fmt.Errorf("unexpected status code: %d", resp.StatusCode))
		return nil
	}

	records, err := decodeList(resp.Body)
	if err != nil {
		fail(ctx, logger, upstream, metrics.OutcomeDecodeError, safeURL, resp.StatusCode, err)
		return nil
	}

	outcome := metrics.OutcomeOK
	if len(records) == 0 {
		outcome = metrics.OutcomeEmpty
	}
	metrics.UpstreamResults.WithLabelValues(upstream, outcome).Inc()
	logger.Debug("upstream call succeeded", "upstream", upstream, "url", safeURL, "records", len(records))

	return records
}

// decodeList decodes r as a JSON array, keeping only its object elements.
// Numbers are kept as json.Number.
func decodeList(r io.Reader) ([]models.RawRecord, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var body any
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	items, ok := body.([]any)
	if !ok {
		return nil, errNotAList
	}

	records := make([]models.RawRecord, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			records = append(records, models.RawRecord(obj))
		}
	}
	return records, nil
}

func fail(ctx context.Context, logger *slog.Logger, upstream, outcome, url string, status int, err error) {
	metrics.UpstreamResults.WithLabelValues(upstream, outcome).Inc()

	logger.Warn("upstream call failed, treating as empty result",
		"upstream", upstream,
		"outcome", outcome,
		"url", url,
		"status", status,
		"session_id", report.SessionID(ctx),
		"error", err)

	// Cancellation is the user leaving, not an upstream fault.
	if errors.Is(err, context.Canceled) {
		return
	}

	report.ReportErrorWithSentryOptions(ctx, err, report.SentryReportOptions{
		Tags: map[string]string{
			"upstream": upstream,
			"outcome":  outcome,
		},
		ExtraContext: map[string]interface{}{
			"url":    url,
			"status": status,
		},
		Level: sentry.LevelWarning,
	})
}
