package upstream

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"busnear.dev/internal/metrics"
	"busnear.dev/internal/models"
)

// BusClient talks to the bus.gov.il passenger-info API.
type BusClient struct {
	BaseURL  string
	Language string
	Client   *http.Client
	Logger   *slog.Logger
}

// NewBusClient returns a BusClient for baseURL. language is the path segment
// selecting the response language ("he" or "en").
func NewBusClient(baseURL, language string, client *http.Client, logger *slog.Logger) *BusClient {
	return &BusClient{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Language: language,
		Client:   client,
		Logger:   logger,
	}
}

// NearbyStops lists raw stop records within radiusMeters of (lat, lon).
// The result is empty on any upstream failure.
func (c *BusClient) NearbyStops(ctx context.Context, lat, lon float64, radiusMeters int) []models.RawRecord {
	endpoint := fmt.Sprintf("%s/GetBusstopListByRadius/1/%s/%s/%d/%s/false",
		c.BaseURL,
		strconv.FormatFloat(lat, 'f', -1, 64),
		strconv.FormatFloat(lon, 'f', -1, 64),
		radiusMeters,
		url.PathEscape(c.Language))

	req, err := c.newRequest(ctx, endpoint, "/GetBusstopListByRadius")
	if err != nil {
		fail(ctx, c.Logger, UpstreamBusStops, metrics.OutcomeRequestError, endpoint, 0, err)
		return nil
	}
	return fetchList(ctx, c.Client, req, UpstreamBusStops, c.Logger)
}

// RealtimeLines lists the realtime line records for stopID. The result is
// empty on any upstream failure.
func (c *BusClient) RealtimeLines(ctx context.Context, stopID string) []models.RawRecord {
	endpoint := fmt.Sprintf("%s/GetRealtimeBusLineListByBustop/%s/%s/false",
		c.BaseURL,
		url.PathEscape(stopID),
		url.PathEscape(c.Language))

	req, err := c.newRequest(ctx, endpoint, "/GetRealtimeBusLineListByBustop")
	if err != nil {
		fail(ctx, c.Logger, UpstreamBusLines, metrics.OutcomeRequestError, endpoint, 0, err)
		return nil
	}
	return fetchList(ctx, c.Client, req, UpstreamBusLines, c.Logger)
}

func (c *BusClient) newRequest(ctx context.Context, endpoint, route string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	if base, err := url.Parse(c.BaseURL); err == nil {
		route = base.Path + route
	}
	return withRoute(req, route), nil
}
