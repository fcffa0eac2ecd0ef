package upstream

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"busnear.dev/internal/metrics"
)

// latencyTrackingRoundTripper wraps another RoundTripper and records the
// duration of every outgoing request in metrics.OutgoingLatency.
type latencyTrackingRoundTripper struct {
	next http.RoundTripper
}

func (rt *latencyTrackingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := rt.next.RoundTrip(req)
	duration := time.Since(start).Seconds()

	status := "error"
	if err == nil && resp != nil {
		status = strconv.Itoa(resp.StatusCode)
	}

	metrics.OutgoingLatency.WithLabelValues(
		labelURL(req),
		req.Method,
		status,
	).Observe(duration)

	return resp, err
}

type routeKey struct{}

// withRoute tags req with a path template used as the latency label in
// place of the concrete path, which embeds stop ids and coordinates.
func withRoute(req *http.Request, route string) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), routeKey{}, route))
}

func labelURL(req *http.Request) string {
	path := req.URL.Path
	if route, ok := req.Context().Value(routeKey{}).(string); ok {
		path = route
	}
	return req.URL.Scheme + "://" + req.URL.Host + path
}

// NewPooledClient returns the HTTP client shared by every upstream.
//
// timeout bounds the full request lifecycle. Each upstream call makes exactly
// one attempt; a timeout is reported by the caller as an empty result.
func NewPooledClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 5 * time.Second,
	}

	return &http.Client{
		Transport: &latencyTrackingRoundTripper{next: transport},
		Timeout:   timeout,
	}
}
