package middleware

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"busnear.dev/internal/report"
)

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/healthcheck", nil))

	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	assert.Equal(t, "same-origin", rr.Header().Get("Cross-Origin-Resource-Policy"))
	assert.Contains(t, rr.Header().Get("Content-Security-Policy"), "default-src 'none'")
}

func TestRequestLogger(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{"ok", http.StatusOK, "level=DEBUG"},
		{"client error", http.StatusBadRequest, "level=WARN"},
		{"server error", http.StatusInternalServerError, "level=ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

			handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/stops?lat=1", nil))

			assert.Equal(t, tt.status, rr.Code)
			line := buf.String()
			assert.Contains(t, line, tt.wantLevel)
			assert.Contains(t, line, "path=/v1/stops")
			assert.Contains(t, line, fmt.Sprintf("status=%d", tt.status))
		})
	}
}

func TestCompress(t *testing.T) {
	body := strings.Repeat(`{"name":"Dizengoff Square"},`, 100)
	handler := Compress(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))

	t.Run("gzip accepted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/stops", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		require.Equal(t, "gzip", rr.Header().Get("Content-Encoding"))
		zr, err := gzip.NewReader(rr.Body)
		require.NoError(t, err)
		plain, err := io.ReadAll(zr)
		require.NoError(t, err)
		assert.Equal(t, body, string(plain))
	})

	t.Run("identity", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/stops", nil))

		assert.Empty(t, rr.Header().Get("Content-Encoding"))
		assert.Equal(t, body, rr.Body.String())
	})
}

func TestCachedPromHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "busnear_test_requests_total",
		Help: "Requests seen by the test.",
	})
	reg.MustRegister(counter)
	counter.Add(3)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewCachedPromHandler(ctx, reg, time.Hour, logger)

	// served from the cache filled at construction
	counter.Add(1)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rr.Body.String(), "busnear_test_requests_total 3")

	handler.refresh()
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rr.Body.String(), "busnear_test_requests_total 4")
}

func TestCachedPromHandlerFallsBackWhenEmpty(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewCachedPromHandler(ctx, prometheus.NewRegistry(), time.Hour, logger)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

type eventRecorder struct {
	events []*sentry.Event
}

func (e *eventRecorder) Configure(sentry.ClientOptions)        {}
func (e *eventRecorder) SendEvent(event *sentry.Event)         { e.events = append(e.events, event) }
func (e *eventRecorder) Flush(time.Duration) bool              { return true }
func (e *eventRecorder) FlushWithContext(context.Context) bool { return true }
func (e *eventRecorder) Close()                                {}

func TestSentryMiddlewareTagsRequestHub(t *testing.T) {
	recorder := &eventRecorder{}
	require.NoError(t, sentry.Init(sentry.ClientOptions{
		Dsn:       "https://public@sentry.example.com/1",
		Transport: recorder,
	}))

	handler := SentryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := report.WithSessionID(r.Context(), "session-1")
		report.ReportErrorWithSentryOptions(ctx, fmt.Errorf("lines lookup failed"), report.SentryReportOptions{})
		w.WriteHeader(http.StatusInternalServerError)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/lines?stop=21245", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	require.Len(t, recorder.events, 1)
	tags := recorder.events[0].Tags
	assert.Equal(t, "GET", tags["http.method"])
	assert.Equal(t, "/api/lines", tags["http.path"])
	assert.Equal(t, "session-1", tags["session_id"])

	// Request tags stay on the request's hub.
	recorder.events = nil
	report.ReportError(context.Background(), fmt.Errorf("outside a request"), sentry.LevelWarning)
	require.Len(t, recorder.events, 1)
	assert.NotContains(t, recorder.events[0].Tags, "http.path")
}
