package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OutgoingLatency tracks the duration of every request sent to an upstream.
	OutgoingLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "busnear_outgoing_request_duration_seconds",
			Help:    "Latency of outgoing upstream HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"url", "method", "status"},
	)

	// UpstreamResults counts upstream lookups by their outcome
	// (see the Outcome constants).
	UpstreamResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "busnear_upstream_results_total",
			Help: "Upstream lookups by upstream and outcome",
		},
		[]string{"upstream", "outcome"},
	)
)

var (
	ArrivalTimeSource = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "busnear_arrival_time_source_total",
		Help: "How the time segment of an arrival display was derived (scheduled, placeholder, unparseable, missing)",
	}, []string{"source"})

	FlowFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "busnear_flow_failures_total",
		Help: "Resolution flow failures by kind",
	}, []string{"kind"})
)

// Upstream outcome labels.
const (
	OutcomeOK             = "ok"
	OutcomeEmpty          = "empty"
	OutcomeTransportError = "transport_error"
	OutcomeBadStatus      = "bad_status"
	OutcomeDecodeError    = "decode_error"
	OutcomeRequestError   = "request_error"
)

var (
	// BundleEarliestExpirationDays and BundleLatestExpirationDays are the days
	// until the first and last calendar entry of the offline GTFS bundle ends.
	BundleEarliestExpirationDays = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "busnear_gtfs_bundle_earliest_expiration_days",
		Help: "Days until the earliest calendar end date of the loaded GTFS bundle",
	})

	BundleLatestExpirationDays = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "busnear_gtfs_bundle_latest_expiration_days",
		Help: "Days until the latest calendar end date of the loaded GTFS bundle",
	})

	DirectoryStops = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "busnear_gtfs_directory_stops",
		Help: "Number of located stops in the offline stop directory",
	})
)
