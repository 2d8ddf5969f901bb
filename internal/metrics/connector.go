package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConnectorRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connector_requests_total",
			Help: "Total number of connector calls by platform kind, operation and outcome",
		},
		[]string{"kind", "operation", "outcome"},
	)

	ConnectorDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "connector_request_duration_seconds",
			Help:    "Connector call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind", "operation"},
	)

	SchemaCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schema_cache_lookups_total",
			Help: "Schema discovery cache lookups by listing and result",
		},
		[]string{"listing", "result"},
	)

	IntegrationHealthChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "integration_health_checks_total",
			Help: "Scheduled connection checks by platform kind and outcome",
		},
		[]string{"kind", "outcome"},
	)
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePanic   = "panic"
)
