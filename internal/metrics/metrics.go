// Package metrics holds the Prometheus instruments of the routing service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FSXMLRequests counts XML-fetch requests by the section finally served.
	FSXMLRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voiprouting_fsxml_requests_total",
			Help: "XML-fetch requests answered, by section",
		},
		[]string{"section"},
	)

	// RoutingDecisions counts dialplan answers by the strategy that produced them.
	RoutingDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voiprouting_routing_decisions_total",
			Help: "Dialplan resolutions, by winning strategy",
		},
		[]string{"strategy"},
	)

	HookFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voiprouting_hook_failures_total",
			Help: "Custom routing hook invocations that failed or timed out",
		},
		[]string{"hook"},
	)

	SnapshotReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voiprouting_snapshot_reloads_total",
			Help: "Directory snapshot reload attempts, by result",
		},
		[]string{"result"},
	)

	SnapshotGeneration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "voiprouting_snapshot_generation",
			Help: "Generation of the directory snapshot currently served",
		},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "voiprouting_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"method", "route", "status"},
	)
)
