// Package metrics defines the Prometheus collectors for the realtime layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Realtime channel metrics
var (
	// ConnectedClients tracks the number of currently-open realtime channels.
	ConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_connected_clients",
			Help: "Number of currently connected WebSocket clients",
		},
	)

	// BroadcastsTotal counts broadcast invocations.
	BroadcastsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "realtime_broadcasts_total",
			Help: "Total broadcast fan-out invocations",
		},
	)

	// PushesTotal counts per-connection push outcomes during broadcasts.
	PushesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_pushes_total",
			Help: "Per-connection push outcomes by status (ok/gone/error)",
		},
		[]string{"status"},
	)
)

// Telemetry ingestion metrics
var (
	// IngestTotal counts ingestion outcomes.
	IngestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemetry_ingest_total",
			Help: "Telemetry ingestion outcomes (ok/skipped_missing_fields/skipped_no_metrics/error)",
		},
		[]string{"status"},
	)
)

// Actuation metrics
var (
	// ActuationsTotal counts actuation outcomes.
	ActuationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plug_actuations_total",
			Help: "Actuation outcomes (success/cooldown/invalid/actuator_error/storage_error)",
		},
		[]string{"result"},
	)

	// ActuatorCallDuration tracks external actuator call latency in seconds.
	ActuatorCallDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "actuator_call_duration_seconds",
			Help:    "External actuator call duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)
)
