package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Drop reasons for MessagesDropped.
const (
	ReasonUnmatched = "unmatched"
	ReasonQueueFull = "queue_full"
)

// Dispatch outcomes for DispatchTotal.
const (
	OutcomeDirect = "direct"
	OutcomeBus    = "bus"
	OutcomeFailed = "failed"
)

var (
	MessagesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_messages_received_total",
		Help: "Total MQTT messages received, by subscription filter.",
	}, []string{"subscription"})

	MessagesInvalid = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_messages_invalid_total",
		Help: "Total inbound messages that failed to decode, by route.",
	}, []string{"route"})

	MessagesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_messages_dropped_total",
		Help: "Total inbound messages dropped before handling.",
	}, []string{"reason"})

	InboxDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bridge_inbox_depth",
		Help: "Messages waiting in a subscription queue.",
	}, []string{"subscription"})

	SnapshotsPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bridge_snapshots_persisted_total",
		Help: "Total telemetry snapshots written to the store.",
	})

	SnapshotPersistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bridge_snapshot_persist_failures_total",
		Help: "Total telemetry snapshots that could not be written.",
	})

	DispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_dispatch_total",
		Help: "Total dispatched commands, by kind and outcome.",
	}, []string{"kind", "outcome"})

	DispatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bridge_dispatch_duration_seconds",
		Help:    "Command dispatch latency in seconds, including probe and fallback.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	LinkProbes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_link_probe_total",
		Help: "Direct hardware link health probes, by result.",
	}, []string{"result"})

	BroadcastEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_broadcast_events_total",
		Help: "Total events published to live subscribers, by channel.",
	}, []string{"channel"})

	BroadcastDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_broadcast_dropped_total",
		Help: "Events dropped because a subscriber queue was full.",
	}, []string{"channel"})

	Subscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bridge_ws_subscribers",
		Help: "Currently connected live subscribers.",
	})
)
