// Package metrics defines and registers the custom Prometheus metrics of the
// chat server. It is the single source of truth for metric names, labels and
// help strings.
//
// Metrics are registered with the default registry through promauto at
// package init, so importing the package is enough.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "chat"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// AuthAttemptsTotal counts REST authentication operations.
// Labels:
//   - op: "login", "renew", "logout"
//   - result: "ok", "rejected", "error"
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of login, renew and logout attempts by result.",
	},
	[]string{"op", "result"},
)

// ── Gateway metrics ───────────────────────────────────────────────────────────

// ConnectionsActive tracks authenticated websocket connections currently open.
var ConnectionsActive = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "connections_active",
		Help:      "Number of authenticated realtime connections currently open.",
	},
)

// ConnectionsRejectedTotal counts handshakes closed before authentication.
// Label:
//   - reason: "missing_token", "invalid_token", "session_not_live", "session_check_failed"
var ConnectionsRejectedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "connections_rejected_total",
		Help:      "Total number of realtime handshakes rejected, by reason.",
	},
	[]string{"reason"},
)

// EventsReceivedTotal counts inbound realtime events.
// Labels:
//   - event: wire event name, or "unknown"
//   - result: "relayed", "rejected", "dropped"
var EventsReceivedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_received_total",
		Help:      "Total number of realtime events received from clients.",
	},
	[]string{"event", "result"},
)

// DeliveriesTotal counts frames handed to connection send queues.
// Label:
//   - result: "queued" or "dropped" (send queue full)
var DeliveriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "deliveries_total",
		Help:      "Total number of realtime frames queued or dropped for delivery.",
	},
	[]string{"result"},
)

// ── Persistence metrics ───────────────────────────────────────────────────────

// MessagesPersistedTotal counts message persistence outcomes.
// Label:
//   - result: "ok", "error" or "dropped"
var MessagesPersistedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_persisted_total",
		Help:      "Total number of relayed messages written to the message store, by result.",
	},
	[]string{"result"},
)

// PersistQueueDepth tracks messages waiting in each persistence worker channel.
// Label:
//   - worker_id: numeric worker index
var PersistQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "persist_queue_depth",
		Help:      "Current number of messages pending in each persistence worker channel.",
	},
	[]string{"worker_id"},
)

// PersistDuration measures a single message store write.
var PersistDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "persist_duration_seconds",
		Help:      "Duration of a single message store append.",
		Buckets:   prometheus.DefBuckets,
	},
)
