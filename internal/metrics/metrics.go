// Package metrics defines and registers all custom Prometheus metrics for the
// SIE API gateway. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation (promauto) and exposed by the /metrics route.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sie_api"

// ── HTTP metrics ──────────────────────────────────────────────────────────────

// HTTPRequestsTotal counts served requests.
// Labels:
//   - method: HTTP method
//   - route: the registered route pattern (e.g. "/whatsapp/instances/:id"), never the raw path
//   - status: response status code
var HTTPRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests, by method, route and status.",
	},
	[]string{"method", "route", "status"},
)

// HTTPRequestDuration measures handler latency per route.
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests, by method and route.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route"},
)

// ── Identity metrics ──────────────────────────────────────────────────────────

// AuthOperationsTotal counts credential lifecycle operations by outcome.
// Labels:
//   - operation: "register", "confirm", "login", "forgot_password", "reset_password"
//   - result: "ok" or a short failure reason (e.g. "invalid_credentials")
var AuthOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_operations_total",
		Help:      "Total number of credential lifecycle operations, by operation and result.",
	},
	[]string{"operation", "result"},
)

// EmailsSentTotal counts outbound transactional emails.
// Labels:
//   - kind: "confirmation" or "password_reset"
//   - result: "ok" or "error"
var EmailsSentTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "emails_sent_total",
		Help:      "Total number of transactional emails attempted, by kind and result.",
	},
	[]string{"kind", "result"},
)

// ── Instance metrics ──────────────────────────────────────────────────────────

// InstancesCreatedTotal counts newly created instances.
// Label:
//   - type: "whatsapp-web.js" or "baileys"
var InstancesCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "instances_created_total",
		Help:      "Total number of instances created, by backend type.",
	},
	[]string{"type"},
)

// ── Upstream metrics ──────────────────────────────────────────────────────────

// UpstreamRequestsTotal counts calls to the remote messaging service.
// Labels:
//   - endpoint: remote operation (e.g. "send-message", "status")
//   - outcome: "ok", "rejected" (non-success response) or "unreachable"
var UpstreamRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_requests_total",
		Help:      "Total number of calls to the messaging service, by endpoint and outcome.",
	},
	[]string{"endpoint", "outcome"},
)

// UpstreamRequestDuration measures round-trip latency to the messaging service.
var UpstreamRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upstream_request_duration_seconds",
		Help:      "Duration of calls to the messaging service.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"endpoint"},
)
