// Package metrics defines the Prometheus collectors exported by the AI helper backend.
// Collectors register with the default registry on package load through promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ai_helper"

// LoginAttemptsTotal counts login attempts.
// Label:
//   - result: "success", "user_not_found", "account_disabled", "bad_credentials", "invalid", "error"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts, labelled by result.",
	},
	[]string{"result"},
)

// ChatCompletionsTotal counts chat proxy calls.
// Label:
//   - outcome: "success" (upstream answered), "degraded" (simulated reply), "error"
var ChatCompletionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chat_completions_total",
		Help:      "Total number of chat completion requests, labelled by outcome.",
	},
	[]string{"outcome"},
)

// UpstreamRequestDuration measures calls to the core chat API.
// Label:
//   - result: "ok" or "failed"
var UpstreamRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upstream_request_duration_seconds",
		Help:      "Duration of chat completion calls to the core API.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"result"},
)

// HTTPRequestsTotal counts served HTTP requests.
// Labels:
//   - method: HTTP method
//   - route:  chi route pattern (e.g. "/api/v1/admin/users/{id}")
//   - status: response status code
var HTTPRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests, labelled by method, route and status.",
	},
	[]string{"method", "route", "status"},
)

// HTTPRequestDuration measures request latency per route.
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency, labelled by method and route.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route"},
)
