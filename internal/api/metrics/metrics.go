// Package metrics defines the custom Prometheus metrics of the classifieds
// API. Request-level metrics (latency, status codes) come from the
// echoprometheus middleware; the counters here track domain outcomes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "classifieds"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// LoginsTotal counts login attempts.
// Label:
//   - result: "success" or "failure"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// TokenValidationsTotal counts bearer token checks done by the auth middleware.
// Label:
//   - result: "valid", "expired", "invalid" or "missing"
var TokenValidationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_validations_total",
		Help:      "Total number of bearer token validations, by result.",
	},
	[]string{"result"},
)

// RegistrationsTotal counts accounts created through self-service registration.
var RegistrationsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of registered accounts.",
	},
)

// ── Listing metrics ───────────────────────────────────────────────────────────

// AdvertisementsTotal counts successful advertisement mutations.
// Label:
//   - operation: "created", "replayed", "updated" or "deleted"
var AdvertisementsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "advertisements_total",
		Help:      "Total number of advertisement mutations, by operation.",
	},
	[]string{"operation"},
)

// ── Access metrics ────────────────────────────────────────────────────────────

// AccessDeniedTotal counts requests rejected with 401 or 403.
// Labels:
//   - route: the matched route pattern (e.g. "/v1/advertisements/:id")
//   - reason: "unauthorized" or "forbidden"
var AccessDeniedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "access_denied_total",
		Help:      "Total number of requests denied, by route and reason.",
	},
	[]string{"route", "reason"},
)
