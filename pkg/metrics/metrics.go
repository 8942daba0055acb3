// Package metrics exposes the Prometheus instruments for the settlement
// core. Counters are registered with the default registry and served from the
// /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PaymentCharges counts charge attempts by method and outcome status.
	PaymentCharges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lamsa",
		Subsystem: "payments",
		Name:      "charges_total",
		Help:      "Charge attempts by payment method and resulting status.",
	}, []string{"method", "status"})

	// PaymentRefunds counts refund attempts by outcome.
	PaymentRefunds = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lamsa",
		Subsystem: "payments",
		Name:      "refunds_total",
		Help:      "Refund attempts by resulting status.",
	}, []string{"status"})

	// WebhookEvents counts ingested webhook events by provider and outcome.
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lamsa",
		Subsystem: "webhooks",
		Name:      "events_total",
		Help:      "Webhook events by provider and processing outcome.",
	}, []string{"provider", "outcome"})

	// GatewayRequests counts outbound gateway calls by provider, operation
	// and result.
	GatewayRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lamsa",
		Subsystem: "gateway",
		Name:      "requests_total",
		Help:      "Outbound gateway requests by provider, operation and result.",
	}, []string{"provider", "operation", "result"})
)
