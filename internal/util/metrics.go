package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CheckoutSessionsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_sessions_created_total",
		Help: "Total number of hosted checkout sessions created",
	})

	CheckoutSessionFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_session_failures_total",
		Help: "Total number of failed checkout session creations",
	})

	FulfillmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fulfillments_total",
		Help: "Total number of fulfillment reconciliations by outcome",
	}, []string{"outcome"})

	FulfillmentLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fulfillment_latency_seconds",
		Help:    "Latency of fulfillment reconciliation",
		Buckets: prometheus.DefBuckets,
	})

	OwnershipGrantsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ownership_grants_total",
		Help: "Total number of agents granted to buyers",
	})

	OrdersRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_recorded_total",
		Help: "Total number of orders recorded at fulfillment",
	})

	AgentsSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fulfillment_agents_skipped_total",
		Help: "Total number of agent ids in session metadata not found in the catalog",
	})

	TokensCreditedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tokens_credited_total",
		Help: "Total tokens credited via token-purchase sessions",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
