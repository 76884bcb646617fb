/*
 * Copyright (c) 2024 Oracle and/or its affiliates.
 * Licensed under the Universal Permissive License v 1.0 as shown at
 * https://oss.oracle.com/licenses/upl.
 */

package meridian

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for a single Session. Each
// Session owns a private registry rather than registering against the
// global default registry, since more than one Session can be alive in
// the same process.
type Metrics struct {
	registry *prometheus.Registry

	PendingAcks      prometheus.Gauge
	ActiveKeyGroups  prometheus.Gauge
	ActiveFilterGroups prometheus.Gauge
	PagesFetched     prometheus.Counter
	EventsDispatched prometheus.Counter
	SubscriptionRequests prometheus.Counter
}

// newMetrics creates and registers the metrics for a session identified by
// sessionID.
func newMetrics(sessionID string) *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	labels := prometheus.Labels{"session_id": sessionID}

	return &Metrics{
		registry: registry,
		PendingAcks: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   "meridian",
			Subsystem:   "events",
			Name:        "pending_acks",
			Help:        "Number of subscribe/unsubscribe requests awaiting an ack.",
			ConstLabels: labels,
		}),
		ActiveKeyGroups: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   "meridian",
			Subsystem:   "events",
			Name:        "active_key_groups",
			Help:        "Number of active key-targeted listener groups.",
			ConstLabels: labels,
		}),
		ActiveFilterGroups: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   "meridian",
			Subsystem:   "events",
			Name:        "active_filter_groups",
			Help:        "Number of active filter-targeted listener groups.",
			ConstLabels: labels,
		}),
		PagesFetched: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "meridian",
			Subsystem:   "paging",
			Name:        "pages_fetched_total",
			Help:        "Number of server-stream pages fetched by page advancers.",
			ConstLabels: labels,
		}),
		EventsDispatched: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "meridian",
			Subsystem:   "events",
			Name:        "dispatched_total",
			Help:        "Number of MapEvents dispatched to listener groups.",
			ConstLabels: labels,
		}),
		SubscriptionRequests: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "meridian",
			Subsystem:   "events",
			Name:        "subscription_requests_total",
			Help:        "Number of SUBSCRIBE/UNSUBSCRIBE requests written to the events duplex.",
			ConstLabels: labels,
		}),
	}
}

// Registry returns the private Prometheus registry for this session's
// metrics, suitable for exposing via an HTTP handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
