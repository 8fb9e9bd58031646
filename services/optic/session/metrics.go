// Copyright (C) 2026 Halide Optics (engineering@halide-optics.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package session

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// linkMetrics instruments the remote command link.
type linkMetrics struct {
	requests  *prometheus.CounterVec
	failures  *prometheus.CounterVec
	latency   prometheus.Histogram
	cacheHits prometheus.Counter
}

func newLinkMetrics(reg prometheus.Registerer) *linkMetrics {
	m := &linkMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zlink",
			Subsystem: "link",
			Name:      "requests_total",
			Help:      "Command link requests by item name.",
		}, []string{"item"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zlink",
			Subsystem: "link",
			Name:      "request_failures_total",
			Help:      "Failed command link requests by item name.",
		}, []string{"item"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "zlink",
			Subsystem: "link",
			Name:      "request_duration_seconds",
			Help:      "Command link round-trip latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "zlink",
			Subsystem: "link",
			Name:      "surface_cache_hits_total",
			Help:      "Surface reads served from the read-through cache.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.failures, m.latency, m.cacheHits)
	}
	return m
}

func (m *linkMetrics) observe(item string, start time.Time, err error) {
	m.requests.WithLabelValues(item).Inc()
	m.latency.Observe(time.Since(start).Seconds())
	if err != nil {
		m.failures.WithLabelValues(item).Inc()
	}
}
