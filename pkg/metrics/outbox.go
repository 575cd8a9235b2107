package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Delivery outcomes for outbox rows.
const (
	DeliveryPublished = "published"
	DeliveryRetried   = "retried"
	DeliveryDead      = "dead"
)

// OutboxMetrics covers the publisher: per-row outcomes, how long rows wait
// before reaching the broker and the size of the undelivered backlog.
type OutboxMetrics struct {
	deliveries *prometheus.CounterVec
	lag        *prometheus.HistogramVec
	backlog    *prometheus.GaugeVec
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return nil
	}
	m := &OutboxMetrics{
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "furniture",
			Subsystem: "outbox",
			Name:      "deliveries_total",
			Help:      "Outbox publish attempts by event type and outcome.",
		}, []string{"event_type", "outcome"}),
		lag: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "furniture",
			Subsystem: "outbox",
			Name:      "delivery_lag_seconds",
			Help:      "Time from commit to successful publish.",
			Buckets:   []float64{.1, .5, 1, 5, 30, 120, 600, 3600},
		}, []string{"event_type"}),
		backlog: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "furniture",
			Subsystem: "outbox",
			Name:      "backlog_rows",
			Help:      "Undelivered outbox rows by state.",
		}, []string{"state"}),
	}
	reg.MustRegister(m.deliveries, m.lag, m.backlog)
	return m
}

func (m *OutboxMetrics) Delivered(eventType, outcome string) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(eventType, outcome).Inc()
}

func (m *OutboxMetrics) ObserveLag(eventType string, lag time.Duration) {
	if m == nil {
		return
	}
	m.lag.WithLabelValues(eventType).Observe(lag.Seconds())
}

func (m *OutboxMetrics) SetBacklog(pending, dead int64) {
	if m == nil {
		return
	}
	m.backlog.WithLabelValues("pending").Set(float64(pending))
	m.backlog.WithLabelValues("dead").Set(float64(dead))
}
