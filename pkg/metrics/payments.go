package metrics

import "github.com/prometheus/client_golang/prometheus"

// Reconciliation outcomes.
const (
	OutcomeCreated   = "created"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
	OutcomeError     = "error"
)

// PaymentMetrics tracks gateway webhook handling and order reconciliation.
type PaymentMetrics struct {
	webhooks       *prometheus.CounterVec
	reconciliation *prometheus.CounterVec
}

func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "furniture",
		Name:      "payment_webhooks_total",
		Help:      "Verified payment gateway webhook events, by type.",
	}, []string{"event_type"})
	reconciliation := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "furniture",
		Name:      "payment_reconciliations_total",
		Help:      "Payment session reconciliation attempts, by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(webhooks, reconciliation)
	return &PaymentMetrics{webhooks: webhooks, reconciliation: reconciliation}
}

func (p *PaymentMetrics) IncWebhook(eventType string) {
	if p == nil || p.webhooks == nil {
		return
	}
	p.webhooks.WithLabelValues(eventType).Inc()
}

func (p *PaymentMetrics) IncReconciliation(outcome string) {
	if p == nil || p.reconciliation == nil {
		return
	}
	p.reconciliation.WithLabelValues(outcome).Inc()
}
