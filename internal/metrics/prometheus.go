package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	paymentsInitiated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "digipay_payments_initiated_total",
		Help: "Payments initiated, by fee payer",
	}, []string{"fee_payer"})

	paymentVolume = promauto.NewCounter(prometheus.CounterOpts{
		Name: "digipay_payment_volume_xaf_total",
		Help: "Total amount charged to customers at initiation",
	})

	transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "digipay_state_transitions_total",
		Help: "Applied state transitions",
	}, []string{"entity", "from", "to"})

	settlements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "digipay_settlements_total",
		Help: "Settlement outcomes",
	}, []string{"outcome"})

	settledAmount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "digipay_settlement_amount_xaf_total",
		Help: "Settlement amounts by outcome",
	}, []string{"outcome"})

	gatewayLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "digipay_gateway_request_duration_seconds",
		Help:    "Gateway call latency",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"op", "outcome"})

	webhookDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "digipay_webhook_deliveries_total",
		Help: "Outbound merchant webhook attempts",
	}, []string{"event", "success"})
)

// PrometheusCollector writes to the default registry.
type PrometheusCollector struct{}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{}
}

func (PrometheusCollector) RecordPaymentInitiated(feePayer string, totalAmount int64) {
	paymentsInitiated.WithLabelValues(feePayer).Inc()
	paymentVolume.Add(float64(totalAmount))
}

func (PrometheusCollector) RecordTransition(entity, from, to string) {
	transitions.WithLabelValues(entity, from, to).Inc()
}

func (PrometheusCollector) RecordSettlement(outcome string, amount int64) {
	settlements.WithLabelValues(outcome).Inc()
	settledAmount.WithLabelValues(outcome).Add(float64(amount))
}

func (PrometheusCollector) RecordGatewayCall(op, outcome string, d time.Duration) {
	gatewayLatency.WithLabelValues(op, outcome).Observe(d.Seconds())
}

func (PrometheusCollector) RecordWebhookDelivery(event string, success bool) {
	webhookDeliveries.WithLabelValues(event, strconv.FormatBool(success)).Inc()
}
