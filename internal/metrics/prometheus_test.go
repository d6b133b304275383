package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusCollector_Counts(t *testing.T) {
	c := NewPrometheusCollector()

	before := testutil.ToFloat64(settlements.WithLabelValues("failed"))
	c.RecordSettlement("failed", 15000)
	c.RecordSettlement("failed", 5000)

	assert.Equal(t, before+2, testutil.ToFloat64(settlements.WithLabelValues("failed")))

	beforeHook := testutil.ToFloat64(webhookDeliveries.WithLabelValues("payment.success", "true"))
	c.RecordWebhookDelivery("payment.success", true)
	assert.Equal(t, beforeHook+1, testutil.ToFloat64(webhookDeliveries.WithLabelValues("payment.success", "true")))
}

func TestCollectorImplementations(t *testing.T) {
	var _ Collector = NoopCollector{}
	var _ Collector = NewPrometheusCollector()
}
