// Package metrics records payment, settlement, gateway and webhook
// activity. Services depend on Collector; NoopCollector is the default.
package metrics

import "time"

type Collector interface {
	RecordPaymentInitiated(feePayer string, totalAmount int64)
	RecordTransition(entity, from, to string)
	RecordSettlement(outcome string, amount int64)
	RecordGatewayCall(op, outcome string, d time.Duration)
	RecordWebhookDelivery(event string, success bool)
}

// NoopCollector is a no-op implementation of Collector
type NoopCollector struct{}

func (NoopCollector) RecordPaymentInitiated(string, int64)            {}
func (NoopCollector) RecordTransition(string, string, string)         {}
func (NoopCollector) RecordSettlement(string, int64)                  {}
func (NoopCollector) RecordGatewayCall(string, string, time.Duration) {}
func (NoopCollector) RecordWebhookDelivery(string, bool)              {}
