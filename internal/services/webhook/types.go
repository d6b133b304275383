package webhook

import (
	"time"
)

const (
	HeaderSignature = "X-DigiPay-Signature"
	HeaderEvent     = "X-DigiPay-Event"

	DefaultTimeout        = 10 * time.Second
	DefaultRetryBaseDelay = 5 * time.Minute
	DefaultMaxAttempts    = 5
	DefaultRetryInterval  = 30 * time.Second
	DefaultRetryBatch     = 50

	maxResponseBody = 64 << 10
)

type Config struct {
	// DefaultSecret signs deliveries to an explicit URL when the merchant
	// has no subscription secret.
	DefaultSecret  string
	Timeout        time.Duration
	RetryBaseDelay time.Duration
	MaxAttempts    int
	RetryInterval  time.Duration
	RetryBatch     int
}

// Envelope is the signed body of every outbound notification.
type Envelope struct {
	Event     string      `json:"event"`
	Timestamp string      `json:"timestamp"`
	Data      interface{} `json:"data"`
}
