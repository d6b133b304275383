package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetBoolEnv(t *testing.T) {
	tests := []struct {
		name  string
		value string
		def   bool
		want  bool
	}{
		{"true literal", "true", false, true},
		{"one", "1", false, true},
		{"no", "no", true, false},
		{"garbage keeps default", "maybe", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DIGIPAY_TEST_BOOL", tt.value)
			assert.Equal(t, tt.want, GetBoolEnv("DIGIPAY_TEST_BOOL", tt.def))
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PAYMENT_TEST_MODE", "true")
	t.Setenv("WEBHOOK_TIMEOUT", "3s")
	t.Setenv("SETTLEMENT_STALE_AFTER", "10m")

	s := Load()

	assert.True(t, s.Gateway.TestMode)
	assert.Equal(t, 3*time.Second, s.Webhook.Timeout)
	assert.Equal(t, int64(10000), s.Settlement.MinimumAmount)
	assert.Equal(t, 100, s.Settlement.LinkLimit)
	assert.Equal(t, time.Minute, s.Settlement.SweepInterval)
	assert.Equal(t, 10*time.Minute, s.Settlement.StaleAfter)
	assert.Equal(t, "http://localhost:5000/api/webhooks/freemopay", s.Gateway.CallbackURL)
}
