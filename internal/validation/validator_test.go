package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type paymentInput struct {
	Amount        int64    `json:"amount" validate:"required,gte=100"`
	CustomerPhone string   `json:"customerPhone" validate:"required,msisdn"`
	CustomerEmail string   `json:"customerEmail" validate:"omitempty,email"`
	WebhookURL    string   `json:"webhookUrl" validate:"omitempty,http_url"`
	Events        []string `json:"events" validate:"omitempty,dive,oneof=payment.success payment.failed"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name  string
		input paymentInput
		want  map[string]string
	}{
		{
			name:  "valid",
			input: paymentInput{Amount: 1000, CustomerPhone: "+237690000000"},
			want:  map[string]string{},
		},
		{
			name:  "missing fields",
			input: paymentInput{},
			want: map[string]string{
				"amount":        "is required",
				"customerPhone": "is required",
			},
		},
		{
			name: "bad formats",
			input: paymentInput{
				Amount:        50,
				CustomerPhone: "69-00",
				CustomerEmail: "nope",
				WebhookURL:    "not a url",
				Events:        []string{"payment.success", "refund.processed"},
			},
			want: map[string]string{
				"amount":        "must be at least 100",
				"customerPhone": "must be a valid phone number",
				"customerEmail": "must be a valid email address",
				"webhookUrl":    "must be a valid URL",
				"events[1]":     "must be one of: payment.success payment.failed",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Struct(tt.input)
			assert.Equal(t, tt.want, v.Errors)
			assert.Equal(t, len(tt.want) == 0, v.Valid())
		})
	}
}

func TestValidator_Check(t *testing.T) {
	v := New()
	v.Check(true, "amount", "fine")
	v.Check(false, "phone", "is required")
	v.Check(false, "amount", "must be positive")
	v.Check(false, "amount", "ignored, first error wins")

	assert.False(t, v.Valid())
	assert.Equal(t, "amount must be positive; phone is required", v.Error())
}
