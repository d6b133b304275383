package response

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	domainerrors "digipay/internal/errors"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   map[string]string
	}{
		{
			name:       "precondition",
			err:        domainerrors.InsufficientBalance(300, 700),
			wantStatus: fiber.StatusUnprocessableEntity,
			wantBody:   map[string]string{"error": "Insufficient balance. Available: 300, Requested: 700", "code": "INSUFFICIENT_BALANCE"},
		},
		{
			name:       "not found",
			err:        domainerrors.ErrMerchantNotFound,
			wantStatus: fiber.StatusNotFound,
			wantBody:   map[string]string{"error": "merchant not found", "code": "MERCHANT_NOT_FOUND"},
		},
		{
			name:       "gateway",
			err:        domainerrors.Gateway("Invalid payer number", nil),
			wantStatus: fiber.StatusBadGateway,
			wantBody:   map[string]string{"error": "Invalid payer number", "code": "GATEWAY_ERROR"},
		},
		{
			name:       "unclassified hides cause",
			err:        errors.New("pq: connection refused"),
			wantStatus: fiber.StatusInternalServerError,
			wantBody:   map[string]string{"error": "internal error", "code": "INTERNAL_ERROR"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error { return FromError(c, tt.err) })

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			raw, _ := io.ReadAll(resp.Body)
			var body map[string]string
			require.NoError(t, json.Unmarshal(raw, &body))
			assert.Equal(t, tt.wantBody, body)
		})
	}
}
