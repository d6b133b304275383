package handlers

import (
	"context"
	"encoding/json"
	"log"

	domainerrors "digipay/internal/errors"
	"digipay/internal/models"
	"digipay/internal/services/payment"
	"digipay/internal/services/settlement"
	"digipay/internal/services/webhook"
	"digipay/internal/utils"
	"digipay/internal/utils/response"
	"digipay/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// HeaderGatewaySignature carries the hex HMAC-SHA256 of the raw callback body.
const HeaderGatewaySignature = "X-Freemopay-Signature"

// GatewayWebhookHandler receives FreemoPay callbacks. When secret is set
// every body must carry a valid signature; requireSignature rejects all
// callbacks when no secret is configured.
type GatewayWebhookHandler struct {
	payments         payment.Service
	settlements      settlement.Service
	secret           string
	requireSignature bool
}

func NewGatewayWebhookHandler(payments payment.Service, settlements settlement.Service, secret string, requireSignature bool) *GatewayWebhookHandler {
	return &GatewayWebhookHandler{
		payments:         payments,
		settlements:      settlements,
		secret:           secret,
		requireSignature: requireSignature,
	}
}

func (h *GatewayWebhookHandler) verify(c *fiber.Ctx) error {
	if h.secret == "" {
		if h.requireSignature {
			log.Println("❌ Gateway webhook rejected: no GATEWAY_WEBHOOK_SECRET configured")
			return domainerrors.ErrInvalidSignature
		}
		return nil
	}
	if !webhook.Verify(c.Body(), c.Get(HeaderGatewaySignature), h.secret) {
		log.Printf("⚠️ Gateway webhook with invalid signature from %s", c.IP())
		return domainerrors.ErrInvalidSignature
	}
	return nil
}

// PaymentCallback handles POST /api/webhooks/freemopay
func (h *GatewayWebhookHandler) PaymentCallback(c *fiber.Ctx) error {
	if err := h.verify(c); err != nil {
		return response.Error(c, fiber.StatusUnauthorized, err.Error())
	}

	var cb payment.Callback
	if err := json.Unmarshal(c.Body(), &cb); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	log.Printf("📥 FreemoPay webhook received: status=%s reference=%s externalId=%s", cb.Status, cb.Reference, cb.ExternalID)

	if _, err := h.payments.HandleCallback(c.UserContext(), cb); err != nil {
		log.Printf("❌ Webhook processing error: %v", err)
		return response.FromError(c, err)
	}
	return response.Success(c, "Webhook processed successfully", nil)
}

// SettlementCallback handles POST /api/webhooks/freemopay/settlement
func (h *GatewayWebhookHandler) SettlementCallback(c *fiber.Ctx) error {
	if err := h.verify(c); err != nil {
		return response.Error(c, fiber.StatusUnauthorized, err.Error())
	}

	var cb settlement.Callback
	if err := json.Unmarshal(c.Body(), &cb); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	log.Printf("📥 FreemoPay withdrawal webhook received: status=%s reference=%s externalId=%s", cb.Status, cb.Reference, cb.ExternalID)

	if _, err := h.settlements.HandleWithdrawCallback(c.UserContext(), cb); err != nil {
		log.Printf("❌ Withdrawal webhook processing error: %v", err)
		return response.FromError(c, err)
	}
	return response.Success(c, "Webhook processed successfully", nil)
}

// Subscriber registers merchant webhook endpoints.
type Subscriber interface {
	Subscribe(ctx context.Context, merchantID uint, url string, events []string) (*models.WebhookSubscription, error)
}

type SubscriptionHandler struct {
	subscriber Subscriber
}

func NewSubscriptionHandler(subscriber Subscriber) *SubscriptionHandler {
	return &SubscriptionHandler{subscriber: subscriber}
}

type subscribeInput struct {
	URL    string   `json:"url" validate:"required,http_url"`
	Events []string `json:"events" validate:"required,min=1,dive,oneof=payment.success payment.failed refund.processed settlement.completed"`
}

// Create handles POST /api/webhooks/subscriptions. The signing secret is
// only ever returned here.
func (h *SubscriptionHandler) Create(c *fiber.Ctx) error {
	merchantID, err := utils.GetMerchantID(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	var input subscribeInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	if v := validation.Struct(input); !v.Valid() {
		return response.ValidationError(c, v.Error(), v.Errors)
	}

	sub, err := h.subscriber.Subscribe(c.UserContext(), merchantID, input.URL, input.Events)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Created(c, "Webhook subscription created", fiber.Map{
		"id":     sub.ID,
		"url":    sub.URL,
		"events": sub.Events,
		"secret": sub.Secret,
	})
}
