// Package middleware provides HTTP middleware components for the application.
// Merchant routes authenticate with an API key; the merchant id is stored on
// the request for handlers to read with utils.GetMerchantID.
package middleware

import (
	"errors"
	"log"
	"time"

	"digipay/internal/repositories"
	"digipay/internal/utils"

	"github.com/gofiber/fiber/v2"
)

const HeaderAPIKey = "X-API-Key"

// APIKeyAuth validates dpk_<prefix>_<secret> keys against their stored
// bcrypt hash.
type APIKeyAuth struct {
	keys repositories.APIKeyRepository
	now  func() time.Time
}

func NewAPIKeyAuth(keys repositories.APIKeyRepository) *APIKeyAuth {
	if keys == nil {
		panic("api key repository is required")
	}
	return &APIKeyAuth{keys: keys, now: time.Now}
}

// Handler checks for:
// - presence of the X-API-Key header
// - an active key with a matching prefix
// - expiry and the secret hash
func (m *APIKeyAuth) Handler(c *fiber.Ctx) error {
	raw := c.Get(HeaderAPIKey)
	if raw == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing api key"})
	}

	prefix, secret, err := utils.ParseAPIKey(raw)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid api key"})
	}

	key, err := m.keys.GetByPrefix(c.UserContext(), prefix)
	if err != nil {
		if !errors.Is(err, repositories.ErrAPIKeyNotFound) {
			log.Printf("⚠️ API key lookup failed for prefix %s: %v", prefix, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
		}
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid api key"})
	}

	now := m.now()
	if key.ExpiresAt != nil && now.After(*key.ExpiresAt) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "api key expired"})
	}
	if !utils.CompareAPISecret(key.SecretHash, secret) {
		log.Printf("⚠️ API key secret mismatch for prefix %s", prefix)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid api key"})
	}

	if err := m.keys.TouchLastUsed(c.UserContext(), key.ID, now); err != nil {
		log.Printf("⚠️ Failed to update last_used_at for api key %d: %v", key.ID, err)
	}

	utils.SetMerchant(c, key.MerchantID, key.ID)
	return c.Next()
}
