package utils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

const (
	localMerchantID = "merchantID"
	localAPIKeyID   = "apiKeyID"
)

// SetMerchant records the authenticated merchant on the request.
func SetMerchant(c *fiber.Ctx, merchantID, apiKeyID uint) {
	c.Locals(localMerchantID, merchantID)
	c.Locals(localAPIKeyID, apiKeyID)
}

// GetMerchantID extracts the authenticated merchant from the Fiber context.
// It returns an error if the auth middleware did not run.
func GetMerchantID(c *fiber.Ctx) (uint, error) {
	v := c.Locals(localMerchantID)
	if v == nil {
		return 0, errors.New("merchant not found in context")
	}

	id, ok := v.(uint)
	if !ok || id == 0 {
		return 0, errors.New("invalid merchant in context")
	}
	return id, nil
}
