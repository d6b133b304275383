package response

import (
	"log"

	domainerrors "digipay/internal/errors"

	"github.com/gofiber/fiber/v2"
)

func Success(c *fiber.Ctx, message string, data interface{}) error {
	return c.JSON(fiber.Map{
		"message": message,
		"data":    data,
	})
}

func Created(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": message,
		"data":    data,
	})
}

func Error(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": message,
	})
}

func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, message)
}

func ServerError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusInternalServerError, message)
}

func Unauthorized(c *fiber.Ctx) error {
	return Error(c, fiber.StatusUnauthorized, "Unauthorized")
}

func ValidationError(c *fiber.Ctx, message string, fields map[string]string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":  message,
		"code":   "VALIDATION_ERROR",
		"fields": fields,
	})
}

// FromError writes err using its DomainError classification. Internal
// errors are logged and their cause is never sent to the client.
func FromError(c *fiber.Ctx, err error) error {
	de := domainerrors.As(err)
	if de.Kind == domainerrors.KindInternal {
		log.Printf("❌ %s %s: %v", c.Method(), c.Path(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": domainerrors.ErrInternal.Message,
			"code":  de.Code,
		})
	}
	return c.Status(de.HTTPStatus()).JSON(fiber.Map{
		"error": de.Message,
		"code":  de.Code,
	})
}
