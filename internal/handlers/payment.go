package handlers

import (
	"strings"

	"digipay/internal/models"
	"digipay/internal/repositories"
	"digipay/internal/services/payment"
	"digipay/internal/utils"
	"digipay/internal/utils/response"
	"digipay/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type PaymentHandler struct {
	payments payment.Service
}

func NewPaymentHandler(payments payment.Service) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

type initiatePaymentInput struct {
	Amount        int64                  `json:"amount" validate:"required,gt=0"`
	CustomerPhone string                 `json:"customerPhone" validate:"required,msisdn"`
	CustomerEmail string                 `json:"customerEmail" validate:"omitempty,email"`
	CustomerName  string                 `json:"customerName" validate:"omitempty,max=100"`
	Description   string                 `json:"description" validate:"omitempty,max=500"`
	Metadata      map[string]interface{} `json:"metadata"`
	WebhookURL    string                 `json:"webhookUrl" validate:"omitempty,http_url"`
}

// Initiate handles POST /api/payments/initiate
func (h *PaymentHandler) Initiate(c *fiber.Ctx) error {
	merchantID, err := utils.GetMerchantID(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	var input initiatePaymentInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	input.CustomerPhone = strings.TrimSpace(input.CustomerPhone)
	if v := validation.Struct(input); !v.Valid() {
		return response.ValidationError(c, v.Error(), v.Errors)
	}

	res, err := h.payments.Initiate(c.UserContext(), payment.InitiateRequest{
		MerchantID:    merchantID,
		Amount:        input.Amount,
		CustomerPhone: input.CustomerPhone,
		CustomerEmail: input.CustomerEmail,
		CustomerName:  input.CustomerName,
		Description:   input.Description,
		Metadata:      models.JSON(input.Metadata),
		WebhookURL:    input.WebhookURL,
	})
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Created(c, "Payment initiated successfully", res)
}

// ListTransactions handles GET /api/payments/transactions
func (h *PaymentHandler) ListTransactions(c *fiber.Ctx) error {
	merchantID, err := utils.GetMerchantID(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	pagination := utils.GetPagination(c, 1, defaultPageSize)
	if pagination.Limit > maxPageSize {
		pagination.Limit = maxPageSize
	}

	list, err := h.payments.ListTransactions(c.UserContext(), merchantID, repositories.TransactionFilter{
		Status: c.Query("status"),
		Search: c.Query("search"),
		Page:   pagination.Page,
		Limit:  pagination.Limit,
	})
	if err != nil {
		return response.FromError(c, err)
	}

	pagination.SetTotal(list.Total)
	return c.JSON(utils.NewPaginatedResponse(list.Transactions, pagination))
}

// GetTransaction handles GET /api/payments/transactions/:transactionId
func (h *PaymentHandler) GetTransaction(c *fiber.Ctx) error {
	merchantID, err := utils.GetMerchantID(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	tx, err := h.payments.GetTransaction(c.UserContext(), merchantID, c.Params("transactionId"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Transaction retrieved", tx)
}

// Analytics handles GET /api/payments/analytics
func (h *PaymentHandler) Analytics(c *fiber.Ctx) error {
	merchantID, err := utils.GetMerchantID(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	stats, err := h.payments.Analytics(c.UserContext(), merchantID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Analytics retrieved", stats)
}
