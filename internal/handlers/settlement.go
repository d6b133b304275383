package handlers

import (
	"digipay/internal/repositories"
	"digipay/internal/services/settlement"
	"digipay/internal/utils"
	"digipay/internal/utils/response"
	"digipay/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type SettlementHandler struct {
	settlements settlement.Service
}

func NewSettlementHandler(settlements settlement.Service) *SettlementHandler {
	return &SettlementHandler{settlements: settlements}
}

type settlementRequestInput struct {
	Amount         int64  `json:"amount" validate:"required,gt=0"`
	RecipientPhone string `json:"recipientPhone" validate:"omitempty,msisdn"`
}

// Request handles POST /api/settlements/request
func (h *SettlementHandler) Request(c *fiber.Ctx) error {
	merchantID, err := utils.GetMerchantID(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	var input settlementRequestInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	if v := validation.Struct(input); !v.Valid() {
		return response.ValidationError(c, v.Error(), v.Errors)
	}

	res, err := h.settlements.Request(c.UserContext(), settlement.Request{
		MerchantID:     merchantID,
		Amount:         input.Amount,
		RecipientPhone: input.RecipientPhone,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, res.Message, res)
}

// List handles GET /api/settlements
func (h *SettlementHandler) List(c *fiber.Ctx) error {
	merchantID, err := utils.GetMerchantID(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	pagination := utils.GetPagination(c, 1, defaultPageSize)
	if pagination.Limit > maxPageSize {
		pagination.Limit = maxPageSize
	}

	list, err := h.settlements.List(c.UserContext(), merchantID, repositories.SettlementFilter{
		Status: c.Query("status"),
		Page:   pagination.Page,
		Limit:  pagination.Limit,
	})
	if err != nil {
		return response.FromError(c, err)
	}

	pagination.SetTotal(list.Total)
	return c.JSON(utils.NewPaginatedResponse(list.Settlements, pagination))
}

// Balance handles GET /api/settlements/balance
func (h *SettlementHandler) Balance(c *fiber.Ctx) error {
	merchantID, err := utils.GetMerchantID(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	bal, err := h.settlements.GetBalance(c.UserContext(), merchantID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Balance retrieved", bal)
}
