package settlement

import (
	"time"

	"digipay/internal/models"
)

const (
	DefaultLinkLimit     = 100
	DefaultMinimumAmount = 10000

	// staleBatch caps how many pending settlements one sweep re-enqueues.
	staleBatch = 200
)

type Config struct {
	// CallbackURL is the gateway callback base; withdrawals report to
	// CallbackURL + "/settlement".
	CallbackURL   string
	MinimumAmount int64
	LinkLimit     int
}

type Request struct {
	MerchantID     uint
	Amount         int64
	RecipientPhone string
}

type RequestResult struct {
	SettlementID   string `json:"settlementId"`
	Amount         int64  `json:"amount"`
	RecipientPhone string `json:"recipientPhone"`
	Status         string `json:"status"`
	Message        string `json:"message"`
}

// Callback is the body FreemoPay posts when a withdrawal settles.
type Callback struct {
	Status     string `json:"status"`
	Reference  string `json:"reference"`
	ExternalID string `json:"externalId"`
	Message    string `json:"message"`
}

type List struct {
	Settlements []models.Settlement
	Total       int64
}

type Balance struct {
	Balance             int64  `json:"balance"`
	TotalRevenue        int64  `json:"totalRevenue"`
	TotalCommissionPaid int64  `json:"totalCommissionPaid"`
	Currency            string `json:"currency"`
}

type completedPayload struct {
	SettlementID      string    `json:"settlementId"`
	Amount            int64     `json:"amount"`
	Currency          string    `json:"currency"`
	Status            string    `json:"status"`
	RecipientPhone    string    `json:"recipientPhone"`
	WithdrawReference string    `json:"withdrawReference,omitempty"`
	Transactions      []string  `json:"transactions"`
	CompletedAt       time.Time `json:"completedAt"`
}
