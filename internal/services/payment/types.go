package payment

import (
	"digipay/internal/models"
)

type InitiateRequest struct {
	MerchantID    uint
	Amount        int64
	CustomerPhone string
	CustomerEmail string
	CustomerName  string
	Description   string
	Metadata      models.JSON
	WebhookURL    string
}

type InitiateResult struct {
	TransactionID    string `json:"transactionId"`
	Amount           int64  `json:"amount"`
	BaseAmount       int64  `json:"baseAmount"`
	CommissionAmount int64  `json:"commissionAmount"`
	Status           string `json:"status"`
	GatewayReference string `json:"freemopayReference"`
	Message          string `json:"message"`
}

// Callback is the body FreemoPay posts to the payment callback URL.
type Callback struct {
	Status     string `json:"status"`
	Reference  string `json:"reference"`
	ExternalID string `json:"externalId"`
	Message    string `json:"message"`
}

type TransactionList struct {
	Transactions []models.Transaction
	Total        int64
}

type Analytics struct {
	DailyVolume        []DayVolume    `json:"dailyVolume"`
	StatusDistribution []StatusBucket `json:"statusDistribution"`
}

type DayVolume struct {
	Name   string `json:"name"`
	Date   string `json:"date"`
	Volume int64  `json:"volume"`
	Count  int64  `json:"count"`
}

type StatusBucket struct {
	Name   string `json:"name"`
	Value  int64  `json:"value"`
	Status string `json:"status"`
}

// Merchant notification payloads
type successPayload struct {
	TransactionID    string      `json:"transactionId"`
	Amount           int64       `json:"amount"`
	BaseAmount       int64       `json:"baseAmount"`
	CommissionAmount int64       `json:"commissionAmount"`
	Status           string      `json:"status"`
	CustomerPhone    string      `json:"customerPhone"`
	Metadata         models.JSON `json:"metadata"`
}

type failedPayload struct {
	TransactionID string `json:"transactionId"`
	Amount        int64  `json:"amount"`
	Status        string `json:"status"`
	Reason        string `json:"reason"`
}

type Config struct {
	// CallbackURL is where FreemoPay reports payment outcomes.
	CallbackURL string
}
