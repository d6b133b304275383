package gateway

import "time"

// Mode selects between the live FreemoPay API and the offline sandbox.
type Mode string

const (
	ModeLive    Mode = "live"
	ModeSandbox Mode = "sandbox"
)

// Upstream payment statuses
const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
	StatusPending = "PENDING"
)

type Config struct {
	BaseURL   string
	AppKey    string
	SecretKey string
	Mode      Mode
	Timeout   time.Duration
}

type ChargeRequest struct {
	Payer       string
	Amount      int64
	Description string
	CallbackURL string
}

type ChargeResult struct {
	Reference  string `json:"reference"`
	ExternalID string `json:"externalId"`
	Message    string `json:"message"`
}

type StatusResult struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

type WithdrawRequest struct {
	Receiver    string
	Amount      int64
	ExternalID  string
	CallbackURL string
}

type WithdrawResult struct {
	Reference  string `json:"reference"`
	ExternalID string `json:"externalId"`
	Message    string `json:"message"`
}

// Wire formats
type chargePayload struct {
	Payer       string `json:"payer"`
	Amount      string `json:"amount"`
	ExternalID  string `json:"externalId"`
	Description string `json:"description"`
	Callback    string `json:"callback"`
}

type withdrawPayload struct {
	Receiver   string `json:"receiver"`
	Amount     string `json:"amount"`
	ExternalID string `json:"externalId"`
	Callback   string `json:"callback"`
}

type apiResponse struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}
