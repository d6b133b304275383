package gateway

import (
	"context"
	"time"
)

// Client is the mobile-money provider as seen by the orchestrators.
type Client interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	CheckStatus(ctx context.Context, reference string) (*StatusResult, error)
	Withdraw(ctx context.Context, req WithdrawRequest) (*WithdrawResult, error)
	GenerateExternalID(prefix string) string
	Mode() Mode
}

// Observer receives one call per upstream request.
type Observer interface {
	RecordGatewayCall(op, outcome string, d time.Duration)
}
