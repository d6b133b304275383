package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultBaseURL = "https://api-v2.freemopay.com"
	DefaultTimeout = 30 * time.Second

	chargePath   = "/api/v2/payment"
	statusPath   = "/api/v2/payment/"
	withdrawPath = "/api/v2/payment/direct-withdraw"
)

type noopObserver struct{}

func (noopObserver) RecordGatewayCall(string, string, time.Duration) {}

type freemopay struct {
	config     Config
	httpClient *http.Client
	observer   Observer
	now        func() time.Time
}

// NewClient creates a FreemoPay client. In ModeSandbox no request ever
// leaves the process.
func NewClient(config Config, httpClient *http.Client, observer Observer) Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.Mode == "" {
		config.Mode = ModeLive
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}
	if observer == nil {
		observer = noopObserver{}
	}

	return &freemopay{
		config:     config,
		httpClient: httpClient,
		observer:   observer,
		now:        time.Now,
	}
}

func (c *freemopay) Mode() Mode {
	return c.config.Mode
}

// GenerateExternalID returns {prefix}_{unix millis}_{9 random chars}.
func (c *freemopay) GenerateExternalID(prefix string) string {
	if prefix == "" {
		prefix = "payment"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("%s_%d_%s", prefix, c.now().UnixMilli(), suffix)
}

// sandboxReference stands in for a provider reference. Two calls in the
// same millisecond still differ.
func sandboxReference(prefix string, now time.Time) string {
	return fmt.Sprintf("%s_%d_%s", prefix, now.UnixMilli(), strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
}

func (c *freemopay) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	externalID := c.GenerateExternalID("payment")

	if c.config.Mode == ModeSandbox {
		log.Printf("🧪 SANDBOX: bypassing FreemoPay payment for %s", externalID)
		return &ChargeResult{
			Reference:  sandboxReference("test_ref", c.now()),
			ExternalID: externalID,
			Message:    "Test payment initiated successfully",
		}, nil
	}

	payload := chargePayload{
		Payer:       req.Payer,
		Amount:      strconv.FormatInt(req.Amount, 10),
		ExternalID:  externalID,
		Description: req.Description,
		Callback:    req.CallbackURL,
	}

	var resp apiResponse
	if err := c.do(ctx, "charge", http.MethodPost, chargePath, payload, &resp); err != nil {
		return nil, err
	}

	msg := resp.Message
	if msg == "" {
		msg = "Payment initiated successfully"
	}
	return &ChargeResult{Reference: resp.Reference, ExternalID: externalID, Message: msg}, nil
}

func (c *freemopay) CheckStatus(ctx context.Context, reference string) (*StatusResult, error) {
	if c.config.Mode == ModeSandbox {
		return &StatusResult{
			Reference: reference,
			Status:    StatusSuccess,
			Message:   "Test mode - payment successful",
		}, nil
	}

	var resp apiResponse
	if err := c.do(ctx, "status", http.MethodGet, statusPath+reference, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Reference == "" {
		resp.Reference = reference
	}
	return &StatusResult{Reference: resp.Reference, Status: strings.ToUpper(resp.Status), Message: resp.Message}, nil
}

func (c *freemopay) Withdraw(ctx context.Context, req WithdrawRequest) (*WithdrawResult, error) {
	if c.config.Mode == ModeSandbox {
		log.Printf("🧪 SANDBOX: bypassing FreemoPay withdrawal for %s", req.ExternalID)
		return &WithdrawResult{
			Reference:  sandboxReference("test_withdraw", c.now()),
			ExternalID: req.ExternalID,
			Message:    "Test withdrawal initiated successfully",
		}, nil
	}

	payload := withdrawPayload{
		Receiver:   req.Receiver,
		Amount:     strconv.FormatInt(req.Amount, 10),
		ExternalID: req.ExternalID,
		Callback:   req.CallbackURL,
	}

	var resp apiResponse
	if err := c.do(ctx, "withdraw", http.MethodPost, withdrawPath, payload, &resp); err != nil {
		return nil, err
	}

	msg := resp.Message
	if msg == "" {
		msg = "Withdrawal initiated successfully"
	}
	return &WithdrawResult{Reference: resp.Reference, ExternalID: req.ExternalID, Message: msg}, nil
}

// do sends one authenticated request and decodes a 2xx body into out.
func (c *freemopay) do(ctx context.Context, op, method, path string, payload, out interface{}) (err error) {
	start := c.now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		c.observer.RecordGatewayCall(op, outcome, time.Since(start))
	}()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return &GatewayError{Op: op, Message: "failed to marshal payload", Err: err}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return &GatewayError{Op: op, Message: "failed to create request", Err: err}
	}
	req.Header.Set("Authorization", c.authHeader())
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &GatewayError{Op: op, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &GatewayError{Op: op, StatusCode: resp.StatusCode, Message: "failed to read response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &GatewayError{Op: op, StatusCode: resp.StatusCode, Message: upstreamMessage(raw, resp.Status)}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return &GatewayError{Op: op, StatusCode: resp.StatusCode, Message: "failed to decode response", Err: err}
		}
	}
	return nil
}

func (c *freemopay) authHeader() string {
	creds := c.config.AppKey + ":" + c.config.SecretKey
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(creds))
}

// upstreamMessage prefers the provider's "message" field over the raw body.
func upstreamMessage(raw []byte, fallback string) string {
	var body apiResponse
	if err := json.Unmarshal(raw, &body); err == nil && body.Message != "" {
		return body.Message
	}
	if s := strings.TrimSpace(string(raw)); s != "" {
		return s
	}
	return fallback
}
