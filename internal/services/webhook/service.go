package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	domainerrors "digipay/internal/errors"
	"digipay/internal/models"
	"digipay/internal/repositories"
	"digipay/internal/utils"
)

type noopObserver struct{}

func (noopObserver) RecordWebhookDelivery(string, bool) {}

type Service struct {
	repo       Repository
	httpClient *http.Client
	config     Config
	observer   Observer
	now        func() time.Time
}

// NewService creates a new webhook notifier. *Service implements Notifier.
func NewService(repo Repository, config Config, httpClient *http.Client, observer Observer) *Service {
	if repo == nil {
		panic("repo is required")
	}

	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.RetryBaseDelay == 0 {
		config.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if config.MaxAttempts == 0 {
		config.MaxAttempts = DefaultMaxAttempts
	}
	if config.RetryInterval == 0 {
		config.RetryInterval = DefaultRetryInterval
	}
	if config.RetryBatch == 0 {
		config.RetryBatch = DefaultRetryBatch
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}
	if observer == nil {
		observer = noopObserver{}
	}

	return &Service{
		repo:       repo,
		httpClient: httpClient,
		config:     config,
		observer:   observer,
		now:        time.Now,
	}
}

// target is the resolved destination of one notification.
type target struct {
	url            string
	secret         string
	subscriptionID *uint
}

func (s *Service) Send(ctx context.Context, merchantID uint, event string, payload interface{}, destinationURL string) bool {
	tgt, ok := s.resolve(ctx, merchantID, event, destinationURL)
	if !ok {
		return false
	}

	body, err := json.Marshal(Envelope{
		Event:     event,
		Timestamp: s.now().UTC().Format(time.RFC3339Nano),
		Data:      payload,
	})
	if err != nil {
		log.Printf("❌ Webhook %s for merchant %d: marshal envelope: %v", event, merchantID, err)
		return false
	}

	d := &models.WebhookDelivery{
		MerchantID:     merchantID,
		SubscriptionID: tgt.subscriptionID,
		Event:          event,
		URL:            tgt.url,
		Payload:        string(body),
		Signature:      Sign(body, tgt.secret),
		Attempts:       1,
	}

	s.deliver(ctx, d)

	if err := s.repo.CreateDelivery(ctx, d); err != nil {
		log.Printf("⚠️ Failed to log webhook delivery %s for merchant %d: %v", event, merchantID, err)
	}
	return d.Success
}

// resolve picks the URL and secret. An explicit URL wins and is signed with
// the merchant's subscription secret or the configured default; otherwise
// an active subscription for the event is required.
func (s *Service) resolve(ctx context.Context, merchantID uint, event, destinationURL string) (target, bool) {
	if destinationURL != "" {
		tgt := target{url: destinationURL, secret: s.config.DefaultSecret}
		sub, err := s.repo.FindSubscription(ctx, merchantID, "")
		switch {
		case err == nil:
			tgt.secret = sub.Secret
		case !errors.Is(err, repositories.ErrSubscriptionNotFound):
			log.Printf("⚠️ Webhook secret lookup failed for merchant %d: %v", merchantID, err)
		}
		if tgt.secret == "" {
			log.Printf("⚠️ No signing secret for merchant %d, skipping %s", merchantID, event)
			return target{}, false
		}
		return tgt, true
	}

	sub, err := s.repo.FindSubscription(ctx, merchantID, event)
	if err != nil {
		if errors.Is(err, repositories.ErrSubscriptionNotFound) {
			log.Printf("ℹ️ No webhook configured for event: %s", event)
		} else {
			log.Printf("⚠️ Webhook lookup failed for merchant %d: %v", merchantID, err)
		}
		return target{}, false
	}

	id := sub.ID
	return target{url: sub.URL, secret: sub.Secret, subscriptionID: &id}, true
}

// deliver performs one POST and records the outcome on d.
func (s *Service) deliver(ctx context.Context, d *models.WebhookDelivery) {
	status, resp, err := s.post(ctx, d)
	d.StatusCode = status
	d.Response = resp
	d.Success = err == nil

	s.observer.RecordWebhookDelivery(d.Event, d.Success)

	if d.Success {
		d.NextRetryAt = nil
		log.Printf("✅ Webhook sent successfully: %s", d.Event)
		return
	}

	if d.Attempts >= s.config.MaxAttempts {
		d.NextRetryAt = nil
		d.DeadLettered = true
		log.Printf("💀 Webhook %s to %s dead-lettered after %d attempts: %v", d.Event, d.URL, d.Attempts, err)
		return
	}

	next := s.now().Add(s.backoff(d.Attempts))
	d.NextRetryAt = &next
	log.Printf("❌ Webhook delivery failed (%s, attempt %d): %v", d.Event, d.Attempts, err)
}

func (s *Service) post(ctx context.Context, d *models.WebhookDelivery) (int, string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.URL, bytes.NewReader([]byte(d.Payload)))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderSignature, d.Signature)
	req.Header.Set(HeaderEvent, d.Event)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, string(raw), errors.New(resp.Status)
	}
	return resp.StatusCode, string(raw), nil
}

// backoff is RetryBaseDelay * 2^(attempts-1), capped at 24h.
func (s *Service) backoff(attempts int) time.Duration {
	const maxDelay = 24 * time.Hour
	delay := s.config.RetryBaseDelay
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= maxDelay {
			return maxDelay
		}
	}
	return delay
}

// Subscribe registers url for events and returns the subscription with its
// freshly generated signing secret.
func (s *Service) Subscribe(ctx context.Context, merchantID uint, url string, events []string) (*models.WebhookSubscription, error) {
	if url == "" || len(events) == 0 {
		return nil, domainerrors.ErrInvalidSubscription
	}
	for _, e := range events {
		if !models.IsWebhookEvent(e) {
			return nil, domainerrors.ErrInvalidSubscription.WithMessage("unknown webhook event %q", e)
		}
	}

	secret, err := utils.GenerateWebhookSecret()
	if err != nil {
		return nil, domainerrors.Internal(err)
	}

	sub := &models.WebhookSubscription{
		MerchantID: merchantID,
		URL:        url,
		Events:     events,
		Secret:     secret,
		IsActive:   true,
	}
	if err := s.repo.CreateSubscription(ctx, sub); err != nil {
		return nil, domainerrors.Internal(err)
	}
	log.Printf("✅ Webhook subscription %d created for merchant %d (%s)", sub.ID, merchantID, strings.Join(events, ", "))
	return sub, nil
}
