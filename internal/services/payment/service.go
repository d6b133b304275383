package payment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	domainerrors "digipay/internal/errors"
	"digipay/internal/metrics"
	"digipay/internal/models"
	"digipay/internal/repositories"
	"digipay/internal/services/commission"
	"digipay/internal/services/gateway"
	"digipay/internal/services/webhook"

	"github.com/google/uuid"
)

const analyticsDays = 7

type service struct {
	merchants    MerchantReader
	transactions repositories.TransactionRepository
	commission   commission.Service
	gateway      gateway.Client
	notifier     webhook.Notifier
	metrics      metrics.Collector
	config       Config
	now          func() time.Time
}

// NewService creates a new payment orchestrator
func NewService(
	merchants MerchantReader,
	transactions repositories.TransactionRepository,
	commissionSvc commission.Service,
	gatewayClient gateway.Client,
	notifier webhook.Notifier,
	collector metrics.Collector,
	config Config,
) Service {
	if merchants == nil {
		panic("merchant reader is required")
	}
	if transactions == nil {
		panic("transaction repository is required")
	}
	if commissionSvc == nil {
		panic("commission service is required")
	}
	if gatewayClient == nil {
		panic("gateway client is required")
	}
	if notifier == nil {
		panic("notifier is required")
	}
	if collector == nil {
		collector = metrics.NoopCollector{}
	}

	return &service{
		merchants:    merchants,
		transactions: transactions,
		commission:   commissionSvc,
		gateway:      gatewayClient,
		notifier:     notifier,
		metrics:      collector,
		config:       config,
		now:          time.Now,
	}
}

func (s *service) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	if req.Amount <= 0 {
		return nil, domainerrors.ErrInvalidAmount
	}
	phone := strings.TrimSpace(req.CustomerPhone)
	if phone == "" {
		return nil, domainerrors.ErrInvalidPhone
	}

	merchant, err := s.merchants.GetByID(ctx, req.MerchantID)
	if err != nil {
		if errors.Is(err, repositories.ErrMerchantNotFound) {
			return nil, domainerrors.ErrMerchantNotFound
		}
		return nil, domainerrors.Internal(err)
	}
	if !merchant.IsActive {
		return nil, domainerrors.ErrMerchantInactive
	}
	if !merchant.KYCApproved() {
		return nil, domainerrors.ErrKycNotApproved
	}

	breakdown := s.commission.CalculateFor(ctx, req.Amount, merchant)

	description := req.Description
	if description == "" {
		description = fmt.Sprintf("DigiPay Payment - %s", merchant.BusinessName)
	}

	// The gateway only ever sees the base amount.
	charge, err := s.gateway.Charge(ctx, gateway.ChargeRequest{
		Payer:       phone,
		Amount:      breakdown.BaseAmount,
		Description: description,
		CallbackURL: s.config.CallbackURL,
	})
	if err != nil {
		log.Printf("❌ FreemoPay charge failed for merchant %d: %v", merchant.ID, err)
		return nil, gatewayError(err)
	}

	tx := &models.Transaction{
		TransactionID:    newTransactionID(),
		MerchantID:       merchant.ID,
		GatewayReference: charge.Reference,
		ExternalID:       charge.ExternalID,
		BaseAmount:       breakdown.BaseAmount,
		CommissionAmount: breakdown.CommissionAmount,
		TotalAmount:      breakdown.TotalAmount,
		CommissionRate:   breakdown.CommissionRate,
		FeePayer:         breakdown.FeePayer,
		Currency:         breakdown.Currency,
		Status:           models.TransactionPending,
		PaymentMethod:    models.PaymentMethodMobileMoney,
		Description:      description,
		CustomerPhone:    phone,
		CustomerEmail:    req.CustomerEmail,
		CustomerName:     req.CustomerName,
		Metadata:         req.Metadata,
		WebhookURL:       req.WebhookURL,
	}
	if err := s.transactions.Create(ctx, tx); err != nil {
		log.Printf("❌ Failed to persist transaction for gateway ref %s: %v", charge.Reference, err)
		return nil, domainerrors.Internal(err)
	}

	s.metrics.RecordPaymentInitiated(tx.FeePayer, tx.TotalAmount)
	log.Printf("✅ Payment %s initiated: %d XAF (commission %d, fee payer %s)", tx.TransactionID, tx.TotalAmount, tx.CommissionAmount, tx.FeePayer)

	return &InitiateResult{
		TransactionID:    tx.TransactionID,
		Amount:           tx.TotalAmount,
		BaseAmount:       tx.BaseAmount,
		CommissionAmount: tx.CommissionAmount,
		Status:           tx.Status,
		GatewayReference: tx.GatewayReference,
		Message:          charge.Message,
	}, nil
}

func (s *service) GetTransaction(ctx context.Context, merchantID uint, transactionID string) (*models.Transaction, error) {
	tx, err := s.transactions.GetByTransactionID(ctx, merchantID, transactionID)
	if err != nil {
		if errors.Is(err, repositories.ErrTransactionNotFound) {
			return nil, domainerrors.ErrTransactionNotFound
		}
		return nil, domainerrors.Internal(err)
	}

	if tx.IsPending() && tx.GatewayReference != "" {
		if updated := s.reconcile(ctx, tx); updated != nil {
			tx = updated
		}
	}
	return tx, nil
}

// reconcile polls the gateway for a pending transaction. Failures are logged
// and nil is returned so the caller keeps the stored row.
func (s *service) reconcile(ctx context.Context, tx *models.Transaction) *models.Transaction {
	status, err := s.gateway.CheckStatus(ctx, tx.GatewayReference)
	if err != nil {
		log.Printf("⚠️ Reconciliation of %s failed: %v", tx.TransactionID, err)
		return nil
	}

	var (
		updated *models.Transaction
		txErr   error
	)
	switch status.Status {
	case gateway.StatusSuccess:
		updated, txErr = s.applySuccess(ctx, tx, tx.GatewayReference)
	case gateway.StatusFailed:
		reason := status.Message
		if reason == "" {
			reason = "Payment failed at provider"
		}
		updated, txErr = s.applyFailure(ctx, tx, reason)
	default:
		return nil
	}
	if txErr != nil {
		log.Printf("⚠️ Reconciliation of %s could not be applied: %v", tx.TransactionID, txErr)
		return nil
	}
	return updated
}

func (s *service) ListTransactions(ctx context.Context, merchantID uint, filter repositories.TransactionFilter) (*TransactionList, error) {
	rows, total, err := s.transactions.List(ctx, merchantID, filter)
	if err != nil {
		return nil, domainerrors.Internal(err)
	}
	return &TransactionList{Transactions: rows, Total: total}, nil
}

func (s *service) HandleCallback(ctx context.Context, cb Callback) (*models.Transaction, error) {
	if cb.Reference == "" && cb.ExternalID == "" {
		return nil, domainerrors.ErrInvalidCallback
	}

	tx, err := s.transactions.FindByGatewayRef(ctx, cb.Reference, cb.ExternalID)
	if err != nil {
		if errors.Is(err, repositories.ErrTransactionNotFound) {
			log.Printf("⚠️ Callback for unknown transaction (ref=%s, externalId=%s)", cb.Reference, cb.ExternalID)
			return nil, domainerrors.ErrTransactionNotFound
		}
		return nil, domainerrors.Internal(err)
	}

	if tx.Status == models.TransactionSuccess {
		log.Printf("ℹ️ Transaction %s already successful, ignoring callback", tx.TransactionID)
		return tx, nil
	}

	switch strings.ToUpper(cb.Status) {
	case gateway.StatusSuccess:
		return s.applySuccess(ctx, tx, cb.Reference)
	case gateway.StatusFailed:
		reason := cb.Message
		if reason == "" {
			reason = "Payment failed"
		}
		return s.applyFailure(ctx, tx, reason)
	default:
		log.Printf("ℹ️ Callback status %q for %s left unchanged", cb.Status, tx.TransactionID)
		return tx, nil
	}
}

// applySuccess credits the merchant exactly once; only the caller that wins
// the pending -> success transition sends the notification.
func (s *service) applySuccess(ctx context.Context, tx *models.Transaction, reference string) (*models.Transaction, error) {
	updated, applied, err := s.transactions.MarkSuccess(ctx, tx.ID, reference)
	if err != nil {
		return nil, domainerrors.Internal(err)
	}
	if !applied {
		return updated, nil
	}

	s.metrics.RecordTransition("transaction", models.TransactionPending, models.TransactionSuccess)
	log.Printf("✅ Transaction %s successful, merchant %d credited %d XAF", updated.TransactionID, updated.MerchantID, updated.NetAmount())

	s.notifier.Send(ctx, updated.MerchantID, models.EventPaymentSuccess, successPayload{
		TransactionID:    updated.TransactionID,
		Amount:           updated.TotalAmount,
		BaseAmount:       updated.BaseAmount,
		CommissionAmount: updated.CommissionAmount,
		Status:           models.TransactionSuccess,
		CustomerPhone:    updated.CustomerPhone,
		Metadata:         updated.Metadata,
	}, updated.WebhookURL)

	return updated, nil
}

func (s *service) applyFailure(ctx context.Context, tx *models.Transaction, reason string) (*models.Transaction, error) {
	updated, applied, err := s.transactions.MarkFailed(ctx, tx.ID, reason)
	if err != nil {
		return nil, domainerrors.Internal(err)
	}
	if !applied {
		return updated, nil
	}

	s.metrics.RecordTransition("transaction", models.TransactionPending, models.TransactionFailed)
	log.Printf("❌ Transaction %s failed: %s", updated.TransactionID, reason)

	s.notifier.Send(ctx, updated.MerchantID, models.EventPaymentFailed, failedPayload{
		TransactionID: updated.TransactionID,
		Amount:        updated.TotalAmount,
		Status:        models.TransactionFailed,
		Reason:        reason,
	}, updated.WebhookURL)

	return updated, nil
}

func (s *service) Analytics(ctx context.Context, merchantID uint) (*Analytics, error) {
	today := s.now().UTC().Truncate(24 * time.Hour)
	since := today.AddDate(0, 0, -(analyticsDays - 1))

	volumes, err := s.transactions.DailyVolume(ctx, merchantID, since)
	if err != nil {
		return nil, domainerrors.Internal(err)
	}
	byDay := make(map[string]repositories.DailyVolume, len(volumes))
	for _, v := range volumes {
		byDay[v.Day] = v
	}

	out := &Analytics{}
	for i := 0; i < analyticsDays; i++ {
		day := since.AddDate(0, 0, i)
		key := day.Format("2006-01-02")
		v := byDay[key]
		out.DailyVolume = append(out.DailyVolume, DayVolume{
			Name:   day.Format("Mon"),
			Date:   key,
			Volume: v.Volume,
			Count:  v.Count,
		})
	}

	counts, err := s.transactions.StatusCounts(ctx, merchantID)
	if err != nil {
		return nil, domainerrors.Internal(err)
	}
	for _, status := range []string{models.TransactionSuccess, models.TransactionPending, models.TransactionFailed, models.TransactionRefunded} {
		n, ok := counts[status]
		if !ok {
			continue
		}
		out.StatusDistribution = append(out.StatusDistribution, StatusBucket{
			Name:   strings.ToUpper(status[:1]) + status[1:],
			Value:  n,
			Status: status,
		})
	}
	return out, nil
}

func gatewayError(err error) error {
	var gwErr *gateway.GatewayError
	if errors.As(err, &gwErr) {
		return domainerrors.Gateway(gwErr.Message, err)
	}
	return domainerrors.Gateway("", err)
}

// newTransactionID returns TXN_ followed by 16 upper-case hex characters.
func newTransactionID() string {
	return "TXN_" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:16])
}
