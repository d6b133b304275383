package settlement

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	domainerrors "digipay/internal/errors"
	"digipay/internal/metrics"
	"digipay/internal/models"
	"digipay/internal/repositories"
	"digipay/internal/services/gateway"
	"digipay/internal/services/webhook"

	"github.com/google/uuid"
)

type service struct {
	merchants    MerchantReader
	transactions TransactionReader
	settlements  repositories.SettlementRepository
	gateway      gateway.Client
	notifier     webhook.Notifier
	queue        Queue
	metrics      metrics.Collector
	config       Config
}

// NewService creates a new settlement orchestrator
func NewService(
	merchants MerchantReader,
	transactions TransactionReader,
	settlements repositories.SettlementRepository,
	gatewayClient gateway.Client,
	notifier webhook.Notifier,
	queue Queue,
	collector metrics.Collector,
	config Config,
) Service {
	if merchants == nil {
		panic("merchant reader is required")
	}
	if transactions == nil {
		panic("transaction reader is required")
	}
	if settlements == nil {
		panic("settlement repository is required")
	}
	if gatewayClient == nil {
		panic("gateway client is required")
	}
	if notifier == nil {
		panic("notifier is required")
	}
	if queue == nil {
		panic("queue is required")
	}
	if collector == nil {
		collector = metrics.NoopCollector{}
	}

	if config.MinimumAmount == 0 {
		config.MinimumAmount = DefaultMinimumAmount
	}
	if config.LinkLimit == 0 {
		config.LinkLimit = DefaultLinkLimit
	}

	return &service{
		merchants:    merchants,
		transactions: transactions,
		settlements:  settlements,
		gateway:      gatewayClient,
		notifier:     notifier,
		queue:        queue,
		metrics:      collector,
		config:       config,
	}
}

func (s *service) Request(ctx context.Context, req Request) (*RequestResult, error) {
	if req.Amount <= 0 {
		return nil, domainerrors.ErrInvalidAmount
	}

	merchant, err := s.loadMerchant(ctx, req.MerchantID)
	if err != nil {
		return nil, err
	}

	minimum := merchant.Settlement.MinimumSettlementAmount
	if minimum == 0 {
		minimum = s.config.MinimumAmount
	}
	if req.Amount < minimum {
		return nil, domainerrors.BelowMinimum(minimum)
	}

	recipient := strings.TrimSpace(req.RecipientPhone)
	if recipient == "" {
		recipient = merchant.Settlement.MobileMoneyNumber
	}
	if recipient == "" {
		return nil, domainerrors.ErrMissingRecipient
	}

	linked, err := s.linkTransactions(ctx, merchant.ID, req.Amount)
	if err != nil {
		return nil, domainerrors.Internal(err)
	}

	st := &models.Settlement{
		SettlementID:   newSettlementID(),
		MerchantID:     merchant.ID,
		Amount:         req.Amount,
		Currency:       models.CurrencyXAF,
		Status:         models.SettlementPending,
		RecipientPhone: recipient,
		Transactions:   linked,
	}

	if err := s.settlements.CreateWithDebit(ctx, st); err != nil {
		var insufficient *repositories.InsufficientBalanceError
		switch {
		case errors.As(err, &insufficient):
			s.metrics.RecordSettlement("rejected", req.Amount)
			return nil, domainerrors.InsufficientBalance(insufficient.Available, insufficient.Requested)
		case errors.Is(err, repositories.ErrMerchantNotFound):
			return nil, domainerrors.ErrMerchantNotFound
		default:
			return nil, domainerrors.Internal(err)
		}
	}

	s.metrics.RecordSettlement("requested", st.Amount)
	log.Printf("✅ Settlement %s requested: %d XAF to %s (%d linked transactions)", st.SettlementID, st.Amount, st.RecipientPhone, len(linked))

	if err := s.queue.Enqueue(ctx, st.SettlementID); err != nil {
		log.Printf("❌ Failed to enqueue settlement %s: %v", st.SettlementID, err)
		s.fail(ctx, st, models.SettlementPending, "Failed to schedule settlement processing")
		return nil, domainerrors.Internal(err)
	}

	return &RequestResult{
		SettlementID:   st.SettlementID,
		Amount:         st.Amount,
		RecipientPhone: st.RecipientPhone,
		Status:         st.Status,
		Message:        "Settlement request submitted successfully",
	}, nil
}

// linkTransactions snapshots the oldest unsettled successful transactions
// until their net covers amount. The list is informational only.
func (s *service) linkTransactions(ctx context.Context, merchantID uint, amount int64) ([]string, error) {
	txs, err := s.transactions.UnsettledSuccessful(ctx, merchantID, s.config.LinkLimit)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(txs))
	var covered int64
	for _, tx := range txs {
		if covered >= amount {
			break
		}
		ids = append(ids, tx.TransactionID)
		covered += tx.NetAmount()
	}
	return ids, nil
}

func (s *service) Process(ctx context.Context, settlementID string) error {
	st, err := s.settlements.GetBySettlementID(ctx, settlementID)
	if err != nil {
		if errors.Is(err, repositories.ErrSettlementNotFound) {
			return domainerrors.ErrSettlementNotFound
		}
		return err
	}

	externalID := s.gateway.GenerateExternalID("settlement")
	claimed, err := s.settlements.MarkProcessing(ctx, st.ID, externalID)
	if err != nil {
		return err
	}
	if !claimed {
		log.Printf("ℹ️ Settlement %s is already %s, skipping", st.SettlementID, st.Status)
		return nil
	}
	s.metrics.RecordTransition("settlement", models.SettlementPending, models.SettlementProcessing)

	// once claimed, a shutdown must not strand the settlement between the
	// withdrawal and its bookkeeping
	ctx = context.WithoutCancel(ctx)

	wd, err := s.gateway.Withdraw(ctx, gateway.WithdrawRequest{
		Receiver:    st.RecipientPhone,
		Amount:      st.Amount,
		ExternalID:  externalID,
		CallbackURL: s.config.CallbackURL + "/settlement",
	})
	if err != nil {
		log.Printf("❌ Settlement processing error for %s: %v", st.SettlementID, err)
		reason := err.Error()
		var gwErr *gateway.GatewayError
		if errors.As(err, &gwErr) {
			reason = gwErr.Message
		}
		return s.fail(ctx, st, models.SettlementProcessing, reason)
	}

	if err := s.settlements.SetWithdrawReference(ctx, st.ID, wd.Reference); err != nil {
		// the callback can still match on the external id
		log.Printf("⚠️ Failed to store withdrawal reference %s for %s: %v", wd.Reference, st.SettlementID, err)
	}
	log.Printf("💸 Withdrawal %s initiated for settlement %s", wd.Reference, st.SettlementID)

	if s.gateway.Mode() == gateway.ModeSandbox {
		if _, err := s.Complete(ctx, st.ID); err != nil {
			return err
		}
	}
	return nil
}

// Abandon fails a settlement that never reached the gateway. Anything past
// pending may have a withdrawal in flight and is left for the callback.
func (s *service) Abandon(ctx context.Context, settlementID, reason string) (*models.Settlement, error) {
	ctx = context.WithoutCancel(ctx)
	st, err := s.settlements.GetBySettlementID(ctx, settlementID)
	if err != nil {
		if errors.Is(err, repositories.ErrSettlementNotFound) {
			return nil, domainerrors.ErrSettlementNotFound
		}
		return nil, domainerrors.Internal(err)
	}
	if st.Status != models.SettlementPending {
		log.Printf("⚠️ Settlement %s is %s, not abandoning", st.SettlementID, st.Status)
		return st, nil
	}
	if err := s.fail(ctx, st, models.SettlementPending, reason); err != nil {
		return nil, domainerrors.Internal(err)
	}
	updated, err := s.settlements.GetByID(ctx, st.ID)
	if err != nil {
		return nil, domainerrors.Internal(err)
	}
	return updated, nil
}

func (s *service) RequeueStale(ctx context.Context, before time.Time) (int, error) {
	stale, err := s.settlements.StalePending(ctx, before, staleBatch)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, st := range stale {
		if err := s.queue.Enqueue(ctx, st.SettlementID); err != nil {
			return n, err
		}
		n++
	}
	if n > 0 {
		log.Printf("🔁 Re-enqueued %d stale pending settlements", n)
	}
	return n, nil
}

// fail marks the settlement failed and credits the amount back. It runs
// detached from ctx cancellation so a shutdown cannot skip the credit.
func (s *service) fail(ctx context.Context, st *models.Settlement, from, reason string) error {
	_, applied, err := s.settlements.MarkFailed(context.WithoutCancel(ctx), st.ID, reason)
	if err != nil {
		log.Printf("❌ Failed to compensate settlement %s (%d XAF): %v", st.SettlementID, st.Amount, err)
		return err
	}
	if applied {
		s.metrics.RecordTransition("settlement", from, models.SettlementFailed)
		s.metrics.RecordSettlement("failed", st.Amount)
		log.Printf("↩️ Settlement %s failed (%s), %d XAF returned to merchant %d", st.SettlementID, reason, st.Amount, st.MerchantID)
	}
	return nil
}

func (s *service) Complete(ctx context.Context, id uint) (*models.Settlement, error) {
	st, applied, err := s.settlements.MarkCompleted(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrSettlementNotFound) {
			return nil, domainerrors.ErrSettlementNotFound
		}
		return nil, domainerrors.Internal(err)
	}
	if !applied {
		return st, nil
	}

	s.metrics.RecordTransition("settlement", models.SettlementProcessing, models.SettlementCompleted)
	s.metrics.RecordSettlement("completed", st.Amount)
	log.Printf("✅ Settlement %s completed", st.SettlementID)

	payload := completedPayload{
		SettlementID:      st.SettlementID,
		Amount:            st.Amount,
		Currency:          st.Currency,
		Status:            st.Status,
		RecipientPhone:    st.RecipientPhone,
		WithdrawReference: st.WithdrawReference,
		Transactions:      st.Transactions,
	}
	if st.CompletedAt != nil {
		payload.CompletedAt = *st.CompletedAt
	}
	s.notifier.Send(ctx, st.MerchantID, models.EventSettlementCompleted, payload, "")

	return st, nil
}

func (s *service) HandleWithdrawCallback(ctx context.Context, cb Callback) (*models.Settlement, error) {
	if cb.Reference == "" && cb.ExternalID == "" {
		return nil, domainerrors.ErrInvalidCallback
	}

	st, err := s.settlements.FindByWithdrawRef(ctx, cb.Reference, cb.ExternalID)
	if err != nil {
		if errors.Is(err, repositories.ErrSettlementNotFound) {
			log.Printf("⚠️ Withdrawal callback for unknown settlement (ref=%s, externalId=%s)", cb.Reference, cb.ExternalID)
			return nil, domainerrors.ErrSettlementNotFound
		}
		return nil, domainerrors.Internal(err)
	}

	switch strings.ToUpper(cb.Status) {
	case gateway.StatusSuccess:
		return s.Complete(ctx, st.ID)
	case gateway.StatusFailed:
		if st.Status != models.SettlementProcessing {
			return st, nil
		}
		reason := cb.Message
		if reason == "" {
			reason = "Withdrawal failed at provider"
		}
		if err := s.fail(ctx, st, models.SettlementProcessing, reason); err != nil {
			return nil, domainerrors.Internal(err)
		}
		updated, err := s.settlements.GetByID(ctx, st.ID)
		if err != nil {
			return nil, domainerrors.Internal(err)
		}
		return updated, nil
	default:
		log.Printf("ℹ️ Withdrawal callback status %q for %s left unchanged", cb.Status, st.SettlementID)
		return st, nil
	}
}

func (s *service) List(ctx context.Context, merchantID uint, filter repositories.SettlementFilter) (*List, error) {
	rows, total, err := s.settlements.List(ctx, merchantID, filter)
	if err != nil {
		return nil, domainerrors.Internal(err)
	}
	return &List{Settlements: rows, Total: total}, nil
}

func (s *service) GetBalance(ctx context.Context, merchantID uint) (*Balance, error) {
	merchant, err := s.loadMerchant(ctx, merchantID)
	if err != nil {
		return nil, err
	}
	return &Balance{
		Balance:             merchant.Balance,
		TotalRevenue:        merchant.TotalRevenue,
		TotalCommissionPaid: merchant.TotalCommissionPaid,
		Currency:            models.CurrencyXAF,
	}, nil
}

func (s *service) loadMerchant(ctx context.Context, id uint) (*models.Merchant, error) {
	merchant, err := s.merchants.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrMerchantNotFound) {
			return nil, domainerrors.ErrMerchantNotFound
		}
		return nil, domainerrors.Internal(err)
	}
	return merchant, nil
}

// newSettlementID returns STL_ followed by 16 upper-case hex characters.
func newSettlementID() string {
	return "STL_" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:16])
}
