package settlement

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	domainerrors "digipay/internal/errors"
	"digipay/internal/models"
	"digipay/internal/repositories"
	"digipay/internal/services/gateway"
	"digipay/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockGateway struct {
	mock.Mock
	mode gateway.Mode
}

func (m *MockGateway) Charge(ctx context.Context, req gateway.ChargeRequest) (*gateway.ChargeResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.ChargeResult), args.Error(1)
}

func (m *MockGateway) CheckStatus(ctx context.Context, reference string) (*gateway.StatusResult, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.StatusResult), args.Error(1)
}

func (m *MockGateway) Withdraw(ctx context.Context, req gateway.WithdrawRequest) (*gateway.WithdrawResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.WithdrawResult), args.Error(1)
}

func (m *MockGateway) GenerateExternalID(prefix string) string {
	return prefix + "_1700000000000_abc123def"
}

func (m *MockGateway) Mode() gateway.Mode {
	if m.mode == "" {
		return gateway.ModeLive
	}
	return m.mode
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) Send(ctx context.Context, merchantID uint, event string, payload interface{}, destinationURL string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return true
}

func (n *recordingNotifier) sent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

type failingQueue struct{}

func (failingQueue) Enqueue(context.Context, string) error    { return errors.New("redis: connection refused") }
func (failingQueue) Dequeue(context.Context) (string, error) { return "", ErrQueueEmpty }
func (failingQueue) Ack(context.Context, string) error       { return nil }

type fixture struct {
	store    *testutil.MemStore
	notifier *recordingNotifier
	queue    *ChannelQueue
	svc      Service
}

func newFixture(t *testing.T, gw gateway.Client) *fixture {
	t.Helper()
	if gw == nil {
		gw = gateway.NewClient(gateway.Config{Mode: gateway.ModeSandbox}, nil, nil)
	}
	store := testutil.NewMemStore()
	notifier := &recordingNotifier{}
	queue := NewChannelQueue(16, 50*time.Millisecond)
	svc := NewService(store.Merchants(), store.Transactions(), store.Settlements(), gw, notifier, queue, nil, Config{
		CallbackURL: "http://localhost:5000/api/webhooks/freemopay",
	})
	return &fixture{store: store, notifier: notifier, queue: queue, svc: svc}
}

func (f *fixture) merchant(t *testing.T, balance int64, mutate func(m *models.Merchant)) *models.Merchant {
	t.Helper()
	ctx := context.Background()
	m := &models.Merchant{
		BusinessName: "Boutique Akwa",
		KYCStatus:    models.KYCApproved,
		IsActive:     true,
		Settlement:   models.SettlementDetails{MobileMoneyNumber: "237670000000"},
	}
	if mutate != nil {
		mutate(m)
	}
	require.NoError(t, f.store.Merchants().Create(ctx, m))
	if balance > 0 {
		f.store.Fund(m.ID, balance)
	}
	return m
}

// paid stores a successful transaction with no commission, crediting base.
func (f *fixture) paid(t *testing.T, merchantID uint, id string, base int64) {
	t.Helper()
	ctx := context.Background()
	tx := &models.Transaction{
		TransactionID: id,
		MerchantID:    merchantID,
		ExternalID:    "payment_" + id,
		BaseAmount:    base,
		TotalAmount:   base,
		Status:        models.TransactionPending,
	}
	require.NoError(t, f.store.Transactions().Create(ctx, tx))
	_, applied, err := f.store.Transactions().MarkSuccess(ctx, tx.ID, "FMP-"+id)
	require.NoError(t, err)
	require.True(t, applied)
}

func (f *fixture) settlement(t *testing.T, settlementID string) *models.Settlement {
	t.Helper()
	st, err := f.store.Settlements().GetBySettlementID(context.Background(), settlementID)
	require.NoError(t, err)
	return st
}

func TestRequest_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(m *models.Merchant)
		req     func(id uint) Request
		wantErr *domainerrors.DomainError
		wantMsg string
	}{
		{
			name:    "zero amount",
			req:     func(id uint) Request { return Request{MerchantID: id} },
			wantErr: domainerrors.ErrInvalidAmount,
		},
		{
			name:    "below minimum",
			req:     func(id uint) Request { return Request{MerchantID: id, Amount: 5000} },
			wantErr: domainerrors.ErrBelowMinimum,
			wantMsg: "Minimum settlement amount is 10000 XAF",
		},
		{
			name:    "no recipient",
			mutate:  func(m *models.Merchant) { m.Settlement.MobileMoneyNumber = "" },
			req:     func(id uint) Request { return Request{MerchantID: id, Amount: 15000} },
			wantErr: domainerrors.ErrMissingRecipient,
		},
		{
			name:    "unknown merchant",
			req:     func(uint) Request { return Request{MerchantID: 404, Amount: 15000} },
			wantErr: domainerrors.ErrMerchantNotFound,
		},
		{
			name:    "insufficient balance",
			req:     func(id uint) Request { return Request{MerchantID: id, Amount: 60000} },
			wantErr: domainerrors.ErrInsufficientBalance,
			wantMsg: "Insufficient balance. Available: 50000, Requested: 60000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			m := f.merchant(t, 50000, tt.mutate)

			_, err := f.svc.Request(context.Background(), tt.req(m.ID))
			require.Error(t, err)
			assert.True(t, domainerrors.Is(err, tt.wantErr), "got %v", err)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, domainerrors.As(err).Message)
			}

			assert.Equal(t, int64(50000), f.store.Merchant(m.ID).Balance)
			assert.Equal(t, 0, f.queue.Len())
		})
	}
}

func TestRequest_DebitsAndEnqueues(t *testing.T) {
	f := newFixture(t, nil)
	m := f.merchant(t, 0, nil)
	f.paid(t, m.ID, "TXN_A", 8000)
	f.paid(t, m.ID, "TXN_B", 8000)
	f.paid(t, m.ID, "TXN_C", 8000)

	res, err := f.svc.Request(context.Background(), Request{MerchantID: m.ID, Amount: 15000})
	require.NoError(t, err)

	assert.Regexp(t, `^STL_[0-9A-F]{16}$`, res.SettlementID)
	assert.Equal(t, int64(15000), res.Amount)
	assert.Equal(t, "237670000000", res.RecipientPhone)
	assert.Equal(t, models.SettlementPending, res.Status)
	assert.Equal(t, int64(9000), f.store.Merchant(m.ID).Balance)
	assert.Equal(t, 1, f.queue.Len())

	// the first two transactions cover 15000
	st := f.settlement(t, res.SettlementID)
	assert.Equal(t, []string{"TXN_A", "TXN_B"}, []string(st.Transactions))
}

func TestRequest_ExplicitRecipient(t *testing.T) {
	f := newFixture(t, nil)
	m := f.merchant(t, 20000, func(m *models.Merchant) { m.Settlement.MobileMoneyNumber = "" })

	res, err := f.svc.Request(context.Background(), Request{MerchantID: m.ID, Amount: 10000, RecipientPhone: " 237699999999 "})
	require.NoError(t, err)
	assert.Equal(t, "237699999999", res.RecipientPhone)
}

func TestRequest_ConcurrentDebits(t *testing.T) {
	f := newFixture(t, nil)
	m := f.merchant(t, 1000, func(m *models.Merchant) { m.Settlement.MinimumSettlementAmount = 500 })

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Request(context.Background(), Request{MerchantID: m.ID, Amount: 700})
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}()
	}
	wg.Wait()

	var ok, refused int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case domainerrors.Is(err, domainerrors.ErrInsufficientBalance):
			refused++
			assert.Equal(t, "Insufficient balance. Available: 300, Requested: 700", domainerrors.As(err).Message)
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, refused)
	assert.Equal(t, int64(300), f.store.Merchant(m.ID).Balance)
}

func TestRequest_EnqueueFailureCompensates(t *testing.T) {
	store := testutil.NewMemStore()
	gw := gateway.NewClient(gateway.Config{Mode: gateway.ModeSandbox}, nil, nil)
	svc := NewService(store.Merchants(), store.Transactions(), store.Settlements(), gw, &recordingNotifier{}, failingQueue{}, nil, Config{})
	ctx := context.Background()

	m := &models.Merchant{BusinessName: "Shop", Settlement: models.SettlementDetails{MobileMoneyNumber: "237670000000"}}
	require.NoError(t, store.Merchants().Create(ctx, m))
	store.Fund(m.ID, 20000)

	_, err := svc.Request(ctx, Request{MerchantID: m.ID, Amount: 15000})
	require.Error(t, err)
	assert.Equal(t, domainerrors.KindInternal, domainerrors.As(err).Kind)
	assert.Equal(t, int64(20000), store.Merchant(m.ID).Balance)

	list, err := svc.List(ctx, m.ID, repositories.SettlementFilter{})
	require.NoError(t, err)
	require.Len(t, list.Settlements, 1)
	assert.Equal(t, models.SettlementFailed, list.Settlements[0].Status)
}

func TestProcess_SandboxCompletes(t *testing.T) {
	f := newFixture(t, nil)
	m := f.merchant(t, 0, nil)
	f.paid(t, m.ID, "TXN_1", 12000)
	f.paid(t, m.ID, "TXN_2", 12000)
	ctx := context.Background()

	res, err := f.svc.Request(ctx, Request{MerchantID: m.ID, Amount: 20000})
	require.NoError(t, err)

	require.NoError(t, f.svc.Process(ctx, res.SettlementID))

	st := f.settlement(t, res.SettlementID)
	assert.Equal(t, models.SettlementCompleted, st.Status)
	assert.NotNil(t, st.ProcessedAt)
	assert.NotNil(t, st.CompletedAt)
	assert.Contains(t, st.WithdrawReference, "test_withdraw_")
	assert.Equal(t, "settlement", st.ExternalID[:10])

	// completion never touches the balance again
	assert.Equal(t, int64(4000), f.store.Merchant(m.ID).Balance)

	for _, id := range []string{"TXN_1", "TXN_2"} {
		tx, err := f.store.Transactions().GetByTransactionID(ctx, m.ID, id)
		require.NoError(t, err)
		assert.True(t, tx.SettledToMerchant, id)
		assert.NotNil(t, tx.SettlementDate)
	}
	assert.Equal(t, []string{models.EventSettlementCompleted}, f.notifier.sent())

	// redelivered job is a no-op
	require.NoError(t, f.svc.Process(ctx, res.SettlementID))
	assert.Len(t, f.notifier.sent(), 1)
	assert.Equal(t, int64(4000), f.store.Merchant(m.ID).Balance)
}

func TestProcess_GatewayFailureCompensates(t *testing.T) {
	gw := &MockGateway{}
	gw.On("Withdraw", mock.Anything, mock.Anything).
		Return(nil, &gateway.GatewayError{Op: "withdraw", StatusCode: 400, Message: "Invalid receiver"})

	f := newFixture(t, gw)
	m := f.merchant(t, 30000, nil)
	ctx := context.Background()

	res, err := f.svc.Request(ctx, Request{MerchantID: m.ID, Amount: 25000})
	require.NoError(t, err)
	assert.Equal(t, int64(5000), f.store.Merchant(m.ID).Balance)

	require.NoError(t, f.svc.Process(ctx, res.SettlementID))

	st := f.settlement(t, res.SettlementID)
	assert.Equal(t, models.SettlementFailed, st.Status)
	assert.Equal(t, "Invalid receiver", st.FailureReason)
	assert.Equal(t, int64(30000), f.store.Merchant(m.ID).Balance)
	assert.Empty(t, f.notifier.sent())

	// a late callback cannot compensate twice
	_, err = f.svc.HandleWithdrawCallback(ctx, Callback{Status: "FAILED", ExternalID: st.ExternalID})
	require.NoError(t, err)
	assert.Equal(t, int64(30000), f.store.Merchant(m.ID).Balance)

	gw.AssertCalled(t, "Withdraw", mock.Anything, gateway.WithdrawRequest{
		Receiver:    "237670000000",
		Amount:      25000,
		ExternalID:  "settlement_1700000000000_abc123def",
		CallbackURL: "http://localhost:5000/api/webhooks/freemopay/settlement",
	})
}

// ctxSettlements refuses writes on a cancelled context like a real driver.
type ctxSettlements struct {
	repositories.SettlementRepository
}

func (r ctxSettlements) MarkFailed(ctx context.Context, id uint, reason string) (*models.Settlement, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	return r.SettlementRepository.MarkFailed(ctx, id, reason)
}

func TestProcess_ShutdownMidWithdrawalStillCompensates(t *testing.T) {
	live := mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil })
	gw := &MockGateway{}
	gw.On("Withdraw", live, mock.Anything).
		Return(nil, &gateway.GatewayError{Op: "withdraw", StatusCode: 503, Message: "Service unavailable"})

	store := testutil.NewMemStore()
	queue := NewChannelQueue(4, time.Millisecond)
	svc := NewService(store.Merchants(), store.Transactions(), ctxSettlements{store.Settlements()}, gw, &recordingNotifier{}, queue, nil, Config{})
	ctx := context.Background()

	m := &models.Merchant{BusinessName: "Shop", Settlement: models.SettlementDetails{MobileMoneyNumber: "237670000000"}}
	require.NoError(t, store.Merchants().Create(ctx, m))
	store.Fund(m.ID, 20000)

	res, err := svc.Request(ctx, Request{MerchantID: m.ID, Amount: 15000})
	require.NoError(t, err)

	stopped, cancel := context.WithCancel(ctx)
	cancel()
	require.NoError(t, svc.Process(stopped, res.SettlementID))

	st, err := store.Settlements().GetBySettlementID(ctx, res.SettlementID)
	require.NoError(t, err)
	assert.Equal(t, models.SettlementFailed, st.Status)
	assert.Equal(t, int64(20000), store.Merchant(m.ID).Balance)
	gw.AssertNumberOfCalls(t, "Withdraw", 1)
}

func TestAbandon(t *testing.T) {
	t.Run("pending is failed and credited back", func(t *testing.T) {
		f := newFixture(t, nil)
		m := f.merchant(t, 20000, nil)
		ctx := context.Background()

		res, err := f.svc.Request(ctx, Request{MerchantID: m.ID, Amount: 15000})
		require.NoError(t, err)

		st, err := f.svc.Abandon(ctx, res.SettlementID, "Settlement processing failed after 5 attempts: db down")
		require.NoError(t, err)
		assert.Equal(t, models.SettlementFailed, st.Status)
		assert.Equal(t, "Settlement processing failed after 5 attempts: db down", st.FailureReason)
		assert.Equal(t, int64(20000), f.store.Merchant(m.ID).Balance)

		// repeated abandon is a no-op
		_, err = f.svc.Abandon(ctx, res.SettlementID, "again")
		require.NoError(t, err)
		assert.Equal(t, int64(20000), f.store.Merchant(m.ID).Balance)
	})

	t.Run("processing is left for the callback", func(t *testing.T) {
		f := newFixture(t, nil)
		m := f.merchant(t, 20000, nil)
		ctx := context.Background()

		res, err := f.svc.Request(ctx, Request{MerchantID: m.ID, Amount: 15000})
		require.NoError(t, err)
		claimed, err := f.store.Settlements().MarkProcessing(ctx, f.settlement(t, res.SettlementID).ID, "settlement_1")
		require.NoError(t, err)
		require.True(t, claimed)

		st, err := f.svc.Abandon(ctx, res.SettlementID, "gave up")
		require.NoError(t, err)
		assert.Equal(t, models.SettlementProcessing, st.Status)
		assert.Equal(t, int64(5000), f.store.Merchant(m.ID).Balance)
	})

	t.Run("unknown settlement", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.svc.Abandon(context.Background(), "STL_MISSING", "gave up")
		assert.True(t, domainerrors.Is(err, domainerrors.ErrSettlementNotFound))
	})
}

func TestRequeueStale(t *testing.T) {
	f := newFixture(t, nil)
	m := f.merchant(t, 50000, nil)
	ctx := context.Background()

	stuck, err := f.svc.Request(ctx, Request{MerchantID: m.ID, Amount: 15000})
	require.NoError(t, err)
	done, err := f.svc.Request(ctx, Request{MerchantID: m.ID, Amount: 10000})
	require.NoError(t, err)
	for f.queue.Len() > 0 {
		_, err := f.queue.Dequeue(ctx)
		require.NoError(t, err)
	}
	require.NoError(t, f.svc.Process(ctx, done.SettlementID))

	n, err := f.svc.RequeueStale(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = f.svc.RequeueStale(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Equal(t, 1, f.queue.Len())

	id, err := f.queue.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, stuck.SettlementID, id)
}

func TestHandleWithdrawCallback(t *testing.T) {
	tests := []struct {
		name        string
		cb          func(ref string) Callback
		wantStatus  string
		wantBalance int64
		wantEvents  int
	}{
		{"success by reference", func(ref string) Callback { return Callback{Status: "SUCCESS", Reference: ref} }, models.SettlementCompleted, 5000, 1},
		{"success by external id", func(string) Callback {
			return Callback{Status: "success", ExternalID: "settlement_1700000000000_abc123def"}
		}, models.SettlementCompleted, 5000, 1},
		{"failure compensates", func(ref string) Callback { return Callback{Status: "FAILED", Reference: ref, Message: "Receiver blocked"} }, models.SettlementFailed, 20000, 0},
		{"pending ignored", func(ref string) Callback { return Callback{Status: "PENDING", Reference: ref} }, models.SettlementProcessing, 5000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &MockGateway{}
			gw.On("Withdraw", mock.Anything, mock.Anything).Return(&gateway.WithdrawResult{Reference: "WD-1"}, nil)

			f := newFixture(t, gw)
			m := f.merchant(t, 20000, nil)
			ctx := context.Background()

			res, err := f.svc.Request(ctx, Request{MerchantID: m.ID, Amount: 15000})
			require.NoError(t, err)
			require.NoError(t, f.svc.Process(ctx, res.SettlementID))
			assert.Equal(t, models.SettlementProcessing, f.settlement(t, res.SettlementID).Status)

			for i := 0; i < 2; i++ {
				st, err := f.svc.HandleWithdrawCallback(ctx, tt.cb("WD-1"))
				require.NoError(t, err)
				assert.Equal(t, tt.wantStatus, st.Status)
			}

			assert.Equal(t, tt.wantBalance, f.store.Merchant(m.ID).Balance)
			assert.Len(t, f.notifier.sent(), tt.wantEvents)
		})
	}
}

func TestHandleWithdrawCallback_Errors(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.HandleWithdrawCallback(context.Background(), Callback{Status: "SUCCESS"})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrInvalidCallback))

	_, err = f.svc.HandleWithdrawCallback(context.Background(), Callback{Status: "SUCCESS", Reference: "WD-unknown"})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrSettlementNotFound))
}

func TestProcess_UnknownSettlement(t *testing.T) {
	f := newFixture(t, nil)
	err := f.svc.Process(context.Background(), "STL_MISSING")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrSettlementNotFound))
}

func TestListAndBalance(t *testing.T) {
	f := newFixture(t, nil)
	m := f.merchant(t, 100000, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.svc.Request(ctx, Request{MerchantID: m.ID, Amount: int64(10000 * (i + 1))})
		require.NoError(t, err)
	}

	list, err := f.svc.List(ctx, m.ID, repositories.SettlementFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), list.Total)
	require.Len(t, list.Settlements, 2)
	assert.Equal(t, int64(30000), list.Settlements[0].Amount, "newest first")

	list, err = f.svc.List(ctx, m.ID, repositories.SettlementFilter{Status: models.SettlementCompleted})
	require.NoError(t, err)
	assert.Zero(t, list.Total)

	bal, err := f.svc.GetBalance(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(40000), bal.Balance)
	assert.Equal(t, models.CurrencyXAF, bal.Currency)

	_, err = f.svc.GetBalance(ctx, 999)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrMerchantNotFound))
}

func TestBalanceNeverNegative(t *testing.T) {
	gw := &MockGateway{}
	gw.On("Withdraw", mock.Anything, mock.Anything).Return(nil, errors.New("timeout")).Maybe()

	f := newFixture(t, gw)
	m := f.merchant(t, 50000, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.svc.Request(ctx, Request{MerchantID: m.ID, Amount: 12000})
			if err != nil {
				return
			}
			if i%2 == 0 {
				f.svc.Process(ctx, res.SettlementID)
			}
		}(i)
	}
	wg.Wait()

	bal := f.store.Merchant(m.ID).Balance
	assert.GreaterOrEqual(t, bal, int64(0))

	list, err := f.svc.List(ctx, m.ID, repositories.SettlementFilter{Limit: 100})
	require.NoError(t, err)
	var outstanding int64
	for _, st := range list.Settlements {
		if st.Status != models.SettlementFailed {
			outstanding += st.Amount
		}
	}
	assert.Equal(t, int64(50000), bal+outstanding, fmt.Sprintf("balance %d outstanding %d", bal, outstanding))
}
