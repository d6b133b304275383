// Package testutil provides an in-memory implementation of the repository
// interfaces. Every method holds one store-wide mutex, so status
// compare-and-set and balance updates behave like the SQL versions.
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"digipay/internal/models"
	"digipay/internal/repositories"
)

type MemStore struct {
	mu sync.Mutex

	merchants    map[uint]*models.Merchant
	tiers        map[string]*models.CommissionTier
	transactions map[uint]*models.Transaction
	settlements  map[uint]*models.Settlement
	subs         map[uint]*models.WebhookSubscription
	deliveries   map[uint]*models.WebhookDelivery
	apiKeys      map[uint]*models.APIKey
	nextID       uint

	// FailNext, when set, is returned once by the next mutating call.
	FailNext error
}

func NewMemStore() *MemStore {
	return &MemStore{
		merchants:    make(map[uint]*models.Merchant),
		tiers:        make(map[string]*models.CommissionTier),
		transactions: make(map[uint]*models.Transaction),
		settlements:  make(map[uint]*models.Settlement),
		subs:         make(map[uint]*models.WebhookSubscription),
		deliveries:   make(map[uint]*models.WebhookDelivery),
		apiKeys:      make(map[uint]*models.APIKey),
	}
}

func (s *MemStore) Merchants() *Merchants       { return &Merchants{s} }
func (s *MemStore) Tiers() *Tiers               { return &Tiers{s} }
func (s *MemStore) Transactions() *Transactions { return &Transactions{s} }
func (s *MemStore) Settlements() *Settlements   { return &Settlements{s} }
func (s *MemStore) Webhooks() *Webhooks         { return &Webhooks{s} }
func (s *MemStore) APIKeys() *APIKeys           { return &APIKeys{s} }

func (s *MemStore) id() uint {
	s.nextID++
	return s.nextID
}

func (s *MemStore) takeFailure() error {
	err := s.FailNext
	s.FailNext = nil
	return err
}

// Merchant returns a copy of the merchant row, or nil.
func (s *MemStore) Merchant(id uint) *models.Merchant {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.merchants[id]
	if !ok {
		return nil
	}
	cp := *m
	return &cp
}

// Fund adds amount to a merchant balance directly, bypassing payments.
func (s *MemStore) Fund(merchantID uint, amount int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.merchants[merchantID]; ok {
		m.Balance += amount
	}
}

// TransactionCount counts stored transactions.
func (s *MemStore) TransactionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.transactions)
}

// Deliveries returns copies of every delivery log row ordered by id.
func (s *MemStore) Deliveries() []models.WebhookDelivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.WebhookDelivery, 0, len(s.deliveries))
	for _, d := range s.deliveries {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Merchants implements repositories.MerchantRepository.
type Merchants struct{ s *MemStore }

func (r *Merchants) GetByID(ctx context.Context, id uint) (*models.Merchant, error) {
	if m := r.s.Merchant(id); m != nil {
		return m, nil
	}
	return nil, repositories.ErrMerchantNotFound
}

func (r *Merchants) Create(ctx context.Context, m *models.Merchant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFailure(); err != nil {
		return err
	}
	if m.ID == 0 {
		m.ID = r.s.id()
	}
	if m.Settlement.MinimumSettlementAmount == 0 {
		m.Settlement.MinimumSettlementAmount = 10000
	}
	m.CreatedAt = time.Now()
	cp := *m
	r.s.merchants[m.ID] = &cp
	return nil
}


// Tiers implements repositories.CommissionTierRepository.
type Tiers struct{ s *MemStore }

func (r *Tiers) GetActive(ctx context.Context, name string) (*models.CommissionTier, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tiers[name]
	if !ok || !t.IsActive {
		return nil, repositories.ErrTierNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *Tiers) Upsert(ctx context.Context, tier *models.CommissionTier) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *tier
	r.s.tiers[tier.Name] = &cp
	return nil
}

// Transactions implements repositories.TransactionRepository.
type Transactions struct{ s *MemStore }

func (r *Transactions) Create(ctx context.Context, tx *models.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFailure(); err != nil {
		return err
	}
	for _, existing := range r.s.transactions {
		if existing.TransactionID == tx.TransactionID || (tx.ExternalID != "" && existing.ExternalID == tx.ExternalID) {
			return repositories.ErrDuplicate
		}
	}
	tx.ID = r.s.id()
	tx.CreatedAt = time.Now()
	tx.UpdatedAt = tx.CreatedAt
	cp := *tx
	r.s.transactions[tx.ID] = &cp
	return nil
}

func (r *Transactions) GetByTransactionID(ctx context.Context, merchantID uint, transactionID string) (*models.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, tx := range r.s.transactions {
		if tx.TransactionID == transactionID && tx.MerchantID == merchantID {
			cp := *tx
			return &cp, nil
		}
	}
	return nil, repositories.ErrTransactionNotFound
}

func (r *Transactions) FindByGatewayRef(ctx context.Context, reference, externalID string) (*models.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, tx := range r.sorted() {
		var hit bool
		if externalID != "" {
			hit = tx.ExternalID == externalID
		} else {
			hit = tx.GatewayReference == reference
		}
		if hit {
			cp := *tx
			return &cp, nil
		}
	}
	return nil, repositories.ErrTransactionNotFound
}

func (r *Transactions) List(ctx context.Context, merchantID uint, filter repositories.TransactionFilter) ([]models.Transaction, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var matched []models.Transaction
	all := r.sorted()
	for i := len(all) - 1; i >= 0; i-- {
		tx := all[i]
		if tx.MerchantID != merchantID {
			continue
		}
		if filter.Status != "" && tx.Status != filter.Status {
			continue
		}
		if q := strings.ToLower(filter.Search); q != "" {
			hay := strings.ToLower(tx.TransactionID + " " + tx.GatewayReference + " " + tx.CustomerPhone + " " + tx.CustomerEmail)
			if !strings.Contains(hay, q) {
				continue
			}
		}
		matched = append(matched, *tx)
	}
	return paginate(matched, filter.Page, filter.Limit), int64(len(matched)), nil
}

func (r *Transactions) UnsettledSuccessful(ctx context.Context, merchantID uint, limit int) ([]models.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Transaction
	for _, tx := range r.sorted() {
		if tx.MerchantID == merchantID && tx.Status == models.TransactionSuccess && !tx.SettledToMerchant {
			out = append(out, *tx)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *Transactions) MarkSuccess(ctx context.Context, id uint, reference string) (*models.Transaction, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFailure(); err != nil {
		return nil, false, err
	}
	tx, ok := r.s.transactions[id]
	if !ok {
		return nil, false, repositories.ErrTransactionNotFound
	}
	if tx.Status != models.TransactionPending {
		cp := *tx
		return &cp, false, nil
	}
	m, ok := r.s.merchants[tx.MerchantID]
	if !ok {
		return nil, false, repositories.ErrMerchantNotFound
	}

	tx.Status = models.TransactionSuccess
	if reference != "" {
		tx.GatewayReference = reference
	}
	tx.UpdatedAt = time.Now()
	m.Balance += tx.NetAmount()
	m.TotalRevenue += tx.TotalAmount
	m.TotalCommissionPaid += tx.CommissionAmount

	cp := *tx
	return &cp, true, nil
}

func (r *Transactions) MarkFailed(ctx context.Context, id uint, reason string) (*models.Transaction, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFailure(); err != nil {
		return nil, false, err
	}
	tx, ok := r.s.transactions[id]
	if !ok {
		return nil, false, repositories.ErrTransactionNotFound
	}
	if tx.Status != models.TransactionPending {
		cp := *tx
		return &cp, false, nil
	}
	tx.Status = models.TransactionFailed
	tx.Metadata = tx.Metadata.Clone()
	tx.Metadata["failureReason"] = reason
	tx.UpdatedAt = time.Now()
	cp := *tx
	return &cp, true, nil
}

func (r *Transactions) DailyVolume(ctx context.Context, merchantID uint, since time.Time) ([]repositories.DailyVolume, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	byDay := map[string]*repositories.DailyVolume{}
	for _, tx := range r.s.transactions {
		if tx.MerchantID != merchantID || tx.Status != models.TransactionSuccess || tx.CreatedAt.Before(since) {
			continue
		}
		day := tx.CreatedAt.Format("2006-01-02")
		dv, ok := byDay[day]
		if !ok {
			dv = &repositories.DailyVolume{Day: day}
			byDay[day] = dv
		}
		dv.Volume += tx.TotalAmount
		dv.Count++
	}
	out := make([]repositories.DailyVolume, 0, len(byDay))
	for _, dv := range byDay {
		out = append(out, *dv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out, nil
}

func (r *Transactions) StatusCounts(ctx context.Context, merchantID uint) (map[string]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := map[string]int64{}
	for _, tx := range r.s.transactions {
		if tx.MerchantID == merchantID {
			counts[tx.Status]++
		}
	}
	return counts, nil
}

// sorted returns rows by insertion order. Caller holds the lock.
func (r *Transactions) sorted() []*models.Transaction {
	out := make([]*models.Transaction, 0, len(r.s.transactions))
	for _, tx := range r.s.transactions {
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Settlements implements repositories.SettlementRepository.
type Settlements struct{ s *MemStore }

func (r *Settlements) CreateWithDebit(ctx context.Context, st *models.Settlement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFailure(); err != nil {
		return err
	}
	m, ok := r.s.merchants[st.MerchantID]
	if !ok {
		return repositories.ErrMerchantNotFound
	}
	if m.Balance < st.Amount {
		return &repositories.InsufficientBalanceError{Available: m.Balance, Requested: st.Amount}
	}
	for _, existing := range r.s.settlements {
		if existing.SettlementID == st.SettlementID {
			return repositories.ErrDuplicate
		}
	}
	m.Balance -= st.Amount
	st.ID = r.s.id()
	st.CreatedAt = time.Now()
	cp := *st
	r.s.settlements[st.ID] = &cp
	return nil
}

func (r *Settlements) GetByID(ctx context.Context, id uint) (*models.Settlement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.settlements[id]
	if !ok {
		return nil, repositories.ErrSettlementNotFound
	}
	cp := *st
	return &cp, nil
}

func (r *Settlements) GetBySettlementID(ctx context.Context, settlementID string) (*models.Settlement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, st := range r.s.settlements {
		if st.SettlementID == settlementID {
			cp := *st
			return &cp, nil
		}
	}
	return nil, repositories.ErrSettlementNotFound
}

func (r *Settlements) FindByWithdrawRef(ctx context.Context, reference, externalID string) (*models.Settlement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var match *models.Settlement
	for _, st := range r.s.settlements {
		var hit bool
		if externalID != "" {
			hit = st.ExternalID == externalID
		} else {
			hit = st.WithdrawReference == reference
		}
		if hit && (match == nil || st.ID < match.ID) {
			match = st
		}
	}
	if match == nil {
		return nil, repositories.ErrSettlementNotFound
	}
	cp := *match
	return &cp, nil
}

func (r *Settlements) List(ctx context.Context, merchantID uint, filter repositories.SettlementFilter) ([]models.Settlement, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var matched []models.Settlement
	for _, st := range r.s.settlements {
		if st.MerchantID == merchantID && (filter.Status == "" || st.Status == filter.Status) {
			matched = append(matched, *st)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	return paginate(matched, filter.Page, filter.Limit), int64(len(matched)), nil
}

func (r *Settlements) StalePending(ctx context.Context, before time.Time, limit int) ([]models.Settlement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Settlement
	for _, st := range r.s.settlements {
		if st.Status == models.SettlementPending && st.CreatedAt.Before(before) {
			out = append(out, *st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *Settlements) MarkProcessing(ctx context.Context, id uint, externalID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFailure(); err != nil {
		return false, err
	}
	st, ok := r.s.settlements[id]
	if !ok || st.Status != models.SettlementPending {
		return false, nil
	}
	now := time.Now()
	st.Status = models.SettlementProcessing
	st.ExternalID = externalID
	st.ProcessedAt = &now
	return true, nil
}

func (r *Settlements) SetWithdrawReference(ctx context.Context, id uint, reference string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFailure(); err != nil {
		return err
	}
	st, ok := r.s.settlements[id]
	if !ok {
		return repositories.ErrSettlementNotFound
	}
	st.WithdrawReference = reference
	return nil
}

func (r *Settlements) MarkCompleted(ctx context.Context, id uint) (*models.Settlement, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.settlements[id]
	if !ok {
		return nil, false, repositories.ErrSettlementNotFound
	}
	if st.Status != models.SettlementProcessing {
		cp := *st
		return &cp, false, nil
	}
	now := time.Now()
	st.Status = models.SettlementCompleted
	st.CompletedAt = &now

	linked := make(map[string]bool, len(st.Transactions))
	for _, id := range st.Transactions {
		linked[id] = true
	}
	for _, tx := range r.s.transactions {
		if tx.MerchantID == st.MerchantID && linked[tx.TransactionID] && !tx.SettledToMerchant {
			tx.SettledToMerchant = true
			tx.SettlementDate = &now
		}
	}
	cp := *st
	return &cp, true, nil
}

func (r *Settlements) MarkFailed(ctx context.Context, id uint, reason string) (*models.Settlement, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.settlements[id]
	if !ok {
		return nil, false, repositories.ErrSettlementNotFound
	}
	if st.Status != models.SettlementPending && st.Status != models.SettlementProcessing {
		cp := *st
		return &cp, false, nil
	}
	st.Status = models.SettlementFailed
	st.FailureReason = reason
	if m, ok := r.s.merchants[st.MerchantID]; ok {
		m.Balance += st.Amount
	}
	cp := *st
	return &cp, true, nil
}

// Webhooks implements repositories.WebhookRepository.
type Webhooks struct{ s *MemStore }

func (r *Webhooks) FindSubscription(ctx context.Context, merchantID uint, event string) (*models.WebhookSubscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var best *models.WebhookSubscription
	for _, sub := range r.s.subs {
		if sub.MerchantID != merchantID {
			continue
		}
		if !sub.IsActive || (event != "" && !sub.Subscribes(event)) {
			continue
		}
		if best == nil || sub.ID < best.ID {
			best = sub
		}
	}
	if best == nil {
		return nil, repositories.ErrSubscriptionNotFound
	}
	cp := *best
	return &cp, nil
}

func (r *Webhooks) CreateSubscription(ctx context.Context, sub *models.WebhookSubscription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sub.ID = r.s.id()
	cp := *sub
	r.s.subs[sub.ID] = &cp
	return nil
}

func (r *Webhooks) CreateDelivery(ctx context.Context, d *models.WebhookDelivery) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d.ID = r.s.id()
	d.CreatedAt = time.Now()
	cp := *d
	r.s.deliveries[d.ID] = &cp
	return nil
}

func (r *Webhooks) UpdateDelivery(ctx context.Context, d *models.WebhookDelivery) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *d
	r.s.deliveries[d.ID] = &cp
	return nil
}

func (r *Webhooks) DueDeliveries(ctx context.Context, now time.Time, limit int) ([]models.WebhookDelivery, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.WebhookDelivery
	for _, d := range r.s.deliveries {
		if !d.Success && !d.DeadLettered && d.NextRetryAt != nil && !d.NextRetryAt.After(now) {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextRetryAt.Before(*out[j].NextRetryAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// APIKeys implements repositories.APIKeyRepository.
type APIKeys struct{ s *MemStore }

func (r *APIKeys) GetByPrefix(ctx context.Context, prefix string) (*models.APIKey, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, k := range r.s.apiKeys {
		if k.Prefix == prefix && k.IsActive {
			cp := *k
			return &cp, nil
		}
	}
	return nil, repositories.ErrAPIKeyNotFound
}

func (r *APIKeys) Create(ctx context.Context, key *models.APIKey) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, k := range r.s.apiKeys {
		if k.Prefix == key.Prefix {
			return repositories.ErrDuplicate
		}
	}
	key.ID = r.s.id()
	cp := *key
	r.s.apiKeys[key.ID] = &cp
	return nil
}

func (r *APIKeys) TouchLastUsed(ctx context.Context, id uint, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if k, ok := r.s.apiKeys[id]; ok {
		k.LastUsedAt = &at
	}
	return nil
}

func paginate[T any](rows []T, page, limit int) []T {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	start := (page - 1) * limit
	if start >= len(rows) {
		return nil
	}
	end := start + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}

var (
	_ repositories.MerchantRepository       = (*Merchants)(nil)
	_ repositories.CommissionTierRepository = (*Tiers)(nil)
	_ repositories.TransactionRepository    = (*Transactions)(nil)
	_ repositories.SettlementRepository     = (*Settlements)(nil)
	_ repositories.WebhookRepository        = (*Webhooks)(nil)
	_ repositories.APIKeyRepository         = (*APIKeys)(nil)
)
