// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"marketplace-forfait-service/internal/domain"
	"marketplace-forfait-service/internal/domain/model"
	"marketplace-forfait-service/internal/domain/ports/adapter"
	"marketplace-forfait-service/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// memPaymentRepo is a small in-memory implementation used by unit tests. Its
// mutex gives UpdateStatusIfPending the same check-and-set atomicity the SQL
// conditional UPDATE has.
type memPaymentRepo struct {
	mu      sync.RWMutex
	store   map[string]*model.Payment
	saveErr error // used by tests to simulate save failures
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{store: make(map[string]*model.Payment)}
}

func (m *memPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *memPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPaymentRepo) FindByGatewayReference(ctx context.Context, tx repository.Tx, ref string) (*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.store {
		if p.GatewayReference != nil && *p.GatewayReference == ref {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memPaymentRepo) FindByExternalRef(ctx context.Context, tx repository.Tx, externalRef string) (*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.store {
		if p.ExternalRef == externalRef {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memPaymentRepo) SetGatewayResult(ctx context.Context, tx repository.Tx, id string, gatewayRef *string, rawStatus, ussdCode string, metadata map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.GatewayReference = gatewayRef
	p.GatewayStatus = rawStatus
	p.USSDCode = ussdCode
	p.Metadata = metadata
	p.UpdatedAt = time.Now()
	return nil
}

func (m *memPaymentRepo) UpdateStatusIfPending(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus, rawStatus, failureReason string, paidAt *time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if p.Status != model.PaymentStatusPending {
		return false, nil
	}
	p.Status = status
	if rawStatus != "" {
		p.GatewayStatus = rawStatus
	}
	if failureReason != "" {
		p.FailureReason = failureReason
	}
	if paidAt != nil {
		p.PaidAt = paidAt
	}
	p.UpdatedAt = time.Now()
	return true, nil
}

func (m *memPaymentRepo) ListPendingBetween(ctx context.Context, tx repository.Tx, newerThan, olderThan time.Time, limit int) ([]*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Payment
	for _, p := range m.store {
		if p.Status != model.PaymentStatusPending || p.GatewayReference == nil {
			continue
		}
		if p.CreatedAt.After(newerThan) && p.CreatedAt.Before(olderThan) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memPaymentRepo) ExpirePendingOlderThan(ctx context.Context, tx repository.Tx, cutoff time.Time, reason string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, p := range m.store {
		if p.Status == model.PaymentStatusPending && p.CreatedAt.Before(cutoff) {
			p.Status = model.PaymentStatusExpired
			p.FailureReason = reason
			p.UpdatedAt = time.Now()
			n++
		}
	}
	return n, nil
}

func (m *memPaymentRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, offset, limit int) ([]*model.Payment, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var all []*model.Payment
	for _, p := range m.store {
		if p.UserID == userID {
			cp := *p
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

// memForfaitRepo holds the catalog for tests.
type memForfaitRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Forfait
}

func newMemForfaitRepo(fs ...*model.Forfait) *memForfaitRepo {
	m := &memForfaitRepo{store: make(map[string]*model.Forfait)}
	for _, f := range fs {
		cp := *f
		m.store[f.ID] = &cp
	}
	return m
}

func (m *memForfaitRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Forfait, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (m *memForfaitRepo) FindByType(ctx context.Context, tx repository.Tx, t model.ForfaitType) (*model.Forfait, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, f := range m.store {
		if f.Type == t {
			cp := *f
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memForfaitRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Forfait, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.Forfait, 0, len(m.store))
	for _, f := range m.store {
		cp := *f
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memForfaitRepo) Save(ctx context.Context, tx repository.Tx, f *model.Forfait) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *f
	m.store[f.ID] = &cp
	return nil
}

// memBoostRepo is the in-memory ProductForfaitRepository.
type memBoostRepo struct {
	mu    sync.RWMutex
	store map[string]*model.ProductForfait
}

func newMemBoostRepo() *memBoostRepo {
	return &memBoostRepo{store: make(map[string]*model.ProductForfait)}
}

func (m *memBoostRepo) FindActivePair(ctx context.Context, tx repository.Tx, productID, forfaitID string, now time.Time) (*model.ProductForfait, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, pf := range m.store {
		if pf.ProductID == productID && pf.ForfaitID == forfaitID && pf.IsActive && pf.ExpiresAt.After(now) {
			cp := *pf
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memBoostRepo) Insert(ctx context.Context, tx repository.Tx, pf *model.ProductForfait) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *pf
	m.store[pf.ID] = &cp
	return nil
}

func (m *memBoostRepo) FindByPayment(ctx context.Context, tx repository.Tx, paymentID string) (*model.ProductForfait, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, pf := range m.store {
		if pf.PaymentID == paymentID {
			cp := *pf
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memBoostRepo) ListActiveExpiringBetween(ctx context.Context, tx repository.Tx, from, to time.Time) ([]*model.ProductForfait, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.ProductForfait
	for _, pf := range m.store {
		if pf.IsActive && pf.ExpiresAt.After(from) && !pf.ExpiresAt.After(to) {
			cp := *pf
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memBoostRepo) ListActiveExpired(ctx context.Context, tx repository.Tx, now time.Time) ([]*model.ProductForfait, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.ProductForfait
	for _, pf := range m.store {
		if pf.IsActive && !pf.ExpiresAt.After(now) {
			cp := *pf
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memBoostRepo) Deactivate(ctx context.Context, tx repository.Tx, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	pf, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	pf.IsActive = false
	pf.DeactivatedAt = &at
	return nil
}

func (m *memBoostRepo) activeCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, pf := range m.store {
		if pf.IsActive {
			n++
		}
	}
	return n
}

// mockGateway lets tests script the aggregator's behavior per call.
type mockGateway struct {
	mu           sync.Mutex
	collectFn    func(ctx context.Context, amount int64, currency, from, description, externalRef string) (*adapter.CollectResult, error)
	queryFn      func(ctx context.Context, reference string) (*adapter.TransactionStatus, error)
	collectCalls int
	queryCalls   int
}

func (g *mockGateway) Name() string { return "mock" }

func (g *mockGateway) Collect(ctx context.Context, amount int64, currency, from, description, externalRef string) (*adapter.CollectResult, error) {
	g.mu.Lock()
	g.collectCalls++
	fn := g.collectFn
	g.mu.Unlock()
	if fn == nil {
		return &adapter.CollectResult{Reference: "gw-" + externalRef, RawStatus: model.GatewayStatusPending, USSDCode: "*126#"}, nil
	}
	return fn(ctx, amount, currency, from, description, externalRef)
}

func (g *mockGateway) QueryStatus(ctx context.Context, reference string) (*adapter.TransactionStatus, error) {
	g.mu.Lock()
	g.queryCalls++
	fn := g.queryFn
	g.mu.Unlock()
	if fn == nil {
		return &adapter.TransactionStatus{RawStatus: model.GatewayStatusPending}, nil
	}
	return fn(ctx, reference)
}

// memNotifier records delivered notifications.
type memNotifier struct {
	mu        sync.Mutex
	delivered []string // userID|title
	err       error
}

func (n *memNotifier) Notify(ctx context.Context, userID, title, message string, opts adapter.NotifyOptions) error {
	if n.err != nil {
		return n.err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.delivered = append(n.delivered, userID+"|"+title)
	return nil
}

func (n *memNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.delivered)
}

// memCache counts invalidations.
type memCache struct {
	mu       sync.Mutex
	homepage int
	products int
	err      error
}

func (c *memCache) InvalidateHomepage(ctx context.Context) error {
	if c.err != nil {
		return c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.homepage++
	return nil
}

func (c *memCache) InvalidateAllProducts(ctx context.Context) error {
	if c.err != nil {
		return c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products++
	return nil
}

// memTxManager runs the callback without a real transaction. Atomicity in unit
// tests comes from the repos' mutexes instead of row locks.
type memTxManager struct{}

func (memTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, repository.NoTX)
}
