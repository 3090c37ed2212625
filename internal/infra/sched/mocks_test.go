// File: internal/infra/sched/mocks_test.go
package sched

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"marketplace-forfait-service/internal/domain"
	"marketplace-forfait-service/internal/domain/model"
	"marketplace-forfait-service/internal/domain/ports/adapter"
	"marketplace-forfait-service/internal/domain/ports/repository"
	"marketplace-forfait-service/internal/usecase"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// fakeUC stubs the payment use case; only the methods the workers touch are
// scripted, the rest are inert.
type fakeUC struct {
	mu        sync.Mutex
	refreshed []string
	refreshFn func(ctx context.Context, p *model.Payment) error
}

var _ usecase.PaymentUseCase = (*fakeUC)(nil)

func (f *fakeUC) Initiate(context.Context, string, string, string, string, model.PaymentMethod) (*model.Payment, error) {
	return nil, nil
}
func (f *fakeUC) ApplyStatus(context.Context, string, string, string, map[string]interface{}) error {
	return nil
}
func (f *fakeUC) RefreshFromGateway(ctx context.Context, p *model.Payment) error {
	f.mu.Lock()
	f.refreshed = append(f.refreshed, p.ID)
	fn := f.refreshFn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, p)
	}
	return nil
}
func (f *fakeUC) HandleGatewayWebhook(context.Context, string) error { return nil }
func (f *fakeUC) ActivateForfait(context.Context, string) error     { return nil }
func (f *fakeUC) CheckStatus(context.Context, string) (*usecase.StatusView, error) {
	return nil, domain.ErrPaymentNotFound
}
func (f *fakeUC) ListUserPayments(context.Context, string, int, int) ([]*model.Payment, int, error) {
	return nil, 0, nil
}

func (f *fakeUC) refreshedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.refreshed...)
}

// fakePaymentRepo scripts only the two queries the reconciler runs.
type fakePaymentRepo struct {
	mu       sync.Mutex
	pending  []*model.Payment
	byID     map[string]*model.Payment
	expireFn func(cutoff time.Time, reason string) (int64, error)

	gotNewerThan time.Time
	gotOlderThan time.Time
	expiredWith  time.Time
}

var _ repository.PaymentRepository = (*fakePaymentRepo)(nil)

func (f *fakePaymentRepo) Save(context.Context, repository.Tx, *model.Payment) error { return nil }
func (f *fakePaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.byID[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}
func (f *fakePaymentRepo) FindByGatewayReference(context.Context, repository.Tx, string) (*model.Payment, error) {
	return nil, domain.ErrNotFound
}
func (f *fakePaymentRepo) FindByExternalRef(context.Context, repository.Tx, string) (*model.Payment, error) {
	return nil, domain.ErrNotFound
}
func (f *fakePaymentRepo) SetGatewayResult(context.Context, repository.Tx, string, *string, string, string, map[string]interface{}) error {
	return nil
}
func (f *fakePaymentRepo) UpdateStatusIfPending(context.Context, repository.Tx, string, model.PaymentStatus, string, string, *time.Time) (bool, error) {
	return false, nil
}
func (f *fakePaymentRepo) ListPendingBetween(ctx context.Context, tx repository.Tx, newerThan, olderThan time.Time, limit int) ([]*model.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotNewerThan = newerThan
	f.gotOlderThan = olderThan
	out := make([]*model.Payment, 0, len(f.pending))
	for _, p := range f.pending {
		if p.CreatedAt.After(newerThan) && p.CreatedAt.Before(olderThan) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}
func (f *fakePaymentRepo) ExpirePendingOlderThan(ctx context.Context, tx repository.Tx, cutoff time.Time, reason string) (int64, error) {
	f.mu.Lock()
	f.expiredWith = cutoff
	fn := f.expireFn
	f.mu.Unlock()
	if fn != nil {
		return fn(cutoff, reason)
	}
	return 0, nil
}
func (f *fakePaymentRepo) ListByUser(context.Context, repository.Tx, string, int, int) ([]*model.Payment, int, error) {
	return nil, 0, nil
}

// fakeBoostRepo is the in-memory boost store for the expiry worker tests.
type fakeBoostRepo struct {
	mu    sync.Mutex
	store map[string]*model.ProductForfait
}

var _ repository.ProductForfaitRepository = (*fakeBoostRepo)(nil)

func newFakeBoostRepo(pfs ...*model.ProductForfait) *fakeBoostRepo {
	f := &fakeBoostRepo{store: make(map[string]*model.ProductForfait)}
	for _, pf := range pfs {
		cp := *pf
		f.store[pf.ID] = &cp
	}
	return f
}

func (f *fakeBoostRepo) FindActivePair(context.Context, repository.Tx, string, string, time.Time) (*model.ProductForfait, error) {
	return nil, domain.ErrNotFound
}
func (f *fakeBoostRepo) Insert(ctx context.Context, tx repository.Tx, pf *model.ProductForfait) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *pf
	f.store[pf.ID] = &cp
	return nil
}
func (f *fakeBoostRepo) FindByPayment(context.Context, repository.Tx, string) (*model.ProductForfait, error) {
	return nil, domain.ErrNotFound
}
func (f *fakeBoostRepo) ListActiveExpiringBetween(ctx context.Context, tx repository.Tx, from, to time.Time) ([]*model.ProductForfait, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.ProductForfait
	for _, pf := range f.store {
		if pf.IsActive && pf.ExpiresAt.After(from) && !pf.ExpiresAt.After(to) {
			cp := *pf
			out = append(out, &cp)
		}
	}
	return out, nil
}
func (f *fakeBoostRepo) ListActiveExpired(ctx context.Context, tx repository.Tx, now time.Time) ([]*model.ProductForfait, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.ProductForfait
	for _, pf := range f.store {
		if pf.IsActive && !pf.ExpiresAt.After(now) {
			cp := *pf
			out = append(out, &cp)
		}
	}
	return out, nil
}
func (f *fakeBoostRepo) Deactivate(ctx context.Context, tx repository.Tx, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	pf, ok := f.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	pf.IsActive = false
	pf.DeactivatedAt = &at
	return nil
}

func (f *fakeBoostRepo) isActive(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	pf, ok := f.store[id]
	return ok && pf.IsActive
}

// fakeNotifLog remembers sent notifications in memory.
type fakeNotifLog struct {
	mu   sync.Mutex
	sent map[string]bool // productForfaitID|kind
}

var _ repository.NotificationLogRepository = (*fakeNotifLog)(nil)

func newFakeNotifLog() *fakeNotifLog {
	return &fakeNotifLog{sent: make(map[string]bool)}
}

func (f *fakeNotifLog) Save(ctx context.Context, tx repository.Tx, productForfaitID, userID, kind string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent[productForfaitID+"|"+kind] = true
	return nil
}
func (f *fakeNotifLog) Exists(ctx context.Context, tx repository.Tx, productForfaitID, kind string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[productForfaitID+"|"+kind], nil
}

type fakeNotifier struct {
	mu        sync.Mutex
	delivered []string // userID|title
}

func (n *fakeNotifier) Notify(ctx context.Context, userID, title, message string, opts adapter.NotifyOptions) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.delivered = append(n.delivered, userID+"|"+title)
	return nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.delivered)
}

type fakeCache struct {
	mu       sync.Mutex
	homepage int
}

func (c *fakeCache) InvalidateHomepage(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.homepage++
	return nil
}
func (c *fakeCache) InvalidateAllProducts(ctx context.Context) error { return nil }

type fakeAlerter struct {
	mu     sync.Mutex
	alerts []string
}

func (a *fakeAlerter) Alert(ctx context.Context, message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, message)
}
