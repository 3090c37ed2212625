// File: internal/usecase/payment_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"marketplace-forfait-service/internal/domain"
	"marketplace-forfait-service/internal/domain/model"
	"marketplace-forfait-service/internal/domain/ports/adapter"
	"marketplace-forfait-service/internal/domain/ports/repository"
	"marketplace-forfait-service/internal/infra/metrics"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

// StatusView is the answer to a status poll from the app.
type StatusView struct {
	UserID           string
	Status           model.PaymentStatus
	PaidAt           *time.Time
	ForfaitActivated bool
}

type PaymentUseCase interface {
	// Initiate creates a PENDING payment, asks the gateway to collect, and
	// returns the payment with any USSD instructions attached.
	Initiate(ctx context.Context, userID, productID, forfaitID, phone string, method model.PaymentMethod) (*model.Payment, error)
	// ApplyStatus maps a raw gateway status onto the payment and, on success,
	// activates the forfait in the same transaction. Idempotent: terminal
	// payments are left untouched, so the webhook and the reconciliation loop
	// can both apply the same result safely.
	ApplyStatus(ctx context.Context, paymentID, rawStatus, reason string, payload map[string]interface{}) error
	// RefreshFromGateway re-queries the gateway for the payment's current status
	// and feeds it through ApplyStatus. Both the webhook trigger and the
	// reconciliation loop land here.
	RefreshFromGateway(ctx context.Context, p *model.Payment) error
	// HandleGatewayWebhook resolves the payment named by the webhook and
	// re-derives truth via a fresh gateway query. The webhook body's claimed
	// status is never trusted.
	HandleGatewayWebhook(ctx context.Context, externalRef string) error
	// ActivateForfait is the manual/ops activation path. Unlike the internal
	// success path it surfaces domain.ErrAlreadyActive to the caller.
	ActivateForfait(ctx context.Context, paymentID string) error
	CheckStatus(ctx context.Context, paymentID string) (*StatusView, error)
	ListUserPayments(ctx context.Context, userID string, page, limit int) ([]*model.Payment, int, error)
}

type paymentUC struct {
	payments repository.PaymentRepository
	forfaits repository.ForfaitRepository
	boosts   repository.ProductForfaitRepository
	gateway  adapter.PaymentGateway
	notifier adapter.Notifier
	cache    adapter.CacheInvalidator
	tm       repository.TransactionManager
	log      *zerolog.Logger
}

func NewPaymentUseCase(
	payments repository.PaymentRepository,
	forfaits repository.ForfaitRepository,
	boosts repository.ProductForfaitRepository,
	gateway adapter.PaymentGateway,
	notifier adapter.Notifier,
	cache adapter.CacheInvalidator,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *paymentUC {
	ucLog := logger.With().Str("component", "PaymentUC").Logger()
	return &paymentUC{
		payments: payments,
		forfaits: forfaits,
		boosts:   boosts,
		gateway:  gateway,
		notifier: notifier,
		cache:    cache,
		tm:       tm,
		log:      &ucLog,
	}
}

func (u *paymentUC) Initiate(ctx context.Context, userID, productID, forfaitID, phone string, method model.PaymentMethod) (*model.Payment, error) {
	if userID == "" || productID == "" || forfaitID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if !method.Valid() {
		return nil, domain.ErrInvalidMethod
	}

	forfait, err := u.forfaits.FindByID(ctx, repository.NoTX, forfaitID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrForfaitNotFound
		}
		return nil, err
	}
	// Hard precondition: the aggregator refuses sub-minimum collects, so we do
	// not create a doomed payment or touch the network.
	if forfait.Price < model.GatewayMinAmount {
		return nil, fmt.Errorf("%w: %d < %d", domain.ErrPriceTooLow, forfait.Price, model.GatewayMinAmount)
	}

	msisdn, err := NormalizeMSISDN(phone)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	p := &model.Payment{
		ID:          uuid.NewString(),
		UserID:      userID,
		ProductID:   productID,
		ForfaitID:   forfaitID,
		Amount:      forfait.Price,
		Currency:    "XAF",
		PhoneNumber: msisdn,
		Method:      method,
		Status:      model.PaymentStatusPending,
		ExternalRef: ulid.Make().String(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	// Persist before the gateway call: a crash mid-call must still leave an
	// auditable, reconcilable record.
	if err := u.payments.Save(ctx, repository.NoTX, p); err != nil {
		return nil, err
	}
	metrics.IncPayment(string(model.PaymentStatusPending))

	desc := fmt.Sprintf("Forfait %s", forfait.Type)
	res, err := u.gateway.Collect(ctx, p.Amount, p.Currency, msisdn, desc, p.ExternalRef)
	if err != nil {
		reason := err.Error()
		if _, uerr := u.payments.UpdateStatusIfPending(ctx, repository.NoTX, p.ID, model.PaymentStatusFailed, "", reason, nil); uerr != nil {
			u.log.Error().Err(uerr).Str("payment_id", p.ID).Msg("mark failed after gateway error")
		}
		metrics.IncPayment(string(model.PaymentStatusFailed))
		p.Status = model.PaymentStatusFailed
		p.FailureReason = reason
		return p, err
	}

	ref := res.Reference
	if err := u.payments.SetGatewayResult(ctx, repository.NoTX, p.ID, &ref, res.RawStatus, res.USSDCode, res.Payload); err != nil {
		return nil, err
	}
	p.GatewayReference = &ref
	p.GatewayStatus = res.RawStatus
	p.USSDCode = res.USSDCode
	p.Metadata = res.Payload

	// Some operators confirm synchronously; apply immediately rather than
	// waiting for the webhook or the next reconciliation tick.
	if model.MapGatewayStatus(res.RawStatus) != model.PaymentStatusPending {
		if err := u.ApplyStatus(ctx, p.ID, res.RawStatus, "", res.Payload); err != nil {
			u.log.Error().Err(err).Str("payment_id", p.ID).Msg("apply synchronous gateway status")
		}
	}
	return p, nil
}

func (u *paymentUC) ApplyStatus(ctx context.Context, paymentID, rawStatus, reason string, payload map[string]interface{}) error {
	mapped := model.MapGatewayStatus(rawStatus)
	if mapped == model.PaymentStatusPending {
		return nil // still in flight, nothing to write
	}

	var (
		activated  *model.ProductForfait
		transition bool
		payment    *model.Payment
	)
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		p, err := u.payments.FindByID(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		payment = p
		if p.Status.Terminal() {
			return nil // re-applied by the other racer; no-op
		}

		var paidAt *time.Time
		if mapped == model.PaymentStatusSuccess {
			now := time.Now()
			paidAt = &now
		}
		ok, err := u.payments.UpdateStatusIfPending(ctx, tx, p.ID, mapped, rawStatus, reason, paidAt)
		if err != nil {
			return err
		}
		if !ok {
			return nil // lost the webhook/poll race
		}
		transition = true
		p.Status = mapped
		p.PaidAt = paidAt

		if mapped == model.PaymentStatusSuccess {
			pf, err := u.activateInTx(ctx, tx, p)
			if err != nil && !errors.Is(err, domain.ErrAlreadyActive) {
				return err
			}
			activated = pf
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !transition {
		return nil
	}

	metrics.IncPayment(string(mapped))
	if mapped == model.PaymentStatusSuccess {
		metrics.AddPaymentRevenue(payment.Currency, payment.Amount)
		// Every SUCCESS write invalidates, even when the activation short-circuited
		// on an already-live boost: listing reads must never trail a paid payment.
		if err := u.cache.InvalidateHomepage(ctx); err != nil {
			u.log.Warn().Err(err).Msg("homepage cache invalidation failed")
		}
	}
	if activated != nil {
		metrics.IncForfaitActivated()
		// Fire-and-forget: notification failure never unwinds the activation.
		if err := u.notifier.Notify(ctx, payment.UserID,
			"Forfait activé",
			fmt.Sprintf("Votre forfait est actif jusqu'au %s.", activated.ExpiresAt.Format("02/01/2006")),
			adapter.NotifyOptions{Type: "payment", Link: "/products/" + payment.ProductID},
		); err != nil {
			u.log.Warn().Err(err).Str("payment_id", payment.ID).Msg("activation notification failed")
		}
	}
	return nil
}

// activateInTx re-checks for a live boost under a row lock and inserts the
// ProductForfait. Exactly one of the concurrent webhook/poll appliers performs
// the insert; the loser observes the winner's row and backs off with
// ErrAlreadyActive.
func (u *paymentUC) activateInTx(ctx context.Context, tx repository.Tx, p *model.Payment) (*model.ProductForfait, error) {
	now := time.Now()
	if existing, err := u.boosts.FindActivePair(ctx, tx, p.ProductID, p.ForfaitID, now); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	} else if existing != nil {
		return nil, domain.ErrAlreadyActive
	}

	// Activation is always driven by the forfait stored on the payment row.
	forfait, err := u.forfaits.FindByID(ctx, tx, p.ForfaitID)
	if err != nil {
		return nil, err
	}
	pf := &model.ProductForfait{
		ID:          uuid.NewString(),
		ProductID:   p.ProductID,
		ForfaitID:   p.ForfaitID,
		PaymentID:   p.ID,
		ActivatedAt: now,
		ExpiresAt:   now.Add(time.Duration(forfait.DurationDays) * 24 * time.Hour),
		IsActive:    true,
	}
	if err := u.boosts.Insert(ctx, tx, pf); err != nil {
		return nil, err
	}
	return pf, nil
}

func (u *paymentUC) RefreshFromGateway(ctx context.Context, p *model.Payment) error {
	if p.GatewayReference == nil || *p.GatewayReference == "" {
		return nil // collect never reached the gateway; the cleanup pass will expire it
	}
	st, err := u.gateway.QueryStatus(ctx, *p.GatewayReference)
	if err != nil {
		return err
	}
	return u.ApplyStatus(ctx, p.ID, st.RawStatus, st.Reason, st.Payload)
}

func (u *paymentUC) HandleGatewayWebhook(ctx context.Context, externalRef string) error {
	p, err := u.payments.FindByExternalRef(ctx, repository.NoTX, externalRef)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrPaymentNotFound
		}
		return err
	}
	if p.Status.Terminal() {
		return nil
	}
	return u.RefreshFromGateway(ctx, p)
}

func (u *paymentUC) ActivateForfait(ctx context.Context, paymentID string) error {
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		p, err := u.payments.FindByID(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if p.Status != model.PaymentStatusSuccess {
			return fmt.Errorf("%w: payment %s is %s", domain.ErrInvalidArgument, p.ID, p.Status)
		}
		_, err = u.activateInTx(ctx, tx, p)
		return err
	})
	if err != nil {
		return err
	}
	metrics.IncForfaitActivated()
	if cerr := u.cache.InvalidateHomepage(ctx); cerr != nil {
		u.log.Warn().Err(cerr).Msg("homepage cache invalidation failed")
	}
	return nil
}

func (u *paymentUC) CheckStatus(ctx context.Context, paymentID string) (*StatusView, error) {
	p, err := u.payments.FindByID(ctx, repository.NoTX, paymentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}
	view := &StatusView{UserID: p.UserID, Status: p.Status, PaidAt: p.PaidAt}
	if p.Status == model.PaymentStatusSuccess {
		if pf, err := u.boosts.FindByPayment(ctx, repository.NoTX, p.ID); err == nil && pf != nil {
			view.ForfaitActivated = true
		}
	}
	return view, nil
}

func (u *paymentUC) ListUserPayments(ctx context.Context, userID string, page, limit int) ([]*model.Payment, int, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return u.payments.ListByUser(ctx, repository.NoTX, userID, (page-1)*limit, limit)
}
