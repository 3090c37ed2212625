package sched

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"marketplace-forfait-service/internal/domain/ports/adapter"
	"marketplace-forfait-service/internal/domain/ports/repository"
	"marketplace-forfait-service/internal/infra/metrics"
)

const (
	notifExpiringSoon = "forfait_expiring_soon"
	notifExpired      = "forfait_expired"
)

// ForfaitExpiryWorker runs the daily boost sweep: warn owners whose boost
// expires within 24h, then deactivate boosts already past their expiry. The
// homepage cache is invalidated after both passes so listings stop showing
// dead promotions.
type ForfaitExpiryWorker struct {
	boosts   repository.ProductForfaitRepository
	payments repository.PaymentRepository
	notifLog repository.NotificationLogRepository
	notifier adapter.Notifier
	cache    adapter.CacheInvalidator
	alerter  adapter.OpsAlerter
	log      *zerolog.Logger

	cronSpec string
	running  atomic.Bool
}

func NewForfaitExpiryWorker(
	cronSpec string,
	boosts repository.ProductForfaitRepository,
	payments repository.PaymentRepository,
	notifLog repository.NotificationLogRepository,
	notifier adapter.Notifier,
	cache adapter.CacheInvalidator,
	alerter adapter.OpsAlerter,
	logger *zerolog.Logger,
) *ForfaitExpiryWorker {
	if cronSpec == "" {
		cronSpec = "0 0 * * *" // midnight
	}
	expLog := logger.With().Str("component", "ForfaitExpiryWorker").Logger()
	return &ForfaitExpiryWorker{
		boosts:   boosts,
		payments: payments,
		notifLog: notifLog,
		notifier: notifier,
		cache:    cache,
		alerter:  alerter,
		log:      &expLog,
		cronSpec: cronSpec,
	}
}

// Run schedules the sweep and blocks until ctx is cancelled. An in-flight
// sweep finishes before Run returns.
func (w *ForfaitExpiryWorker) Run(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(w.cronSpec, func() { w.Sweep(ctx) }); err != nil {
		return fmt.Errorf("invalid expiry cron %q: %w", w.cronSpec, err)
	}
	w.log.Info().Str("cron", w.cronSpec).Msg("Starting forfait expiry worker")
	c.Start()

	<-ctx.Done()
	w.log.Info().Msg("Stopping forfait expiry worker")
	stopCtx := c.Stop() // lets a running job finish
	<-stopCtx.Done()
	return ctx.Err()
}

// Sweep runs one expiry pass. Exported as the forced/manual run for ops.
func (w *ForfaitExpiryWorker) Sweep(ctx context.Context) {
	if !w.running.CompareAndSwap(false, true) {
		w.log.Warn().Msg("previous sweep still running; skipping")
		metrics.IncJobRun("forfait_expiry", "skipped")
		return
	}
	defer w.running.Store(false)

	w.warnExpiringSoon(ctx)
	deactivated := w.deactivateExpired(ctx)

	if err := w.cache.InvalidateHomepage(ctx); err != nil {
		w.log.Warn().Err(err).Msg("homepage cache invalidation failed")
	}
	if deactivated > 0 {
		metrics.AddForfaitsDeactivated(deactivated)
		w.log.Info().Int("count", deactivated).Msg("expired forfaits deactivated")
	}
	metrics.IncJobRun("forfait_expiry", "completed")
}

// warnExpiringSoon notifies owners of boosts expiring within the next 24h.
// No state change; the notification log keeps repeat sweeps quiet.
func (w *ForfaitExpiryWorker) warnExpiringSoon(ctx context.Context) {
	now := time.Now()
	expiring, err := w.boosts.ListActiveExpiringBetween(ctx, repository.NoTX, now, now.Add(24*time.Hour))
	if err != nil {
		w.log.Error().Err(err).Msg("list expiring forfaits")
		metrics.IncJobRun("forfait_expiry", "failed")
		return
	}
	for _, pf := range expiring {
		if sent, err := w.notifLog.Exists(ctx, repository.NoTX, pf.ID, notifExpiringSoon); err != nil || sent {
			continue
		}
		userID, ok := w.ownerOf(ctx, pf.PaymentID)
		if !ok {
			continue
		}
		if err := w.notifier.Notify(ctx, userID,
			"Forfait bientôt expiré",
			fmt.Sprintf("Votre forfait expire le %s. Renouvelez-le pour garder votre annonce en avant.", pf.ExpiresAt.Format("02/01/2006 15:04")),
			adapter.NotifyOptions{Type: "forfait_expiry", Link: "/products/" + pf.ProductID},
		); err != nil {
			w.log.Warn().Err(err).Str("product_forfait_id", pf.ID).Msg("expiring-soon notification failed")
			continue
		}
		_ = w.notifLog.Save(ctx, repository.NoTX, pf.ID, userID, notifExpiringSoon)
	}
}

// deactivateExpired closes boosts past their expiry and tells the owners.
// Per-item failures are logged and the sweep continues.
func (w *ForfaitExpiryWorker) deactivateExpired(ctx context.Context) int {
	now := time.Now()
	expired, err := w.boosts.ListActiveExpired(ctx, repository.NoTX, now)
	if err != nil {
		w.log.Error().Err(err).Msg("list expired forfaits")
		w.alerter.Alert(ctx, fmt.Sprintf("forfait expiry sweep failed: %v", err))
		metrics.IncJobRun("forfait_expiry", "failed")
		return 0
	}

	count := 0
	for _, pf := range expired {
		if userID, ok := w.ownerOf(ctx, pf.PaymentID); ok {
			// Notification first is deliberate and harmless: it is fire-and-forget
			// and never blocks the deactivation below.
			if err := w.notifier.Notify(ctx, userID,
				"Forfait expiré",
				"Votre forfait est arrivé à expiration. Votre annonce n'est plus mise en avant.",
				adapter.NotifyOptions{Type: "forfait_expiry", Link: "/products/" + pf.ProductID},
			); err != nil {
				w.log.Warn().Err(err).Str("product_forfait_id", pf.ID).Msg("expired notification failed")
			}
		}
		if err := w.boosts.Deactivate(ctx, repository.NoTX, pf.ID, now); err != nil {
			w.log.Error().Err(err).Str("product_forfait_id", pf.ID).Msg("deactivate forfait")
			continue
		}
		count++
	}
	return count
}

func (w *ForfaitExpiryWorker) ownerOf(ctx context.Context, paymentID string) (string, bool) {
	p, err := w.payments.FindByID(ctx, repository.NoTX, paymentID)
	if err != nil {
		w.log.Warn().Err(err).Str("payment_id", paymentID).Msg("resolve boost owner")
		return "", false
	}
	return p.UserID, true
}
