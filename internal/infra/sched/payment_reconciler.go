package sched

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"marketplace-forfait-service/internal/domain/ports/adapter"
	"marketplace-forfait-service/internal/domain/ports/repository"
	"marketplace-forfait-service/internal/infra/metrics"
	"marketplace-forfait-service/internal/usecase"
)

// ExpiredPendingReason is written on PENDING payments closed by the cleanup
// pass without a gateway verdict.
const ExpiredPendingReason = "payment expired after 48h without gateway confirmation"

// PaymentReconciler periodically scans PENDING payments older than the webhook
// SLA and re-queries the gateway for their outcome. This covers webhooks that
// never arrived and processes that crashed mid-confirm. A second pass expires
// payments the gateway never settled.
type PaymentReconciler struct {
	uc       usecase.PaymentUseCase
	payments repository.PaymentRepository
	alerter  adapter.OpsAlerter
	log      *zerolog.Logger

	interval   time.Duration // how often to scan
	staleAfter time.Duration // webhook SLA: how old a pending payment must be before polling
	window     time.Duration // only poll payments created within this window
	expireAge  time.Duration // PENDING older than this is terminally expired
	callDelay  time.Duration // pause between gateway calls (rate limits)

	running atomic.Bool // single-flight: overlapping ticks are skipped, not queued
}

func NewPaymentReconciler(
	uc usecase.PaymentUseCase,
	payments repository.PaymentRepository,
	alerter adapter.OpsAlerter,
	interval, staleAfter, window, expireAge time.Duration,
	logger *zerolog.Logger,
) *PaymentReconciler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	if window <= 0 {
		window = 24 * time.Hour
	}
	if expireAge <= 0 {
		expireAge = 48 * time.Hour
	}
	recLog := logger.With().Str("component", "PaymentReconciler").Logger()
	return &PaymentReconciler{
		uc:         uc,
		payments:   payments,
		alerter:    alerter,
		log:        &recLog,
		interval:   interval,
		staleAfter: staleAfter,
		window:     window,
		expireAge:  expireAge,
		callDelay:  500 * time.Millisecond,
	}
}

// Run blocks until ctx is cancelled. An in-flight tick finishes before Run
// returns control to the caller's shutdown path.
func (w *PaymentReconciler) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting payment reconciler")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping payment reconciler")
			return ctx.Err()
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick runs one reconciliation sweep. Exported for operational/manual use.
func (w *PaymentReconciler) Tick(ctx context.Context) {
	if !w.running.CompareAndSwap(false, true) {
		w.log.Warn().Msg("previous sweep still running; skipping tick")
		metrics.IncJobRun("payment_reconciler", "skipped")
		return
	}
	defer w.running.Store(false)

	w.pollPending(ctx)
	w.expireStale(ctx)
	metrics.IncJobRun("payment_reconciler", "completed")
}

func (w *PaymentReconciler) pollPending(ctx context.Context) {
	now := time.Now()
	pending, err := w.payments.ListPendingBetween(ctx, repository.NoTX, now.Add(-w.window), now.Add(-w.staleAfter), 200)
	if err != nil {
		w.log.Error().Err(err).Msg("list pending payments")
		metrics.IncJobRun("payment_reconciler", "failed")
		return
	}
	failed := 0
	for i, p := range pending {
		if ctx.Err() != nil {
			return
		}
		// Sequential on purpose: the aggregator rate-limits status queries.
		if i > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.callDelay):
			}
		}
		if err := w.uc.RefreshFromGateway(ctx, p); err != nil {
			// One payment must not abort the sweep.
			w.log.Error().Err(err).Str("payment_id", p.ID).Msg("reconcile payment")
			failed++
			continue
		}
		w.log.Debug().Str("payment_id", p.ID).Msg("payment reconciled")
	}
	if failed > 0 {
		w.alerter.Alert(ctx, fmt.Sprintf("payment reconciler: %d of %d gateway refreshes failed", failed, len(pending)))
	}
}

func (w *PaymentReconciler) expireStale(ctx context.Context) {
	cutoff := time.Now().Add(-w.expireAge)
	n, err := w.payments.ExpirePendingOlderThan(ctx, repository.NoTX, cutoff, ExpiredPendingReason)
	if err != nil {
		w.log.Error().Err(err).Msg("expire stale pending payments")
		w.alerter.Alert(ctx, fmt.Sprintf("payment reconciler: expire pass failed: %v", err))
		return
	}
	if n > 0 {
		metrics.AddPaymentsExpired(n)
		w.log.Info().Int64("count", n).Msg("stale pending payments expired")
	}
}
