package repository

import (
	"context"
	"time"

	"marketplace-forfait-service/internal/domain/model"
)

type PaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Payment, error)
	FindByGatewayReference(ctx context.Context, tx Tx, ref string) (*model.Payment, error)
	FindByExternalRef(ctx context.Context, tx Tx, externalRef string) (*model.Payment, error)
	// SetGatewayResult records the aggregator's collect response on a fresh payment
	// (reference, raw status, ussd code, payload snapshot).
	SetGatewayResult(ctx context.Context, tx Tx, id string, gatewayRef *string, rawStatus, ussdCode string, metadata map[string]interface{}) error
	// UpdateStatusIfPending atomically moves the payment out of PENDING. It returns
	// false (no error) when the row was already terminal, which is how concurrent
	// webhook/reconciler appliers lose the race cleanly.
	UpdateStatusIfPending(ctx context.Context, tx Tx, id string, status model.PaymentStatus, rawStatus, failureReason string, paidAt *time.Time) (bool, error)
	// ListPendingBetween returns PENDING payments with a gateway reference created
	// in (olderThan, newerThan] — the reconciliation window.
	ListPendingBetween(ctx context.Context, tx Tx, newerThan, olderThan time.Time, limit int) ([]*model.Payment, error)
	// ExpirePendingOlderThan terminally expires stale PENDING payments and returns
	// how many rows were touched.
	ExpirePendingOlderThan(ctx context.Context, tx Tx, cutoff time.Time, reason string) (int64, error)
	ListByUser(ctx context.Context, tx Tx, userID string, offset, limit int) ([]*model.Payment, int, error)
}
