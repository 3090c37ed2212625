package repository

import (
	"context"
	"time"

	"marketplace-forfait-service/internal/domain/model"
)

type ProductForfaitRepository interface {
	// FindActivePair returns the live boost for (productID, forfaitID), if any.
	// When called with a tx the row is locked (SELECT ... FOR UPDATE) so that the
	// re-check-then-insert in the activation path is race-free.
	FindActivePair(ctx context.Context, tx Tx, productID, forfaitID string, now time.Time) (*model.ProductForfait, error)
	Insert(ctx context.Context, tx Tx, pf *model.ProductForfait) error
	FindByPayment(ctx context.Context, tx Tx, paymentID string) (*model.ProductForfait, error)
	// ListActiveExpiringBetween returns active boosts with from < expiresAt <= to.
	ListActiveExpiringBetween(ctx context.Context, tx Tx, from, to time.Time) ([]*model.ProductForfait, error)
	ListActiveExpired(ctx context.Context, tx Tx, now time.Time) ([]*model.ProductForfait, error)
	Deactivate(ctx context.Context, tx Tx, id string, at time.Time) error
}
