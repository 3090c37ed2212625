package repository

import (
	"context"

	"marketplace-forfait-service/internal/domain/model"
)

type ForfaitRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.Forfait, error)
	FindByType(ctx context.Context, tx Tx, t model.ForfaitType) (*model.Forfait, error)
	ListAll(ctx context.Context, tx Tx) ([]*model.Forfait, error)
	// Save is used by provisioning (cmd/seed) only; the catalog is read-only at runtime.
	Save(ctx context.Context, tx Tx, f *model.Forfait) error
}
