package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"

	"marketplace-forfait-service/internal/domain"
	"marketplace-forfait-service/internal/domain/ports/repository"
)

var _ repository.NotificationLogRepository = (*notificationLogRepo)(nil)

type notificationLogRepo struct{ pool *pgxpool.Pool }

func NewNotificationLogRepo(pool *pgxpool.Pool) *notificationLogRepo {
	return &notificationLogRepo{pool: pool}
}

func (r *notificationLogRepo) Save(ctx context.Context, tx repository.Tx, productForfaitID, userID, kind string) error {
	const q = `
INSERT INTO notification_log (id, product_forfait_id, user_id, kind, sent_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (product_forfait_id, kind) DO NOTHING;`
	_, err := execSQL(ctx, r.pool, tx, q, uuid.NewString(), productForfaitID, userID, kind, time.Now())
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *notificationLogRepo) Exists(ctx context.Context, tx repository.Tx, productForfaitID, kind string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM notification_log WHERE product_forfait_id=$1 AND kind=$2);`
	row, err := pickRow(ctx, r.pool, tx, q, productForfaitID, kind)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, domain.ErrReadDatabaseRow
	}
	return exists, nil
}
