package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"marketplace-forfait-service/internal/domain"
	"marketplace-forfait-service/internal/domain/model"
	"marketplace-forfait-service/internal/domain/ports/repository"
)

var _ repository.ProductForfaitRepository = (*productForfaitRepo)(nil)

// productForfaitRepo persists activated boosts. The schema carries a partial
// unique index on (product_id, forfait_id) WHERE is_active, which backs the
// at-most-one-live-boost invariant even if a caller skips the row lock:
//
//	CREATE UNIQUE INDEX product_forfaits_one_active
//	  ON product_forfaits (product_id, forfait_id) WHERE is_active;
type productForfaitRepo struct{ pool *pgxpool.Pool }

func NewProductForfaitRepo(pool *pgxpool.Pool) *productForfaitRepo {
	return &productForfaitRepo{pool: pool}
}

const pfColumns = `id, product_id, forfait_id, payment_id, activated_at, expires_at, is_active, deactivated_at`

func scanProductForfait(row pgx.Row) (*model.ProductForfait, error) {
	pf := &model.ProductForfait{}
	if err := row.Scan(&pf.ID, &pf.ProductID, &pf.ForfaitID, &pf.PaymentID, &pf.ActivatedAt, &pf.ExpiresAt, &pf.IsActive, &pf.DeactivatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return pf, nil
}

func (r *productForfaitRepo) FindActivePair(ctx context.Context, tx repository.Tx, productID, forfaitID string, now time.Time) (*model.ProductForfait, error) {
	q := `SELECT ` + pfColumns + ` FROM product_forfaits
 WHERE product_id=$1 AND forfait_id=$2 AND is_active AND expires_at > $3`
	if _, ok := tx.(pgx.Tx); ok {
		// Locks the live row so concurrent activators serialize here.
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, productID, forfaitID, now)
	if err != nil {
		return nil, err
	}
	return scanProductForfait(row)
}

func (r *productForfaitRepo) Insert(ctx context.Context, tx repository.Tx, pf *model.ProductForfait) error {
	const q = `
INSERT INTO product_forfaits (` + pfColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8);`
	_, err := execSQL(ctx, r.pool, tx, q, pf.ID, pf.ProductID, pf.ForfaitID, pf.PaymentID, pf.ActivatedAt, pf.ExpiresAt, pf.IsActive, pf.DeactivatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *productForfaitRepo) FindByPayment(ctx context.Context, tx repository.Tx, paymentID string) (*model.ProductForfait, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+pfColumns+` FROM product_forfaits WHERE payment_id=$1 LIMIT 1;`, paymentID)
	if err != nil {
		return nil, err
	}
	return scanProductForfait(row)
}

func (r *productForfaitRepo) ListActiveExpiringBetween(ctx context.Context, tx repository.Tx, from, to time.Time) ([]*model.ProductForfait, error) {
	const q = `SELECT ` + pfColumns + ` FROM product_forfaits
 WHERE is_active AND expires_at > $1 AND expires_at <= $2
 ORDER BY expires_at ASC;`
	return r.list(ctx, tx, q, from, to)
}

func (r *productForfaitRepo) ListActiveExpired(ctx context.Context, tx repository.Tx, now time.Time) ([]*model.ProductForfait, error) {
	const q = `SELECT ` + pfColumns + ` FROM product_forfaits
 WHERE is_active AND expires_at <= $1
 ORDER BY expires_at ASC;`
	return r.list(ctx, tx, q, now)
}

func (r *productForfaitRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.ProductForfait, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.ProductForfait
	for rows.Next() {
		pf, err := scanProductForfait(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pf)
	}
	return out, nil
}

func (r *productForfaitRepo) Deactivate(ctx context.Context, tx repository.Tx, id string, at time.Time) error {
	const q = `UPDATE product_forfaits SET is_active=FALSE, deactivated_at=$2 WHERE id=$1 AND is_active;`
	_, err := execSQL(ctx, r.pool, tx, q, id, at)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}
