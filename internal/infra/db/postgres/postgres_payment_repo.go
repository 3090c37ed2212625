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

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `id, user_id, product_id, forfait_id, amount, currency, phone_number, method, status, external_ref, gateway_reference, gateway_status, ussd_code, failure_reason, paid_at, metadata, created_at, updated_at`

func scanPayment(row pgx.Row) (*model.Payment, error) {
	p := &model.Payment{}
	if err := row.Scan(&p.ID, &p.UserID, &p.ProductID, &p.ForfaitID, &p.Amount, &p.Currency, &p.PhoneNumber, &p.Method, &p.Status, &p.ExternalRef, &p.GatewayReference, &p.GatewayStatus, &p.USSDCode, &p.FailureReason, &p.PaidAt, &p.Metadata, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

func (r *paymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (
  ` + paymentColumns + `
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18
) ON CONFLICT (id) DO UPDATE SET
  gateway_reference=$11, gateway_status=$12, ussd_code=$13, failure_reason=$14, paid_at=$15, metadata=$16, updated_at=$18;`

	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.UserID, p.ProductID, p.ForfaitID, p.Amount, p.Currency, p.PhoneNumber, p.Method, p.Status, p.ExternalRef, p.GatewayReference, p.GatewayStatus, p.USSDCode, p.FailureReason, p.PaidAt, p.Metadata, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *paymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) FindByGatewayReference(ctx context.Context, tx repository.Tx, ref string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE gateway_reference=$1 LIMIT 1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, ref)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) FindByExternalRef(ctx context.Context, tx repository.Tx, externalRef string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE external_ref=$1 LIMIT 1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, externalRef)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) SetGatewayResult(ctx context.Context, tx repository.Tx, id string, gatewayRef *string, rawStatus, ussdCode string, metadata map[string]interface{}) error {
	const q = `UPDATE payments SET gateway_reference=$2, gateway_status=$3, ussd_code=$4, metadata=$5, updated_at=NOW() WHERE id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, id, gatewayRef, rawStatus, ussdCode, metadata)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

// UpdateStatusIfPending atomically updates status only when the current status
// is still PENDING. Terminal statuses are immutable; a false return means the
// caller lost the webhook/poll race (or the row was already closed).
func (r *paymentRepo) UpdateStatusIfPending(
	ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus, rawStatus, failureReason string, paidAt *time.Time,
) (bool, error) {
	const q = `
    UPDATE payments
       SET status = $2,
           gateway_status = CASE WHEN $3 <> '' THEN $3 ELSE gateway_status END,
           failure_reason = CASE WHEN $4 <> '' THEN $4 ELSE failure_reason END,
           paid_at = COALESCE($5, paid_at),
           updated_at = NOW()
     WHERE id = $1
       AND status = 'PENDING';`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, string(status), rawStatus, failureReason, paidAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *paymentRepo) ListPendingBetween(ctx context.Context, tx repository.Tx, newerThan, olderThan time.Time, limit int) ([]*model.Payment, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + paymentColumns + ` FROM payments
 WHERE status='PENDING' AND gateway_reference IS NOT NULL
   AND created_at >= $1 AND created_at < $2
 ORDER BY created_at ASC LIMIT $3;`
	rows, err := queryRows(ctx, r.pool, tx, q, newerThan, olderThan, limit)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *paymentRepo) ExpirePendingOlderThan(ctx context.Context, tx repository.Tx, cutoff time.Time, reason string) (int64, error) {
	const q = `UPDATE payments SET status='EXPIRED', failure_reason=$2, updated_at=NOW()
 WHERE status='PENDING' AND created_at < $1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, cutoff, reason)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return 0, err
		}
		return 0, domain.ErrOperationFailed
	}
	return cmd.RowsAffected(), nil
}

func (r *paymentRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, offset, limit int) ([]*model.Payment, int, error) {
	if limit <= 0 {
		limit = 20
	}
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM payments WHERE user_id=$1;`, userID)
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := row.Scan(&total); err != nil {
		return nil, 0, domain.ErrReadDatabaseRow
	}

	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE user_id=$1 ORDER BY created_at DESC OFFSET $2 LIMIT $3;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID, offset, limit)
	if err != nil {
		return nil, 0, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, nil
}
