package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"marketplace-forfait-service/internal/domain"
	"marketplace-forfait-service/internal/domain/model"
	"marketplace-forfait-service/internal/domain/ports/repository"
)

var _ repository.ForfaitRepository = (*forfaitRepo)(nil)

type forfaitRepo struct{ pool *pgxpool.Pool }

func NewForfaitRepo(pool *pgxpool.Pool) *forfaitRepo {
	return &forfaitRepo{pool: pool}
}

const forfaitColumns = `id, type, price, duration_days, created_at`

func scanForfait(row pgx.Row) (*model.Forfait, error) {
	f := &model.Forfait{}
	if err := row.Scan(&f.ID, &f.Type, &f.Price, &f.DurationDays, &f.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return f, nil
}

func (r *forfaitRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Forfait, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+forfaitColumns+` FROM forfaits WHERE id=$1;`, id)
	if err != nil {
		return nil, err
	}
	return scanForfait(row)
}

func (r *forfaitRepo) FindByType(ctx context.Context, tx repository.Tx, t model.ForfaitType) (*model.Forfait, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+forfaitColumns+` FROM forfaits WHERE type=$1 LIMIT 1;`, t)
	if err != nil {
		return nil, err
	}
	return scanForfait(row)
}

func (r *forfaitRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Forfait, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT `+forfaitColumns+` FROM forfaits ORDER BY price ASC;`)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Forfait
	for rows.Next() {
		f, err := scanForfait(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func (r *forfaitRepo) Save(ctx context.Context, tx repository.Tx, f *model.Forfait) error {
	const q = `
INSERT INTO forfaits (id, type, price, duration_days, created_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (type) DO UPDATE SET price=$3, duration_days=$4;`
	_, err := execSQL(ctx, r.pool, tx, q, f.ID, f.Type, f.Price, f.DurationDays, f.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}
