// File: internal/infra/notify/notifier.go
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"marketplace-forfait-service/internal/domain"
	"marketplace-forfait-service/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*DBNotifier)(nil)

// DBNotifier writes in-app notifications the marketplace frontend reads from
// the shared notifications table. Push/SMS fan-out is owned by the main app;
// from this service's point of view delivery is fire-and-forget.
type DBNotifier struct {
	pool *pgxpool.Pool
	log  *zerolog.Logger
}

func NewDBNotifier(pool *pgxpool.Pool, logger *zerolog.Logger) *DBNotifier {
	nLog := logger.With().Str("component", "DBNotifier").Logger()
	return &DBNotifier{pool: pool, log: &nLog}
}

func (n *DBNotifier) Notify(ctx context.Context, userID, title, message string, opts adapter.NotifyOptions) error {
	const q = `
INSERT INTO notifications (id, user_id, title, message, type, link, is_read, created_at)
VALUES ($1,$2,$3,$4,$5,$6,FALSE,$7);`
	_, err := n.pool.Exec(ctx, q, uuid.NewString(), userID, title, message, opts.Type, opts.Link, time.Now())
	if err != nil {
		n.log.Warn().Err(err).Str("user_id", userID).Msg("notification insert failed")
		return domain.ErrOperationFailed
	}
	return nil
}
