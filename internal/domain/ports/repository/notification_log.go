package repository

import (
	"context"
)

// -----------------------------
// Notifications Log
// -----------------------------

type NotificationLogRepository interface {
	// Save records that a notification was sent for a boost.
	Save(ctx context.Context, tx Tx, productForfaitID, userID, kind string) error
	// Exists checks if a specific notification has already been sent, so the
	// daily sweep never warns twice about the same boost.
	Exists(ctx context.Context, tx Tx, productForfaitID, kind string) (bool, error)
}
