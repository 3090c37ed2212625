package adapter

import "context"

// NotifyOptions carries presentation hints for a user notification.
type NotifyOptions struct {
	Type string // e.g. "payment", "forfait_expiry"
	Link string // deep link into the app, optional
}

// Notifier delivers user-facing notifications. Delivery is fire-and-forget:
// callers must never roll back payment or forfait state because a notification
// failed.
type Notifier interface {
	Notify(ctx context.Context, userID, title, message string, opts NotifyOptions) error
}

// OpsAlerter pushes operational alerts (gateway rejections, job failures) to the
// on-call channel. Best-effort, may be a no-op.
type OpsAlerter interface {
	Alert(ctx context.Context, message string)
}
