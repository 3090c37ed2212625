package model

import "time"

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING" // collect request sent; awaiting gateway outcome
	PaymentStatusSuccess PaymentStatus = "SUCCESS" // gateway confirmed the collection
	PaymentStatusFailed  PaymentStatus = "FAILED"  // gateway rejected/failed, or unknown upstream status
	PaymentStatusExpired PaymentStatus = "EXPIRED" // never confirmed; closed by the cleanup pass
)

// Terminal reports whether no further status transition is allowed.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusSuccess || s == PaymentStatusFailed || s == PaymentStatusExpired
}

type PaymentMethod string

const (
	PaymentMethodMobileMoney PaymentMethod = "MOBILE_MONEY"
	PaymentMethodOrangeMoney PaymentMethod = "ORANGE_MONEY"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodMobileMoney || m == PaymentMethodOrangeMoney
}

// Upstream status vocabulary. Anything else is treated as a failure: an
// unrecognized gateway status must never activate a forfait.
const (
	GatewayStatusSuccessful = "SUCCESSFUL"
	GatewayStatusFailed     = "FAILED"
	GatewayStatusPending    = "PENDING"
)

// MapGatewayStatus maps the raw aggregator status onto the local status.
// Fail-closed: unknown statuses map to FAILED.
func MapGatewayStatus(raw string) PaymentStatus {
	switch raw {
	case GatewayStatusSuccessful:
		return PaymentStatusSuccess
	case GatewayStatusPending:
		return PaymentStatusPending
	case GatewayStatusFailed:
		return PaymentStatusFailed
	default:
		return PaymentStatusFailed
	}
}

// Payment records a mobile-money collection attempt for a forfait purchase.
// Rows are never deleted; they are the audit trail for support and
// reconciliation.
type Payment struct {
	ID               string // UUID
	UserID           string // UUID of the buyer
	ProductID        string // UUID of the listing being boosted
	ForfaitID        string // UUID -> Forfait (authoritative for activation)
	Amount           int64  // minor units
	Currency         string // "XAF"
	PhoneNumber      string // normalized MSISDN (237XXXXXXXXX)
	Method           PaymentMethod
	Status           PaymentStatus
	ExternalRef      string  // our merchant reference sent to the gateway (ULID)
	GatewayReference *string // aggregator reference; nil until the collect request is accepted
	GatewayStatus    string  // last raw upstream status, advisory only
	USSDCode         string  // dial instructions returned by the gateway, if any
	FailureReason    string
	PaidAt           *time.Time
	Metadata         map[string]interface{} // last-seen gateway payload (JSONB)
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
