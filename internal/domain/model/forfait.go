package model

import "time"

type ForfaitType string

const (
	ForfaitTypeUrgent     ForfaitType = "URGENT"
	ForfaitTypeTopAnnonce ForfaitType = "TOP_ANNONCE"
	ForfaitTypeALaUne     ForfaitType = "A_LA_UNE"
	ForfaitTypePremium    ForfaitType = "PREMIUM"
)

// Forfait is a catalog entry describing a promotional boost that can be bought
// for a listing. The catalog is provisioned by cmd/seed and read-only at runtime.
type Forfait struct {
	ID           string      // UUID
	Type         ForfaitType // see constants above
	Price        int64       // minor units (XAF has no subunit, so 1:1)
	DurationDays int         // how long the boost stays active once paid
	CreatedAt    time.Time
}

// GatewayMinAmount is the smallest collect amount the aggregator accepts,
// in minor units. Requests below it are rejected before any HTTP call.
const GatewayMinAmount int64 = 100
