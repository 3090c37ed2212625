package model

import "time"

// ProductForfait is an activated boost on a listing. Created exactly once per
// successful payment; the expiry sweep flips IsActive off. The database enforces
// at most one row per (ProductID, ForfaitID) with IsActive and ExpiresAt in the
// future via a partial unique index, and activation re-checks under a row lock.
type ProductForfait struct {
	ID            string // UUID
	ProductID     string
	ForfaitID     string
	PaymentID     string
	ActivatedAt   time.Time
	ExpiresAt     time.Time
	IsActive      bool
	DeactivatedAt *time.Time
}

// Live reports whether the boost is still serving at the given instant.
func (pf *ProductForfait) Live(now time.Time) bool {
	return pf.IsActive && pf.ExpiresAt.After(now)
}
