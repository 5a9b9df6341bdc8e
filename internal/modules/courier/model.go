// README: Courier profile and dispatch-eligibility fields.
package courier

import (
	"time"

	"deliverycity/internal/types"
)

type AccountStatus string

const (
	AccountPending  AccountStatus = "PENDING"
	AccountApproved AccountStatus = "APPROVED"
	AccountBlocked  AccountStatus = "BLOCKED"
)

type Profile struct {
	ID           types.ID `json:"id"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	Phone        string   `json:"phone"`
	VehicleType  string   `json:"vehicle_type"`
	LicensePlate string   `json:"license_plate"`
	PixKey       string   `json:"pix_key"`

	Status AccountStatus `json:"status"`

	// Rolling review aggregate. AverageRating is 0 until the first rating
	// lands; dispatch treats an unrated courier as 5.0.
	AverageRating float64 `json:"average_rating"`
	RatingsCount  int     `json:"ratings_count"`

	// BalanceCents is the courier's wallet, adjusted atomically server-side.
	BalanceCents int64 `json:"balance_cents"`

	// LastCompletedAt feeds the dispatch fairness factor.
	LastCompletedAt *time.Time `json:"last_completed_at,omitempty"`

	// Position is the last known location from the device stream; nil when
	// the courier has never reported one.
	Position *types.Point `json:"position,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Eligible reports whether the courier may receive offers.
func (p *Profile) Eligible() bool {
	return p.Status == AccountApproved
}
