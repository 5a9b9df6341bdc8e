// README: Dispatch scoring model. Offers are ranked per courier by
// proximity, reputation, and fairness; the weights come from years of
// tuning in the driver app and change rarely.
package dispatch

import (
	"math"
	"time"

	"deliverycity/internal/modules/order"
	"deliverycity/internal/types"
)

const (
	proximityWeight  = 6.0
	reputationWeight = 0.5
	fairnessWeight   = 3.0

	// distanceEpsilonKm keeps the proximity term bounded at zero distance.
	distanceEpsilonKm = 0.1

	// Fairness saturates after fairnessCap windows of fairnessWindow idle.
	fairnessCap    = 5.0
	fairnessWindow = 15 * time.Minute

	// Defaults for couriers with no history.
	defaultIdle   = 60 * time.Minute
	defaultRating = 5.0

	// pinnedDistanceKm stands in when the courier has never reported a
	// position.
	pinnedDistanceKm = 5.0
)

// Candidate is one scored offer for a specific courier.
type Candidate struct {
	Order            *order.Order
	RestaurantCoords types.Point
	DistanceKm       float64
	Score            float64
}

// Score ranks an offer for a courier. Closer pickups, better-rated couriers,
// and couriers idle longer all score higher.
func Score(distanceKm, rating float64, idle time.Duration) float64 {
	proximity := (1.0 / (distanceKm + distanceEpsilonKm)) * proximityWeight
	reputation := rating * reputationWeight
	fairness := math.Min(fairnessCap, idle.Minutes()/fairnessWindow.Minutes()) * fairnessWeight
	return proximity + reputation + fairness
}
